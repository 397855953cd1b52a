package firewall

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	fw "github.com/charleshuang3/firewall"
	"github.com/charleshuang3/firewall/gcplog"
	"github.com/charleshuang3/firewall/ipgeo"
	"github.com/charleshuang3/firewall/opn"
	"github.com/charleshuang3/firewall/pf"
	"github.com/charleshuang3/firewall/ros"
	"github.com/charleshuang3/firewall/zerolog"
)

var (
	logger = log.With().Str("component", "firewall").Logger()
)

type ForgivableError struct {
	DurationInMinute uint `yaml:"duration_in_minute"`
	Count            uint `yaml:"count"`
}

type FirewallConfig struct {
	Provider         string          `yaml:"provider"`
	ProviderIP       string          `yaml:"provider_ip"`
	ProviderUser     string          `yaml:"provider_user"`
	ProviderPassword string          `yaml:"provider_password"`
	ListUUID         string          `yaml:"list_uuid"`
	BanMinutes       uint            `yaml:"ban_minutes"`
	Whitelist        []string        `yaml:"whitelist"`
	Forgivable       ForgivableError `yaml:"forgivable"`

	CityDBFile        string `yaml:"city_db_file"`
	UpdatedCityDBFile string `yaml:"updated_city_db_file"`
	ASNDBFile         string `yaml:"asn_db_file"`
	UpdatedASNDBFile  string `yaml:"updated_asn_db_file"`

	GoogleKeyFile   string `yaml:"google_key_file"`
	GoogleProjectID string `yaml:"google_project_id"`
}

var (
	supportedProviders = []string{"none", "ros", "opn", "pf"}
)

const (
	defaultBanMinutes       = 10
	defaultDurationInMinute = 10
	defaultCount            = 3

	KeyHackingError = "HACKING_ERROR"

	reasonUnmatchedRoute = "undefined_url"
	loggerName           = "teams"
)

// Flag marks the request as suspicious. The middleware counts it against
// the client IP once the handler returns.
func Flag(c *gin.Context, reason string) {
	c.Set(KeyHackingError, c.FullPath()+" "+reason)
}

func (c *FirewallConfig) Validate() {
	if !slices.Contains(supportedProviders, c.Provider) {
		logger.Fatal().Msgf("Provider %s is not supported", c.Provider)
	}

	if c.Provider != "none" {
		if c.ProviderIP == "" {
			logger.Fatal().Msg("ProviderIP is missing")
		}

		if c.ProviderUser == "" {
			logger.Fatal().Msg("ProviderUser is missing")
		}

		if c.ProviderPassword == "" {
			logger.Fatal().Msg("ProviderPassword is missing")
		}

		if c.Provider == "opn" && c.ListUUID == "" {
			logger.Fatal().Msg("ListUUID is missing")
		}
	}

	if c.CityDBFile == "" {
		logger.Fatal().Msg("CityDBFile is missing")
	}

	if c.UpdatedCityDBFile == "" {
		logger.Fatal().Msg("UpdatedCityDBFile is missing")
	}

	if c.ASNDBFile == "" {
		logger.Fatal().Msg("ASNDBFile is missing")
	}

	if c.UpdatedASNDBFile == "" {
		logger.Fatal().Msg("UpdatedASNDBFile is missing")
	}

	c.applyDefault()
}

func (c *FirewallConfig) applyDefault() {
	if c.BanMinutes == 0 {
		c.BanMinutes = defaultBanMinutes
	}

	if c.Forgivable.DurationInMinute == 0 {
		c.Forgivable.DurationInMinute = defaultDurationInMinute
	}

	if c.Forgivable.Count == 0 {
		c.Forgivable.Count = defaultCount
	}
}

// Guard counts errors against client IPs and bans them.
type Guard interface {
	LogIPError(ip, reason string)
	BanIP(ip string, banMinutes int, reason string)
}

type libGuard struct {
	fw *fw.Firewall
}

func (g libGuard) LogIPError(ip, reason string) {
	g.fw.LogIPError(ip, reason)
}

func (g libGuard) BanIP(ip string, banMinutes int, reason string) {
	g.fw.BanIP(ip, banMinutes, reason)
}

type Firewall struct {
	guard Guard
	conf  *FirewallConfig
}

// NewWithGuard wraps any Guard, New uses the network firewall.
func NewWithGuard(conf *FirewallConfig, guard Guard) *Firewall {
	conf.applyDefault()
	return &Firewall{
		guard: guard,
		conf:  conf,
	}
}

func New(conf *FirewallConfig) *Firewall {
	var firewallProvider fw.IFirewall
	switch conf.Provider {
	case "ros":
		firewallProvider = ros.New(
			conf.ProviderIP, conf.ProviderUser, conf.ProviderPassword)
	case "pf":
		firewallProvider = pf.New(
			conf.ProviderIP, conf.ProviderUser, conf.ProviderPassword)
	case "opn":
		firewallProvider = opn.New(
			conf.ProviderIP, conf.ProviderUser, conf.ProviderPassword, conf.ListUUID)
	default:
		// keep firewallProvider nil which means no block on firewall
	}

	var fwlogger fw.ILogger
	if conf.GoogleKeyFile != "" {
		var err error
		fwlogger, err = gcplog.New(conf.GoogleKeyFile, conf.GoogleProjectID, loggerName)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create gcp logger")
		}
	} else {
		// fallback to local log if no google key file.
		fwlogger = zerolog.New(logger, zlog.InfoLevel, loggerName)
	}

	mm, err := ipgeo.NewAutoUpdateMMIPGeo(
		conf.CityDBFile,
		conf.UpdatedCityDBFile,
		conf.ASNDBFile,
		conf.UpdatedASNDBFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create firewall middleware")
	}

	fw := fw.New(
		conf.Whitelist,
		firewallProvider,
		fwlogger,
		mm,
		fw.ForgivableError{
			Duration:    time.Duration(conf.Forgivable.DurationInMinute) * time.Minute,
			Count:       int(conf.Forgivable.Count),
			BanInMinute: int(conf.BanMinutes),
		})

	return NewWithGuard(conf, libGuard{fw: fw})
}

// Middleware counts flagged requests and requests to routes the router does
// not know. A 404 from a known route is a normal answer and is not counted.
func (f *Firewall) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if reason, ok := c.Get(KeyHackingError); ok {
			f.guard.LogIPError(c.ClientIP(), reason.(string))
			return
		}

		if c.FullPath() == "" && c.Writer.Status() == http.StatusNotFound {
			f.guard.LogIPError(c.ClientIP(), reasonUnmatchedRoute)
		}
	}
}
