package config

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/handlers/firewall"
	"github.com/charleshuang3/teams/internal/identity"
	"github.com/charleshuang3/teams/internal/notify"
	"github.com/charleshuang3/teams/internal/teams"
)

var (
	logger = log.With().Str("component", "config").Logger()
)

type Config struct {
	Port            uint   `yaml:"port"`
	BanHandlersPort uint   `yaml:"ban_handlers_port"`
	GinMode         string `yaml:"gin_mode"`

	DB       gormw.Config             `yaml:"db"`
	Auth     identity.Config          `yaml:"auth"`
	Teams    teams.Config             `yaml:"teams"`
	Notifier notify.Config            `yaml:"notifier"`
	Firewall *firewall.FirewallConfig `yaml:"firewall"`
}

func LoadConfig(path string) *Config {
	cfg := &Config{}

	file, err := os.Open(path)
	if err != nil {
		logger.Fatal().Err(err).Msgf("failed to open config file: %s", path)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		logger.Fatal().Err(err).Msg("failed to decode config file")
	}

	cfg.applyDefaults()
	cfg.validate()

	return cfg
}

func (c *Config) applyDefaults() {
	if c.GinMode == "" {
		c.GinMode = gin.ReleaseMode
	}

	c.Auth.ApplyDefaults()
	c.Teams.ApplyDefaults()
	c.Notifier.ApplyDefaults()
}

func (c *Config) validate() {
	if c.Port == 0 {
		logger.Fatal().Msg("Port is missing")
	}

	switch c.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		logger.Fatal().Msgf("GinMode %s is not supported", c.GinMode)
	}

	c.Auth.Validate()
	c.Teams.Validate()
	c.Notifier.Validate()

	if c.Firewall != nil {
		if c.BanHandlersPort == 0 {
			logger.Fatal().Msg("BanHandlersPort is missing")
		}
		if c.BanHandlersPort == c.Port {
			logger.Fatal().Msg("BanHandlersPort must differ from Port")
		}
		c.Firewall.Validate()
	}
}
