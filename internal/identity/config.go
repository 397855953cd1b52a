package identity

import (
	"net/http"
	"slices"
	"time"
)

type CookieConfig struct {
	AccessName  string `yaml:"access_name"`
	RefreshName string `yaml:"refresh_name"`
	Domain      string `yaml:"domain"`
	Secure      bool   `yaml:"secure"`
	// SameSite is one of "lax", "strict", "none".
	SameSite string `yaml:"same_site"`
}

type OIDCConfig struct {
	Issuer   string `yaml:"issuer"`
	ClientID string `yaml:"client_id"`
}

type Config struct {
	// PrivateKeyPEM is RSA 256 private key in PEM format
	PrivateKeyPEM string `yaml:"private_key_pem"`

	// Issuer is the iss claim of issued tokens.
	Issuer string `yaml:"issuer"`

	AccessTokenTTL  int `yaml:"access_token_ttl"`  // seconds
	RefreshTokenTTL int `yaml:"refresh_token_ttl"` // seconds

	Cookie CookieConfig `yaml:"cookie"`

	// OIDC optionally accepts ID tokens of an external issuer.
	OIDC *OIDCConfig `yaml:"oidc"`
}

const (
	defaultAccessTokenTTL  = 5 * 60
	defaultRefreshTokenTTL = 24 * 60 * 60
)

var (
	supportedSameSite = []string{"", "lax", "strict", "none"}
)

func (c *Config) ApplyDefaults() {
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = defaultAccessTokenTTL
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	if c.Cookie.AccessName == "" {
		c.Cookie.AccessName = "access_token"
	}
	if c.Cookie.RefreshName == "" {
		c.Cookie.RefreshName = "refresh_token"
	}
}

func (c *Config) Validate() {
	if c.PrivateKeyPEM == "" {
		logger.Fatal().Msg("AuthConfig: PrivateKeyPEM is missing")
	}
	if c.Issuer == "" {
		logger.Fatal().Msg("AuthConfig: Issuer is missing")
	}
	if !slices.Contains(supportedSameSite, c.Cookie.SameSite) {
		logger.Fatal().Msgf("AuthConfig: SameSite %s is not supported", c.Cookie.SameSite)
	}
	if c.OIDC != nil {
		if c.OIDC.Issuer == "" {
			logger.Fatal().Msg("AuthConfig: OIDC Issuer is missing")
		}
		if c.OIDC.ClientID == "" {
			logger.Fatal().Msg("AuthConfig: OIDC ClientID is missing")
		}
	}
}

func (c *Config) AccessTokenTTLDuration() time.Duration {
	return time.Duration(c.AccessTokenTTL) * time.Second
}

func (c *Config) RefreshTokenTTLDuration() time.Duration {
	return time.Duration(c.RefreshTokenTTL) * time.Second
}

func (c *CookieConfig) SameSiteMode() http.SameSite {
	switch c.SameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
