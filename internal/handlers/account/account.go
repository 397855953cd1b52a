// Package account serves signup and the cookie based token endpoints.
package account

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/identity"
	"github.com/charleshuang3/teams/internal/models"
)

var (
	logger = log.With().Str("component", "account").Logger()
)

type Provider struct {
	config *identity.Config
	db     *gormw.DB
	issuer *identity.Issuer
}

func New(config *identity.Config, db *gormw.DB, issuer *identity.Issuer) *Provider {
	return &Provider{
		config: config,
		db:     db,
		issuer: issuer,
	}
}

func (p *Provider) RegisterHandlers(rg *gin.RouterGroup) {
	rg.POST("/signup/", p.handleSignup)
	rg.POST("/token/", p.handleToken)
	rg.POST("/token/refresh/", p.handleTokenRefresh)
	rg.POST("/token/verify/", p.handleTokenVerify)
	rg.POST("/logout/", p.handleLogout)
}

type userResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

func newUserResponse(u *models.User) *userResponse {
	return &userResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
	}
}

func (p *Provider) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(p.config.Cookie.SameSiteMode())
	c.SetCookie(name, value, maxAge, "/", p.config.Cookie.Domain, p.config.Cookie.Secure, true)
}

func (p *Provider) setTokenCookies(c *gin.Context, tokens *identity.Tokens) {
	p.setCookie(c, p.config.Cookie.AccessName, tokens.Access, p.config.AccessTokenTTL)
	p.setCookie(c, p.config.Cookie.RefreshName, tokens.Refresh, p.config.RefreshTokenTTL)
}

func (p *Provider) clearTokenCookies(c *gin.Context) {
	p.setCookie(c, p.config.Cookie.AccessName, "", -1)
	p.setCookie(c, p.config.Cookie.RefreshName, "", -1)
}

func responseDetail(c *gin.Context, httpCode int, detail string) {
	c.JSON(httpCode, gin.H{"detail": detail})
}

func responseInternalError(c *gin.Context, err error, msg string) {
	logger.Error().Err(err).Msg(msg)
	responseDetail(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
