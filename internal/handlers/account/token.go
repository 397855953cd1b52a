package account

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charleshuang3/teams/internal/handlers/firewall"
	"github.com/charleshuang3/teams/internal/handlers/middleware"
	"github.com/charleshuang3/teams/internal/identity"
	"github.com/charleshuang3/teams/internal/storage"
)

func (p *Provider) handleTokenRefresh(c *gin.Context) {
	raw, err := c.Cookie(p.config.Cookie.RefreshName)
	if err != nil || raw == "" {
		middleware.AbortUnauthorized(c, "Refresh token not provided in cookies")
		return
	}

	tokens, err := p.issuer.Refresh(c.Request.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrTokenReplayed):
			firewall.Flag(c, "refresh token replay")
			p.clearTokenCookies(c)
		case errors.Is(err, identity.ErrInvalidToken), errors.Is(err, identity.ErrTokenExpired):
		default:
			responseInternalError(c, err, "Failed to refresh tokens")
			return
		}
		middleware.AbortUnauthorized(c, "Invalid refresh token or not provided")
		return
	}

	p.setTokenCookies(c, tokens)
	c.JSON(http.StatusOK, gin.H{"message": "Access token refreshed successfully"})
}

func (p *Provider) handleTokenVerify(c *gin.Context) {
	raw, err := c.Cookie(p.config.Cookie.AccessName)
	if err != nil || raw == "" {
		middleware.AbortUnauthorized(c, "Access token not provided in cookies")
		return
	}

	principal, err := p.issuer.Verify(c.Request.Context(), raw)
	if err != nil {
		middleware.AbortUnauthorized(c, "Invalid token")
		return
	}

	user, err := storage.GetUserByID(p.db.Ctx(c.Request.Context()), principal.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.AbortUnauthorized(c, "User not found or token invalid")
			return
		}
		responseInternalError(c, err, "Database error during token verify")
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

func (p *Provider) handleLogout(c *gin.Context) {
	if raw, err := c.Cookie(p.config.Cookie.RefreshName); err == nil && raw != "" {
		if err := p.issuer.Revoke(c.Request.Context(), raw); err != nil {
			logger.Error().Err(err).Msg("Failed to revoke refresh token")
		}
	}

	p.clearTokenCookies(c)
	responseDetail(c, http.StatusOK, "Successfully logged out.")
}
