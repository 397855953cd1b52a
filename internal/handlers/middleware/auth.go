// Package middleware authenticates API requests.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/teams/internal/identity"
)

var (
	logger = log.With().Str("component", "auth").Logger()
)

const (
	KeyPrincipal = "PRINCIPAL"

	// CodeTokenNotValid tells clients to refresh or log in again.
	CodeTokenNotValid = "token_not_valid"
)

type Auth struct {
	verifier     identity.Verifier
	accessCookie string
}

func NewAuth(verifier identity.Verifier, accessCookie string) *Auth {
	return &Auth{
		verifier:     verifier,
		accessCookie: accessCookie,
	}
}

// rawToken reads the bearer header first, then the access cookie.
func (a *Auth) rawToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if a.accessCookie == "" {
		return ""
	}
	token, err := c.Cookie(a.accessCookie)
	if err != nil {
		return ""
	}
	return token
}

func (a *Auth) authenticate(c *gin.Context) (*identity.Principal, error) {
	raw := a.rawToken(c)
	if raw == "" {
		return nil, identity.ErrInvalidToken
	}
	return a.verifier.Verify(c.Request.Context(), raw)
}

// Required rejects the request with 401 unless it carries a valid token.
func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := a.authenticate(c)
		if err != nil {
			detail := "Given token not valid for any token type"
			switch {
			case errors.Is(err, identity.ErrTokenExpired):
				detail = "Token is expired"
			case errors.Is(err, identity.ErrInvalidToken):
			default:
				logger.Error().Err(err).Msg("Failed to verify token")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"detail": http.StatusText(http.StatusInternalServerError),
				})
				return
			}
			AbortUnauthorized(c, detail)
			return
		}

		c.Set(KeyPrincipal, p)
		c.Next()
	}
}

// Optional sets the principal when the request carries a valid token.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, err := a.authenticate(c); err == nil {
			c.Set(KeyPrincipal, p)
		}
		c.Next()
	}
}

func AbortUnauthorized(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"detail": detail,
		"code":   CodeTokenNotValid,
	})
}

// Principal returns the authenticated caller, nil if none.
func Principal(c *gin.Context) *identity.Principal {
	v, ok := c.Get(KeyPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*identity.Principal)
	return p
}
