package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/storage"
)

// OIDCVerifier accepts ID tokens of an external issuer and provisions the
// matching local user by email on first sight.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
	db       *gormw.DB
}

func NewOIDCVerifier(ctx context.Context, config *OIDCConfig, db *gormw.DB) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, config.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc issuer %s: %w", config.Issuer, err)
	}

	return newOIDCVerifier(provider.Verifier(&oidc.Config{ClientID: config.ClientID}), db), nil
}

func newOIDCVerifier(verifier *oidc.IDTokenVerifier, db *gormw.DB) *OIDCVerifier {
	return &OIDCVerifier{verifier: verifier, db: db}
}

type oidcClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Principal, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims := &oidcClaims{}
	if err := idToken.Claims(claims); err != nil {
		return nil, ErrInvalidToken
	}

	// the email links to local accounts and invitations, so the issuer must
	// vouch for it.
	if strings.TrimSpace(claims.Email) == "" || !claims.EmailVerified {
		return nil, ErrInvalidToken
	}

	user, err := storage.FirstOrCreateUserByEmail(v.db.Ctx(ctx), claims.Email, claims.GivenName, claims.FamilyName)
	if err != nil {
		logger.Error().Err(err).Str("email", claims.Email).Msg("Failed to provision user")
		return nil, err
	}

	return PrincipalOf(user), nil
}

var (
	_ Verifier = (*OIDCVerifier)(nil)
	_ Verifier = (*Issuer)(nil)
	_ Verifier = Chain(nil)
)
