package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"gorm.io/gorm"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/storage"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Tokens is a freshly issued access and refresh token pair.
type Tokens struct {
	Access  string
	Refresh string
}

// Issuer signs and verifies the service's own RS256 tokens.
type Issuer struct {
	config *Config
	db     *gormw.DB

	privateKey jwk.Key
	publicKey  jwk.Key

	now func() time.Time
}

func NewIssuer(config *Config, db *gormw.DB) (*Issuer, error) {
	priv, err := jwk.ParseKey([]byte(config.PrivateKeyPEM), jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	pub, err := priv.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate public key: %w", err)
	}

	return &Issuer{
		config:     config,
		db:         db,
		privateKey: priv,
		publicKey:  pub,
		now:        time.Now,
	}, nil
}

func (i *Issuer) sign(user *models.User, typ string, ttl time.Duration) (string, error) {
	now := i.now()
	token, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Issuer(i.config.Issuer).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Subject(strconv.FormatUint(uint64(user.ID), 10)).
		Claim("email", user.Email).
		Claim("name", user.DisplayName()).
		Claim("typ", typ).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build %s token claims: %v", typ, err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256(), i.privateKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %v", typ, err)
	}

	return string(signed), nil
}

// Issue returns a new token pair and records the refresh token signature.
func (i *Issuer) Issue(ctx context.Context, user *models.User) (*Tokens, error) {
	access, err := i.sign(user, tokenTypeAccess, i.config.AccessTokenTTLDuration())
	if err != nil {
		return nil, err
	}

	refresh, err := i.sign(user, tokenTypeRefresh, i.config.RefreshTokenTTLDuration())
	if err != nil {
		return nil, err
	}

	if err := storage.AddRefreshToken(i.db.Ctx(ctx), &models.RefreshToken{
		Sign:      tokenSign(refresh),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: i.now().Add(i.config.RefreshTokenTTLDuration()).UTC(),
	}); err != nil {
		return nil, err
	}

	return &Tokens{Access: access, Refresh: refresh}, nil
}

type claims struct {
	userID uint
	email  string
	name   string
}

func (i *Issuer) parse(rawToken, wantType string) (*claims, error) {
	if len(strings.Split(rawToken, ".")) != 3 {
		return nil, ErrInvalidToken
	}

	// Verify the token, this also check if the token is expired.
	verified, err := jwt.Parse([]byte(rawToken),
		jwt.WithKey(jwa.RS256(), i.publicKey),
		jwt.WithIssuer(i.config.Issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.TokenExpiredError()) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if _, ok := verified.Expiration(); !ok {
		return nil, ErrInvalidToken
	}

	var typ string
	if err := verified.Get("typ", &typ); err != nil || typ != wantType {
		return nil, ErrInvalidToken
	}

	sub, ok := verified.Subject()
	if !ok {
		return nil, ErrInvalidToken
	}
	id, err := strconv.ParseUint(sub, 10, 0)
	if err != nil || id == 0 {
		return nil, ErrInvalidToken
	}

	c := &claims{userID: uint(id)}
	if err := verified.Get("email", &c.email); err != nil {
		return nil, ErrInvalidToken
	}
	// name is informational.
	_ = verified.Get("name", &c.name)
	return c, nil
}

// Verify accepts access tokens only.
func (i *Issuer) Verify(_ context.Context, rawToken string) (*Principal, error) {
	c, err := i.parse(rawToken, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return &Principal{UserID: c.userID, Email: c.email, DisplayName: c.name}, nil
}

// Refresh rotates a refresh token. Presenting a used token revokes every
// refresh token of the user.
func (i *Issuer) Refresh(ctx context.Context, rawToken string) (*Tokens, error) {
	c, err := i.parse(rawToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	db := i.db.Ctx(ctx)
	refreshToken, err := storage.GetRefreshTokenBySign(db, tokenSign(rawToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error().Msg("Refresh token not found, private key leak?")
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if refreshToken.Revoked || refreshToken.UserID != c.userID {
		return nil, ErrInvalidToken
	}

	if refreshToken.Used {
		return nil, i.replayed(db, c.userID)
	}

	user, err := storage.GetUserByID(db, c.userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	claimed, err := storage.MarkRefreshTokenUsed(db, refreshToken)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, i.replayed(db, c.userID)
	}

	return i.Issue(ctx, user)
}

func (i *Issuer) replayed(db *gormw.DB, userID uint) error {
	logger.Error().Uint("user_id", userID).Msg("Replay attack detected")
	if err := storage.RevokeUserRefreshTokens(db, userID); err != nil {
		logger.Error().Err(err).Msg("Failed to revoke refresh tokens")
	}
	return ErrTokenReplayed
}

// Revoke invalidates a refresh token. Unknown or malformed tokens are ignored.
func (i *Issuer) Revoke(ctx context.Context, rawToken string) error {
	if _, err := i.parse(rawToken, tokenTypeRefresh); err != nil {
		return nil
	}
	return storage.RevokeRefreshToken(i.db.Ctx(ctx), tokenSign(rawToken))
}

func tokenSign(rawToken string) string {
	parts := strings.Split(rawToken, ".")
	return parts[len(parts)-1]
}
