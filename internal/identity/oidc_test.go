package identity

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glog "gorm.io/gorm/logger"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/storage"
	"github.com/charleshuang3/teams/testdata"
)

const (
	externalIssuer = "https://idp.example.com"
	clientID       = "teams"
)

func setupOIDCVerifier(t *testing.T) (*OIDCVerifier, *gormw.DB) {
	t.Helper()
	db, err := gormw.Open(&gormw.Config{LogLevel: glog.Silent})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	block, _ := pem.Decode([]byte(testdata.PublicKeyPEM))
	require.NotNil(t, block)
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)

	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{pub}}
	v := newOIDCVerifier(oidc.NewVerifier(externalIssuer, keySet, &oidc.Config{ClientID: clientID}), db)
	return v, db
}

func signIDToken(t *testing.T, issuer, audience string, exp time.Time, extra map[string]any) string {
	t.Helper()
	priv, err := jwk.ParseKey([]byte(testdata.PrivateKeyPEM), jwk.WithPEM(true))
	require.NoError(t, err)

	b := jwt.NewBuilder().
		Issuer(issuer).
		Audience([]string{audience}).
		Subject("external-42").
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(exp)
	for k, v := range extra {
		b.Claim(k, v)
	}
	token, err := b.Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256(), priv))
	require.NoError(t, err)
	return string(signed)
}

func TestOIDCVerifier_ProvisionsUser(t *testing.T) {
	v, db := setupOIDCVerifier(t)
	ctx := context.Background()

	raw := signIDToken(t, externalIssuer, clientID, time.Now().Add(time.Hour), map[string]any{
		"email":          "Grace@Example.com",
		"email_verified": true,
		"given_name":     "Grace",
		"family_name":    "Hopper",
	})

	p, err := v.Verify(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", p.Email)
	assert.Equal(t, "Grace Hopper", p.DisplayName)

	user, err := storage.GetUserByEmail(db, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.UserID)
	assert.Empty(t, user.HashedPassword)

	// second sight reuses the row
	again, err := v.Verify(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, p.UserID, again.UserID)
}

func TestOIDCVerifier_Rejects(t *testing.T) {
	v, _ := setupOIDCVerifier(t)
	ctx := context.Background()
	email := map[string]any{"email": "grace@example.com", "email_verified": true}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{
			name:  "wrong audience",
			token: signIDToken(t, externalIssuer, "someone-else", time.Now().Add(time.Hour), email),
			want:  ErrInvalidToken,
		},
		{
			name:  "wrong issuer",
			token: signIDToken(t, "https://evil.example.com", clientID, time.Now().Add(time.Hour), email),
			want:  ErrInvalidToken,
		},
		{
			name:  "expired",
			token: signIDToken(t, externalIssuer, clientID, time.Now().Add(-time.Second), email),
			want:  ErrTokenExpired,
		},
		{
			name:  "no email",
			token: signIDToken(t, externalIssuer, clientID, time.Now().Add(time.Hour), nil),
			want:  ErrInvalidToken,
		},
		{
			name: "unverified email",
			token: signIDToken(t, externalIssuer, clientID, time.Now().Add(time.Hour), map[string]any{
				"email":          "grace@example.com",
				"email_verified": false,
			}),
			want: ErrInvalidToken,
		},
		{
			name:  "email_verified missing",
			token: signIDToken(t, externalIssuer, clientID, time.Now().Add(time.Hour), map[string]any{"email": "grace@example.com"}),
			want:  ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(ctx, tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
