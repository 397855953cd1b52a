// Package identity turns bearer tokens into the acting Principal.
package identity

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/teams/internal/models"
)

var (
	logger = log.With().Str("component", "identity").Logger()
)

var (
	ErrInvalidToken  = errors.New("token is invalid")
	ErrTokenExpired  = errors.New("token is expired")
	ErrTokenReplayed = errors.New("refresh token was already used")
)

// Principal is the authenticated caller.
type Principal struct {
	UserID      uint
	Email       string
	DisplayName string
}

func PrincipalOf(user *models.User) *Principal {
	return &Principal{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName(),
	}
}

type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Principal, error)
}

// Chain tries each verifier in order and returns the first success. An
// expired token is reported as such when no verifier accepts it. Errors
// other than token errors stop the chain.
type Chain []Verifier

func (c Chain) Verify(ctx context.Context, rawToken string) (*Principal, error) {
	err := ErrInvalidToken
	for _, v := range c {
		p, verr := v.Verify(ctx, rawToken)
		switch {
		case verr == nil:
			return p, nil
		case errors.Is(verr, ErrTokenExpired):
			err = verr
		case errors.Is(verr, ErrInvalidToken):
		default:
			return nil, verr
		}
	}
	return nil, err
}
