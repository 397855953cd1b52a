package teams

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/identity"
	"github.com/charleshuang3/teams/internal/metrics"
	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/storage"
)

type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// TeamResource is anything scoped to one team.
type TeamResource interface {
	ResolveTeam() uint
}

// TeamID adapts a bare team id to TeamResource.
type TeamID uint

func (id TeamID) ResolveTeam() uint {
	return uint(id)
}

// Evaluator decides team-scoped permissions from the caller's membership
// role. Tags match exactly.
type Evaluator struct {
	db      *gormw.DB
	roles   *RoleStore
	metrics *metrics.Metrics
}

func NewEvaluator(db *gormw.DB, roles *RoleStore, m *metrics.Metrics) *Evaluator {
	return &Evaluator{
		db:      db,
		roles:   roles,
		metrics: m,
	}
}

// Evaluate denies on any lookup failure.
func (e *Evaluator) Evaluate(ctx context.Context, userID, teamID uint, permission string) Decision {
	d := e.evaluate(ctx, userID, teamID, permission)
	e.metrics.PermissionCheck(permission, d == Allow)
	return d
}

func (e *Evaluator) evaluate(ctx context.Context, userID, teamID uint, permission string) Decision {
	role, err := e.roleOf(ctx, userID, teamID)
	if err != nil {
		if !errors.Is(err, ErrForbidden) {
			logger.Error().Err(err).
				Uint("user_id", userID).
				Uint("team_id", teamID).
				Str("permission", permission).
				Msg("Permission lookup failed, denying")
		}
		return Deny
	}

	if role.HasPermission(permission) {
		return Allow
	}
	return Deny
}

func (e *Evaluator) roleOf(ctx context.Context, userID, teamID uint) (*models.Role, error) {
	m, err := storage.GetMembership(e.db.Ctx(ctx), teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	return e.roles.Get(ctx, m.RoleID)
}

// Authorize returns ErrForbidden unless p holds permission on the resource's
// team.
func (e *Evaluator) Authorize(ctx context.Context, p *identity.Principal, res TeamResource, permission string) error {
	if p == nil {
		return ErrForbidden
	}
	if e.Evaluate(ctx, p.UserID, res.ResolveTeam(), permission) == Deny {
		return ErrForbidden
	}
	return nil
}

// PermissionsFor returns the caller's role in the team. Non-members get
// ErrForbidden.
func (e *Evaluator) PermissionsFor(ctx context.Context, userID, teamID uint) (*models.Role, error) {
	role, err := e.roleOf(ctx, userID, teamID)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			return nil, err
		}
		logger.Error().Err(err).Uint("user_id", userID).Uint("team_id", teamID).Msg("Permission lookup failed")
		return nil, ErrForbidden
	}
	return role, nil
}
