package teams

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/storage"
)

// Registry answers membership questions. Every method runs on the DB it is
// given, so callers can compose them inside one transaction.
type Registry struct{}

func NewRegistry() *Registry {
	return &Registry{}
}

// IsMember compares emails case-insensitively.
func (r *Registry) IsMember(ctx context.Context, db *gormw.DB, teamID uint, email string) (bool, error) {
	return storage.IsMemberByEmail(db.Ctx(ctx), teamID, email)
}

// IsLastPrivilegedMember reports whether m can manage members and no other
// membership of the team can.
func (r *Registry) IsLastPrivilegedMember(ctx context.Context, db *gormw.DB, m *models.Membership) (bool, error) {
	db = db.Ctx(ctx)

	role, err := storage.GetRoleByID(db, m.RoleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrRoleNotFound
		}
		return false, err
	}
	if !role.CanManageMembers() {
		return false, nil
	}

	roles, err := storage.ListTeamRoles(db, m.TeamID)
	if err != nil {
		return false, err
	}

	managers := 0
	for i := range roles {
		if roles[i].CanManageMembers() {
			managers++
		}
	}
	return managers <= 1, nil
}

func (r *Registry) Get(ctx context.Context, db *gormw.DB, teamID, userID uint) (*models.Membership, error) {
	m, err := storage.GetMembership(db.Ctx(ctx), teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *Registry) Add(ctx context.Context, db *gormw.DB, m *models.Membership) error {
	return storage.AddMembership(db.Ctx(ctx), m)
}

func (r *Registry) UpdateRole(ctx context.Context, db *gormw.DB, m *models.Membership, roleID uint) error {
	return storage.UpdateMembershipRole(db.Ctx(ctx), m, roleID)
}

func (r *Registry) Remove(ctx context.Context, db *gormw.DB, m *models.Membership) error {
	return storage.RemoveMembership(db.Ctx(ctx), m)
}

func (r *Registry) ListForTeam(ctx context.Context, db *gormw.DB, teamID uint) ([]storage.MemberRow, error) {
	return storage.ListMemberRows(db.Ctx(ctx), teamID)
}

func (r *Registry) GetRow(ctx context.Context, db *gormw.DB, teamID, userID uint) (*storage.MemberRow, error) {
	row, err := storage.GetMemberRow(db.Ctx(ctx), teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return row, nil
}

func (r *Registry) TeamsForUser(ctx context.Context, db *gormw.DB, userID uint) ([]models.Team, error) {
	return storage.ListTeamsForUser(db.Ctx(ctx), userID)
}
