package teams

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/identity"
	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/storage"
)

// Service owns team and membership mutations. Callers authorize first.
type Service struct {
	config   *Config
	db       *gormw.DB
	roles    *RoleStore
	registry *Registry
}

func NewService(config *Config, db *gormw.DB, roles *RoleStore, registry *Registry) *Service {
	return &Service{
		config:   config,
		db:       db,
		roles:    roles,
		registry: registry,
	}
}

// TeamUpdate carries the fields of a partial update; nil fields are kept.
type TeamUpdate struct {
	Name        *string
	Description *string
}

// CreateTeam creates the team and makes the creator a member with the
// creator role.
func (s *Service) CreateTeam(ctx context.Context, creator *identity.Principal, name, description string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("team name is required")
	}

	role, err := s.roles.GetByName(ctx, s.config.CreatorRole)
	if err != nil {
		return nil, err
	}

	team := &models.Team{Name: name, Description: strings.TrimSpace(description)}
	err = s.db.Tx(ctx, func(tx *gormw.DB) error {
		if err := storage.CreateTeam(tx, team); err != nil {
			return err
		}
		return s.registry.Add(ctx, tx, &models.Membership{
			TeamID: team.ID,
			UserID: creator.UserID,
			RoleID: role.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Uint("team_id", team.ID).Uint("user_id", creator.UserID).Msg("Team created")
	return team, nil
}

func (s *Service) GetTeam(ctx context.Context, id uint) (*models.Team, error) {
	team, err := storage.GetTeamByID(s.db.Ctx(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (s *Service) UpdateTeam(ctx context.Context, id uint, update *TeamUpdate) (*models.Team, error) {
	team, err := s.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, invalidInput("team name cannot be blank")
		}
		team.Name = name
	}
	if update.Description != nil {
		team.Description = strings.TrimSpace(*update.Description)
	}

	if err := storage.UpdateTeam(s.db.Ctx(ctx), team); err != nil {
		return nil, err
	}
	return team, nil
}

// DeleteTeam removes the team with its memberships and invitations.
func (s *Service) DeleteTeam(ctx context.Context, id uint) error {
	err := s.db.Tx(ctx, func(tx *gormw.DB) error {
		if _, err := storage.LockTeam(tx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		return storage.DeleteTeam(tx, id)
	})
	if err != nil {
		return err
	}

	logger.Info().Uint("team_id", id).Msg("Team deleted")
	return nil
}

func (s *Service) TeamsForUser(ctx context.Context, userID uint) ([]models.Team, error) {
	return s.registry.TeamsForUser(ctx, s.db, userID)
}

func (s *Service) ListMembers(ctx context.Context, teamID uint) ([]storage.MemberRow, error) {
	return s.registry.ListForTeam(ctx, s.db, teamID)
}

func (s *Service) GetMember(ctx context.Context, teamID, userID uint) (*storage.MemberRow, error) {
	return s.registry.GetRow(ctx, s.db, teamID, userID)
}

// UpdateMemberRole refuses to demote the last member who can manage members.
func (s *Service) UpdateMemberRole(ctx context.Context, teamID, userID, roleID uint) (*storage.MemberRow, error) {
	role, err := s.roles.Get(ctx, roleID)
	if err != nil {
		return nil, err
	}

	err = s.db.Tx(ctx, func(tx *gormw.DB) error {
		if _, err := storage.LockTeam(tx, teamID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}

		m, err := s.registry.Get(ctx, tx, teamID, userID)
		if err != nil {
			return err
		}
		if m.RoleID == role.ID {
			return nil
		}

		if !role.CanManageMembers() {
			last, err := s.registry.IsLastPrivilegedMember(ctx, tx, m)
			if err != nil {
				return err
			}
			if last {
				return ErrLastPrivilegedMember
			}
		}

		return s.registry.UpdateRole(ctx, tx, m, role.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetMember(ctx, teamID, userID)
}

// RemoveMember refuses to remove the last member who can manage members.
func (s *Service) RemoveMember(ctx context.Context, teamID, userID uint) error {
	err := s.db.Tx(ctx, func(tx *gormw.DB) error {
		if _, err := storage.LockTeam(tx, teamID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}

		m, err := s.registry.Get(ctx, tx, teamID, userID)
		if err != nil {
			return err
		}

		last, err := s.registry.IsLastPrivilegedMember(ctx, tx, m)
		if err != nil {
			return err
		}
		if last {
			return ErrLastPrivilegedMember
		}

		return s.registry.Remove(ctx, tx, m)
	})
	if err != nil {
		return err
	}

	logger.Info().Uint("team_id", teamID).Uint("user_id", userID).Msg("Member removed")
	return nil
}

// DeleteUser removes the user with their memberships. It refuses while the
// user is the last member who can manage members of any team.
func (s *Service) DeleteUser(ctx context.Context, userID uint) error {
	err := s.db.Tx(ctx, func(tx *gormw.DB) error {
		if _, err := storage.GetUserByID(tx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		list, err := s.registry.TeamsForUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		for i := range list {
			if _, err := storage.LockTeam(tx, list[i].ID); err != nil {
				return err
			}
			m, err := s.registry.Get(ctx, tx, list[i].ID, userID)
			if err != nil {
				return err
			}
			last, err := s.registry.IsLastPrivilegedMember(ctx, tx, m)
			if err != nil {
				return err
			}
			if last {
				return fmt.Errorf("%w (team %q)", ErrLastPrivilegedMember, list[i].Name)
			}
		}

		return storage.DeleteUser(tx, userID)
	})
	if err != nil {
		return err
	}

	logger.Info().Uint("user_id", userID).Msg("User deleted")
	return nil
}
