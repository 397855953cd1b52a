package teams

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/storage"
)

var (
	logger = log.With().Str("component", "teams").Logger()
)

const (
	// roleCacheTTL bounds how long another process, e.g. teamsadm seed-roles,
	// can change roles before this one evaluates the new permissions.
	roleCacheTTL = time.Minute
	maxRoles     = 1000
)

// RoleStore is the read side of the role reference data. SeedRoles clears
// the cache of its own process only.
type RoleStore struct {
	db    *gormw.DB
	cache *ristretto.Cache[uint, *models.Role]
	ttl   time.Duration
}

func NewRoleStore(db *gormw.DB) *RoleStore {
	c, err := ristretto.NewCache(&ristretto.Config[uint, *models.Role]{
		NumCounters: maxRoles * 10,
		MaxCost:     maxRoles,
		BufferItems: 64,
	})

	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create role cache")
	}

	return &RoleStore{
		db:    db,
		cache: c,
		ttl:   roleCacheTTL,
	}
}

// Get must not be called inside a transaction.
func (s *RoleStore) Get(ctx context.Context, id uint) (*models.Role, error) {
	if role, ok := s.cache.Get(id); ok {
		return role, nil
	}

	role, err := storage.GetRoleByID(s.db.Ctx(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}

	s.cache.SetWithTTL(id, role, 1, s.ttl)
	s.cache.Wait()
	return role, nil
}

func (s *RoleStore) GetByName(ctx context.Context, name string) (*models.Role, error) {
	role, err := storage.GetRoleByName(s.db.Ctx(ctx), name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return role, nil
}

func (s *RoleStore) ListAll(ctx context.Context) ([]models.Role, error) {
	return storage.ListRoles(s.db.Ctx(ctx))
}

// SeedRoles upserts the roles by name. Every seed is validated before any
// row is written.
func (s *RoleStore) SeedRoles(ctx context.Context, seeds []RoleSeed) ([]models.Role, error) {
	for _, seed := range seeds {
		if seed.Name == "" {
			return nil, invalidInput("role name is required")
		}
		if err := models.ValidatePermissions(seed.Permissions); err != nil {
			return nil, invalidInput("role %s: %v", seed.Name, err)
		}
	}

	roles := make([]models.Role, 0, len(seeds))
	err := s.db.Tx(ctx, func(tx *gormw.DB) error {
		for _, seed := range seeds {
			role := &models.Role{
				Name:        seed.Name,
				Description: seed.Description,
				Permissions: models.JoinPermissions(seed.Permissions),
			}
			if err := storage.UpsertRole(tx, role); err != nil {
				return err
			}
			roles = append(roles, *role)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Clear()
	logger.Info().Int("roles", len(roles)).Msg("Roles seeded")
	return roles, nil
}
