package teams

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	glog "gorm.io/gorm/logger"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/identity"
	"github.com/charleshuang3/teams/internal/metrics"
	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/storage"
)

type fixture struct {
	db        *gormw.DB
	roles     *RoleStore
	registry  *Registry
	service   *Service
	evaluator *Evaluator
	manager   *Manager
	notifier  *recordingNotifier
	metrics   *metrics.Metrics

	now    time.Time
	byName map[string]*models.Role
}

type recordingNotifier struct {
	mu  sync.Mutex
	err error
	got []*models.Invitation
}

func (n *recordingNotifier) Notify(_ context.Context, inv *models.Invitation, _ *models.Team, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, inv)
	return n.err
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	return setupFixtureWithDB(t, &gormw.Config{LogLevel: glog.Silent})
}

// setupFileFixture uses a sqlite file so that concurrent transactions get
// their own connections.
func setupFileFixture(t *testing.T) *fixture {
	t.Helper()
	return setupFixtureWithDB(t, &gormw.Config{
		DSN:          filepath.Join(t.TempDir(), "teams.db") + "?_pragma=busy_timeout(10000)&_txlock=immediate",
		MaxOpenConns: 8,
		LogLevel:     glog.Silent,
	})
}

func setupFixtureWithDB(t *testing.T, dbConfig *gormw.Config) *fixture {
	t.Helper()
	db, err := gormw.Open(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, db.Migrate())

	f := &fixture{
		db:       db,
		roles:    NewRoleStore(db),
		registry: NewRegistry(),
		notifier: &recordingNotifier{},
		metrics:  metrics.New(prometheus.NewRegistry()),
		now:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		byName:   map[string]*models.Role{},
	}

	config := &Config{InvitationBaseURL: "https://app.example.com"}
	config.ApplyDefaults()

	seeded, err := f.roles.SeedRoles(context.Background(), config.Roles)
	require.NoError(t, err)
	for i := range seeded {
		f.byName[seeded[i].Name] = &seeded[i]
	}

	f.service = NewService(config, db, f.roles, f.registry)
	f.evaluator = NewEvaluator(db, f.roles, f.metrics)
	f.manager = NewManager(db, f.roles, f.registry, f.notifier, f.metrics)
	f.manager.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) role(t *testing.T, name string) *models.Role {
	t.Helper()
	r, ok := f.byName[name]
	require.True(t, ok, name)
	return r
}

func (f *fixture) user(t *testing.T, email string) *identity.Principal {
	t.Helper()
	u := &models.User{Email: email}
	require.NoError(t, storage.CreateUser(f.db, u))
	return identity.PrincipalOf(u)
}

func (f *fixture) team(t *testing.T, name string, creator *identity.Principal) *models.Team {
	t.Helper()
	team, err := f.service.CreateTeam(context.Background(), creator, name, "")
	require.NoError(t, err)
	return team
}

func (f *fixture) addMember(t *testing.T, team *models.Team, p *identity.Principal, roleName string) {
	t.Helper()
	require.NoError(t, f.registry.Add(context.Background(), f.db, &models.Membership{
		TeamID: team.ID,
		UserID: p.UserID,
		RoleID: f.role(t, roleName).ID,
	}))
}

func (f *fixture) invite(t *testing.T, team *models.Team, email, roleName string, by *identity.Principal) *models.Invitation {
	t.Helper()
	inv, err := f.manager.Create(context.Background(), &CreateInvitationInput{
		TeamID: team.ID,
		Email:  email,
		RoleID: f.role(t, roleName).ID,
	}, by)
	require.NoError(t, err)
	return inv
}

var errNotify = errors.New("mail server down")
