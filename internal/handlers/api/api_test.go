package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glog "gorm.io/gorm/logger"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/handlers/firewall"
	"github.com/charleshuang3/teams/internal/handlers/middleware"
	"github.com/charleshuang3/teams/internal/identity"
	"github.com/charleshuang3/teams/internal/metrics"
	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/storage"
	"github.com/charleshuang3/teams/internal/teams"
)

// tokenVerifier accepts the raw token "user-<id>" for every known user.
type tokenVerifier struct {
	mu         sync.Mutex
	principals map[string]*identity.Principal
}

func (v *tokenVerifier) Verify(_ context.Context, raw string) (*identity.Principal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p, ok := v.principals[raw]; ok {
		return p, nil
	}
	return nil, identity.ErrInvalidToken
}

type countingNotifier struct {
	mu   sync.Mutex
	sent int
}

func (n *countingNotifier) Notify(context.Context, *models.Invitation, *models.Team, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	return nil
}

type testServer struct {
	db       *gormw.DB
	router   *gin.Engine
	verifier *tokenVerifier
	notifier *countingNotifier
	roles    map[string]uint

	// counted by the firewall middleware
	flags      []string
	flaggedIPs []string
}

func (s *testServer) LogIPError(ip, reason string) {
	s.flags = append(s.flags, reason)
	s.flaggedIPs = append(s.flaggedIPs, ip)
}

func (s *testServer) BanIP(string, int, string) {}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gormw.Open(&gormw.Config{LogLevel: glog.Silent})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	config := &teams.Config{InvitationBaseURL: "https://app.example.com"}
	config.ApplyDefaults()

	roles := teams.NewRoleStore(db)
	seeded, err := roles.SeedRoles(context.Background(), config.Roles)
	require.NoError(t, err)

	s := &testServer{
		db:       db,
		verifier: &tokenVerifier{principals: map[string]*identity.Principal{}},
		notifier: &countingNotifier{},
		roles:    map[string]uint{},
	}
	for _, r := range seeded {
		s.roles[r.Name] = r.ID
	}

	m := metrics.New(prometheus.NewRegistry())
	registry := teams.NewRegistry()
	p := New(
		teams.NewService(config, db, roles, registry),
		teams.NewManager(db, roles, registry, s.notifier, m),
		teams.NewEvaluator(db, roles, m),
		roles,
		middleware.NewAuth(s.verifier, "access_token"),
	)

	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.router.Use(firewall.NewWithGuard(&firewall.FirewallConfig{}, s).Middleware())
	p.RegisterHandlers(s.router.Group("/api"))
	return s
}

// user creates a user and returns its bearer token.
func (s *testServer) user(t *testing.T, email string) string {
	t.Helper()
	u := &models.User{Email: email, FirstName: "First", LastName: email}
	require.NoError(t, storage.CreateUser(s.db, u))

	token := fmt.Sprintf("user-%d", u.ID)
	s.verifier.mu.Lock()
	s.verifier.principals[token] = identity.PrincipalOf(u)
	s.verifier.mu.Unlock()
	return token
}

func (s *testServer) userID(token string) uint {
	s.verifier.mu.Lock()
	defer s.verifier.mu.Unlock()
	return s.verifier.principals[token].UserID
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// createTeam creates a team owned by token and returns its id.
func (s *testServer) createTeam(t *testing.T, token, name string) uint {
	t.Helper()
	rec := s.do(http.MethodPost, "/api/teams/", token, gin.H{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[teamResponse](t, rec).ID
}

// join invites the token's user with role and accepts on their behalf.
func (s *testServer) join(t *testing.T, teamID uint, adminToken, token, email, role string) {
	t.Helper()
	rec := s.do(http.MethodPost, "/api/team-invitations/", adminToken, gin.H{
		"team":  teamID,
		"email": email,
		"role":  s.roles[role],
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inv := decode[invitationResponse](t, rec)

	rec = s.do(http.MethodPost, "/api/team-invitations/"+inv.ID+"/accept/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func teamPath(id uint, rest string) string {
	return fmt.Sprintf("/api/teams/%d/%s", id, rest)
}

func TestTeams_Lifecycle(t *testing.T) {
	s := setupTestServer(t)
	ada := s.user(t, "ada@x.com")

	id := s.createTeam(t, ada, "Eng")

	rec := s.do(http.MethodGet, "/api/teams/", ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]teamResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Eng", list[0].Name)

	rec = s.do(http.MethodGet, teamPath(id, ""), ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[teamDetailResponse](t, rec)
	assert.Equal(t, "Eng", detail.Name)
	require.Len(t, detail.Members, 1)
	assert.Equal(t, teams.RoleAdmin, detail.Members[0].Role.Name)
	assert.Contains(t, rec.Body.String(), `"invitations":[]`)

	rec = s.do(http.MethodPatch, teamPath(id, ""), ada, gin.H{"description": "Engineering"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[teamResponse](t, rec)
	assert.Equal(t, "Eng", updated.Name)
	assert.Equal(t, "Engineering", updated.Description)

	rec = s.do(http.MethodPatch, teamPath(id, ""), ada, gin.H{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, teamPath(id, "permissions/"), ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	perms := decode[struct {
		Team        uint         `json:"team"`
		Role        roleResponse `json:"role"`
		Permissions []string     `json:"permissions"`
	}](t, rec)
	assert.Equal(t, id, perms.Team)
	assert.Equal(t, teams.RoleAdmin, perms.Role.Name)
	assert.ElementsMatch(t, models.KnownPermissions(), perms.Permissions)

	rec = s.do(http.MethodDelete, teamPath(id, ""), ada, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// the membership went with the team
	rec = s.do(http.MethodGet, teamPath(id, ""), ada, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTeams_CreateRejectsBlankName(t *testing.T) {
	s := setupTestServer(t)
	ada := s.user(t, "ada@x.com")

	rec := s.do(http.MethodPost, "/api/teams/", ada, gin.H{"name": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "team name is required")
}

func TestTeams_Authorization(t *testing.T) {
	s := setupTestServer(t)
	ada := s.user(t, "ada@x.com")
	viewer := s.user(t, "vic@x.com")
	member := s.user(t, "meg@x.com")
	outsider := s.user(t, "otto@x.com")

	id := s.createTeam(t, ada, "Eng")
	s.join(t, id, ada, viewer, "vic@x.com", teams.RoleViewer)
	s.join(t, id, ada, member, "meg@x.com", teams.RoleMember)

	adaMember := teamPath(id, fmt.Sprintf("members/%d/", s.userID(ada)))

	tests := []struct {
		name         string
		method       string
		path         string
		token        string
		body         any
		expectedCode int
	}{
		{"anonymous", http.MethodGet, teamPath(id, ""), "", nil, http.StatusUnauthorized},
		{"bad token", http.MethodGet, teamPath(id, ""), "user-999", nil, http.StatusUnauthorized},
		{"outsider view", http.MethodGet, teamPath(id, ""), outsider, nil, http.StatusForbidden},
		{"missing team", http.MethodGet, teamPath(9999, ""), ada, nil, http.StatusForbidden},
		{"malformed team id", http.MethodGet, "/api/teams/abc/", ada, nil, http.StatusNotFound},
		{"viewer view", http.MethodGet, teamPath(id, ""), viewer, nil, http.StatusOK},
		{"viewer members", http.MethodGet, teamPath(id, "members/"), viewer, nil, http.StatusForbidden},
		{"viewer invitations", http.MethodGet, teamPath(id, "invitations/"), viewer, nil, http.StatusForbidden},
		{"member members", http.MethodGet, teamPath(id, "members/"), member, nil, http.StatusOK},
		{"member get member", http.MethodGet, adaMember, member, nil, http.StatusOK},
		{"member update team", http.MethodPatch, teamPath(id, ""), member, gin.H{"name": "x"}, http.StatusForbidden},
		{"member delete team", http.MethodDelete, teamPath(id, ""), member, nil, http.StatusForbidden},
		{"member update role", http.MethodPatch, adaMember, member, gin.H{"role": s.roles[teams.RoleViewer]}, http.StatusForbidden},
		{"member remove admin", http.MethodDelete, adaMember, member, nil, http.StatusForbidden},
		{"member invite", http.MethodPost, "/api/team-invitations/", member, gin.H{"team": id, "email": "new@x.com", "role": s.roles[teams.RoleMember]}, http.StatusForbidden},
		{"outsider leave", http.MethodDelete, teamPath(id, fmt.Sprintf("members/%d/", s.userID(outsider))), outsider, nil, http.StatusForbidden},
		{"permissions outsider", http.MethodGet, teamPath(id, "permissions/"), outsider, nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.expectedCode, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"detail"`)
		})
	}
}

func TestTeams_ViewerDetailHidesMembers(t *testing.T) {
	s := setupTestServer(t)
	ada := s.user(t, "ada@x.com")
	viewer := s.user(t, "vic@x.com")
	id := s.createTeam(t, ada, "Eng")
	s.join(t, id, ada, viewer, "vic@x.com", teams.RoleViewer)

	rec := s.do(http.MethodGet, teamPath(id, ""), viewer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"members":null`)
	assert.Contains(t, rec.Body.String(), `"invitations":null`)
}

func TestTeams_ListOnlyMemberTeams(t *testing.T) {
	s := setupTestServer(t)
	ada := s.user(t, "ada@x.com")
	bob := s.user(t, "bob@x.com")
	s.createTeam(t, ada, "Eng")
	s.createTeam(t, bob, "Ops")

	rec := s.do(http.MethodGet, "/api/teams/", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]teamResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Ops", list[0].Name)
}

func TestMembers_LastPrivilegedMember(t *testing.T) {
	s := setupTestServer(t)
	ada := s.user(t, "ada@x.com")
	bob := s.user(t, "bob@x.com")
	id := s.createTeam(t, ada, "Eng")
	s.join(t, id, ada, bob, "bob@x.com", teams.RoleMember)

	adaPath := teamPath(id, fmt.Sprintf("members/%d/", s.userID(ada)))
	bobPath := teamPath(id, fmt.Sprintf("members/%d/", s.userID(bob)))

	rec := s.do(http.MethodPatch, adaPath, ada, gin.H{"role": s.roles[teams.RoleMember]})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodDelete, adaPath, ada, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// promote bob, then ada may step down
	rec = s.do(http.MethodPatch, bobPath, ada, gin.H{"role": s.roles[teams.RoleAdmin]})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, teams.RoleAdmin, decode[memberResponse](t, rec).Role.Name)

	rec = s.do(http.MethodPatch, adaPath, ada, gin.H{"role": s.roles[teams.RoleViewer]})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, teams.RoleViewer, decode[memberResponse](t, rec).Role.Name)

	rec = s.do(http.MethodDelete, bobPath, bob, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// a viewer may still leave
	rec = s.do(http.MethodDelete, adaPath, ada, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, teamPath(id, "members/"), bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	members := decode[[]memberResponse](t, rec)
	require.Len(t, members, 1)
	assert.Equal(t, s.userID(bob), members[0].User)
}

func TestMembers_UnknownRoleAndMember(t *testing.T) {
	s := setupTestServer(t)
	ada := s.user(t, "ada@x.com")
	id := s.createTeam(t, ada, "Eng")

	rec := s.do(http.MethodPatch, teamPath(id, fmt.Sprintf("members/%d/", s.userID(ada))), ada, gin.H{"role": 9999})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, teamPath(id, "members/9999/"), ada, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, teamPath(id, "members/9999/"), ada, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPatch, teamPath(id, fmt.Sprintf("members/%d/", s.userID(ada))), ada, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoles(t *testing.T) {
	s := setupTestServer(t)
	ada := s.user(t, "ada@x.com")

	rec := s.do(http.MethodGet, "/api/team-roles/", ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	roles := decode[[]roleResponse](t, rec)
	require.Len(t, roles, 3)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/team-roles/%d/", s.roles[teams.RoleViewer]), ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	viewer := decode[roleResponse](t, rec)
	assert.Equal(t, []string{models.PermTeamView}, viewer.Permissions)

	rec = s.do(http.MethodGet, "/api/team-roles/9999/", ada, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/team-roles/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
