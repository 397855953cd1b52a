// Package api serves the team, member, role and invitation endpoints.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/charleshuang3/teams/internal/handlers/middleware"
	"github.com/charleshuang3/teams/internal/identity"
	"github.com/charleshuang3/teams/internal/teams"
)

var (
	logger = log.With().Str("component", "api").Logger()
)

type Provider struct {
	service   *teams.Service
	manager   *teams.Manager
	evaluator *teams.Evaluator
	roles     *teams.RoleStore
	auth      *middleware.Auth
}

func New(service *teams.Service, manager *teams.Manager, evaluator *teams.Evaluator, roles *teams.RoleStore, auth *middleware.Auth) *Provider {
	return &Provider{
		service:   service,
		manager:   manager,
		evaluator: evaluator,
		roles:     roles,
		auth:      auth,
	}
}

func (p *Provider) RegisterHandlers(rg *gin.RouterGroup) {
	tg := rg.Group("/teams", p.auth.Required())
	tg.GET("/", p.handleListTeams)
	tg.POST("/", p.handleCreateTeam)
	tg.GET("/:id/", p.handleGetTeam)
	tg.PATCH("/:id/", p.handleUpdateTeam)
	tg.DELETE("/:id/", p.handleDeleteTeam)
	tg.GET("/:id/permissions/", p.handleTeamPermissions)
	tg.GET("/:id/members/", p.handleListMembers)
	tg.GET("/:id/members/:userId/", p.handleGetMember)
	tg.PATCH("/:id/members/:userId/", p.handleUpdateMember)
	tg.DELETE("/:id/members/:userId/", p.handleRemoveMember)
	tg.GET("/:id/invitations/", p.handleListTeamInvitations)

	rr := rg.Group("/team-roles", p.auth.Required())
	rr.GET("/", p.handleListRoles)
	rr.GET("/:id/", p.handleGetRole)

	ig := rg.Group("/team-invitations")
	ig.GET("/:id/", p.handleGetInvitation)
	ig.POST("/:id/reject/", p.handleRejectInvitation)

	authed := ig.Group("", p.auth.Required())
	authed.POST("/", p.handleCreateInvitation)
	authed.GET("/mine/", p.handleMyInvitations)
	authed.POST("/:id/accept/", p.handleAcceptInvitation)
}

func responseDetail(c *gin.Context, httpCode int, detail string) {
	c.JSON(httpCode, gin.H{"detail": detail})
}

// responseError maps the teams error roots to status codes. Anything else
// is logged and hidden behind a 500.
func responseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, teams.ErrNotFound):
		responseDetail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, teams.ErrForbidden):
		responseDetail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, teams.ErrConflict):
		responseDetail(c, http.StatusConflict, err.Error())
	case errors.Is(err, teams.ErrInvalidState), errors.Is(err, teams.ErrInvalidInput):
		responseDetail(c, http.StatusBadRequest, err.Error())
	default:
		logger.Error().Err(err).Str("method", c.Request.Method).Str("path", c.FullPath()).Msg("Request failed")
		responseDetail(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

// uintParam parses a numeric path parameter. Malformed ids answer 404 like
// missing ones.
func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || v == 0 {
		responseDetail(c, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return uint(v), true
}

// authorize checks permission on the team before anything is loaded, so
// non-members cannot probe which teams exist.
func (p *Provider) authorize(c *gin.Context, teamID uint, permission string) bool {
	err := p.evaluator.Authorize(c.Request.Context(), principal(c), teams.TeamID(teamID), permission)
	if err != nil {
		responseError(c, err)
		return false
	}
	return true
}

func principal(c *gin.Context) *identity.Principal {
	return middleware.Principal(c)
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		responseDetail(c, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}
