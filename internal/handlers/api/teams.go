package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/storage"
	"github.com/charleshuang3/teams/internal/teams"
)

type createTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateTeamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (p *Provider) handleListTeams(c *gin.Context) {
	list, err := p.service.TeamsForUser(c.Request.Context(), principal(c).UserID)
	if err != nil {
		responseError(c, err)
		return
	}

	out := make([]*teamResponse, 0, len(list))
	for i := range list {
		out = append(out, newTeamResponse(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (p *Provider) handleCreateTeam(c *gin.Context) {
	req := &createTeamRequest{}
	if !bindJSON(c, req) {
		return
	}

	team, err := p.service.CreateTeam(c.Request.Context(), principal(c), req.Name, req.Description)
	if err != nil {
		responseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTeamResponse(team))
}

func (p *Provider) handleGetTeam(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if !p.authorize(c, id, models.PermTeamView) {
		return
	}

	ctx := c.Request.Context()
	withMembers := p.evaluator.Evaluate(ctx, principal(c).UserID, id, models.PermMembersView) == teams.Allow

	var (
		team        *models.Team
		members     []storage.MemberRow
		invitations []models.Invitation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		team, err = p.service.GetTeam(gctx, id)
		return err
	})
	if withMembers {
		g.Go(func() error {
			var err error
			members, err = p.service.ListMembers(gctx, id)
			return err
		})
		g.Go(func() error {
			var err error
			invitations, err = p.manager.ListActive(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		responseError(c, err)
		return
	}

	resp := &teamDetailResponse{teamResponse: *newTeamResponse(team)}
	if withMembers {
		resp.Members = newMemberResponses(members)
		resp.Invitations = p.invitationResponses(ctx, invitations, team)
	}
	c.JSON(http.StatusOK, resp)
}

func (p *Provider) handleUpdateTeam(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if !p.authorize(c, id, models.PermTeamUpdate) {
		return
	}

	req := &updateTeamRequest{}
	if !bindJSON(c, req) {
		return
	}

	team, err := p.service.UpdateTeam(c.Request.Context(), id, &teams.TeamUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		responseError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTeamResponse(team))
}

func (p *Provider) handleDeleteTeam(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if !p.authorize(c, id, models.PermTeamDelete) {
		return
	}

	if err := p.service.DeleteTeam(c.Request.Context(), id); err != nil {
		responseError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleTeamPermissions tells a member what the UI may offer them.
func (p *Provider) handleTeamPermissions(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	role, err := p.evaluator.PermissionsFor(c.Request.Context(), principal(c).UserID, id)
	if err != nil {
		responseError(c, err)
		return
	}

	resp := newRoleResponse(role)
	c.JSON(http.StatusOK, gin.H{
		"team":        id,
		"role":        resp,
		"permissions": resp.Permissions,
	})
}
