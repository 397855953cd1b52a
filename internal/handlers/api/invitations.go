package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/charleshuang3/teams/internal/handlers/firewall"
	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/teams"
)

type createInvitationRequest struct {
	Team        uint   `json:"team" binding:"required"`
	Email       string `json:"email" binding:"required"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Role        uint   `json:"role" binding:"required"`
}

// describe fills the team and role names. team may be nil, then it is
// looked up. Lookup failures leave the names empty.
func (p *Provider) describe(ctx context.Context, inv *models.Invitation, team *models.Team) *invitationResponse {
	resp := newInvitationResponse(inv)

	if team == nil {
		t, err := p.service.GetTeam(ctx, inv.TeamID)
		if err != nil {
			logger.Warn().Err(err).Str("invitation_id", inv.ID).Msg("Failed to load invitation team")
		}
		team = t
	}
	if team != nil {
		resp.TeamName = team.Name
	}

	role, err := p.roles.Get(ctx, inv.RoleID)
	if err != nil {
		logger.Warn().Err(err).Str("invitation_id", inv.ID).Msg("Failed to load invitation role")
	} else {
		resp.RoleName = role.Name
	}
	return resp
}

// invitationResponses describes invitations that all belong to team, or to
// any team when team is nil.
func (p *Provider) invitationResponses(ctx context.Context, list []models.Invitation, team *models.Team) []*invitationResponse {
	teamsByID := map[uint]*models.Team{}
	if team != nil {
		teamsByID[team.ID] = team
	}

	out := make([]*invitationResponse, 0, len(list))
	for i := range list {
		inv := &list[i]
		t, ok := teamsByID[inv.TeamID]
		resp := p.describe(ctx, inv, t)
		if !ok && resp.TeamName != "" {
			teamsByID[inv.TeamID] = &models.Team{ID: inv.TeamID, Name: resp.TeamName}
		}
		out = append(out, resp)
	}
	return out
}

// invitationID rejects ids that cannot be invitation ids. Accept and reject
// flag such requests as probes.
func invitationID(c *gin.Context, flag bool) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		if flag {
			firewall.Flag(c, "malformed invitation id")
		}
		responseError(c, teams.ErrInvitationNotFound)
		return "", false
	}
	return id, true
}

func (p *Provider) handleCreateInvitation(c *gin.Context) {
	req := &createInvitationRequest{}
	if !bindJSON(c, req) {
		return
	}
	if !p.authorize(c, req.Team, models.PermMembersAdd) {
		return
	}

	ctx := c.Request.Context()
	inv, err := p.manager.Create(ctx, &teams.CreateInvitationInput{
		TeamID:      req.Team,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		RoleID:      req.Role,
	}, principal(c))
	if err != nil {
		responseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p.describe(ctx, inv, nil))
}

func (p *Provider) handleListTeamInvitations(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if !p.authorize(c, id, models.PermMembersView) {
		return
	}

	ctx := c.Request.Context()
	team, err := p.service.GetTeam(ctx, id)
	if err != nil {
		responseError(c, err)
		return
	}
	list, err := p.manager.ListActive(ctx, id)
	if err != nil {
		responseError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.invitationResponses(ctx, list, team))
}

// handleMyInvitations lists the active invitations sent to the caller's
// email, across teams.
func (p *Provider) handleMyInvitations(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := p.manager.ListActiveForUser(ctx, principal(c).Email)
	if err != nil {
		responseError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.invitationResponses(ctx, list, nil))
}

func (p *Provider) handleGetInvitation(c *gin.Context) {
	id, ok := invitationID(c, false)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	inv, err := p.manager.Get(ctx, id)
	if err != nil {
		responseError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.describe(ctx, inv, nil))
}

func (p *Provider) handleAcceptInvitation(c *gin.Context) {
	id, ok := invitationID(c, true)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	inv, err := p.manager.Accept(ctx, id, principal(c))
	if err != nil {
		if errors.Is(err, teams.ErrInvitationNotFound) {
			firewall.Flag(c, "unknown invitation")
		}
		responseError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.describe(ctx, inv, nil))
}

func (p *Provider) handleRejectInvitation(c *gin.Context) {
	id, ok := invitationID(c, true)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	inv, err := p.manager.Reject(ctx, id)
	if err != nil {
		if errors.Is(err, teams.ErrInvitationNotFound) {
			firewall.Flag(c, "unknown invitation")
		}
		responseError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.describe(ctx, inv, nil))
}
