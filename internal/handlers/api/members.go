package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charleshuang3/teams/internal/models"
)

type updateMemberRequest struct {
	Role uint `json:"role" binding:"required"`
}

func (p *Provider) handleListMembers(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if !p.authorize(c, id, models.PermMembersView) {
		return
	}

	rows, err := p.service.ListMembers(c.Request.Context(), id)
	if err != nil {
		responseError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMemberResponses(rows))
}

func (p *Provider) handleGetMember(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userId")
	if !ok {
		return
	}
	if !p.authorize(c, id, models.PermMembersView) {
		return
	}

	row, err := p.service.GetMember(c.Request.Context(), id, userID)
	if err != nil {
		responseError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMemberResponse(row))
}

func (p *Provider) handleUpdateMember(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userId")
	if !ok {
		return
	}
	if !p.authorize(c, id, models.PermMembersUpdate) {
		return
	}

	req := &updateMemberRequest{}
	if !bindJSON(c, req) {
		return
	}

	row, err := p.service.UpdateMemberRole(c.Request.Context(), id, userID, req.Role)
	if err != nil {
		responseError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMemberResponse(row))
}

// handleRemoveMember also lets a member leave the team. The last member who
// can manage members can neither leave nor be removed.
func (p *Provider) handleRemoveMember(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	userID, ok := uintParam(c, "userId")
	if !ok {
		return
	}
	if principal(c).UserID == userID {
		if _, err := p.evaluator.PermissionsFor(c.Request.Context(), userID, id); err != nil {
			responseError(c, err)
			return
		}
	} else if !p.authorize(c, id, models.PermMembersRemove) {
		return
	}

	if err := p.service.RemoveMember(c.Request.Context(), id, userID); err != nil {
		responseError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
