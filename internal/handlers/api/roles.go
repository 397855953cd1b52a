package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (p *Provider) handleListRoles(c *gin.Context) {
	roles, err := p.roles.ListAll(c.Request.Context())
	if err != nil {
		responseError(c, err)
		return
	}

	out := make([]*roleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, newRoleResponse(&roles[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (p *Provider) handleGetRole(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	role, err := p.roles.Get(c.Request.Context(), id)
	if err != nil {
		responseError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRoleResponse(role))
}
