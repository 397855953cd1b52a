package firewall

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterHandlers serves operator reports. Mount it on the internal port
// only, it trusts the caller.
func (f *Firewall) RegisterHandlers(rg *gin.RouterGroup) {
	rg.POST("/ban", f.handleBan)
	rg.POST("/logerr", f.handleLogError)
}

type reportRequest struct {
	IP     string `form:"ip" json:"ip" binding:"required,ip"`
	Reason string `form:"reason" json:"reason" binding:"required"`
}

func bindReport(c *gin.Context) (*reportRequest, bool) {
	req := &reportRequest{}
	if err := c.ShouldBind(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "ip and reason are required"})
		return nil, false
	}
	return req, true
}

func (f *Firewall) handleBan(c *gin.Context) {
	req, ok := bindReport(c)
	if !ok {
		return
	}

	logger.Info().Str("ip", req.IP).Str("reason", req.Reason).Msg("Manual ban")
	f.guard.BanIP(req.IP, int(f.conf.BanMinutes), req.Reason)
	c.JSON(http.StatusOK, gin.H{"detail": "banned"})
}

func (f *Firewall) handleLogError(c *gin.Context) {
	req, ok := bindReport(c)
	if !ok {
		return
	}

	f.guard.LogIPError(req.IP, req.Reason)
	c.JSON(http.StatusOK, gin.H{"detail": "counted"})
}
