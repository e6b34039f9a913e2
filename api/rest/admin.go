package rest

import (
	"net/http"

	"github.com/cinecircle/server/scheduler"
	"github.com/gin-gonic/gin"
)

// AdminHandler serves operational views. Routes must sit behind
// middleware.AdminAuth.
type AdminHandler struct {
	sched *scheduler.Scheduler
}

func NewAdminHandler(sched *scheduler.Scheduler) *AdminHandler {
	return &AdminHandler{sched: sched}
}

// SchedulerTasks handles GET /api/admin/scheduler.
func (h *AdminHandler) SchedulerTasks(c *gin.Context) {
	if h.sched == nil {
		c.JSON(http.StatusOK, gin.H{"tasks": []scheduler.Status{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Statuses()})
}
