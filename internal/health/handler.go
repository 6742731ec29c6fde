package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/database"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Readyz reports ready only when the database answers a ping, so load
// balancers stop routing before writes start failing.
func (h *Handler) Readyz(c *gin.Context) {
	if database.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "database_not_initialized"})
		return
	}

	if err := database.DB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "database_ping_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
