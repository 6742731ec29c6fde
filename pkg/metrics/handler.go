package metrics

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Metrics(c *gin.Context) {
	snapshot := Snapshot()
	payload := gin.H{"uptime_seconds": int64(GetUptime().Seconds())}
	for k, v := range snapshot {
		payload[k] = v
	}
	c.JSON(http.StatusOK, payload)
}
