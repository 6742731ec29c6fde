package recommend

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/logger"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

type Recommender interface {
	Recommendations(ctx context.Context, titles []string) (string, error)
}

type Handler struct {
	client Recommender
	log    *logger.Logger
}

func NewHandler(client Recommender) *Handler {
	return &Handler{
		client: client,
		log:    logger.GetLogger().WithContext("component", "recommend"),
	}
}

func (h *Handler) GetRecommendations(c *gin.Context) {
	var req models.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text, err := h.client.Recommendations(c.Request.Context(), req.Titles)
	if err != nil {
		h.log.Warn("recommendation_failed", "error", err.Error())
		if errors.Is(err, ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Recommendations are not configured on this server."})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to get recommendations. Please try again later."})
		return
	}

	c.JSON(http.StatusOK, models.RecommendationResponse{Text: text})
}
