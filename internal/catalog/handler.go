package catalog

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/logger"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

// Handler proxies catalog searches so clients get one consistent error
// taxonomy regardless of the upstream source.
type Handler struct {
	source ExternalSource
	log    *logger.Logger
}

func NewHandler(source ExternalSource) *Handler {
	return &Handler{
		source: source,
		log:    logger.GetLogger().WithContext("component", "catalog"),
	}
}

func (h *Handler) SearchAnime(c *gin.Context) {
	var req models.SearchAnimeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Limit == 0 {
		req.Limit = 10
	}

	results, err := h.source.Search(c.Request.Context(), req.Query, req.Limit, req.Offset)
	if err != nil {
		h.log.Warn("catalog_search_failed", "query", req.Query, "error", err.Error())
		status, message := classifySearchError(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

// classifySearchError maps each failure category to distinct user-facing
// copy with a status the client can retry on.
func classifySearchError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "You are searching too fast. Please wait a moment."
	case errors.Is(err, ErrServerDown):
		return http.StatusBadGateway, "The anime catalog is currently down or experiencing issues."
	case errors.Is(err, ErrNetwork):
		return http.StatusServiceUnavailable, "Unable to reach the anime catalog. Check the connection."
	default:
		return http.StatusBadGateway, "Catalog search failed. Please try again."
	}
}
