package library

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nmhoang2304/AniTrack-Group07/internal/reconciler"
	"github.com/nmhoang2304/AniTrack-Group07/internal/stats"
	"github.com/nmhoang2304/AniTrack-Group07/internal/store"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/logger"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

// Handler exposes the library REST surface. Reads serve the optimistic
// projection; edits go through the per-user reconciler.
type Handler struct {
	manager *Manager
	log     *logger.Logger
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{
		manager: manager,
		log:     logger.GetLogger().WithContext("component", "library"),
	}
}

// GetLibrary returns the projection, pending flags included, plus the
// pending-operation count for the sync indicator.
func (h *Handler) GetLibrary(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rec, err := h.manager.Reconciler(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load library"})
		return
	}

	entries := rec.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"entries":     entries,
		"count":       len(entries),
		"pending_ops": rec.PendingCount(),
	})
}

// AddEntry performs the optimistic insert and the atomic durable write.
func (h *Handler) AddEntry(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.AddEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.InitialWatched = clampEpisodes(req.InitialWatched, req.TotalEpisodes)

	rec, err := h.manager.Reconciler(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load library"})
		return
	}

	entry, err := rec.AddEntry(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "Anime is already in the library"})
			return
		}
		h.log.Error("add_entry_failed", "user_id", userID, "anime_id", req.AnimeID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add anime to library"})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// UpdateEpisodes applies the edit optimistically. It always succeeds
// from the client's point of view; a failed deferred write surfaces
// later through the realtime feed.
func (h *Handler) UpdateEpisodes(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.UpdateEpisodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.manager.Reconciler(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load library"})
		return
	}

	entry, ok := rec.Entry(req.EntryID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Entry not in library"})
		return
	}

	// Clamping lives here; the reconciler is total-unaware.
	newWatched := clampEpisodes(*req.WatchedEpisodes, entry.TotalEpisodes)
	rec.ApplyEpisodeChange(req.EntryID, newWatched)

	updated, _ := rec.Entry(req.EntryID)
	c.JSON(http.StatusOK, gin.H{
		"entry":       updated,
		"pending_ops": rec.PendingCount(),
	})
}

func (h *Handler) SetFavorite(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.SetFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.manager.Reconciler(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load library"})
		return
	}

	if err := rec.SetFavorite(c.Request.Context(), req.EntryID, *req.Favorite); err != nil {
		if errors.Is(err, reconciler.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entry not in library"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update favorite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Favorite updated"})
}

// RemoveEntry removes optimistically; a failed delete is reported but
// not rolled back, the change feed restores the entry if needed.
func (h *Handler) RemoveEntry(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	entryID := c.Param("entry_id")
	if entryID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Entry ID is required"})
		return
	}

	rec, err := h.manager.Reconciler(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load library"})
		return
	}

	if err := rec.RemoveEntry(c.Request.Context(), entryID); err != nil {
		if errors.Is(err, reconciler.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entry not in library"})
			return
		}
		h.log.Error("remove_entry_failed", "user_id", userID, "entry_id", entryID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove entry; it will reappear if the delete did not apply"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry removed from library"})
}

// GetHistory serves the authoritative history log.
func (h *Handler) GetHistory(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	history, err := h.manager.store.History(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history, "count": len(history)})
}

// UpdateHistory corrects a past record's delta.
func (h *Handler) UpdateHistory(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	historyID := c.Param("history_id")
	var req models.UpdateHistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	op := store.UpdateHistory(historyID, &models.HistoryRecord{EpisodesDelta: *req.EpisodesDelta})
	if err := h.manager.store.Apply(c.Request.Context(), userID, []store.Op{op}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "History record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update history record"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "History record updated"})
}

func (h *Handler) DeleteHistory(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	historyID := c.Param("history_id")
	if err := h.manager.store.Apply(c.Request.Context(), userID, []store.Op{store.DeleteHistory(historyID)}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "History record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete history record"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "History record deleted"})
}

// GetStats aggregates watch time from the history log.
func (h *Handler) GetStats(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	history, err := h.manager.store.History(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, stats.Calculate(history, time.Now()))
}

func clampEpisodes(watched int, total *int) int {
	if watched < 0 {
		return 0
	}
	if total != nil && watched > *total {
		return *total
	}
	return watched
}
