package transfer

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nmhoang2304/AniTrack-Group07/internal/library"
	"github.com/nmhoang2304/AniTrack-Group07/internal/store"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/logger"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/metrics"
)

// Handler serves bulk export and import of the library.
type Handler struct {
	manager *library.Manager
	store   store.Store
	rowCap  int
	log     *logger.Logger
}

func NewHandler(manager *library.Manager, st store.Store, rowCap int) *Handler {
	return &Handler{
		manager: manager,
		store:   st,
		rowCap:  rowCap,
		log:     logger.GetLogger().WithContext("component", "transfer"),
	}
}

// Export streams the library as CSV (default) or JSON.
func (h *Handler) Export(c *gin.Context) {
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

	if c.DefaultQuery("format", "csv") == "json" {
		c.Header("Content-Disposition", `attachment; filename="anitrack_library.json"`)
		c.JSON(http.StatusOK, entries)
		return
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, entries); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="anitrack_library_%s.csv"`,
		time.Now().Format("2006-01-02")))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Import accepts a CSV file (multipart "file" field or raw body) and
// commits all new rows as one atomic batch. The change feed refreshes
// the projection after the commit.
func (h *Handler) Import(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	reader, err := importReader(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, malformed, err := ParseCSV(reader, h.rowCap)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.manager.Reconciler(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load library"})
		return
	}

	report, err := importBatch(c.Request.Context(), h.store, userID, rec.Snapshot(), rows)
	if err != nil {
		h.log.Error("import_failed", "user_id", userID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Import failed; no rows were written"})
		return
	}
	report.Skipped += malformed
	metrics.AddImportedRows(int64(report.Imported))

	h.log.Info("import_completed", "user_id", userID,
		"imported", report.Imported, "skipped", report.Skipped)
	c.JSON(http.StatusOK, report)
}

func importReader(c *gin.Context) (io.Reader, error) {
	file, _, err := c.Request.FormFile("file")
	if err == nil {
		return file, nil
	}
	if c.Request.Body == nil {
		return nil, fmt.Errorf("no import file provided")
	}
	return c.Request.Body, nil
}
