package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

func newTestRouter(source ExternalSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/anime", NewHandler(source).SearchAnime)
	return router
}

func TestSearchAnimeHandler(t *testing.T) {
	router := newTestRouter(NewMockSource())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/anime?q=bebop", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200, body %s", w.Code, w.Body.String())
	}

	var res struct {
		Results []models.Anime `json:"results"`
		Count   int            `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Count != 1 || len(res.Results) != 1 {
		t.Fatalf("count: got %d results, want 1", len(res.Results))
	}
	if res.Results[0].Title != "Cowboy Bebop" {
		t.Errorf("title: got %q", res.Results[0].Title)
	}
}

func TestSearchAnimeHandlerErrorStatus(t *testing.T) {
	router := newTestRouter(&MockSource{Err: ErrRateLimited})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/anime?q=anything", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status: got %d, want 429", w.Code)
	}
	var res map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res["error"] == "" {
		t.Error("error body must carry user-facing copy")
	}
}
