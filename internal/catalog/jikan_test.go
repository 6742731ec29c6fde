package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestSource(handler http.HandlerFunc) (*JikanSource, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return &JikanSource{
		BaseURL: srv.URL,
		SFW:     true,
		Client:  srv.Client(),
	}, srv
}

func TestJikanSearchSuccess(t *testing.T) {
	src, srv := newTestSource(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "frieren" {
			t.Errorf("query param: got %q, want frieren", got)
		}
		if got := r.URL.Query().Get("sfw"); got != "true" {
			t.Errorf("sfw param: got %q, want true", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": [{
				"mal_id": 52991,
				"title": "Sousou no Frieren",
				"images": {"jpg": {"image_url": "small.jpg", "large_image_url": "large.jpg"}},
				"episodes": 28,
				"genres": [{"name": "Adventure"}, {"name": "Fantasy"}],
				"score": 9.3,
				"synopsis": "An elven mage outlives her hero party."
			}],
			"pagination": {"has_next_page": false}
		}`))
	})
	defer srv.Close()

	results, err := src.Search(context.Background(), "frieren", 10, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results: got %d, want 1", len(results))
	}
	a := results[0]
	if a.MalID != 52991 || a.Title != "Sousou no Frieren" {
		t.Errorf("result identity: %+v", a)
	}
	if a.ImageURL != "large.jpg" {
		t.Errorf("large image must win: got %q", a.ImageURL)
	}
	if a.Episodes == nil || *a.Episodes != 28 {
		t.Errorf("episodes: got %v", a.Episodes)
	}
	if len(a.Genres) != 2 || a.Genres[0] != "Adventure" {
		t.Errorf("genres: got %v", a.Genres)
	}
}

func TestJikanSearchEmptyQuery(t *testing.T) {
	src := &JikanSource{BaseURL: "http://unused.invalid"}
	results, err := src.Search(context.Background(), "", 10, 0)
	if err != nil {
		t.Fatalf("empty query must short-circuit: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results: got %d, want 0", len(results))
	}
}

func TestJikanSearchErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"rate_limited", http.StatusTooManyRequests, ErrRateLimited},
		{"server_down", http.StatusInternalServerError, ErrServerDown},
		{"bad_gateway", http.StatusBadGateway, ErrServerDown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src, srv := newTestSource(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})
			defer srv.Close()

			_, err := src.Search(context.Background(), "anything", 10, 0)
			if !errors.Is(err, tc.want) {
				t.Errorf("status %d: got %v, want %v", tc.status, err, tc.want)
			}
		})
	}
}

func TestJikanSearchNetworkError(t *testing.T) {
	src := &JikanSource{
		BaseURL: "http://127.0.0.1:1", // nothing listens here
		Client:  &http.Client{Timeout: time.Second},
	}
	_, err := src.Search(context.Background(), "anything", 10, 0)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("unreachable host: got %v, want ErrNetwork", err)
	}
}

func TestClassifySearchError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrServerDown, http.StatusBadGateway},
		{ErrNetwork, http.StatusServiceUnavailable},
		{errors.New("something else"), http.StatusBadGateway},
	}
	seen := make(map[string]bool)
	for _, tc := range cases {
		status, message := classifySearchError(tc.err)
		if status != tc.status {
			t.Errorf("%v: got status %d, want %d", tc.err, status, tc.status)
		}
		if message == "" || seen[message] {
			t.Errorf("%v: message must be distinct, got %q", tc.err, message)
		}
		seen[message] = true
	}
}
