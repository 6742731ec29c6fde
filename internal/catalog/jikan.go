package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

// Search failure categories. The handler maps each to distinct
// user-facing copy.
var (
	ErrRateLimited = errors.New("catalog rate limit exceeded")
	ErrServerDown  = errors.New("catalog service unavailable")
	ErrNetwork     = errors.New("catalog unreachable")
)

type ExternalSource interface {
	Search(ctx context.Context, query string, limit, offset int) ([]models.Anime, error)
}

// JikanSource queries the Jikan v4 REST API (an unofficial MyAnimeList
// mirror, no API key required).
type JikanSource struct {
	BaseURL string
	SFW     bool
	Client  *http.Client
}

func NewJikanSource() *JikanSource {
	baseURL := strings.TrimSpace(os.Getenv("JIKAN_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.jikan.moe/v4"
	}
	return &JikanSource{
		BaseURL: baseURL,
		SFW:     true,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type jikanSearchRes struct {
	Data []struct {
		MalID  int    `json:"mal_id"`
		Title  string `json:"title"`
		Images struct {
			JPG struct {
				ImageURL      string `json:"image_url"`
				LargeImageURL string `json:"large_image_url"`
			} `json:"jpg"`
		} `json:"images"`
		Episodes *int `json:"episodes"`
		Genres   []struct {
			Name string `json:"name"`
		} `json:"genres"`
		Score    *float64 `json:"score"`
		Synopsis string   `json:"synopsis"`
	} `json:"data"`
	Pagination struct {
		HasNextPage bool `json:"has_next_page"`
	} `json:"pagination"`
}

func (j *JikanSource) Search(ctx context.Context, query string, limit, offset int) ([]models.Anime, error) {
	if query == "" {
		return []models.Anime{}, nil
	}
	if limit <= 0 || limit > 25 {
		limit = 10
	}

	u, _ := url.Parse(j.BaseURL + "/anime")
	qs := u.Query()
	qs.Set("q", query)
	qs.Set("limit", fmt.Sprintf("%d", limit))
	if offset > 0 {
		// Jikan paginates by page, not offset.
		qs.Set("page", fmt.Sprintf("%d", offset/limit+1))
	}
	if j.SFW {
		qs.Set("sfw", "true")
	}
	u.RawQuery = qs.Encode()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	req.Header.Set("User-Agent", "AniTrack/1.0 (+github.com/nmhoang2304/AniTrack-Group07)")

	res, err := j.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case res.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s", ErrServerDown, res.Status)
	case res.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("catalog request failed: %s", res.Status)
	}

	var r jikanSearchRes
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	out := make([]models.Anime, 0, len(r.Data))
	for _, d := range r.Data {
		imageURL := d.Images.JPG.LargeImageURL
		if imageURL == "" {
			imageURL = d.Images.JPG.ImageURL
		}
		genres := make([]string, 0, len(d.Genres))
		for _, g := range d.Genres {
			genres = append(genres, g.Name)
		}
		out = append(out, models.Anime{
			MalID:    d.MalID,
			Title:    d.Title,
			ImageURL: imageURL,
			Episodes: d.Episodes,
			Genres:   genres,
			Score:    d.Score,
			Synopsis: d.Synopsis,
		})
	}
	return out, nil
}
