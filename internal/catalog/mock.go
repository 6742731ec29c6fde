package catalog

import (
	"context"
	"strings"

	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

// MockSource serves canned results for tests and offline development.
type MockSource struct {
	Results []models.Anime
	Err     error
}

func NewMockSource() *MockSource {
	twelve := 12
	twentySix := 26
	score := 8.2
	return &MockSource{
		Results: []models.Anime{
			{MalID: 1, Title: "Cowboy Bebop", Episodes: &twentySix, Genres: []string{"Action", "Sci-Fi"}, Score: &score},
			{MalID: 2, Title: "Trigun", Episodes: &twentySix, Genres: []string{"Action", "Adventure"}},
			{MalID: 3, Title: "Serial Experiments Lain", Episodes: &twelve, Genres: []string{"Sci-Fi", "Drama"}},
		},
	}
}

func (m *MockSource) Search(ctx context.Context, query string, limit, offset int) ([]models.Anime, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if query == "" {
		return []models.Anime{}, nil
	}
	out := []models.Anime{}
	for _, a := range m.Results {
		if strings.Contains(strings.ToLower(a.Title), strings.ToLower(query)) {
			out = append(out, a)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
