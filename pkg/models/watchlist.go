package models

import "time"

// WatchlistEntry is one tracked title in a user's library.
type WatchlistEntry struct {
	ID       string `json:"id" db:"id"`
	UserID   string `json:"-" db:"user_id"`
	AnimeID  int    `json:"anime_id" db:"anime_id"`
	Title    string `json:"title" db:"title"`
	ImageURL string `json:"image_url" db:"image_url"`
	// TotalEpisodes is nil when the catalog does not know the total.
	TotalEpisodes   *int      `json:"total_episodes" db:"total_episodes"`
	WatchedEpisodes int       `json:"watched_episodes" db:"watched_episodes"`
	Genres          []string  `json:"genres" db:"genres"`
	Score           *float64  `json:"score" db:"score"`
	Synopsis        string    `json:"synopsis" db:"synopsis"`
	Favorite        bool      `json:"favorite" db:"favorite"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
	// Pending is true while a local edit has not been confirmed by the
	// durable store. Never persisted.
	Pending bool `json:"pending" db:"-"`
}

// HistoryRecord logs one change in watched-episode count. The anime id
// and title are denormalized so the record survives entry deletion.
type HistoryRecord struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"-" db:"user_id"`
	AnimeID       int       `json:"anime_id" db:"anime_id"`
	AnimeTitle    string    `json:"anime_title" db:"anime_title"`
	EpisodesDelta int       `json:"episodes_delta" db:"episodes_delta"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
}

type AddEntryRequest struct {
	AnimeID         int      `json:"anime_id" binding:"required"`
	Title           string   `json:"title" binding:"required"`
	ImageURL        string   `json:"image_url"`
	TotalEpisodes   *int     `json:"total_episodes"`
	InitialWatched  int      `json:"initial_watched" binding:"omitempty,min=0"`
	Genres          []string `json:"genres"`
	Score           *float64 `json:"score"`
	Synopsis        string   `json:"synopsis"`
}

type UpdateEpisodesRequest struct {
	EntryID         string `json:"entry_id" binding:"required"`
	WatchedEpisodes *int   `json:"watched_episodes" binding:"required,min=0"`
}

type SetFavoriteRequest struct {
	EntryID  string `json:"entry_id" binding:"required"`
	Favorite *bool  `json:"favorite" binding:"required"`
}

type UpdateHistoryRequest struct {
	EpisodesDelta *int `json:"episodes_delta" binding:"required"`
}

// UserStats is aggregate watch time derived from the history log.
type UserStats struct {
	TodayMinutes    int `json:"today_minutes"`
	MonthMinutes    int `json:"month_minutes"`
	YearMinutes     int `json:"year_minutes"`
	LifetimeMinutes int `json:"lifetime_minutes"`
}

// ImportReport summarizes one bulk import batch.
type ImportReport struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
