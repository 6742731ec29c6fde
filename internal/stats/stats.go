package stats

import (
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

// EpisodeDurationMinutes is the assumed runtime of one episode.
const EpisodeDurationMinutes = 24

// Calculate aggregates watch time from the history log. Negative deltas
// are bookkeeping corrections and do not count toward watch time.
func Calculate(history []models.HistoryRecord, now time.Time) models.UserStats {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	startOfYear := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())

	var today, month, year, lifetime int
	for _, h := range history {
		if h.EpisodesDelta <= 0 {
			continue
		}
		lifetime += h.EpisodesDelta

		ts := h.Timestamp.In(now.Location())
		if !ts.Before(startOfYear) {
			year += h.EpisodesDelta
		}
		if !ts.Before(startOfMonth) {
			month += h.EpisodesDelta
		}
		if !ts.Before(startOfDay) {
			today += h.EpisodesDelta
		}
	}

	return models.UserStats{
		TodayMinutes:    today * EpisodeDurationMinutes,
		MonthMinutes:    month * EpisodeDurationMinutes,
		YearMinutes:     year * EpisodeDurationMinutes,
		LifetimeMinutes: lifetime * EpisodeDurationMinutes,
	}
}
