package stats

import (
	"testing"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

func rec(delta int, ts time.Time) models.HistoryRecord {
	return models.HistoryRecord{EpisodesDelta: delta, Timestamp: ts}
}

func TestCalculateBuckets(t *testing.T) {
	// Fixed clock: mid-June, mid-day.
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	history := []models.HistoryRecord{
		rec(2, now.Add(-time.Hour)),                             // today
		rec(1, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)),   // midnight boundary, still today
		rec(3, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)),    // this month, not today
		rec(5, time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)),   // this year, not this month
		rec(8, time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)), // last year
	}

	got := Calculate(history, now)

	if want := 3 * EpisodeDurationMinutes; got.TodayMinutes != want {
		t.Errorf("today: got %d, want %d", got.TodayMinutes, want)
	}
	if want := 6 * EpisodeDurationMinutes; got.MonthMinutes != want {
		t.Errorf("month: got %d, want %d", got.MonthMinutes, want)
	}
	if want := 11 * EpisodeDurationMinutes; got.YearMinutes != want {
		t.Errorf("year: got %d, want %d", got.YearMinutes, want)
	}
	if want := 19 * EpisodeDurationMinutes; got.LifetimeMinutes != want {
		t.Errorf("lifetime: got %d, want %d", got.LifetimeMinutes, want)
	}
}

func TestCalculateIgnoresCorrections(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	history := []models.HistoryRecord{
		rec(4, now.Add(-time.Hour)),
		rec(-2, now.Add(-time.Minute)), // correction, must not subtract
		rec(0, now.Add(-time.Minute)),
	}

	got := Calculate(history, now)
	if want := 4 * EpisodeDurationMinutes; got.TodayMinutes != want {
		t.Errorf("today: got %d, want %d", got.TodayMinutes, want)
	}
	if want := 4 * EpisodeDurationMinutes; got.LifetimeMinutes != want {
		t.Errorf("lifetime: got %d, want %d", got.LifetimeMinutes, want)
	}
}

func TestCalculateEmptyHistory(t *testing.T) {
	got := Calculate(nil, time.Now())
	if got.TodayMinutes != 0 || got.LifetimeMinutes != 0 {
		t.Errorf("empty history: got %+v, want zeros", got)
	}
}
