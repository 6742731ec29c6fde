package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/pkg/database"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	if err := database.InitDatabase(dbPath); err != nil {
		t.Fatalf("init database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	st := NewSQLiteStore(database.DB)

	if _, err := database.DB.Exec(`INSERT INTO users (id, username, email, password_hash) VALUES ('u1', 'tester', 't@example.com', 'hash')`); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return st
}

func TestSQLiteRoundTrip(t *testing.T) {
	st := newSQLiteTestStore(t)
	ctx := context.Background()

	total := 24
	score := 8.5
	e := &models.WatchlistEntry{
		ID:              "e1",
		UserID:          "u1",
		AnimeID:         100,
		Title:           "Round Trip",
		ImageURL:        "https://example.com/img.jpg",
		TotalEpisodes:   &total,
		WatchedEpisodes: 3,
		Genres:          []string{"Action", "Drama"},
		Score:           &score,
		Synopsis:        "A test entry.",
		Favorite:        true,
	}
	if err := st.Apply(ctx, "u1", []Op{UpsertEntry(e)}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	entries, err := st.Watchlist(ctx, "u1")
	if err != nil {
		t.Fatalf("watchlist: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(entries))
	}
	got := entries[0]
	if got.Title != "Round Trip" || got.WatchedEpisodes != 3 || !got.Favorite {
		t.Errorf("entry fields lost: %+v", got)
	}
	if got.TotalEpisodes == nil || *got.TotalEpisodes != 24 {
		t.Errorf("total episodes: got %v, want 24", got.TotalEpisodes)
	}
	if got.Score == nil || *got.Score != 8.5 {
		t.Errorf("score: got %v, want 8.5", got.Score)
	}
	if len(got.Genres) != 2 || got.Genres[0] != "Action" {
		t.Errorf("genres: got %v", got.Genres)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("store must assign updated_at")
	}

	// Upsert with the same id updates in place.
	e.WatchedEpisodes = 7
	if err := st.Apply(ctx, "u1", []Op{UpsertEntry(e)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	entries, _ = st.Watchlist(ctx, "u1")
	if len(entries) != 1 || entries[0].WatchedEpisodes != 7 {
		t.Errorf("upsert result: %+v", entries)
	}
}

// A failing second op must roll the transaction back completely.
func TestSQLiteBatchAtomicity(t *testing.T) {
	st := newSQLiteTestStore(t)
	ctx := context.Background()

	seed := []Op{
		UpsertEntry(&models.WatchlistEntry{ID: "e1", UserID: "u1", AnimeID: 1, Title: "Seed", WatchedEpisodes: 3}),
		InsertHistory(&models.HistoryRecord{ID: "h1", UserID: "u1", AnimeID: 1, AnimeTitle: "Seed", EpisodesDelta: 3}),
	}
	if err := st.Apply(ctx, "u1", seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Reusing history id h1 violates its primary key; the entry update
	// in the same batch must not survive.
	batch := []Op{
		UpsertEntry(&models.WatchlistEntry{ID: "e1", UserID: "u1", AnimeID: 1, Title: "Seed", WatchedEpisodes: 9}),
		InsertHistory(&models.HistoryRecord{ID: "h1", UserID: "u1", AnimeID: 1, AnimeTitle: "Seed", EpisodesDelta: 6}),
	}
	err := st.Apply(ctx, "u1", batch)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate history batch: got %v, want ErrDuplicate", err)
	}

	entries, _ := st.Watchlist(ctx, "u1")
	if entries[0].WatchedEpisodes != 3 {
		t.Errorf("rolled-back update leaked: got watched=%d, want 3", entries[0].WatchedEpisodes)
	}
	history, _ := st.History(ctx, "u1")
	if len(history) != 1 || history[0].EpisodesDelta != 3 {
		t.Errorf("history after rollback: %+v", history)
	}
}

func TestSQLiteDuplicateAnime(t *testing.T) {
	st := newSQLiteTestStore(t)
	ctx := context.Background()

	first := &models.WatchlistEntry{ID: "e1", UserID: "u1", AnimeID: 55, Title: "First"}
	if err := st.Apply(ctx, "u1", []Op{UpsertEntry(first)}); err != nil {
		t.Fatalf("first: %v", err)
	}

	// Different entry id, same anime id for the same user.
	second := &models.WatchlistEntry{ID: "e2", UserID: "u1", AnimeID: 55, Title: "Second"}
	err := st.Apply(ctx, "u1", []Op{UpsertEntry(second)})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("same anime twice: got %v, want ErrDuplicate", err)
	}
}

func TestSQLiteDeleteNotFound(t *testing.T) {
	st := newSQLiteTestStore(t)
	ctx := context.Background()

	if err := st.Apply(ctx, "u1", []Op{DeleteEntry("missing")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing entry: got %v, want ErrNotFound", err)
	}
	if err := st.Apply(ctx, "u1", []Op{DeleteHistory("missing")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing history: got %v, want ErrNotFound", err)
	}
}

func TestSQLiteChangeFeed(t *testing.T) {
	st := newSQLiteTestStore(t)
	ctx := context.Background()

	feed, cancel := st.Subscribe("u1")
	defer cancel()

	batch := []Op{
		UpsertEntry(&models.WatchlistEntry{ID: "e1", UserID: "u1", AnimeID: 1, Title: "Feed", WatchedEpisodes: 2}),
		InsertHistory(&models.HistoryRecord{ID: "h1", UserID: "u1", AnimeID: 1, AnimeTitle: "Feed", EpisodesDelta: 2}),
	}
	if err := st.Apply(ctx, "u1", batch); err != nil {
		t.Fatalf("apply: %v", err)
	}

	select {
	case event := <-feed:
		if len(event.Watchlist) != 1 || len(event.History) != 1 {
			t.Errorf("event state: watchlist=%d history=%d, want 1/1", len(event.Watchlist), len(event.History))
		}
	case <-time.After(time.Second):
		t.Fatal("no change event after commit")
	}
}
