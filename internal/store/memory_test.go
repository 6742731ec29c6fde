package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

func entry(id string, animeID, watched int) *models.WatchlistEntry {
	return &models.WatchlistEntry{
		ID:              id,
		UserID:          "u1",
		AnimeID:         animeID,
		Title:           "Title " + id,
		WatchedEpisodes: watched,
	}
}

func record(id string, animeID, delta int) *models.HistoryRecord {
	return &models.HistoryRecord{
		ID:            id,
		UserID:        "u1",
		AnimeID:       animeID,
		AnimeTitle:    "Title",
		EpisodesDelta: delta,
	}
}

// A batch whose second op fails must leave the first op unapplied.
func TestMemoryApplyAtomicity(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if err := st.Apply(ctx, "u1", []Op{UpsertEntry(entry("e1", 1, 0))}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.Apply(ctx, "u1", []Op{InsertHistory(record("h1", 1, 2))}); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	// Duplicate history id makes the second op fail mid-batch.
	batch := []Op{
		UpsertEntry(entry("e1", 1, 9)),
		InsertHistory(record("h1", 1, 9)),
	}
	err := st.Apply(ctx, "u1", batch)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("batch with duplicate history: got %v, want ErrDuplicate", err)
	}

	entries, _ := st.Watchlist(ctx, "u1")
	if len(entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(entries))
	}
	if entries[0].WatchedEpisodes != 0 {
		t.Errorf("entry update leaked from failed batch: got watched=%d, want 0", entries[0].WatchedEpisodes)
	}
}

func TestMemoryInjectedFailure(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	st.FailNextKind(OpInsertHistory, errors.New("injected"))

	// A batch without the failing kind applies normally.
	if err := st.Apply(ctx, "u1", []Op{UpsertEntry(entry("e1", 1, 0))}); err != nil {
		t.Fatalf("unrelated batch should pass: %v", err)
	}

	// The next batch containing the kind fails and applies nothing.
	batch := []Op{
		UpsertEntry(entry("e1", 1, 5)),
		InsertHistory(record("h1", 1, 5)),
	}
	if err := st.Apply(ctx, "u1", batch); err == nil {
		t.Fatal("expected injected failure")
	}

	entries, _ := st.Watchlist(ctx, "u1")
	if entries[0].WatchedEpisodes != 0 {
		t.Errorf("failed batch must not apply: got watched=%d, want 0", entries[0].WatchedEpisodes)
	}

	// Injection is one-shot.
	if err := st.Apply(ctx, "u1", batch); err != nil {
		t.Fatalf("retry after injection should pass: %v", err)
	}
}

func TestMemoryDeleteAndHistoryOps(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if err := st.Apply(ctx, "u1", []Op{
		UpsertEntry(entry("e1", 1, 3)),
		InsertHistory(record("h1", 1, 3)),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := st.Apply(ctx, "u1", []Op{UpdateHistory("h1", &models.HistoryRecord{EpisodesDelta: 2})}); err != nil {
		t.Fatalf("update history: %v", err)
	}
	history, _ := st.History(ctx, "u1")
	if history[0].EpisodesDelta != 2 {
		t.Errorf("history delta: got %d, want 2", history[0].EpisodesDelta)
	}

	if err := st.Apply(ctx, "u1", []Op{DeleteHistory("h1")}); err != nil {
		t.Fatalf("delete history: %v", err)
	}
	if err := st.Apply(ctx, "u1", []Op{DeleteHistory("h1")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}

	if err := st.Apply(ctx, "u1", []Op{DeleteEntry("e1")}); err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	entries, _ := st.Watchlist(ctx, "u1")
	if len(entries) != 0 {
		t.Errorf("entries after delete: got %d, want 0", len(entries))
	}
}

// Every committed batch replays the full state to subscribers.
func TestMemorySubscribe(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	feed, cancel := st.Subscribe("u1")
	defer cancel()

	if err := st.Apply(ctx, "u1", []Op{UpsertEntry(entry("e1", 1, 4))}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	select {
	case event := <-feed:
		if event.UserID != "u1" {
			t.Errorf("event user: got %s, want u1", event.UserID)
		}
		if len(event.Watchlist) != 1 || event.Watchlist[0].WatchedEpisodes != 4 {
			t.Errorf("event watchlist: got %+v", event.Watchlist)
		}
	case <-time.After(time.Second):
		t.Fatal("no change event delivered")
	}

	// Another user's commit must not reach this feed.
	if err := st.Apply(ctx, "u2", []Op{UpsertEntry(&models.WatchlistEntry{ID: "x", UserID: "u2", AnimeID: 9, Title: "Other"})}); err != nil {
		t.Fatalf("apply u2: %v", err)
	}
	select {
	case event := <-feed:
		t.Fatalf("cross-user event leaked: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}
