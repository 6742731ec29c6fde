package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/internal/store"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/config"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

const testUser = "user-1"

func testConfig(quiet time.Duration) config.SyncConfig {
	return config.SyncConfig{
		QuietInterval: quiet,
		WriteTimeout:  2 * time.Second,
	}
}

func seedEntry(t *testing.T, st *store.MemoryStore, id string, animeID, watched int, total *int) {
	t.Helper()
	entry := &models.WatchlistEntry{
		ID:              id,
		UserID:          testUser,
		AnimeID:         animeID,
		Title:           "Seeded " + id,
		TotalEpisodes:   total,
		WatchedEpisodes: watched,
	}
	if err := st.Apply(context.Background(), testUser, []store.Op{store.UpsertEntry(entry)}); err != nil {
		t.Fatalf("seed entry %s: %v", id, err)
	}
}

func newTestReconciler(t *testing.T, st *store.MemoryStore, quiet time.Duration) *Reconciler {
	t.Helper()
	rec := NewReconciler(testUser, st, testConfig(quiet))
	if err := rec.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(rec.Close)
	return rec
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func storedWatched(t *testing.T, st *store.MemoryStore, entryID string) (int, bool) {
	t.Helper()
	entries, err := st.Watchlist(context.Background(), testUser)
	if err != nil {
		t.Fatalf("watchlist: %v", err)
	}
	for _, e := range entries {
		if e.ID == entryID {
			return e.WatchedEpisodes, true
		}
	}
	return 0, false
}

// Four rapid increments within the quiet interval must coalesce into a
// single durable write whose history delta is final minus the count
// before the first edit.
func TestDebounceCoalescing(t *testing.T) {
	st := store.NewMemoryStore()
	total := 12
	seedEntry(t, st, "e1", 100, 3, &total)
	rec := newTestReconciler(t, st, 60*time.Millisecond)

	for next := 4; next <= 7; next++ {
		rec.ApplyEpisodeChange("e1", next)
		entry, ok := rec.Entry("e1")
		if !ok {
			t.Fatal("entry missing from projection")
		}
		if entry.WatchedEpisodes != next {
			t.Errorf("projection after click: got %d, want %d", entry.WatchedEpisodes, next)
		}
		if !entry.Pending {
			t.Error("entry should be pending while debounce is open")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := rec.PendingCount(); got != 1 {
		t.Errorf("pending count during debounce: got %d, want 1", got)
	}

	waitFor(t, time.Second, func() bool {
		watched, ok := storedWatched(t, st, "e1")
		return ok && watched == 7
	}, "durable write with final count")

	history, err := st.History(context.Background(), testUser)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history records: got %d, want exactly 1", len(history))
	}
	if history[0].EpisodesDelta != 4 {
		t.Errorf("history delta: got %d, want +4", history[0].EpisodesDelta)
	}

	waitFor(t, time.Second, func() bool { return rec.PendingCount() == 0 }, "pending count settles")
	entry, _ := rec.Entry("e1")
	if entry.Pending {
		t.Error("entry should not be pending after a confirmed write")
	}
}

// The pending counter tracks entities with open deferred writes, one per
// entity no matter how many edits each receives, and never goes below
// zero.
func TestPendingCounterAccounting(t *testing.T) {
	st := store.NewMemoryStore()
	seedEntry(t, st, "a", 1, 0, nil)
	seedEntry(t, st, "b", 2, 0, nil)
	seedEntry(t, st, "c", 3, 0, nil)
	rec := newTestReconciler(t, st, 50*time.Millisecond)

	rec.ApplyEpisodeChange("a", 1)
	rec.ApplyEpisodeChange("a", 2)
	rec.ApplyEpisodeChange("b", 5)
	if got := rec.PendingCount(); got != 2 {
		t.Errorf("pending count: got %d, want 2 (two distinct entities)", got)
	}

	rec.ApplyEpisodeChange("c", 1)
	if got := rec.PendingCount(); got != 3 {
		t.Errorf("pending count: got %d, want 3", got)
	}

	waitFor(t, time.Second, func() bool { return rec.PendingCount() == 0 }, "all writes settle")

	// Extra settles must not drive the counter negative.
	rec.Flush()
	if got := rec.PendingCount(); got != 0 {
		t.Errorf("pending count after redundant flush: got %d, want 0", got)
	}
}

// A failed grouped write must leave the store untouched: the entry
// update may not land if the history insert fails.
func TestFlushAtomicity(t *testing.T) {
	st := store.NewMemoryStore()
	seedEntry(t, st, "e1", 100, 3, nil)
	rec := newTestReconciler(t, st, 40*time.Millisecond)

	st.FailNextKind(store.OpInsertHistory, errors.New("history write rejected"))

	var mu sync.Mutex
	var syncErrs []SyncError
	rec.OnError(func(se SyncError) {
		mu.Lock()
		syncErrs = append(syncErrs, se)
		mu.Unlock()
	})

	rec.ApplyEpisodeChange("e1", 8)

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(syncErrs) == 1
	}, "error callback fires")

	mu.Lock()
	if syncErrs[0].Code != "DEBOUNCED_SYNC_ERROR" {
		t.Errorf("error code: got %s, want DEBOUNCED_SYNC_ERROR", syncErrs[0].Code)
	}
	if syncErrs[0].EntryID != "e1" {
		t.Errorf("error entry id: got %s, want e1", syncErrs[0].EntryID)
	}
	mu.Unlock()

	watched, ok := storedWatched(t, st, "e1")
	if !ok {
		t.Fatal("seeded entry missing from store")
	}
	if watched != 3 {
		t.Errorf("stored count after failed batch: got %d, want 3 (unchanged)", watched)
	}
	history, _ := st.History(context.Background(), testUser)
	if len(history) != 0 {
		t.Errorf("history after failed batch: got %d records, want 0", len(history))
	}

	// The optimistic edit stays visible; the change feed is trusted to
	// restore the authoritative value.
	entry, _ := rec.Entry("e1")
	if entry.WatchedEpisodes != 8 {
		t.Errorf("projection after failure: got %d, want 8 (no rollback)", entry.WatchedEpisodes)
	}
	if got := rec.PendingCount(); got != 0 {
		t.Errorf("pending count after failure: got %d, want 0", got)
	}
}

// A failing durable write rolls back an optimistic add completely.
func TestAddEntryRollback(t *testing.T) {
	st := store.NewMemoryStore()
	rec := newTestReconciler(t, st, 40*time.Millisecond)

	st.FailNext(errors.New("store unavailable"))

	_, err := rec.AddEntry(context.Background(), models.AddEntryRequest{
		AnimeID:        200,
		Title:          "Doomed Add",
		InitialWatched: 2,
	})
	if err == nil {
		t.Fatal("expected add to fail")
	}

	if got := len(rec.Snapshot()); got != 0 {
		t.Errorf("projection after rollback: got %d entries, want 0", got)
	}
	entries, _ := st.Watchlist(context.Background(), testUser)
	if len(entries) != 0 {
		t.Errorf("store after failed add: got %d entries, want 0", len(entries))
	}
}

func TestAddEntryDuplicate(t *testing.T) {
	st := store.NewMemoryStore()
	rec := newTestReconciler(t, st, 40*time.Millisecond)

	if _, err := rec.AddEntry(context.Background(), models.AddEntryRequest{AnimeID: 10, Title: "First"}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	_, err := rec.AddEntry(context.Background(), models.AddEntryRequest{AnimeID: 10, Title: "Again"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("duplicate add: got %v, want ErrDuplicate", err)
	}
}

// Writing "set count to X" twice must converge to the same state as
// writing it once: the second flush carries a zero delta and adds no
// history.
func TestIdempotentRedelivery(t *testing.T) {
	st := store.NewMemoryStore()
	seedEntry(t, st, "e1", 100, 3, nil)
	rec := newTestReconciler(t, st, 30*time.Millisecond)

	rec.ApplyEpisodeChange("e1", 5)
	waitFor(t, time.Second, func() bool {
		watched, ok := storedWatched(t, st, "e1")
		return ok && watched == 5
	}, "first write lands")

	rec.ApplyEpisodeChange("e1", 5)
	waitFor(t, time.Second, func() bool { return rec.PendingCount() == 0 }, "second write settles")

	watched, _ := storedWatched(t, st, "e1")
	if watched != 5 {
		t.Errorf("stored count: got %d, want 5", watched)
	}
	history, _ := st.History(context.Background(), testUser)
	if len(history) != 1 {
		t.Errorf("history records after redelivery: got %d, want 1", len(history))
	}
}

// Removing an entry cancels its open debounce slot so no write fires for
// a deleted entity.
func TestRemoveCancelsOpenDebounce(t *testing.T) {
	st := store.NewMemoryStore()
	seedEntry(t, st, "e1", 100, 3, nil)
	rec := newTestReconciler(t, st, 50*time.Millisecond)

	rec.ApplyEpisodeChange("e1", 4)
	if got := rec.PendingCount(); got != 1 {
		t.Fatalf("pending count: got %d, want 1", got)
	}

	if err := rec.RemoveEntry(context.Background(), "e1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := rec.PendingCount(); got != 0 {
		t.Errorf("pending count after remove: got %d, want 0", got)
	}

	time.Sleep(120 * time.Millisecond)
	if _, ok := storedWatched(t, st, "e1"); ok {
		t.Error("entry should stay deleted; cancelled debounce must not resurrect it")
	}
	history, _ := st.History(context.Background(), testUser)
	if len(history) != 0 {
		t.Errorf("history after cancelled debounce: got %d records, want 0", len(history))
	}
}

func TestRemoveEntryUnknown(t *testing.T) {
	st := store.NewMemoryStore()
	rec := newTestReconciler(t, st, 40*time.Millisecond)

	if err := rec.RemoveEntry(context.Background(), "nope"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("remove unknown: got %v, want ErrEntryNotFound", err)
	}
}

// A change-feed snapshot always wins for display, but entries with open
// debounce slots keep their pending flag.
func TestApplyRemoteSupersedesProjection(t *testing.T) {
	st := store.NewMemoryStore()
	seedEntry(t, st, "e1", 100, 3, nil)
	seedEntry(t, st, "e2", 200, 1, nil)
	rec := newTestReconciler(t, st, time.Hour) // debounce never fires in this test

	rec.ApplyEpisodeChange("e1", 9)

	rec.ApplyRemote(store.ChangeEvent{
		UserID: testUser,
		Watchlist: []models.WatchlistEntry{
			{ID: "e1", UserID: testUser, AnimeID: 100, Title: "Seeded e1", WatchedEpisodes: 6},
			{ID: "e2", UserID: testUser, AnimeID: 200, Title: "Seeded e2", WatchedEpisodes: 2},
		},
	})

	e1, _ := rec.Entry("e1")
	if e1.WatchedEpisodes != 6 {
		t.Errorf("snapshot must win for display: got %d, want 6", e1.WatchedEpisodes)
	}
	if !e1.Pending {
		t.Error("entry with an open debounce slot must stay pending")
	}
	e2, _ := rec.Entry("e2")
	if e2.Pending {
		t.Error("entry without local edits must not be pending")
	}
	if got := rec.PendingCount(); got != 1 {
		t.Errorf("pending count after snapshot: got %d, want 1", got)
	}
}

// Flush fires open slots immediately so shutdown does not lose edits to
// the quiet interval.
func TestFlushOnShutdown(t *testing.T) {
	st := store.NewMemoryStore()
	seedEntry(t, st, "e1", 100, 0, nil)
	rec := newTestReconciler(t, st, time.Hour)

	rec.ApplyEpisodeChange("e1", 3)
	rec.Flush()

	waitFor(t, time.Second, func() bool {
		watched, ok := storedWatched(t, st, "e1")
		return ok && watched == 3
	}, "flush writes immediately")
}
