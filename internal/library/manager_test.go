package library

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/internal/reconciler"
	"github.com/nmhoang2304/AniTrack-Group07/internal/store"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/config"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

type captureNotifier struct {
	mu        sync.Mutex
	snapshots int
	histories int
	errors    []reconciler.SyncError
}

func (n *captureNotifier) NotifySnapshot(userID string, watchlist []models.WatchlistEntry, pendingOps int) {
	n.mu.Lock()
	n.snapshots++
	n.mu.Unlock()
}

func (n *captureNotifier) NotifyHistory(userID string, history []models.HistoryRecord) {
	n.mu.Lock()
	n.histories++
	n.mu.Unlock()
}

func (n *captureNotifier) NotifySyncError(userID string, syncErr reconciler.SyncError) {
	n.mu.Lock()
	n.errors = append(n.errors, syncErr)
	n.mu.Unlock()
}

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		QuietInterval: 30 * time.Millisecond,
		WriteTimeout:  time.Second,
		ImportRowCap:  250,
	}
}

func TestManagerReusesSession(t *testing.T) {
	m := NewManager(store.NewMemoryStore(), testSyncConfig())
	defer m.Close()
	ctx := context.Background()

	first, err := m.Reconciler(ctx, "u1")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := m.Reconciler(ctx, "u1")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first != second {
		t.Error("same user must get the same reconciler")
	}

	other, err := m.Reconciler(ctx, "u2")
	if err != nil {
		t.Fatalf("other user: %v", err)
	}
	if other == first {
		t.Error("different users must not share a reconciler")
	}
}

func TestManagerNotifiesOnCommit(t *testing.T) {
	st := store.NewMemoryStore()
	m := NewManager(st, testSyncConfig())
	defer m.Close()
	n := &captureNotifier{}
	m.SetNotifier(n)
	ctx := context.Background()

	rec, err := m.Reconciler(ctx, "u1")
	if err != nil {
		t.Fatalf("reconciler: %v", err)
	}
	if _, err := rec.AddEntry(ctx, models.AddEntryRequest{AnimeID: 1, Title: "A", InitialWatched: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		n.mu.Lock()
		snapshots, histories := n.snapshots, n.histories
		n.mu.Unlock()
		if snapshots > 0 && histories > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("commit did not reach the notifier")
}

func TestManagerCloseFlushesPendingEdits(t *testing.T) {
	st := store.NewMemoryStore()
	cfg := testSyncConfig()
	cfg.QuietInterval = time.Hour // nothing flushes on its own
	m := NewManager(st, cfg)
	ctx := context.Background()

	rec, err := m.Reconciler(ctx, "u1")
	if err != nil {
		t.Fatalf("reconciler: %v", err)
	}
	entry, err := rec.AddEntry(ctx, models.AddEntryRequest{AnimeID: 1, Title: "A"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	rec.ApplyEpisodeChange(entry.ID, 5)

	m.Close()

	entries, _ := st.Watchlist(ctx, "u1")
	if len(entries) != 1 || entries[0].WatchedEpisodes != 5 {
		t.Errorf("pending edit lost on close: %+v", entries)
	}
}
