package library

import (
	"context"
	"sync"

	"github.com/nmhoang2304/AniTrack-Group07/internal/reconciler"
	"github.com/nmhoang2304/AniTrack-Group07/internal/store"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/config"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/logger"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

// Notifier pushes reconciler state to connected clients. Implemented by
// the realtime broadcaster; nil-safe when no feed server is running.
type Notifier interface {
	NotifySnapshot(userID string, watchlist []models.WatchlistEntry, pendingOps int)
	NotifyHistory(userID string, history []models.HistoryRecord)
	NotifySyncError(userID string, syncErr reconciler.SyncError)
}

// Manager owns one reconciler per authenticated user and keeps it fed
// from the store's change stream.
type Manager struct {
	store    store.Store
	cfg      config.SyncConfig
	notifier Notifier
	log      *logger.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	rec        *reconciler.Reconciler
	cancelFeed func()
	done       chan struct{}
}

func NewManager(st store.Store, cfg config.SyncConfig) *Manager {
	return &Manager{
		store:    st,
		cfg:      cfg,
		log:      logger.GetLogger().WithContext("component", "library_manager"),
		sessions: make(map[string]*session),
	}
}

func (m *Manager) SetNotifier(n Notifier) {
	m.mu.Lock()
	m.notifier = n
	m.mu.Unlock()
}

// Reconciler returns the user's reconciler, creating and priming it on
// first use.
func (m *Manager) Reconciler(ctx context.Context, userID string) (*reconciler.Reconciler, error) {
	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return s.rec, nil
	}
	m.mu.Unlock()

	rec := reconciler.NewReconciler(userID, m.store, m.cfg)
	if err := rec.Load(ctx); err != nil {
		return nil, err
	}

	rec.OnChange(func() {
		m.publishSnapshot(userID, rec)
	})
	rec.OnError(func(syncErr reconciler.SyncError) {
		m.mu.Lock()
		n := m.notifier
		m.mu.Unlock()
		if n != nil {
			n.NotifySyncError(userID, syncErr)
		}
	})

	feed, cancelFeed := m.store.Subscribe(userID)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range feed {
			rec.ApplyRemote(event)
			m.mu.Lock()
			n := m.notifier
			m.mu.Unlock()
			if n != nil {
				n.NotifyHistory(userID, event.History)
			}
		}
	}()

	m.mu.Lock()
	// Another request may have raced us here; keep the first session.
	if s, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		cancelFeed()
		rec.Close()
		<-done
		return s.rec, nil
	}
	m.sessions[userID] = &session{rec: rec, cancelFeed: cancelFeed, done: done}
	m.mu.Unlock()

	m.log.Info("session_started", "user_id", userID)
	return rec, nil
}

func (m *Manager) publishSnapshot(userID string, rec *reconciler.Reconciler) {
	m.mu.Lock()
	n := m.notifier
	m.mu.Unlock()
	if n == nil {
		return
	}
	n.NotifySnapshot(userID, rec.Snapshot(), rec.PendingCount())
}

// Close flushes every open debounce slot so coalesced edits reach the
// store before shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.rec.Flush()
		s.cancelFeed()
		<-s.done
	}
}
