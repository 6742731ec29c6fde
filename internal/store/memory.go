package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

// MemoryStore is an in-memory Store used by tests and local development.
// Batches are applied to a staging copy and committed only if every op
// succeeds, matching the transactional behavior of the sqlite store.
type MemoryStore struct {
	mu        sync.Mutex
	watchlist map[string]map[string]models.WatchlistEntry // userID -> entryID -> entry
	history   map[string]map[string]models.HistoryRecord  // userID -> historyID -> record
	subs      map[string]map[chan ChangeEvent]struct{}

	// failErr, when set, makes the next Apply containing failKind fail
	// without applying anything. failKind of -1 fails any batch.
	failErr  error
	failKind OpKind

	// ApplyDelay simulates a slow store call.
	ApplyDelay time.Duration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		watchlist: make(map[string]map[string]models.WatchlistEntry),
		history:   make(map[string]map[string]models.HistoryRecord),
		subs:      make(map[string]map[chan ChangeEvent]struct{}),
		failKind:  -1,
	}
}

// FailNext makes the next Apply fail with err, regardless of contents.
func (s *MemoryStore) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
	s.failKind = -1
}

// FailNextKind makes the next Apply whose batch contains an op of the
// given kind fail with err. Used to simulate the second write of a
// grouped batch failing.
func (s *MemoryStore) FailNextKind(kind OpKind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
	s.failKind = kind
}

func (s *MemoryStore) Watchlist(ctx context.Context, userID string) ([]models.WatchlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]models.WatchlistEntry, 0, len(s.watchlist[userID]))
	for _, e := range s.watchlist[userID] {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}

func (s *MemoryStore) History(ctx context.Context, userID string) ([]models.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]models.HistoryRecord, 0, len(s.history[userID]))
	for _, h := range s.history[userID] {
		records = append(records, h)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

func (s *MemoryStore) Apply(ctx context.Context, userID string, batch []Op) error {
	if len(batch) == 0 {
		return nil
	}

	if s.ApplyDelay > 0 {
		select {
		case <-time.After(s.ApplyDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()

	if s.failErr != nil && s.batchMatchesFailure(batch) {
		err := s.failErr
		s.failErr = nil
		s.failKind = -1
		s.mu.Unlock()
		return err
	}

	now := time.Now().UTC()
	entries := cloneEntries(s.watchlist[userID])
	records := cloneRecords(s.history[userID])

	for _, op := range batch {
		if err := applyMemOp(entries, records, op, now); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	s.watchlist[userID] = entries
	s.history[userID] = records
	s.mu.Unlock()

	s.notify(userID)
	return nil
}

func (s *MemoryStore) batchMatchesFailure(batch []Op) bool {
	if s.failKind == -1 {
		return true
	}
	for _, op := range batch {
		if op.Kind == s.failKind {
			return true
		}
	}
	return false
}

func applyMemOp(entries map[string]models.WatchlistEntry, records map[string]models.HistoryRecord, op Op, now time.Time) error {
	switch op.Kind {
	case OpUpsertEntry:
		e := *op.Entry
		e.UpdatedAt = now
		e.Pending = false
		entries[e.ID] = e
	case OpDeleteEntry:
		if _, ok := entries[op.TargetID]; !ok {
			return fmt.Errorf("%w: entry %s", ErrNotFound, op.TargetID)
		}
		delete(entries, op.TargetID)
	case OpInsertHistory:
		h := *op.History
		if _, ok := records[h.ID]; ok {
			return fmt.Errorf("%w: history %s", ErrDuplicate, h.ID)
		}
		h.Timestamp = now
		records[h.ID] = h
	case OpUpdateHistory:
		h, ok := records[op.TargetID]
		if !ok {
			return fmt.Errorf("%w: history %s", ErrNotFound, op.TargetID)
		}
		h.EpisodesDelta = op.History.EpisodesDelta
		records[op.TargetID] = h
	case OpDeleteHistory:
		if _, ok := records[op.TargetID]; !ok {
			return fmt.Errorf("%w: history %s", ErrNotFound, op.TargetID)
		}
		delete(records, op.TargetID)
	default:
		return fmt.Errorf("unknown op kind: %d", op.Kind)
	}
	return nil
}

func (s *MemoryStore) Subscribe(userID string) (<-chan ChangeEvent, func()) {
	ch := make(chan ChangeEvent, 8)

	s.mu.Lock()
	if _, ok := s.subs[userID]; !ok {
		s.subs[userID] = make(map[chan ChangeEvent]struct{})
	}
	s.subs[userID][ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if set, ok := s.subs[userID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(s.subs, userID)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *MemoryStore) notify(userID string) {
	watchlist, _ := s.Watchlist(context.Background(), userID)
	history, _ := s.History(context.Background(), userID)

	event := ChangeEvent{
		UserID:    userID,
		Watchlist: watchlist,
		History:   history,
		Timestamp: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs[userID] {
		select {
		case ch <- event:
		default:
		}
	}
}

func cloneEntries(src map[string]models.WatchlistEntry) map[string]models.WatchlistEntry {
	dst := make(map[string]models.WatchlistEntry, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneRecords(src map[string]models.HistoryRecord) map[string]models.HistoryRecord {
	dst := make(map[string]models.HistoryRecord, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
