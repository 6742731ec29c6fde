package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/internal/store"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/config"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/logger"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/metrics"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/utils"
)

var ErrEntryNotFound = errors.New("entry not in projection")

// SyncError is surfaced to the user when a deferred or direct write
// fails. It is display-only; no automatic retry.
type SyncError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	EntryID string `json:"entry_id,omitempty"`
}

func (e SyncError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// pendingWrite is the single debounce slot for one entry. At most one
// exists per entry id; a new edit cancels and replaces the timer but
// keeps the original baseline.
type pendingWrite struct {
	entryID  string
	baseline int
	final    int
	timer    *time.Timer
}

// Reconciler applies user edits to an in-memory projection immediately
// and coalesces rapid repeated edits to the same entry into one deferred
// atomic write. The store's change feed is the source of truth and
// overwrites the projection whenever it delivers.
type Reconciler struct {
	userID string
	store  store.Store
	cfg    config.SyncConfig
	log    *logger.Logger

	mu           sync.Mutex
	entries      map[string]models.WatchlistEntry
	history      []models.HistoryRecord
	pending      map[string]*pendingWrite
	pendingCount int

	onError  func(SyncError)
	onChange func()
}

func NewReconciler(userID string, st store.Store, cfg config.SyncConfig) *Reconciler {
	if cfg.QuietInterval <= 0 {
		cfg.QuietInterval = 1500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Reconciler{
		userID:  userID,
		store:   st,
		cfg:     cfg,
		log:     logger.GetLogger().WithContext("component", "reconciler").WithContext("user_id", userID),
		entries: make(map[string]models.WatchlistEntry),
		pending: make(map[string]*pendingWrite),
	}
}

// OnError registers the callback that surfaces write failures to the
// user. Called outside the reconciler lock.
func (r *Reconciler) OnError(fn func(SyncError)) {
	r.mu.Lock()
	r.onError = fn
	r.mu.Unlock()
}

// OnChange registers a callback fired after every projection change.
func (r *Reconciler) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Load primes the projection from the store. Called once when the
// reconciler is created for a user session.
func (r *Reconciler) Load(ctx context.Context) error {
	watchlist, err := r.store.Watchlist(ctx, r.userID)
	if err != nil {
		return err
	}
	history, err := r.store.History(ctx, r.userID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.entries = make(map[string]models.WatchlistEntry, len(watchlist))
	for _, e := range watchlist {
		r.entries[e.ID] = e
	}
	r.history = history
	r.mu.Unlock()
	return nil
}

// ApplyEpisodeChange updates the projection synchronously and schedules
// a deferred write after the quiet interval. It never fails from the
// caller's point of view; downstream failures surface via OnError.
// The caller is responsible for clamping newWatched to [0, total].
func (r *Reconciler) ApplyEpisodeChange(entryID string, newWatched int) {
	r.mu.Lock()

	entry, ok := r.entries[entryID]
	if !ok {
		r.mu.Unlock()
		r.log.Warn("episode_change_for_unknown_entry", "entry_id", entryID)
		return
	}

	baseline := entry.WatchedEpisodes

	entry.WatchedEpisodes = newWatched
	entry.Pending = true
	entry.UpdatedAt = time.Now().UTC()
	r.entries[entryID] = entry

	if pw, exists := r.pending[entryID]; exists {
		pw.timer.Stop()
		pw.final = newWatched
		pw.timer = time.AfterFunc(r.cfg.QuietInterval, func() { r.flush(entryID) })
	} else {
		r.pendingCount++
		metrics.SetPendingOps(int64(r.pendingCount))
		r.pending[entryID] = &pendingWrite{
			entryID:  entryID,
			baseline: baseline,
			final:    newWatched,
			timer:    time.AfterFunc(r.cfg.QuietInterval, func() { r.flush(entryID) }),
		}
	}

	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

// flush runs when an entry's quiet interval elapses. It removes the
// debounce slot first so an edit arriving mid-write opens a fresh cycle
// instead of racing this one.
func (r *Reconciler) flush(entryID string) {
	r.mu.Lock()
	pw, ok := r.pending[entryID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.pending, entryID)

	entry, exists := r.entries[entryID]
	if !exists {
		// Entry was removed while the debounce was open; nothing to write.
		r.settleLocked()
		r.mu.Unlock()
		return
	}

	delta := pw.final - pw.baseline
	batch := r.buildFlushBatch(entry, pw.final, delta)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	err := r.store.Apply(ctx, r.userID, batch)
	cancel()

	r.mu.Lock()
	r.settleLocked()
	var onError func(SyncError)
	if err != nil {
		metrics.IncrementFlushFails()
		onError = r.onError
		// No rollback for in-place edits: the next change-feed snapshot
		// restores the authoritative state.
	} else {
		metrics.IncrementFlushes()
		if e, ok := r.entries[entryID]; ok && e.WatchedEpisodes == pw.final {
			e.Pending = false
			r.entries[entryID] = e
		}
	}
	r.mu.Unlock()

	if err != nil {
		r.log.Error("deferred_sync_failed", "entry_id", entryID, "error", err.Error())
		if onError != nil {
			onError(SyncError{
				Code:    "DEBOUNCED_SYNC_ERROR",
				Message: err.Error(),
				EntryID: entryID,
			})
		}
	}
}

// buildFlushBatch writes the final count keyed by target value, so
// redelivering the same batch is safe, plus a history record when the
// delta is non-zero. Caller holds the lock.
func (r *Reconciler) buildFlushBatch(entry models.WatchlistEntry, final, delta int) []store.Op {
	updated := entry
	updated.WatchedEpisodes = final

	batch := []store.Op{store.UpsertEntry(&updated)}
	if delta != 0 {
		historyID, _ := utils.GenerateID(16)
		batch = append(batch, store.InsertHistory(&models.HistoryRecord{
			ID:            historyID,
			UserID:        r.userID,
			AnimeID:       entry.AnimeID,
			AnimeTitle:    entry.Title,
			EpisodesDelta: delta,
		}))
	}
	return batch
}

// settleLocked decrements the pending counter when a deferred write
// finishes, success or failure. The counter never goes below zero.
func (r *Reconciler) settleLocked() {
	r.pendingCount--
	if r.pendingCount < 0 {
		r.pendingCount = 0
	}
	metrics.SetPendingOps(int64(r.pendingCount))
}

// AddEntry inserts the entry into the projection immediately, then
// issues the durable write (entry plus initial history when some
// episodes are already watched) as one atomic batch. On failure the
// optimistic insert is rolled back.
func (r *Reconciler) AddEntry(ctx context.Context, req models.AddEntryRequest) (models.WatchlistEntry, error) {
	entryID, err := utils.GenerateID(16)
	if err != nil {
		return models.WatchlistEntry{}, err
	}

	entry := models.WatchlistEntry{
		ID:              entryID,
		UserID:          r.userID,
		AnimeID:         req.AnimeID,
		Title:           req.Title,
		ImageURL:        req.ImageURL,
		TotalEpisodes:   req.TotalEpisodes,
		WatchedEpisodes: req.InitialWatched,
		Genres:          req.Genres,
		Score:           req.Score,
		Synopsis:        req.Synopsis,
		UpdatedAt:       time.Now().UTC(),
		Pending:         true,
	}

	r.mu.Lock()
	for _, e := range r.entries {
		if e.AnimeID == req.AnimeID {
			r.mu.Unlock()
			return models.WatchlistEntry{}, fmt.Errorf("%w: anime %d", store.ErrDuplicate, req.AnimeID)
		}
	}
	r.entries[entryID] = entry
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange()
	}

	batch := []store.Op{store.UpsertEntry(&entry)}
	if req.InitialWatched > 0 {
		historyID, _ := utils.GenerateID(16)
		batch = append(batch, store.InsertHistory(&models.HistoryRecord{
			ID:            historyID,
			UserID:        r.userID,
			AnimeID:       req.AnimeID,
			AnimeTitle:    req.Title,
			EpisodesDelta: req.InitialWatched,
		}))
	}

	writeCtx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()
	if err := r.store.Apply(writeCtx, r.userID, batch); err != nil {
		r.mu.Lock()
		delete(r.entries, entryID)
		onChange = r.onChange
		r.mu.Unlock()
		if onChange != nil {
			onChange()
		}
		return models.WatchlistEntry{}, fmt.Errorf("WRITE_ERROR: %w", err)
	}

	return entry, nil
}

// RemoveEntry removes the entry from the projection immediately and
// issues the durable delete. No rollback on failure; the next change
// feed snapshot restores the entry if the delete did not happen.
func (r *Reconciler) RemoveEntry(ctx context.Context, entryID string) error {
	r.mu.Lock()
	if _, ok := r.entries[entryID]; !ok {
		r.mu.Unlock()
		return ErrEntryNotFound
	}
	delete(r.entries, entryID)
	if pw, ok := r.pending[entryID]; ok {
		pw.timer.Stop()
		delete(r.pending, entryID)
		r.settleLocked()
	}
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange()
	}

	writeCtx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()
	if err := r.store.Apply(writeCtx, r.userID, []store.Op{store.DeleteEntry(entryID)}); err != nil {
		return fmt.Errorf("DELETE_ERROR: %w", err)
	}
	return nil
}

// SetFavorite toggles the favorite flag with a direct, non-debounced
// write.
func (r *Reconciler) SetFavorite(ctx context.Context, entryID string, favorite bool) error {
	r.mu.Lock()
	entry, ok := r.entries[entryID]
	if !ok {
		r.mu.Unlock()
		return ErrEntryNotFound
	}
	entry.Favorite = favorite
	entry.Pending = true
	r.entries[entryID] = entry
	r.mu.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()
	if err := r.store.Apply(writeCtx, r.userID, []store.Op{store.UpsertEntry(&entry)}); err != nil {
		return fmt.Errorf("WRITE_ERROR: %w", err)
	}
	return nil
}

// ApplyRemote folds an authoritative change-feed snapshot into the
// projection. The notification always wins for display, including mid
// debounce; open debounce slots keep counting toward the deferred write.
func (r *Reconciler) ApplyRemote(event store.ChangeEvent) {
	r.mu.Lock()
	entries := make(map[string]models.WatchlistEntry, len(event.Watchlist))
	for _, e := range event.Watchlist {
		if _, open := r.pending[e.ID]; open {
			e.Pending = true
		}
		entries[e.ID] = e
	}
	r.entries = entries
	r.history = event.History
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange()
	}
}

// Snapshot returns the projection sorted by recency, pending flags
// included.
func (r *Reconciler) Snapshot() []models.WatchlistEntry {
	r.mu.Lock()
	entries := make([]models.WatchlistEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].Title < entries[j].Title
		}
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries
}

// HistorySnapshot returns the last known history projection.
func (r *Reconciler) HistorySnapshot() []models.HistoryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.HistoryRecord, len(r.history))
	copy(out, r.history)
	return out
}

// Entry returns one projected entry by id.
func (r *Reconciler) Entry(entryID string) (models.WatchlistEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entryID]
	return e, ok
}

// PendingCount reports how many entries have an outstanding deferred
// write. Observability only.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingCount
}

// Flush fires every open debounce slot immediately. Used on shutdown so
// coalesced edits are not lost to the quiet interval.
func (r *Reconciler) Flush() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.pending))
	for id, pw := range r.pending {
		pw.timer.Stop()
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.flush(id)
	}
}

// Close stops all timers without writing. Pending edits are dropped.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, pw := range r.pending {
		pw.timer.Stop()
		delete(r.pending, id)
		r.settleLocked()
	}
}
