package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/pkg/logger"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

// SQLiteStore is the durable store of record. Batches run inside one
// transaction so a crash mid-flight can never apply a count update
// without its history record, or vice versa.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger

	mu   sync.RWMutex
	subs map[string]map[chan ChangeEvent]struct{}
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:   db,
		log:  logger.GetLogger().WithContext("component", "sqlite_store"),
		subs: make(map[string]map[chan ChangeEvent]struct{}),
	}
}

func (s *SQLiteStore) Watchlist(ctx context.Context, userID string) ([]models.WatchlistEntry, error) {
	query := `SELECT id, user_id, anime_id, title, image_url, total_episodes, watched_episodes,
                     genres, score, synopsis, favorite, updated_at
              FROM watchlist WHERE user_id = ? ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("watchlist query failed: %w", err)
	}
	defer rows.Close()

	entries := []models.WatchlistEntry{}
	for rows.Next() {
		var e models.WatchlistEntry
		var genresJSON sql.NullString
		var imageURL, synopsis sql.NullString
		var totalEpisodes sql.NullInt64
		var score sql.NullFloat64

		err := rows.Scan(&e.ID, &e.UserID, &e.AnimeID, &e.Title, &imageURL, &totalEpisodes,
			&e.WatchedEpisodes, &genresJSON, &score, &synopsis, &e.Favorite, &e.UpdatedAt)
		if err != nil {
			s.log.Error("watchlist_row_scan_failed", "error", err.Error())
			continue
		}

		e.ImageURL = imageURL.String
		e.Synopsis = synopsis.String
		if totalEpisodes.Valid {
			total := int(totalEpisodes.Int64)
			e.TotalEpisodes = &total
		}
		if score.Valid {
			sc := score.Float64
			e.Score = &sc
		}
		if genresJSON.Valid && genresJSON.String != "" {
			json.Unmarshal([]byte(genresJSON.String), &e.Genres)
		}

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) History(ctx context.Context, userID string) ([]models.HistoryRecord, error) {
	query := `SELECT id, user_id, anime_id, anime_title, episodes_delta, timestamp
              FROM history WHERE user_id = ? ORDER BY timestamp DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("history query failed: %w", err)
	}
	defer rows.Close()

	records := []models.HistoryRecord{}
	for rows.Next() {
		var h models.HistoryRecord
		var title sql.NullString
		if err := rows.Scan(&h.ID, &h.UserID, &h.AnimeID, &title, &h.EpisodesDelta, &h.Timestamp); err != nil {
			s.log.Error("history_row_scan_failed", "error", err.Error())
			continue
		}
		h.AnimeTitle = title.String
		records = append(records, h)
	}
	return records, rows.Err()
}

// Apply commits the batch in one transaction and notifies subscribers
// with the post-commit state. Timestamps are assigned here, not by the
// caller.
func (s *SQLiteStore) Apply(ctx context.Context, userID string, batch []Op) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, op := range batch {
		if err := s.applyOp(ctx, tx, userID, op, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	s.notify(userID)
	return nil
}

func (s *SQLiteStore) applyOp(ctx context.Context, tx *sql.Tx, userID string, op Op, now time.Time) error {
	switch op.Kind {
	case OpUpsertEntry:
		e := op.Entry
		genresJSON, err := json.Marshal(e.Genres)
		if err != nil {
			return fmt.Errorf("failed to serialize genres: %w", err)
		}
		var total interface{}
		if e.TotalEpisodes != nil {
			total = *e.TotalEpisodes
		}
		var score interface{}
		if e.Score != nil {
			score = *e.Score
		}
		query := `INSERT INTO watchlist (id, user_id, anime_id, title, image_url, total_episodes,
                      watched_episodes, genres, score, synopsis, favorite, updated_at)
                  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
                  ON CONFLICT(id) DO UPDATE SET
                      title = excluded.title,
                      image_url = excluded.image_url,
                      total_episodes = excluded.total_episodes,
                      watched_episodes = excluded.watched_episodes,
                      genres = excluded.genres,
                      score = excluded.score,
                      synopsis = excluded.synopsis,
                      favorite = excluded.favorite,
                      updated_at = excluded.updated_at`
		_, err = tx.ExecContext(ctx, query, e.ID, userID, e.AnimeID, e.Title, e.ImageURL,
			total, e.WatchedEpisodes, string(genresJSON), score, e.Synopsis, e.Favorite, now)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%w: anime %d", ErrDuplicate, e.AnimeID)
			}
			return fmt.Errorf("entry upsert failed: %w", err)
		}
		return nil

	case OpDeleteEntry:
		result, err := tx.ExecContext(ctx, `DELETE FROM watchlist WHERE id = ? AND user_id = ?`, op.TargetID, userID)
		if err != nil {
			return fmt.Errorf("entry delete failed: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: entry %s", ErrNotFound, op.TargetID)
		}
		return nil

	case OpInsertHistory:
		h := op.History
		query := `INSERT INTO history (id, user_id, anime_id, anime_title, episodes_delta, timestamp)
                  VALUES (?, ?, ?, ?, ?, ?)`
		_, err := tx.ExecContext(ctx, query, h.ID, userID, h.AnimeID, h.AnimeTitle, h.EpisodesDelta, now)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%w: history %s", ErrDuplicate, h.ID)
			}
			return fmt.Errorf("history insert failed: %w", err)
		}
		return nil

	case OpUpdateHistory:
		result, err := tx.ExecContext(ctx, `UPDATE history SET episodes_delta = ? WHERE id = ? AND user_id = ?`,
			op.History.EpisodesDelta, op.TargetID, userID)
		if err != nil {
			return fmt.Errorf("history update failed: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: history %s", ErrNotFound, op.TargetID)
		}
		return nil

	case OpDeleteHistory:
		result, err := tx.ExecContext(ctx, `DELETE FROM history WHERE id = ? AND user_id = ?`, op.TargetID, userID)
		if err != nil {
			return fmt.Errorf("history delete failed: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: history %s", ErrNotFound, op.TargetID)
		}
		return nil

	default:
		return fmt.Errorf("unknown op kind: %d", op.Kind)
	}
}

// Subscribe registers a change-feed listener for the user. The returned
// cancel func must be called to release the channel.
func (s *SQLiteStore) Subscribe(userID string) (<-chan ChangeEvent, func()) {
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

func (s *SQLiteStore) notify(userID string) {
	s.mu.RLock()
	listeners := len(s.subs[userID])
	s.mu.RUnlock()
	if listeners == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	watchlist, err := s.Watchlist(ctx, userID)
	if err != nil {
		s.log.Error("change_feed_snapshot_failed", "error", err.Error(), "user_id", userID)
		return
	}
	history, err := s.History(ctx, userID)
	if err != nil {
		s.log.Error("change_feed_snapshot_failed", "error", err.Error(), "user_id", userID)
		return
	}

	event := ChangeEvent{
		UserID:    userID,
		Watchlist: watchlist,
		History:   history,
		Timestamp: time.Now().UTC(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subs[userID] {
		select {
		case ch <- event:
		default:
			// Slow listener, drop. The next commit replays full state.
		}
	}
}
