package store

import (
	"context"
	"errors"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type OpKind int

const (
	OpUpsertEntry OpKind = iota
	OpDeleteEntry
	OpInsertHistory
	OpUpdateHistory
	OpDeleteHistory
)

// Op is one write inside an atomic batch. Entry is set for the entry
// kinds, History for the history kinds, TargetID for the deletes and
// history updates.
type Op struct {
	Kind     OpKind
	Entry    *models.WatchlistEntry
	History  *models.HistoryRecord
	TargetID string
}

// ChangeEvent carries the authoritative per-user state after a committed
// batch. Subscribers receive the full collection on every change.
type ChangeEvent struct {
	UserID    string
	Watchlist []models.WatchlistEntry
	History   []models.HistoryRecord
	Timestamp time.Time
}

// Store is the durable collection of watchlist entries and history
// records. Apply commits a batch all-or-nothing; timestamps on written
// records are store-assigned. Subscribe delivers the current full state
// after every committed change for the user.
type Store interface {
	Watchlist(ctx context.Context, userID string) ([]models.WatchlistEntry, error)
	History(ctx context.Context, userID string) ([]models.HistoryRecord, error)
	Apply(ctx context.Context, userID string, batch []Op) error
	Subscribe(userID string) (<-chan ChangeEvent, func())
}

func UpsertEntry(e *models.WatchlistEntry) Op {
	return Op{Kind: OpUpsertEntry, Entry: e}
}

func DeleteEntry(entryID string) Op {
	return Op{Kind: OpDeleteEntry, TargetID: entryID}
}

func InsertHistory(h *models.HistoryRecord) Op {
	return Op{Kind: OpInsertHistory, History: h}
}

func UpdateHistory(historyID string, h *models.HistoryRecord) Op {
	return Op{Kind: OpUpdateHistory, TargetID: historyID, History: h}
}

func DeleteHistory(historyID string) Op {
	return Op{Kind: OpDeleteHistory, TargetID: historyID}
}
