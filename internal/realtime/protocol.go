package realtime

import (
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
)

type EventType string

const (
	EventTypeWelcome   EventType = "welcome"
	EventTypeSnapshot  EventType = "snapshot"
	EventTypeHistory   EventType = "history"
	EventTypeSyncError EventType = "sync_error"
	EventTypeSystem    EventType = "system"
)

// ServerEvent is the single frame type pushed to clients. Exactly one
// payload field is set per event type.
type ServerEvent struct {
	ID         string                  `json:"id"`
	Type       EventType               `json:"type"`
	Watchlist  []models.WatchlistEntry `json:"watchlist,omitempty"`
	History    []models.HistoryRecord  `json:"history,omitempty"`
	PendingOps int                     `json:"pending_ops,omitempty"`
	Error      *SyncErrorPayload       `json:"error,omitempty"`
	Content    string                  `json:"content,omitempty"`
	Timestamp  time.Time               `json:"timestamp"`
}

type SyncErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	EntryID string `json:"entry_id,omitempty"`
}

// ClientMessage is the only inbound frame; the feed is one-way apart
// from explicit refresh requests.
type ClientMessage struct {
	Type string `json:"type"`
}
