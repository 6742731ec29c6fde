package realtime

import (
	"encoding/json"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/internal/reconciler"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/logger"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/models"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/utils"
)

// Broadcaster converts reconciler state changes into feed frames. It is
// the Notifier the library manager publishes through.
type Broadcaster struct {
	manager *Manager
	log     *logger.Logger
}

func NewBroadcaster(manager *Manager) *Broadcaster {
	return &Broadcaster{
		manager: manager,
		log:     logger.GetLogger().WithContext("component", "realtime"),
	}
}

func (b *Broadcaster) NotifySnapshot(userID string, watchlist []models.WatchlistEntry, pendingOps int) {
	b.push(userID, ServerEvent{
		Type:       EventTypeSnapshot,
		Watchlist:  watchlist,
		PendingOps: pendingOps,
	})
}

func (b *Broadcaster) NotifyHistory(userID string, history []models.HistoryRecord) {
	b.push(userID, ServerEvent{
		Type:    EventTypeHistory,
		History: history,
	})
}

func (b *Broadcaster) NotifySyncError(userID string, syncErr reconciler.SyncError) {
	b.push(userID, ServerEvent{
		Type: EventTypeSyncError,
		Error: &SyncErrorPayload{
			Code:    syncErr.Code,
			Message: syncErr.Message,
			EntryID: syncErr.EntryID,
		},
	})
}

func (b *Broadcaster) push(userID string, event ServerEvent) {
	id, _ := utils.GenerateID(16)
	event.ID = id
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		b.log.Error("feed_marshal_failed", "error", err.Error(), "type", string(event.Type))
		return
	}
	b.manager.SendToUser(userID, data)
}
