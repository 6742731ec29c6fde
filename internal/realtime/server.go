package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nmhoang2304/AniTrack-Group07/internal/library"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/logger"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/utils"
)

const (
	pingPeriod     = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server owns the feed endpoint. On connect it authenticates the token,
// registers the client, and sends the current snapshot so the client
// never starts blank.
type Server struct {
	manager     *Manager
	broadcaster *Broadcaster
	library     *library.Manager
	jwtSecret   string
}

func NewServer(lib *library.Manager, jwtSecret string) *Server {
	manager := NewManager()
	broadcaster := NewBroadcaster(manager)
	go manager.Run()

	lib.SetNotifier(broadcaster)
	return &Server{
		manager:     manager,
		broadcaster: broadcaster,
		library:     lib,
		jwtSecret:   jwtSecret,
	}
}

func (s *Server) HandleFeed(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}

	claims, err := utils.ValidateJWT(token, s.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("feed_upgrade_failed", "error", err.Error())
		return
	}

	client := &Client{
		UserID:      claims.UserID,
		Username:    claims.Username,
		Conn:        conn,
		Send:        make(chan []byte, 16),
		Manager:     s.manager,
		ConnectedAt: time.Now(),
	}
	s.manager.register <- client

	go client.WritePump()
	go client.ReadPump(s.pushSnapshot)

	s.sendWelcome(client)
	s.pushSnapshot(claims.UserID)
}

func (s *Server) sendWelcome(client *Client) {
	id, _ := utils.GenerateID(16)
	event := ServerEvent{
		ID:        id,
		Type:      EventTypeWelcome,
		Content:   "connected as " + client.Username,
		Timestamp: time.Now(),
	}
	if data, err := json.Marshal(event); err == nil {
		select {
		case client.Send <- data:
		default:
		}
	}
}

// pushSnapshot publishes the user's current projection, both on connect
// and on explicit refresh requests.
func (s *Server) pushSnapshot(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec, err := s.library.Reconciler(ctx, userID)
	if err != nil {
		logger.Error("feed_snapshot_failed", "error", err.Error(), "user_id", userID)
		return
	}
	s.broadcaster.NotifySnapshot(userID, rec.Snapshot(), rec.PendingCount())
}

func (s *Server) ConnectedUsers() []string {
	return s.manager.ConnectedUsers()
}

func isRefreshRequest(message []byte) bool {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return false
	}
	return msg.Type == "refresh"
}
