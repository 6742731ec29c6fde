package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/logger"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/metrics"
)

type Client struct {
	UserID      string
	Username    string
	Conn        *websocket.Conn
	Send        chan []byte
	Manager     *Manager
	ConnectedAt time.Time
	rateTokens  int
	rateLast    time.Time
	mu          sync.Mutex
}

// Manager tracks connected feed clients. A user may hold several
// connections (multiple tabs); every one receives the same events.
type Manager struct {
	clients    map[*Client]struct{}
	users      map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[*Client]struct{}),
		users:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = struct{}{}
			client.rateTokens = 20
			client.rateLast = time.Now()
			if _, ok := m.users[client.UserID]; !ok {
				m.users[client.UserID] = make(map[*Client]struct{})
			}
			m.users[client.UserID][client] = struct{}{}
			metrics.SetActiveConnections(int64(len(m.clients)))
			m.mu.Unlock()

		case client := <-m.unregister:
			m.mu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.Send)
			}
			if set, ok := m.users[client.UserID]; ok {
				delete(set, client)
				if len(set) == 0 {
					delete(m.users, client.UserID)
				}
			}
			metrics.SetActiveConnections(int64(len(m.clients)))
			m.mu.Unlock()
		}
	}
}

// SendToUser delivers the frame to every connection the user holds.
// Slow connections are dropped rather than blocking the publisher.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.users[userID]
	if !ok {
		return
	}
	for c := range set {
		select {
		case c.Send <- message:
		default:
			close(c.Send)
			delete(m.clients, c)
			delete(set, c)
		}
	}
	if len(set) == 0 {
		delete(m.users, userID)
	}
	metrics.SetActiveConnections(int64(len(m.clients)))
}

func (m *Manager) ConnectedUsers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]string, 0, len(m.users))
	for id := range m.users {
		users = append(users, id)
	}
	return users
}

func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (c *Client) ReadPump(onRefresh func(userID string)) {
	defer func() {
		c.Manager.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("feed_read_error", "error", err.Error(), "user_id", c.UserID)
			}
			break
		}

		// rate limiting: 20 messages per 10s window
		if !c.consumeRateToken() {
			continue
		}
		if isRefreshRequest(message) && onRefresh != nil {
			onRefresh(c.UserID)
		}
	}
}

func (c *Client) consumeRateToken() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.Sub(c.rateLast) >= 10*time.Second {
		c.rateTokens = 20
		c.rateLast = now
	}
	if c.rateTokens <= 0 {
		return false
	}
	c.rateTokens--
	return true
}

func (c *Client) WritePump() {
	defer c.Conn.Close()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
