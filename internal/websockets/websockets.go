package websockets

import (
	"bptracker/internal/events"
	"bptracker/internal/logger"
	. "bptracker/internal/models"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	PING_INTERVAL = 25 * time.Second
	WRITE_TIMEOUT = 10 * time.Second
	SEND_BUFFER   = 16
)

// Conn is the part of *websocket.Conn the manager drives.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Subscriber interface {
	Subscribe(channel string, handler events.Handler)
}

type Client struct {
	UserID string
	conn   Conn
	send   chan []byte
}

// Manager tracks open sockets per user and forwards measurement events to
// the sockets of the user that owns the measurement.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	log     logger.Logger
}

func New(eventBus Subscriber) (*Manager, error) {
	m := &Manager{
		clients: make(map[string]map[*Client]struct{}),
		log:     logger.New("websockets"),
	}

	if eventBus == nil {
		return nil, m.log.Function("New").Error("event bus is required")
	}

	eventBus.Subscribe(events.ChannelMeasurements, m.handleEvent)

	return m, nil
}

// HandleWebSocket serves an upgraded connection until the client goes away.
// The auth middleware has already stored the user in locals.
func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	user, ok := c.Locals("user").(User)
	if !ok || user.ID == "" {
		m.log.Function("HandleWebSocket").ErMsg("No user found in websocket locals")
		_ = c.Close()
		return
	}

	m.Serve(user.ID, c)
}

// Serve registers conn for userID and blocks on its read loop. It does not
// return until the write pump has stopped, so conn is never touched after the
// handler hands it back to the websocket pool.
func (m *Manager) Serve(userID string, conn Conn) {
	client := &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, SEND_BUFFER),
	}

	m.register(client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.writePump(client)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			m.log.Function("Serve").Debug("websocket closed", "userID", userID, "error", err)
			break
		}
	}

	m.unregister(client)
	<-done
	_ = conn.Close()
}

func (m *Manager) SendToUser(userID string, payload any) {
	log := m.log.Function("SendToUser")

	message, err := json.Marshal(payload)
	if err != nil {
		log.Er("failed to marshal websocket payload", err, "userID", userID)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for client := range m.clients[userID] {
		select {
		case client.send <- message:
		default:
			log.Warn("dropping websocket message for slow client", "userID", userID)
		}
	}
}

func (m *Manager) ConnectionCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

func (m *Manager) handleEvent(event events.Event) {
	if event.UserID == "" {
		return
	}
	m.SendToUser(event.UserID, event)
}

func (m *Manager) register(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.clients[client.UserID] == nil {
		m.clients[client.UserID] = make(map[*Client]struct{})
	}
	m.clients[client.UserID][client] = struct{}{}
}

func (m *Manager) unregister(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}

	delete(set, client)
	if len(set) == 0 {
		delete(m.clients, client.UserID)
	}
	close(client.send)
}

func (m *Manager) writePump(client *Client) {
	log := m.log.Function("writePump")
	ticker := time.NewTicker(PING_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				_ = client.conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
				_ = client.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug("failed to write websocket message", "userID", client.UserID, "error", err)
				m.drain(client)
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				m.drain(client)
				return
			}
		}
	}
}

// drain closes a broken socket so the read loop in Serve unblocks, then
// discards queued messages until unregister closes the send channel.
func (m *Manager) drain(client *Client) {
	_ = client.conn.Close()
	for range client.send {
	}
}
