package websocket

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatbridge/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Replier answers one relayed message.
type Replier interface {
	FetchReply(ctx context.Context, userText string) string
}

// Hub is the relay end of the socket transport. Each connection is served
// sequentially: one message in, one reply out.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*websocket.Conn
	replier     Replier
	closed      bool
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewHub(replier Replier) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		connections: make(map[uuid.UUID]*websocket.Conn),
		replier:     replier,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.isClosed() {
		http.Error(w, "relay is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	connID := uuid.New()
	if !h.registerConnection(connID, conn) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	go func() {
		defer h.wg.Done()
		defer h.unregisterConnection(connID, conn)
		h.serve(connID, conn)
	}()
}

// Count returns the number of open relay connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close cancels in-flight fetches, closes every connection and waits for the handlers.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*websocket.Conn, 0, len(h.connections))
	for _, conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	h.cancel()
	for _, conn := range conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	}

	h.wg.Wait()
}

func (h *Hub) isClosed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

func (h *Hub) serve(connID uuid.UUID, conn *websocket.Conn) {
	for {
		var ev models.RelayEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("WebSocket read error on %s: %v", connID, err)
			}
			return
		}

		if ev.Event != models.RelayEventMessage || ev.Data == "" {
			continue
		}

		reply := h.replier.FetchReply(h.ctx, ev.Data)
		if err := conn.WriteJSON(models.RelayEvent{Event: models.RelayEventMessage, Data: reply}); err != nil {
			log.Printf("WebSocket write failed on %s: %v", connID, err)
			return
		}
	}
}

// registerConnection adds conn and counts its serve goroutine, unless the hub
// has already been closed.
func (h *Hub) registerConnection(connID uuid.UUID, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.connections[connID] = conn
	h.wg.Add(1)
	log.Printf("WebSocket connected: %s (total: %d)", connID, len(h.connections))
	return true
}

func (h *Hub) unregisterConnection(connID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()
	delete(h.connections, connID)

	log.Printf("WebSocket disconnected: %s", connID)
}
