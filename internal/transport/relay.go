package transport

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatbridge/internal/models"
)

// Relay forwards messages to an external relay server over a websocket and
// hands inbound "message" events to a single reply handler.
type Relay struct {
	conn *websocket.Conn
	url  string

	writeMu sync.Mutex

	mu      sync.Mutex
	handler func(string)

	done      chan struct{}
	closeOnce sync.Once
}

// DialRelay opens the relay connection. The connection lives until Close.
func DialRelay(ctx context.Context, url string) (*Relay, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay %s: %w", url, err)
	}
	log.Printf("✓ Connected to relay %s", url)

	r := &Relay{
		conn: conn,
		url:  url,
		done: make(chan struct{}),
	}
	go r.readLoop()
	return r, nil
}

// OnReply replaces the reply handler.
func (r *Relay) OnReply(handler func(string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
}

func (r *Relay) Send(ctx context.Context, text string) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		r.conn.SetWriteDeadline(deadline)
		defer r.conn.SetWriteDeadline(time.Time{})
	}
	if err := r.conn.WriteJSON(models.RelayEvent{Event: models.RelayEventMessage, Data: text}); err != nil {
		return fmt.Errorf("failed to write relay event: %w", err)
	}
	return nil
}

// Close says goodbye to the relay and waits for the read loop to stop.
func (r *Relay) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.writeMu.Lock()
		r.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		r.writeMu.Unlock()

		err = r.conn.Close()
		<-r.done
	})
	return err
}

func (r *Relay) readLoop() {
	defer close(r.done)
	for {
		var ev models.RelayEvent
		if err := r.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Relay read error: %v", err)
			}
			log.Printf("Disconnected from relay %s", r.url)
			return
		}

		if ev.Event != models.RelayEventMessage {
			continue
		}

		r.mu.Lock()
		h := r.handler
		r.mu.Unlock()
		if h != nil {
			h(ev.Data)
		}
	}
}
