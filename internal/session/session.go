package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"chatbridge/internal/models"
)

// SendFailedReply is shown when the transport could not take the message at all.
const SendFailedReply = "⚠️ Failed to fetch AI response."

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrReplyPending = errors.New("a reply is still pending")
)

// Transport carries user text to whatever produces replies.
type Transport interface {
	Send(ctx context.Context, text string) error
	OnReply(handler func(reply string))
	Close() error
}

// Listener is called after every change with a snapshot of the conversation.
type Listener func(messages []models.ChatMessage, pending bool)

// Session is the state behind a chat window: an append-only message log and
// a pending flag that blocks further submissions until the reply arrives.
type Session struct {
	mu        sync.Mutex
	messages  []models.ChatMessage
	pending   bool
	transport Transport
	listeners []Listener
}

func New(transport Transport) *Session {
	s := &Session{transport: transport}
	transport.OnReply(s.receive)
	return s
}

// Subscribe registers fn for change notifications.
func (s *Session) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage(nil), s.messages...)
}

func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Submit appends the user's message and hands it to the transport.
func (s *Session) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrReplyPending
	}
	s.messages = append(s.messages, models.ChatMessage{Text: text, Sender: models.SenderUser})
	s.pending = true
	s.mu.Unlock()
	s.notify()

	if err := s.transport.Send(ctx, text); err != nil {
		log.Printf("✗ Send failed: %v", err)
		s.receive(SendFailedReply)
	}
	return nil
}

// Close tears down the transport.
func (s *Session) Close() error {
	return s.transport.Close()
}

func (s *Session) receive(reply string) {
	s.mu.Lock()
	s.messages = append(s.messages, models.ChatMessage{Text: reply, Sender: models.SenderAI})
	s.pending = false
	s.mu.Unlock()
	s.notify()
}

// notify runs listeners outside the lock so they may call back into the session.
func (s *Session) notify() {
	s.mu.Lock()
	snapshot := append([]models.ChatMessage(nil), s.messages...)
	pending := s.pending
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot, pending)
	}
}
