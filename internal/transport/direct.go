package transport

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("transport is closed")

// Replier produces a reply for user text and never fails.
type Replier interface {
	FetchReply(ctx context.Context, userText string) string
}

// Direct calls the response fetcher in-process. Each Send runs on its own goroutine
// and reports back through the reply handler.
type Direct struct {
	replier Replier

	mu      sync.Mutex
	handler func(string)
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDirect(replier Replier) *Direct {
	ctx, cancel := context.WithCancel(context.Background())
	return &Direct{
		replier: replier,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// OnReply replaces the reply handler.
func (d *Direct) OnReply(handler func(string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
}

func (d *Direct) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// wg.Add stays under mu so it never overlaps Close's Wait.
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		reply := d.replier.FetchReply(d.ctx, text)
		d.deliver(reply)
	}()
	return nil
}

// Close cancels in-flight fetches and waits for them to return.
func (d *Direct) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
	return nil
}

func (d *Direct) deliver(reply string) {
	d.mu.Lock()
	h := d.handler
	d.mu.Unlock()
	if h != nil {
		h(reply)
	}
}
