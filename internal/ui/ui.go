package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"chatbridge/internal/models"
	"chatbridge/internal/session"
)

const (
	TypingIndicator = "🤖 Typing..."
	inputLabel      = "> "
	sendingLabel    = "Sending... "
)

// ChatUI is the terminal front end of a chat session.
type ChatUI struct {
	app          *tview.Application
	session      *session.Session
	conversation *tview.TextView
	input        *tview.InputField
	debugConsole *tview.TextView

	// done is closed once Run returns; nothing may be queued on the app after that.
	done chan struct{}
}

// New lays out the conversation above the input line. With dev set, a debug
// console is shown on the right; DebugWriter feeds it.
func New(s *session.Session, transportName string, dev bool) *ChatUI {
	u := &ChatUI{
		app:     tview.NewApplication(),
		session: s,
		done:    make(chan struct{}),
	}
	u.app.EnablePaste(true)
	u.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Esc quits even while the input is disabled.
		if event.Key() == tcell.KeyEscape {
			u.app.Stop()
			return nil
		}
		return event
	})

	u.conversation = tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	u.conversation.SetScrollable(true)
	u.conversation.SetTitle(fmt.Sprintf(" Conversation (%s) ", transportName)).SetBorder(true)

	u.input = tview.NewInputField().
		SetLabel(inputLabel).
		SetPlaceholder("Type a message, Enter to send, Esc to quit").
		SetFieldBackgroundColor(tcell.ColorDefault)
	u.input.SetBorder(true)
	u.input.SetDoneFunc(u.onKey)

	if dev {
		u.debugConsole = tview.NewTextView().
			SetDynamicColors(true).
			SetWordWrap(true).
			SetChangedFunc(u.redraw)
		u.debugConsole.SetTitle(" Debugger ").SetBorder(true)
	}

	s.Subscribe(func([]models.ChatMessage, bool) {
		u.refresh()
	})

	return u
}

// DebugWriter returns the debug console as a log sink, or nil outside dev mode.
func (u *ChatUI) DebugWriter() io.Writer {
	if u.debugConsole == nil {
		return nil
	}
	return tview.ANSIWriter(u.debugConsole)
}

// Run blocks until the user quits.
func (u *ChatUI) Run() error {
	chat := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(u.conversation, 0, 1, false).
		AddItem(u.input, 3, 0, true)

	root := tview.NewFlex().AddItem(chat, 0, 2, true)
	if u.debugConsole != nil {
		root.AddItem(u.debugConsole, 0, 1, false)
	}

	defer close(u.done)

	u.render(u.session.Messages(), u.session.Pending())
	return u.app.SetRoot(root, true).SetFocus(u.input).Run()
}

// refresh redraws the conversation from the session's current state. Queued
// updates block until the event loop takes them, so they are sent from their
// own goroutine and dropped once Run has returned.
func (u *ChatUI) refresh() {
	select {
	case <-u.done:
		return
	default:
	}
	go u.app.QueueUpdateDraw(func() {
		u.render(u.session.Messages(), u.session.Pending())
	})
}

func (u *ChatUI) redraw() {
	select {
	case <-u.done:
		return
	default:
	}
	go u.app.Draw()
}

func (u *ChatUI) onKey(key tcell.Key) {
	switch key {
	case tcell.KeyEnter:
		if u.session.Pending() {
			return
		}
		text := u.input.GetText()
		if strings.TrimSpace(text) == "" {
			return
		}
		u.input.SetText("")

		// Send may block on the network; keep it off the event loop.
		go func() {
			if err := u.session.Submit(context.Background(), text); err != nil && !errors.Is(err, session.ErrReplyPending) {
				log.Printf("submit rejected: %v", err)
			}
		}()
	}
}

func (u *ChatUI) render(messages []models.ChatMessage, pending bool) {
	u.conversation.SetText(renderConversation(messages, pending))
	u.conversation.ScrollToEnd()

	if pending {
		u.input.SetLabel(sendingLabel)
	} else {
		u.input.SetLabel(inputLabel)
	}
	u.input.SetDisabled(pending)
}

func renderConversation(messages []models.ChatMessage, pending bool) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Sender {
		case models.SenderUser:
			fmt.Fprintf(&b, "[dodgerblue::b]You[-::-]\n%s\n\n", tview.Escape(m.Text))
		default:
			fmt.Fprintf(&b, "[green::b]AI[-::-]\n%s\n\n", tview.Escape(m.Text))
		}
	}
	if pending {
		fmt.Fprintf(&b, "[gray::i]%s[-::-]\n", TypingIndicator)
	}
	return b.String()
}
