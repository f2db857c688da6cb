package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbridge/internal/models"
)

type echoReplier struct {
	mu    sync.Mutex
	texts []string
}

func (e *echoReplier) FetchReply(ctx context.Context, userText string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, userText)
	return "echo: " + userText
}

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_AnswersMessageEvents(t *testing.T) {
	replier := &echoReplier{}
	h := NewHub(replier)
	conn := dialHub(t, h)

	require.NoError(t, conn.WriteJSON(models.RelayEvent{Event: "message", Data: "ping"}))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev models.RelayEvent
	require.NoError(t, conn.ReadJSON(&ev))

	assert.Equal(t, "message", ev.Event)
	assert.Equal(t, "echo: ping", ev.Data)
}

func TestHub_IgnoresOtherEvents(t *testing.T) {
	replier := &echoReplier{}
	h := NewHub(replier)
	conn := dialHub(t, h)

	require.NoError(t, conn.WriteJSON(models.RelayEvent{Event: "typing", Data: "..."}))
	require.NoError(t, conn.WriteJSON(models.RelayEvent{Event: "message", Data: ""}))
	require.NoError(t, conn.WriteJSON(models.RelayEvent{Event: "message", Data: "second"}))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev models.RelayEvent
	require.NoError(t, conn.ReadJSON(&ev))

	assert.Equal(t, "echo: second", ev.Data)
	replier.mu.Lock()
	defer replier.mu.Unlock()
	assert.Equal(t, []string{"second"}, replier.texts)
}

func TestHub_TracksConnections(t *testing.T) {
	h := NewHub(&echoReplier{})
	conn := dialHub(t, h)

	assert.Eventually(t, func() bool { return h.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	assert.Eventually(t, func() bool { return h.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	h := NewHub(&echoReplier{})
	conn := dialHub(t, h)
	require.Eventually(t, func() bool { return h.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, h.Count())
}

func TestHub_RejectsConnectionsAfterClose(t *testing.T) {
	h := NewHub(&echoReplier{})
	h.Close()

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, 0, h.Count())
}

func TestHub_RegisterAfterCloseIsRefused(t *testing.T) {
	h := NewHub(&echoReplier{})
	h.Close()

	assert.False(t, h.registerConnection(uuid.New(), nil))
	assert.Equal(t, 0, h.Count())
	// Close must not be waiting on anything registered late
	h.wg.Wait()
}
