package ws

import (
	"encoding/json"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestServer(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(NewHandler(hub))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestHandlerBroadcastsEventsToClients(t *testing.T) {
	hub := NewHub()
	conn, cleanup := dialTestServer(t, hub)
	defer cleanup()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	hub.BroadcastEvent(NewEventMessage("ev-1"))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg EventMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, "event", msg.Type)
	assert.Equal(t, "ev-1", msg.EventID)
}

func TestHandlerDisconnectReleasesGoroutines(t *testing.T) {
	hub := NewHub()
	before := runtime.NumGoroutine()

	conn, cleanup := dialTestServer(t, hub)
	defer cleanup()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		time.Second, 10*time.Millisecond)

	// The read pump and its ping goroutine both exit on disconnect.
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before+2 },
		2*time.Second, 25*time.Millisecond)
}
