package debugserver

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestServeHTTPAndBroadcast(t *testing.T) {
	s := NewServer()
	ts := httptest.NewServer(s)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server a moment to register the client.
	deadline := time.Now().Add(time.Second)
	for s.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 1, s.ClientCount())

	want := Snapshot{ExpectedTotal: 42, BitPool: 35, Timestamp: 1000}
	require.NoError(t, s.Broadcast(want))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got Snapshot
	require.NoError(t, json.Unmarshal(msg, &got))
	require.Equal(t, want, got)
}

func TestBroadcastDropsFailedClients(t *testing.T) {
	s := NewServer()
	ts := httptest.NewServer(s)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	conn.Close() // close immediately so the next write fails

	deadline := time.Now().Add(time.Second)
	for s.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	require.NoError(t, s.Broadcast(Snapshot{}))

	deadline = time.Now().Add(time.Second)
	for s.ClientCount() != 0 && time.Now().Before(deadline) {
		s.Broadcast(Snapshot{})
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 0, s.ClientCount(), "expected dead client to be dropped")
}
