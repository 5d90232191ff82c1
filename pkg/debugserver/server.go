// Package debugserver exposes a live, machine-readable supplement to the
// session's text debug dump: a websocket endpoint that pushes a JSON stats
// Snapshot to every connected client whenever the session calls Broadcast.
// It is a debugging side-channel, not part of the real-time core: it owns
// its own goroutines and locking, unlike the single-threaded media task.
package debugserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/a2dpgo/sbcfeeder/pkg/bytecounter"
)

// Snapshot is the JSON shape pushed to every connected client. Fields
// mirror the session's cumulative Statistics.
type Snapshot struct {
	ExpectedTotal int64 `json:"expected_total"`
	ExpectedMax   int   `json:"expected_max"`
	ExpectedCount int64 `json:"expected_count"`
	LimitedTotal  int64 `json:"limited_total"`
	LimitedMax    int   `json:"limited_max"`
	LimitedCount  int64 `json:"limited_count"`

	Timestamp uint32 `json:"timestamp"`
	BitPool   int    `json:"bit_pool"`
}

type client struct {
	conn    *websocket.Conn
	counter *bytecounter.ByteCounter
	mu      sync.Mutex
}

func (c *client) send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.counter.Write(b)
	return err
}

// connWriter adapts *websocket.Conn's message-oriented API to io.Writer so
// it can be wrapped by bytecounter.ByteCounter, the same pattern used to
// adapt a websocket connection into a plain net.Conn-shaped stream.
type connWriter struct {
	conn *websocket.Conn
}

func (w connWriter) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Server accepts websocket connections and fans out Snapshot pushes to all
// of them.
type Server struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients []*client
}

// NewServer creates a Server ready to be wired into an http.ServeMux.
func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and registers it to receive future
// Broadcast pushes until it errors out or is closed by the peer.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{
		conn:    conn,
		counter: bytecounter.New(connWriter{conn: conn}),
	}

	s.mu.Lock()
	s.clients = append(s.clients, c)
	s.mu.Unlock()
}

// Broadcast marshals snapshot as JSON and pushes it to every connected
// client, dropping any client whose write fails.
func (s *Server) Broadcast(snapshot Snapshot) error {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	alive := s.clients[:0]
	for _, c := range s.clients {
		if err := c.send(b); err == nil {
			alive = append(alive, c)
		}
	}
	s.clients = alive
	return nil
}

// ClientCount returns the number of currently connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
