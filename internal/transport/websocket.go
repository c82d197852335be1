// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	broadcastQueue = 16
	writeWait      = 250 * time.Millisecond
)

// WebSocketTransport broadcasts every Send as a JSON text message to all
// connected clients. It does not run a server; mount Handler on one.
type WebSocketTransport struct {
	upgrader  websocket.Upgrader
	broadcast chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}
	closed    bool

	dropped atomic.Uint64
}

// NewWebSocketTransport creates the transport and starts its broadcaster.
func NewWebSocketTransport() *WebSocketTransport {
	t := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // local control surface
			},
		},
		broadcast: make(chan []byte, broadcastQueue),
		done:      make(chan struct{}),
		clients:   make(map[*websocket.Conn]struct{}),
	}
	t.wg.Add(1)
	go t.handleBroadcasts()
	return t
}

// Handler upgrades requests to websocket connections.
func (t *WebSocketTransport) Handler() http.Handler {
	return http.HandlerFunc(t.handleWebSocket)
}

func (t *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	t.clientsMu.Lock()
	closed := t.closed
	t.clientsMu.Unlock()
	if closed {
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("websocket upgrade: %v", err)
		return
	}

	t.clientsMu.Lock()
	if t.closed {
		t.clientsMu.Unlock()
		conn.Close()
		return
	}
	t.clients[conn] = struct{}{}
	n := len(t.clients)
	t.wg.Add(1)
	t.clientsMu.Unlock()
	logger.Infof("websocket client connected, total: %d", n)

	// Clients only listen; a read error means they went away.
	go func() {
		defer t.wg.Done()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.remove(conn)
				return
			}
		}
	}()
}

func (t *WebSocketTransport) remove(conn *websocket.Conn) {
	t.clientsMu.Lock()
	_, ok := t.clients[conn]
	delete(t.clients, conn)
	n := len(t.clients)
	t.clientsMu.Unlock()
	conn.Close()
	if ok {
		logger.Infof("websocket client disconnected, total: %d", n)
	}
}

// handleBroadcasts writes queued messages to every client. A client that
// cannot take a frame within writeWait is dropped.
func (t *WebSocketTransport) handleBroadcasts() {
	defer t.wg.Done()
	for {
		select {
		case <-t.done:
			return
		case payload := <-t.broadcast:
			t.clientsMu.Lock()
			var failed []*websocket.Conn
			for conn := range t.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					logger.Debugf("websocket write: %v", err)
					failed = append(failed, conn)
				}
			}
			t.clientsMu.Unlock()
			for _, conn := range failed {
				t.remove(conn)
			}
		}
	}
}

// Send marshals data immediately, so the caller may reuse it, and queues the
// payload. When the queue is full the frame is dropped.
func (t *WebSocketTransport) Send(data any) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("websocket: marshal %T: %w", data, err)
	}
	select {
	case t.broadcast <- payload:
	default:
		t.dropped.Add(1)
	}
	return nil
}

// Clients returns the number of connected clients.
func (t *WebSocketTransport) Clients() int {
	t.clientsMu.Lock()
	defer t.clientsMu.Unlock()
	return len(t.clients)
}

// Dropped returns the number of frames dropped because the queue was full.
func (t *WebSocketTransport) Dropped() uint64 {
	return t.dropped.Load()
}

// Close disconnects every client and waits for the transport goroutines.
func (t *WebSocketTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.clientsMu.Lock()
		t.closed = true
		for conn := range t.clients {
			conn.Close()
		}
		t.clientsMu.Unlock()
		t.wg.Wait()
		logger.Debugf("websocket transport closed")
	})
	return nil
}

var _ Transport = (*WebSocketTransport)(nil)
