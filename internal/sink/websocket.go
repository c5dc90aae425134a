package sink

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wireRecord is the JSON shape pushed to live-tail clients.
type wireRecord struct {
	Type      string   `json:"type"`
	TenantID  string   `json:"tenant_id"`
	ReceiptID string   `json:"receipt_id"`
	Parked    bool     `json:"parked"`
	ErrorTag  string   `json:"error_tag,omitempty"`
	Triples   int      `json:"triples"`
	Timestamp time.Time `json:"timestamp"`
}

// WebSocketBroadcaster is an EMIT sink that fans every record out to
// connected live-tail clients — a dashboard's view of cycles committing in
// real time.
//
// Grounded on the teacher's internal/websocket/dag_streamer.go DAGStreamer:
// the same register/unregister/broadcast channel hub feeding a map of
// *websocket.Conn, generalized from DAG node/edge events to emitted
// records.
type WebSocketBroadcaster struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*websocket.Conn]bool

	broadcast  chan wireRecord
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}

	logger *slog.Logger
}

// NewWebSocketBroadcaster starts the broadcast hub goroutine and returns a
// Sink fronting it.
func NewWebSocketBroadcaster() *WebSocketBroadcaster {
	b := &WebSocketBroadcaster{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan wireRecord, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "sink.websocket"),
	}
	go b.run()
	return b
}

func (b *WebSocketBroadcaster) run() {
	for {
		select {
		case conn := <-b.register:
			b.mu.Lock()
			b.clients[conn] = true
			b.mu.Unlock()
		case conn := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[conn]; ok {
				delete(b.clients, conn)
				conn.Close()
			}
			b.mu.Unlock()
		case rec := <-b.broadcast:
			b.mu.RLock()
			for conn := range b.clients {
				if err := conn.WriteJSON(rec); err != nil {
					b.logger.Warn("websocket write failed, dropping client", "error", err)
					conn.Close()
					delete(b.clients, conn)
				}
			}
			b.mu.RUnlock()
		case <-b.done:
			b.mu.Lock()
			for conn := range b.clients {
				conn.Close()
			}
			b.clients = nil
			b.mu.Unlock()
			return
		}
	}
}

// HandleWebSocket upgrades an HTTP request to a live-tail connection.
func (b *WebSocketBroadcaster) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	b.register <- conn
	go func() {
		defer func() { b.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (b *WebSocketBroadcaster) Write(ctx context.Context, rec Record) error {
	wr := wireRecord{
		Type:     "emit",
		TenantID: rec.TenantID,
		Triples:  len(rec.Triples),
		Timestamp: time.Now(),
	}
	if rec.Receipt != nil {
		wr.ReceiptID = hex.EncodeToString(rec.Receipt.ReceiptID[:])
		wr.Parked = rec.Receipt.Parked
		wr.ErrorTag = rec.Receipt.ErrorTag
	}
	select {
	case b.broadcast <- wr:
	case <-ctx.Done():
		return ctx.Err()
	default:
		b.logger.Warn("broadcast channel full, dropping record")
	}
	return nil
}

func (b *WebSocketBroadcaster) Close() error {
	close(b.done)
	return nil
}
