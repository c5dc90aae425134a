// Package notify broadcasts park and budget-violation alerts to operator
// consoles over Socket.IO, the way the teacher's cmd/probe GovernanceNode
// pushes manual-review results to its Synapse *socketio.Server for human
// intervention.
package notify

import (
	"encoding/hex"
	"log/slog"
	"net/http"

	socketio "github.com/googollee/go-socket.io"

	"github.com/knhk/core/internal/fiber"
	"github.com/knhk/core/internal/receipt"
)

const namespace = "/"

// parkedEvent is the JSON payload pushed for every parked record.
type parkedEvent struct {
	Reason    string `json:"reason"`
	ShardID   uint32 `json:"shard_id"`
	Tick      uint64 `json:"tick"`
	CycleID   uint64 `json:"cycle_id"`
	Predicate uint64 `json:"predicate"`
	Triples   int    `json:"triples"`
}

// violationEvent is pushed whenever a receipt reports a non-empty error
// tag — a runtime tag such as a BudgetViolation or a pattern annotation
// like DiscriminatorReset. Registration-time errors never reach a receipt.
type violationEvent struct {
	ReceiptID string `json:"receipt_id"`
	CycleID   uint64 `json:"cycle_id"`
	ShardID   uint32 `json:"shard_id"`
	ErrorTag  string `json:"error_tag"`
	TickSpan  uint32 `json:"tick_span"`
}

// Notifier owns the Socket.IO server and broadcasts alert events to every
// connected operator console on the default namespace.
type Notifier struct {
	server *socketio.Server
	logger *slog.Logger
}

// New constructs a Notifier and wires minimal connect/error logging. The
// caller is responsible for mounting Handler() on an HTTP mux and for
// calling Run in a goroutine before any events are broadcast.
func New() *Notifier {
	server := socketio.NewServer(nil)
	n := &Notifier{
		server: server,
		logger: slog.Default().With("component", "control.notify"),
	}

	server.OnConnect(namespace, func(s socketio.Conn) error {
		s.SetContext("")
		n.logger.Debug("operator console connected", "remote", s.RemoteAddr())
		return nil
	})
	server.OnDisconnect(namespace, func(s socketio.Conn, reason string) {
		n.logger.Debug("operator console disconnected", "reason", reason)
	})
	server.OnError(namespace, func(s socketio.Conn, err error) {
		n.logger.Warn("socket.io connection error", "error", err)
	})

	return n
}

// Run serves the Socket.IO event loop until it errors or the caller exits
// the process. Intended to run in its own goroutine.
func (n *Notifier) Run() error {
	return n.server.Serve()
}

// Handler returns the http.Handler to mount at the console's polling/
// websocket transport path (conventionally "/socket.io/").
func (n *Notifier) Handler() http.Handler {
	return n.server
}

// Close stops serving and disconnects every console.
func (n *Notifier) Close() error {
	return n.server.Close()
}

// NotifyParked broadcasts one fiber park handoff to every connected
// console.
func (n *Notifier) NotifyParked(rec fiber.ParkedRecord) {
	n.server.BroadcastToNamespace(namespace, "parked", parkedEvent{
		Reason:    rec.Reason,
		ShardID:   rec.ShardID,
		Tick:      rec.Tick,
		CycleID:   rec.CycleID,
		Predicate: rec.Predicate,
		Triples:   len(rec.Run),
	})
}

// NotifyViolation broadcasts a receipt carrying a non-empty error tag —
// a Chatman Constant overrun, or any other runtime error tag or pattern
// annotation the receipt carries.
func (n *Notifier) NotifyViolation(r receipt.Receipt) {
	if r.ErrorTag == "" {
		return
	}
	n.server.BroadcastToNamespace(namespace, "budget_violation", violationEvent{
		ReceiptID: hex.EncodeToString(r.ReceiptID[:]),
		CycleID:   r.CycleID,
		ShardID:   r.ShardID,
		ErrorTag:  r.ErrorTag,
		TickSpan:  r.TickSpan,
	})
}

// Watch drains receipts off ch, forwarding parked/violating ones until ch
// closes or the given done channel fires. It is the glue a cmd entrypoint
// uses to wire a scheduler's receipt stream into console alerts without
// the scheduler importing this package.
func (n *Notifier) Watch(ch <-chan *receipt.Receipt, done <-chan struct{}) {
	for {
		select {
		case r, ok := <-ch:
			if !ok {
				return
			}
			if r.Parked {
				n.NotifyParked(fiber.ParkedRecord{
					Reason:    r.ErrorTag,
					ShardID:   r.ShardID,
					CycleID:   r.CycleID,
					Predicate: r.HookFingerprint,
				})
				continue
			}
			n.NotifyViolation(*r)
		case <-done:
			return
		}
	}
}

