// Package stream mounts the live A-slot/receipt tailing WebSocket hub
// (internal/sink's WebSocketBroadcaster, doubling as an EMIT sink) onto the
// control plane's HTTP surface, the way the teacher's internal/websocket
// DAGStreamer is mounted directly on its API router for dashboard use.
package stream

import (
	"github.com/gorilla/mux"

	"github.com/knhk/core/internal/sink"
)

// Mount registers hub's upgrade handler at path on r. The same hub
// instance should already be wired as an internal/sink.Sink on the
// pipeline's EMIT stage, so every connected dashboard client sees exactly
// what was written to every other configured sink.
func Mount(r *mux.Router, path string, hub *sink.WebSocketBroadcaster) {
	r.HandleFunc(path, hub.HandleWebSocket)
}
