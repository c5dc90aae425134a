// Package rest exposes the core's control surface over HTTP/JSON
// (SPEC_FULL.md §6): registering spec bags, driving cases, and reading
// back receipts and chain heads. None of it touches the hot path directly
// — every handler reads or writes through the collaborators it's given.
//
// Grounded on the teacher's internal/api/server.go APIServer: same
// gorilla/mux router, CORS middleware, and per-tenant-header handler
// shape, generalized from pool/escrow/reputation endpoints to
// spec/case/receipt endpoints.
package rest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/knhk/core/internal/hookregistry"
	"github.com/knhk/core/internal/pattern"
	"github.com/knhk/core/internal/pipeline"
	"github.com/knhk/core/internal/receipt"
	"github.com/knhk/core/internal/source"
	"github.com/knhk/core/internal/triple"
)

func patternTag(k uint8) pattern.Tag { return pattern.Tag(k) }

// ReceiptStore is the read side for GET /receipts — an in-process buffer
// in the simplest deployment, a persisted log in a larger one.
type ReceiptStore interface {
	Recent(limit int) []receipt.Receipt
}

// Server wires the hook registry, pipeline, chain, and receipt store into
// a REST surface.
type Server struct {
	registry *hookregistry.Registry
	pipe     *pipeline.Pipeline
	chain    *receipt.Chain
	receipts ReceiptStore
	logger   *slog.Logger
}

// New constructs a Server. receipts may be nil, in which case GET
// /receipts always returns an empty list.
func New(registry *hookregistry.Registry, pipe *pipeline.Pipeline, chain *receipt.Chain, receipts ReceiptStore) *Server {
	return &Server{
		registry: registry,
		pipe:     pipe,
		chain:    chain,
		receipts: receipts,
		logger:   slog.Default().With("component", "control.rest"),
	}
}

// Router builds the mux.Router backing Start, exported separately so tests
// can drive it with httptest without binding a real listener.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	r.HandleFunc("/specs", s.handleRegisterSpecs).Methods(http.MethodPost)
	r.HandleFunc("/cases", s.handleCreateCase).Methods(http.MethodPost)
	r.HandleFunc("/cases/{id}/drive", s.handleDriveCase).Methods(http.MethodPost)
	r.HandleFunc("/receipts", s.handleListReceipts).Methods(http.MethodGet)
	r.HandleFunc("/cycles/{id}/root", s.handleCycleRoot).Methods(http.MethodGet)
	return r
}

// Start blocks serving the control surface on addr.
func (s *Server) Start(addr string) error {
	s.logger.Info("control surface listening", "addr", addr)
	return http.ListenAndServe(addr, s.Router())
}

type specTupleWire struct {
	Predicate   uint64   `json:"predicate"`
	Kind        uint8    `json:"kind"`
	Invariants  []string `json:"invariants,omitempty"`
	TickBudget  int      `json:"tick_budget"`
	BranchCount int      `json:"branch_count"`
}

func (s *Server) handleRegisterSpecs(w http.ResponseWriter, r *http.Request) {
	var body []specTupleWire
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return
	}

	tuples := make([]hookregistry.SpecTuple, len(body))
	for i, t := range body {
		tuples[i] = hookregistry.SpecTuple{
			Predicate:  t.Predicate,
			Kind:       patternTag(t.Kind),
			Invariants: t.Invariants,
		}
	}

	ids, err := s.registry.RegisterBag(tuples)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"hook_ids": ids})
}

// handleCreateCase allocates a new case identifier for a subsequent
// POST /cases/{id}/drive. It does not itself touch TRANSFORM/LOAD — a case
// id is just a handle the caller threads through later drive calls.
func (s *Server) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]any{"case_id": uuid.NewString()})
}

type driveCaseEventWire struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

type driveCaseRequestWire struct {
	TenantID string               `json:"tenant_id"`
	Events   []driveCaseEventWire `json:"events"`
}

// handleDriveCase feeds one batch of raw events through TRANSFORM/LOAD, the
// REST-side equivalent of internal/control/grpc.Server.DriveCase.
func (s *Server) handleDriveCase(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body driveCaseRequestWire
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return
	}

	batch := source.Batch{TenantID: body.TenantID}
	for _, e := range body.Events {
		batch.Events = append(batch.Events, triple.RawEvent{
			Subject:   e.Subject,
			Predicate: e.Predicate,
			Object:    e.Object,
			TenantID:  body.TenantID,
		})
	}

	canonical, rejected := s.pipe.Transform(batch)
	if rejected > 0 {
		http.Error(w, fmt.Sprintf("drive case %s: %d event(s) failed ontology validation", id, rejected), http.StatusUnprocessableEntity)
		return
	}
	if err := s.pipe.Load(0, canonical); err != nil {
		http.Error(w, fmt.Sprintf("drive case %s: load: %v", id, err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"case_id": id, "status": "loaded", "triples": len(canonical)})
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	if s.receipts == nil {
		writeJSON(w, http.StatusOK, []receipt.Receipt{})
		return
	}
	writeJSON(w, http.StatusOK, s.receipts.Recent(100))
}

func (s *Server) handleCycleRoot(w http.ResponseWriter, r *http.Request) {
	if s.chain == nil {
		http.Error(w, "chain not configured", http.StatusServiceUnavailable)
		return
	}
	head := s.chain.Head()
	writeJSON(w, http.StatusOK, map[string]any{
		"cycle_id": mux.Vars(r)["id"],
		"head":     hex.EncodeToString(head[:]),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
