// Package hookregistry is the single source of policy for the core:
// predicate fingerprint → validated hook metadata, O(1) in the hot path,
// with every contract validated once at registration time (SPEC_FULL.md
// §4.1). Grounded on the teacher's internal/escrow/gate.go tri-factor gating
// (validate every signal before release, reject on first failure) and
// internal/governance/task_gate.go's lock-map idiom.
package hookregistry

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/knhk/core/internal/errs"
	"github.com/knhk/core/internal/pattern"
	"github.com/knhk/core/internal/triple"
)

// GuardFunc evaluates a guard condition against one candidate triple,
// returning whether the guarded edge should fire. Guards must be pure and
// deterministic: registration probes a guard against synthetic inputs twice
// and rejects it with GuardNonDeterministic if the two runs disagree.
type GuardFunc func(t triple.Triple) (bool, error)

// Hook is the immutable, validated policy object bound to one predicate.
type Hook struct {
	ID          string
	Predicate   uint64
	KernelKind  pattern.Tag
	Guard       GuardFunc
	Invariants  []string
	Descriptor  *pattern.Descriptor
	ContentHash uint64
	Registered  time.Time
}

// Registry maps predicate fingerprint to Hook. Reads are O(1) under a shared
// read lock; writes take the exclusive lock and are applied as soon as they
// are called. The registry does not itself confine writes to cycle
// boundaries (see Invalidate).
type Registry struct {
	mu        sync.RWMutex
	byHookID  map[string]*Hook
	byPredicate map[uint64]*Hook
	logger    *slog.Logger
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byHookID:    make(map[string]*Hook),
		byPredicate: make(map[uint64]*Hook),
		logger:      slog.Default().With("component", "hookregistry"),
	}
}

// RegisterOptions controls edge-case behavior of Register.
type RegisterOptions struct {
	// Replace allows overwriting an existing hook for the same predicate
	// instead of returning DuplicatePredicate.
	Replace bool
}

// Register validates and installs a hook for predicate. It returns the new
// hook's id, or a ConfigurationError (§7) if validation fails. Registering
// an identical hook (same predicate, kind, invariants, descriptor) a second
// time is idempotent: the existing hook id is returned rather than erroring,
// satisfying the Registry idempotence property (§8.4).
func (r *Registry) Register(predicate uint64, kind pattern.Tag, guard GuardFunc, invariants []string, desc *pattern.Descriptor, opts RegisterOptions) (string, error) {
	if !kind.IsValid() {
		return "", errs.PatternBudgetExceeded(fmt.Sprintf("unknown pattern tag %d", kind))
	}
	if desc == nil {
		desc = &pattern.Descriptor{Tag: kind, TickBudget: pattern.BaseBudget(kind)}
	}

	if desc.TickBudget > pattern.ChatmanConstant {
		return "", errs.PatternBudgetExceeded(fmt.Sprintf("tick budget %d exceeds Chatman Constant %d", desc.TickBudget, pattern.ChatmanConstant))
	}
	if desc.BranchCount > pattern.MaxLanes {
		return "", errs.InvalidBranchCount(fmt.Sprintf("branch count %d exceeds K=%d", desc.BranchCount, pattern.MaxLanes))
	}
	if desc.Timeout > pattern.ChatmanConstant {
		return "", errs.TimeoutExceedsBudget(fmt.Sprintf("timeout %d exceeds Chatman Constant %d", desc.Timeout, pattern.ChatmanConstant))
	}
	if total := desc.TotalBudget(); total > pattern.ChatmanConstant {
		return "", errs.CompositionBudgetExceeded(fmt.Sprintf("composed budget %d exceeds Chatman Constant %d", total, pattern.ChatmanConstant))
	}

	if guard != nil {
		if err := probeDeterminism(guard); err != nil {
			return "", err
		}
	}

	hash := contentHash(predicate, kind, invariants, desc)

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byPredicate[predicate]; ok {
		if existing.ContentHash == hash {
			return existing.ID, nil // idempotent re-registration
		}
		if !opts.Replace {
			return "", errs.DuplicatePredicate(fmt.Sprintf("predicate %d already registered as hook %s", predicate, existing.ID))
		}
		delete(r.byHookID, existing.ID)
	}

	h := &Hook{
		ID:          uuid.NewString(),
		Predicate:   predicate,
		KernelKind:  kind,
		Guard:       guard,
		Invariants:  append([]string(nil), invariants...),
		Descriptor:  desc,
		ContentHash: hash,
		Registered:  time.Now(),
	}
	r.byPredicate[predicate] = h
	r.byHookID[h.ID] = h
	r.logger.Info("hook registered", "hook_id", h.ID, "predicate", predicate, "kind", kind.String())
	return h.ID, nil
}

// Lookup returns the hook bound to predicate, if any. O(1).
func (r *Registry) Lookup(predicate uint64) (*Hook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byPredicate[predicate]
	return h, ok
}

// Invalidate removes a hook by id. Only safe to call between cycles — the
// caller (the pipeline, at an epoch boundary) is responsible for that
// timing guarantee; the registry itself does not track cycle phase.
func (r *Registry) Invalidate(hookID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byHookID[hookID]
	if !ok {
		return fmt.Errorf("hookregistry: hook %s not found", hookID)
	}
	delete(r.byHookID, hookID)
	delete(r.byPredicate, h.Predicate)
	return nil
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHookID)
}

// probeDeterminism invokes guard twice against a small fixed synthetic
// input set and rejects it if the two passes disagree on any input.
func probeDeterminism(guard GuardFunc) error {
	synthetic := []triple.Triple{
		{S: 0, P: 0, O: 0},
		{S: 1, P: 1, O: 1},
		{S: 0xFFFFFFFF, P: 0xDEADBEEF, O: 0xCAFEBABE},
	}
	for _, t := range synthetic {
		r1, err1 := guard(t)
		r2, err2 := guard(t)
		if (err1 == nil) != (err2 == nil) || r1 != r2 {
			return errs.GuardNonDeterministic(fmt.Sprintf("guard produced different results for probe input %+v", t))
		}
	}
	return nil
}

// contentHash fingerprints the semantically relevant fields of a hook so
// re-registration can be recognized as idempotent.
func contentHash(predicate uint64, kind pattern.Tag, invariants []string, desc *pattern.Descriptor) uint64 {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], predicate)
	h.Write(buf[:])
	h.Write([]byte{byte(kind)})
	for _, inv := range invariants {
		h.Write([]byte(inv))
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(desc.TotalBudget()))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(desc.BranchCount))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(desc.Timeout))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(desc.Threshold))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], desc.JoinTarget)
	h.Write(buf[:])
	h.Write([]byte{byte(desc.SyncMode), byte(desc.OnZeroTrueBranches)})
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}
