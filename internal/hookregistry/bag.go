package hookregistry

import (
	"fmt"

	"github.com/knhk/core/internal/pattern"
)

// SpecTuple is one entry of the validated workflow-specification bag the
// core consumes from an external collaborator (§6): a
// (predicate, kernel_kind, guard, invariants, pattern?) tuple.
type SpecTuple struct {
	Predicate  uint64
	Kind       pattern.Tag
	Guard      GuardFunc
	Invariants []string
	Descriptor *pattern.Descriptor
}

// RegisterBag registers every tuple in a spec bag atomically: it validates
// all tuples against a scratch registry first, and only installs them into r
// if every single one passes. This mirrors the teacher's TaskGate refusing
// partial lock state — a bag is either entirely trusted or not installed
// at all.
func (r *Registry) RegisterBag(tuples []SpecTuple) ([]string, error) {
	scratch := New()
	ids := make([]string, 0, len(tuples))
	for i, t := range tuples {
		id, err := scratch.Register(t.Predicate, t.Kind, t.Guard, t.Invariants, t.Descriptor, RegisterOptions{})
		if err != nil {
			return nil, fmt.Errorf("hookregistry: spec bag tuple %d rejected: %w", i, err)
		}
		ids = append(ids, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range tuples {
		h := scratch.byHookID[ids[i]]
		h2 := *h
		r.byHookID[h2.ID] = &h2
		r.byPredicate[h2.Predicate] = &h2
	}
	return ids, nil
}
