// Package persist durably stores the two things the hot path itself never
// touches: the registered spec bag (so register_spec survives a restart)
// and the receipt chain head (so a resumed pipeline can continue its chain
// rather than restart from genesis).
package persist

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/knhk/core/internal/hookregistry"
	"github.com/knhk/core/internal/pattern"
)

// PGSpecStore persists and replays the spec bag RegisterBag consumes
// (§4.1, §6).
//
// Grounded on the teacher's internal/gvisor/database_state.go
// DatabaseStateManager: same sql.Open("postgres", ...) + Ping
// construction, generalized from savepoint transactions to a plain
// insert/scan spec-tuple table.
type PGSpecStore struct {
	db *sql.DB
}

// NewPGSpecStore opens a Postgres connection and verifies it is reachable.
func NewPGSpecStore(dbURL string) (*PGSpecStore, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("pgspecstore: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pgspecstore: ping: %w", err)
	}
	return &PGSpecStore{db: db}, nil
}

// EnsureSchema creates the spec_tuples table if it does not already exist.
func (s *PGSpecStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS spec_tuples (
	predicate    BIGINT PRIMARY KEY,
	kind         SMALLINT NOT NULL,
	invariants   TEXT[] NOT NULL DEFAULT '{}',
	tick_budget  INTEGER NOT NULL,
	branch_count INTEGER NOT NULL,
	timeout      INTEGER NOT NULL,
	sync_mode    SMALLINT NOT NULL,
	threshold    INTEGER NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("pgspecstore: ensure schema: %w", err)
	}
	return nil
}

// Save persists every tuple in a registered spec bag, replacing any prior
// row for the same predicate. Guards are not persisted — they are Go
// closures, not data — so a replayed tuple carries nil Guard; callers that
// need guarded hooks must re-attach them after Load.
func (s *PGSpecStore) Save(ctx context.Context, tuples []hookregistry.SpecTuple) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgspecstore: begin: %w", err)
	}
	defer tx.Rollback()

	const upsert = `
INSERT INTO spec_tuples (predicate, kind, invariants, tick_budget, branch_count, timeout, sync_mode, threshold)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (predicate) DO UPDATE SET
	kind = EXCLUDED.kind,
	invariants = EXCLUDED.invariants,
	tick_budget = EXCLUDED.tick_budget,
	branch_count = EXCLUDED.branch_count,
	timeout = EXCLUDED.timeout,
	sync_mode = EXCLUDED.sync_mode,
	threshold = EXCLUDED.threshold`

	for _, t := range tuples {
		desc := t.Descriptor
		if desc == nil {
			desc = &pattern.Descriptor{Tag: t.Kind, TickBudget: pattern.BaseBudget(t.Kind)}
		}
		if _, err := tx.ExecContext(ctx, upsert,
			int64(t.Predicate), int16(t.Kind), pq.StringArray(t.Invariants),
			desc.TickBudget, desc.BranchCount, desc.Timeout, int16(desc.SyncMode), desc.Threshold,
		); err != nil {
			return fmt.Errorf("pgspecstore: upsert predicate %d: %w", t.Predicate, err)
		}
	}
	return tx.Commit()
}

// Load reads back every persisted tuple as a replayable spec bag.
func (s *PGSpecStore) Load(ctx context.Context) ([]hookregistry.SpecTuple, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT predicate, kind, invariants, tick_budget, branch_count, timeout, sync_mode, threshold FROM spec_tuples`)
	if err != nil {
		return nil, fmt.Errorf("pgspecstore: query: %w", err)
	}
	defer rows.Close()

	var out []hookregistry.SpecTuple
	for rows.Next() {
		var predicate int64
		var kind, syncMode int16
		var invariants pq.StringArray
		var desc pattern.Descriptor
		if err := rows.Scan(&predicate, &kind, &invariants, &desc.TickBudget, &desc.BranchCount, &desc.Timeout, &syncMode, &desc.Threshold); err != nil {
			return nil, fmt.Errorf("pgspecstore: scan: %w", err)
		}
		desc.Tag = pattern.Tag(kind)
		desc.SyncMode = pattern.SyncMode(syncMode)
		out = append(out, hookregistry.SpecTuple{
			Predicate:  uint64(predicate),
			Kind:       pattern.Tag(kind),
			Invariants: []string(invariants),
			Descriptor: &desc,
		})
	}
	return out, rows.Err()
}

func (s *PGSpecStore) Close() error { return s.db.Close() }
