// Cross-process mirror for Join and MI barrier state, backed by Redis so
// that shards running in separate processes observe the same barrier
// progress (SPEC_FULL.md §4.2/domain stack). Grounded directly on the
// teacher's internal/fabric.RedisHubStore: a narrow RedisClient interface
// decoupling this package from any one driver, key-prefixed JSON blobs.
// Set and Del errors are returned to the caller; a failed Get is reported
// as "no snapshot".
package casestate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/knhk/core/internal/pattern"
)

// RedisClient is the minimal surface this package needs from a Redis
// driver, implemented by a caller-supplied adapter or by a test fake. No
// Redis driver is imported by this module, and go-redis's *redis.Client
// does not match these method signatures without such an adapter.
type RedisClient interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
}

// Mirror persists Join and MI barrier snapshots to Redis so a case's
// barrier state survives a shard restart and is visible to any process
// sharing the same keyspace.
type Mirror struct {
	client    RedisClient
	keyPrefix string
	ttl       time.Duration
}

// NewMirror constructs a Mirror. keyPrefix defaults to "knhk:case:" and ttl
// to one hour if zero-valued.
func NewMirror(client RedisClient, keyPrefix string, ttl time.Duration) *Mirror {
	if keyPrefix == "" {
		keyPrefix = "knhk:case:"
	}
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Mirror{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

type joinSnapshot struct {
	CaseID    string       `json:"case_id"`
	Predicate uint64       `json:"predicate"`
	Mode      uint8        `json:"mode"`
	Threshold int          `json:"threshold"`
	Branches  int          `json:"branches"`
	Arrived   map[int]bool `json:"arrived"`
	Status    uint8        `json:"status"`
}

func (m *Mirror) joinKey(caseID string, predicate uint64) string {
	return fmt.Sprintf("%sjoin:%s:%d", m.keyPrefix, caseID, predicate)
}

// SaveJoin mirrors a Join's current snapshot to Redis.
func (m *Mirror) SaveJoin(ctx context.Context, j *Join) error {
	j.mu.Lock()
	snap := joinSnapshot{
		CaseID:    j.CaseID,
		Predicate: j.Predicate,
		Mode:      uint8(j.Mode),
		Threshold: j.Threshold,
		Branches:  j.Branches,
		Arrived:   copyBoolMap(j.arrived),
		Status:    uint8(j.status),
	}
	j.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("casestate: marshal join snapshot: %w", err)
	}
	if err := m.client.Set(ctx, m.joinKey(j.CaseID, j.Predicate), data, m.ttl); err != nil {
		return fmt.Errorf("casestate: redis SET join: %w", err)
	}
	return nil
}

// LoadJoin reconstructs a Join from its mirrored Redis snapshot, or
// returns (nil, false) if no snapshot exists for this case/predicate.
func (m *Mirror) LoadJoin(ctx context.Context, caseID string, predicate uint64) (*Join, bool, error) {
	data, err := m.client.Get(ctx, m.joinKey(caseID, predicate))
	if err != nil {
		return nil, false, nil
	}
	var snap joinSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("casestate: unmarshal join snapshot: %w", err)
	}
	j := NewJoin(snap.CaseID, snap.Predicate, snap.Branches, snap.Threshold, pattern.SyncMode(snap.Mode))
	j.arrived = copyBoolMap(snap.Arrived)
	j.status = JoinStatus(snap.Status)
	return j, true, nil
}

type miSnapshot struct {
	CaseID    string       `json:"case_id"`
	Total     int          `json:"total"`
	Threshold int          `json:"threshold"`
	Mode      uint8        `json:"mode"`
	Completed map[int]bool `json:"completed"`
	Status    uint8        `json:"status"`
}

func (m *Mirror) miKey(caseID string) string {
	return m.keyPrefix + "mi:" + caseID
}

// SaveMI mirrors an MI group's current snapshot to Redis.
func (m *Mirror) SaveMI(ctx context.Context, g *MI) error {
	g.mu.Lock()
	snap := miSnapshot{
		CaseID:    g.CaseID,
		Total:     g.Total,
		Threshold: g.Threshold,
		Mode:      uint8(g.Mode),
		Completed: copyBoolMap(g.completed),
		Status:    uint8(g.status),
	}
	g.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("casestate: marshal MI snapshot: %w", err)
	}
	if err := m.client.Set(ctx, m.miKey(g.CaseID), data, m.ttl); err != nil {
		return fmt.Errorf("casestate: redis SET MI: %w", err)
	}
	return nil
}

// LoadMI reconstructs an MI group from its mirrored Redis snapshot.
func (m *Mirror) LoadMI(ctx context.Context, caseID string) (*MI, bool, error) {
	data, err := m.client.Get(ctx, m.miKey(caseID))
	if err != nil {
		return nil, false, nil
	}
	var snap miSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("casestate: unmarshal MI snapshot: %w", err)
	}
	g := NewMI(snap.CaseID, snap.Total, snap.Threshold, pattern.SyncMode(snap.Mode))
	g.completed = copyBoolMap(snap.Completed)
	g.status = MIStatus(snap.Status)
	return g, true, nil
}

// Forget removes both the Join and MI mirrors for a case, called once a
// case completes and its barriers are no longer needed.
func (m *Mirror) Forget(ctx context.Context, caseID string, predicate uint64) error {
	return m.client.Del(ctx, m.joinKey(caseID, predicate), m.miKey(caseID))
}

func copyBoolMap(src map[int]bool) map[int]bool {
	if src == nil {
		return map[int]bool{}
	}
	dst := make(map[int]bool, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
