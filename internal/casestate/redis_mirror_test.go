package casestate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knhk/core/internal/pattern"
)

// fakeRedis is an in-memory stand-in satisfying RedisClient, used the same
// way the teacher's cmd/api/main injects a concrete client behind
// fabric.RedisClient.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: make(map[string][]byte)} }

func (f *fakeRedis) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeRedis) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, errNotFound
	}
	return v, nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

type notFoundErr struct{}

func (notFoundErr) Error() string { return "not found" }

var errNotFound = notFoundErr{}

func TestMirrorJoinRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMirror(newFakeRedis(), "", 0)

	j := NewJoin("case-1", 0x1, 3, 0, pattern.SyncAll)
	_, err := j.Arrive(0)
	require.NoError(t, err)

	require.NoError(t, m.SaveJoin(ctx, j))

	loaded, ok, err := m.LoadJoin(ctx, "case-1", 0x1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, loaded.ArrivedCount())
	assert.Equal(t, PartiallyArrived, loaded.Status())
}

func TestMirrorLoadJoinMissingReturnsNotFound(t *testing.T) {
	m := NewMirror(newFakeRedis(), "", 0)
	_, ok, err := m.LoadJoin(context.Background(), "nonexistent", 0x9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMirrorMIRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMirror(newFakeRedis(), "", 0)

	g := NewMI("case-2", 4, 0, pattern.SyncAll)
	_, err := g.Complete(1)
	require.NoError(t, err)
	require.NoError(t, m.SaveMI(ctx, g))

	loaded, ok, err := m.LoadMI(ctx, "case-2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, loaded.CompletedCount())
}

func TestMirrorForgetRemovesBoth(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	m := NewMirror(client, "", 0)

	j := NewJoin("case-3", 0x1, 1, 0, pattern.SyncAll)
	require.NoError(t, m.SaveJoin(ctx, j))
	g := NewMI("case-3", 1, 0, pattern.SyncAll)
	require.NoError(t, m.SaveMI(ctx, g))

	require.NoError(t, m.Forget(ctx, "case-3", 0x1))

	_, ok, _ := m.LoadJoin(ctx, "case-3", 0x1)
	assert.False(t, ok)
	_, ok, _ = m.LoadMI(ctx, "case-3")
	assert.False(t, ok)
}
