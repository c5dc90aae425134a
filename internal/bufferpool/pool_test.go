package bufferpool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knhk/core/internal/errs"
)

type scratch struct{ n int }

func TestGetPutRoundTrip(t *testing.T) {
	p := New(2, func() *scratch { return &scratch{} })

	a, err := p.Get()
	require.NoError(t, err)
	a.n = 7

	checkedOut, idle, capacity := p.Stats()
	assert.Equal(t, 1, checkedOut)
	assert.Equal(t, 1, idle)
	assert.Equal(t, 2, capacity)

	p.Put(a, func(s *scratch) { s.n = 0 })
	checkedOut, idle, _ = p.Stats()
	assert.Equal(t, 0, checkedOut)
	assert.Equal(t, 2, idle)
}

func TestGetExhaustionReturnsPoolStarved(t *testing.T) {
	p := New(1, func() *scratch { return &scratch{} })

	_, err := p.Get()
	require.NoError(t, err)

	_, err = p.Get()
	require.Error(t, err)
	var ce *errs.CoreError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "PoolStarved", ce.Tag)
}

func TestPutResetsValueBeforeReuse(t *testing.T) {
	p := New(1, func() *scratch { return &scratch{n: 99} })

	a, err := p.Get()
	require.NoError(t, err)
	a.n = 5
	p.Put(a, func(s *scratch) { s.n = 0 })

	b, err := p.Get()
	require.NoError(t, err)
	assert.Equal(t, 0, b.n)
	assert.Same(t, a, b, "capacity-1 pool must return the same underlying buffer")
}
