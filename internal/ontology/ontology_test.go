package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/knhk/core/internal/triple"
)

func TestAllowAllAcceptsEverything(t *testing.T) {
	v := AllowAll{}
	assert.True(t, v.Validate(triple.Triple{S: 1, P: 2, O: 3}))
}

func TestPredicateAllowlistRejectsUnknownPredicate(t *testing.T) {
	v := NewPredicateAllowlist(10, 20)
	assert.True(t, v.Validate(triple.Triple{P: 10}))
	assert.False(t, v.Validate(triple.Triple{P: 30}))

	v.Allow(30)
	assert.True(t, v.Validate(triple.Triple{P: 30}))
}
