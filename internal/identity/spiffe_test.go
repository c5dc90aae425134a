package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpiffeIDFormatsURI(t *testing.T) {
	assert.Equal(t, "spiffe://core.local/control/rest", SpiffeID("core.local", "control/rest"))
}
