package triple

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("urn:step:P_step")
	b := Fingerprint("urn:step:P_step")
	assert.Equal(t, a, b)

	c := Fingerprint("urn:step:P_other")
	assert.NotEqual(t, a, c)
}

func TestMarshalRoundTrip(t *testing.T) {
	tr := Triple{S: 0xAAAA, P: 0xBBBB, O: 0xCCCC}
	data := tr.Marshal()
	require.Len(t, data, WireSize)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, tr, got)
}

func TestUnmarshalTooShort(t *testing.T) {
	_, err := Unmarshal([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCanonicalize(t *testing.T) {
	ev := RawEvent{Subject: "s1", Predicate: "p1", Object: "o1"}
	got := Canonicalize(ev)
	assert.Equal(t, Fingerprint("s1"), got.S)
	assert.Equal(t, Fingerprint("p1"), got.P)
	assert.Equal(t, Fingerprint("o1"), got.O)
}
