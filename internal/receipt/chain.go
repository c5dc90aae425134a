package receipt

import "bytes"

// Chain is the rolling, content-addressable chain head: each cycle's root
// is folded into the previous head, producing tamper evidence across
// cycles (§4.8: "chain head = digest(cycle_root || previous_head)"). EMIT
// is the only mutator (§5).
type Chain struct {
	head [DigestSize]byte
}

// NewChain starts a fresh chain with an all-zero genesis head.
func NewChain() *Chain {
	return &Chain{}
}

// Head returns the current chain head.
func (c *Chain) Head() [DigestSize]byte { return c.head }

// Advance merges receipts into a cycle root and folds it into the chain
// head, returning the new head. Deterministic and replay-safe: the same
// sequence of cycles always yields the same final head regardless of
// within-cycle receipt ordering (§8 property 6, Replay determinism).
func (c *Chain) Advance(receipts []Receipt) [DigestSize]byte {
	cycleRoot := Merge(receipts)
	var buf bytes.Buffer
	buf.Write(cycleRoot[:])
	buf.Write(c.head[:])
	c.head = digest(buf.Bytes())
	return c.head
}

// Restore seeds the chain with a previously persisted head — used when a
// pipeline resumes from a snapshot rather than starting from genesis.
func (c *Chain) Restore(head [DigestSize]byte) {
	c.head = head
}
