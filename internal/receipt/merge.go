package receipt

import (
	"bytes"
	"sort"
)

// Merge (⊕) folds a set of receipts for one cycle into a single
// deterministic cycle root. It is commutative and associative — the
// result does not depend on the slice's arrival order — and idempotent on
// duplicate receipt ids: a receipt appearing twice contributes once
// (§4.8, §8 property 5).
//
// Grounded on the teacher's internal/ledger/merkle.go full-rebuild fold,
// corrected here to sort leaves by id before folding so the root is
// order-independent rather than append-order-dependent.
func Merge(receipts []Receipt) [DigestSize]byte {
	dedup := dedupByID(receipts)
	sort.Slice(dedup, func(i, j int) bool {
		return bytes.Compare(dedup[i].ReceiptID[:], dedup[j].ReceiptID[:]) < 0
	})

	var buf bytes.Buffer
	for _, r := range dedup {
		buf.Write(r.Marshal())
	}
	return digest(buf.Bytes())
}

func dedupByID(receipts []Receipt) []Receipt {
	seen := make(map[[16]byte]bool, len(receipts))
	out := make([]Receipt, 0, len(receipts))
	for _, r := range receipts {
		if seen[r.ReceiptID] {
			continue
		}
		seen[r.ReceiptID] = true
		out = append(out, r)
	}
	return out
}
