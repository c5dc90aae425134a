// Package receipt implements the per-operation receipt record, the
// commutative/associative/idempotent merge operator ⊕, and the rolling
// chain head (SPEC_FULL.md §4.8, §6). Grounded on the teacher's
// internal/ledger/merkle.go — an append-only leaf log folded into a root —
// with two corrections noted in SPEC_FULL.md: the cycle root must be
// order-independent (merkle.go's fullRebuild is order-sensitive on leaf
// append order) and its digest is blake2b-256, not sha256, since this
// package already imports golang.org/x/crypto for the chain head and one
// hash primitive should serve both uses.
package receipt

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/knhk/core/internal/pattern"
)

// HeaderSize is the fixed 64-byte receipt header size (§6 on-wire format).
const HeaderSize = 64

// DigestSize is the size of a cycle root or chain head digest.
const DigestSize = 32

// Receipt is one operation's audit record. ReceiptID, CycleID, ShardID,
// HookFingerprint, TickSpan, LanesTouched and ResultHash form the fixed
// 64-byte header; PatternTag and Parked fill two of the header's reserved
// bytes, and ErrorTag is carried in the variable tail.
type Receipt struct {
	ReceiptID       [16]byte
	CycleID         uint64
	ShardID         uint32
	HookFingerprint uint64
	TickSpan        uint32
	LanesTouched    uint32
	ResultHash      [16]byte

	PatternTag pattern.Tag
	ErrorTag   string
	Parked     bool
}

// Marshal encodes the receipt's fixed 64-byte header (whose last 4 reserved
// bytes hold the pattern tag and parked flag) followed by its variable
// tail: 2-byte little-endian error tag length, 2 pad bytes, then the error
// tag bytes.
func (r Receipt) Marshal() []byte {
	buf := make([]byte, HeaderSize+4+len(r.ErrorTag))
	off := 0
	copy(buf[off:off+16], r.ReceiptID[:])
	off += 16
	binary.LittleEndian.PutUint64(buf[off:off+8], r.CycleID)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:off+4], r.ShardID)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:off+8], r.HookFingerprint)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:off+4], r.TickSpan)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], r.LanesTouched)
	off += 4
	copy(buf[off:off+16], r.ResultHash[:])
	off += 16
	// 4 reserved bytes in the fixed header, used here for the pattern tag
	// and parked flag rather than left zero.
	buf[off] = byte(r.PatternTag)
	if r.Parked {
		buf[off+1] = 1
	}
	off += 4

	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(r.ErrorTag)))
	off += 2
	off += 2 // alignment pad to keep the tail length field word-sized
	copy(buf[off:], r.ErrorTag)
	return buf
}

// Unmarshal decodes a receipt previously produced by Marshal.
func Unmarshal(data []byte) (Receipt, error) {
	if len(data) < HeaderSize+4 {
		return Receipt{}, fmt.Errorf("receipt: data too short: %d bytes", len(data))
	}
	var r Receipt
	off := 0
	copy(r.ReceiptID[:], data[off:off+16])
	off += 16
	r.CycleID = binary.LittleEndian.Uint64(data[off : off+8])
	off += 8
	r.ShardID = binary.LittleEndian.Uint32(data[off : off+4])
	off += 4
	r.HookFingerprint = binary.LittleEndian.Uint64(data[off : off+8])
	off += 8
	r.TickSpan = binary.LittleEndian.Uint32(data[off : off+4])
	off += 4
	r.LanesTouched = binary.LittleEndian.Uint32(data[off : off+4])
	off += 4
	copy(r.ResultHash[:], data[off:off+16])
	off += 16
	r.PatternTag = pattern.Tag(data[off])
	r.Parked = data[off+1] != 0
	off += 4

	tailLen := binary.LittleEndian.Uint16(data[off : off+2])
	off += 4
	if off+int(tailLen) > len(data) {
		return Receipt{}, fmt.Errorf("receipt: truncated error tag tail")
	}
	r.ErrorTag = string(data[off : off+int(tailLen)])
	return r, nil
}

// digest computes the blake2b-256 digest of data.
func digest(data []byte) [DigestSize]byte {
	return blake2b.Sum256(data)
}
