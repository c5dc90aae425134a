// Package triple defines the immutable Triple type, predicate fingerprinting,
// and the canonical wire encoding for triples (SPEC_FULL.md §3, §6).
package triple

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
)

// Triple holds three opaque 64-bit fingerprints: subject, predicate, object.
// Immutable once constructed. Produced by TRANSFORM, consumed by LOAD.
type Triple struct {
	S uint64
	P uint64
	O uint64
}

// WireSize is the canonical on-wire size of one triple: three little-endian
// uint64 fingerprints, order (S,P,O), per SPEC_FULL.md §6.
const WireSize = 24

// Fingerprint computes the deterministic 64-bit fingerprint of a predicate
// (or any) URI. Stable across ticks; used as the hook registry and pattern
// table key.
//
// FNV-1a is used rather than a third-party hash because this is the core
// fingerprinting algorithm itself, not an ambient concern — see DESIGN.md.
func Fingerprint(uri string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(uri))
	return h.Sum64()
}

// Marshal encodes the triple into its canonical 24-byte little-endian form.
func (t Triple) Marshal() []byte {
	buf := make([]byte, WireSize)
	binary.LittleEndian.PutUint64(buf[0:8], t.S)
	binary.LittleEndian.PutUint64(buf[8:16], t.P)
	binary.LittleEndian.PutUint64(buf[16:24], t.O)
	return buf
}

// Unmarshal decodes a canonical 24-byte triple.
func Unmarshal(data []byte) (Triple, error) {
	if len(data) < WireSize {
		return Triple{}, fmt.Errorf("triple: data too short: %d bytes (need %d)", len(data), WireSize)
	}
	return Triple{
		S: binary.LittleEndian.Uint64(data[0:8]),
		P: binary.LittleEndian.Uint64(data[8:16]),
		O: binary.LittleEndian.Uint64(data[16:24]),
	}, nil
}

// RawEvent is a triple not yet validated by TRANSFORM — URIs instead of
// fingerprints, as produced by INGEST sources.
type RawEvent struct {
	Subject   string
	Predicate string
	Object    string
	TenantID  string
}

// Canonicalize fingerprints a raw event's URIs into a wire-ready Triple.
func Canonicalize(e RawEvent) Triple {
	return Triple{
		S: Fingerprint(e.Subject),
		P: Fingerprint(e.Predicate),
		O: Fingerprint(e.Object),
	}
}
