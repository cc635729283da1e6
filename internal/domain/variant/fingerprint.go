package variant

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// catalogFingerprint hashes the identity and stock of every variant.
func catalogFingerprint(variants []Variant) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, v := range variants {
		_, _ = d.WriteString(v.ID)
		_, _ = d.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], uint64(v.Stock))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// selectionFingerprint combines a catalog fingerprint with a selection.
// Entries are hashed in lexical attribute order so map iteration order
// never changes the result.
func selectionFingerprint(catalog uint64, sel Selection) uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], catalog)
	_, _ = d.Write(buf[:])
	for _, a := range sel.Attributes() {
		_, _ = d.WriteString(a)
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(sel[a])
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// memo caches payloads by selection fingerprint. It is bounded and simply
// starts over when full; selections per product are few.
type memo struct {
	limit   int
	entries map[uint64]Payload
}

func newMemo(limit int) *memo {
	return &memo{limit: limit, entries: make(map[uint64]Payload)}
}

func (m *memo) get(key uint64) (Payload, bool) {
	p, ok := m.entries[key]
	if !ok {
		return Payload{}, false
	}
	return p.Clone(), true
}

func (m *memo) put(key uint64, p Payload) {
	if m.limit <= 0 {
		return
	}
	if len(m.entries) >= m.limit {
		clear(m.entries)
	}
	m.entries[key] = p.Clone()
}
