// Package name implements Name: the identity of a symbol name as either a
// zero-copy byte range into a memory-mapped file segment, or an owned byte
// vector. Equality and hashing are always by materialized byte content so
// the two representations interoperate transparently in maps.
package name

import (
	"bytes"
	"fmt"
)

// maxScan bounds how far Mapped will scan forward for a NUL terminator
// before giving up. A symbol name that long is almost certainly a
// corrupt string table, not a legitimate identifier.
const maxScan = 2048

// Name is either Mapped (borrows a byte range out of a segment mapping)
// or Owned (holds its own byte vector). Both satisfy comparable-by-content
// semantics via Bytes, Equal, and String.
type Name interface {
	Bytes() []byte
	String() string
	Equal(other Name) bool
}

// mapped borrows bytes out of a backing buffer shared with a Segment
// mapping. It does not extend that mapping's lifetime explicitly (nothing
// in this loader ever unmaps), it simply aliases it.
type mapped struct {
	data []byte
}

// owned holds its own copy of the bytes.
type owned struct {
	data []byte
}

// NewOwned builds a Name that owns a copy of b.
func NewOwned(b []byte) Name {
	cp := make([]byte, len(b))
	copy(cp, b)
	return owned{data: cp}
}

// NewMapped scans forward from base[offset:] for a NUL terminator and
// returns a Name borrowing that range. It fails if no NUL appears within
// maxScan bytes of offset, or if offset is out of range.
func NewMapped(base []byte, offset int) (Name, error) {
	if offset < 0 || offset > len(base) {
		return nil, fmt.Errorf("name: offset %d out of range (len %d)", offset, len(base))
	}
	window := base[offset:]
	if len(window) > maxScan {
		window = window[:maxScan]
	}
	idx := bytes.IndexByte(window, 0)
	if idx < 0 {
		return nil, fmt.Errorf("name: no NUL terminator within %d bytes of offset %d", maxScan, offset)
	}
	return mapped{data: base[offset : offset+idx]}, nil
}

func (m mapped) Bytes() []byte  { return m.data }
func (m mapped) String() string { return string(m.data) }
func (m mapped) Equal(other Name) bool {
	return other != nil && bytes.Equal(m.data, other.Bytes())
}

func (o owned) Bytes() []byte  { return o.data }
func (o owned) String() string { return string(o.data) }
func (o owned) Equal(other Name) bool {
	return other != nil && bytes.Equal(o.data, other.Bytes())
}

// Key returns a value usable as a Go map key for Name content (Go map keys
// must be comparable; []byte is not, so content is copied into a string,
// which is comparable and already the canonical "materialized slice" Go
// idiom).
func Key(n Name) string {
	return string(n.Bytes())
}
