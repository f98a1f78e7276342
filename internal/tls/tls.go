// Package tls implements the TLS engine: per-object slot allocation, a
// glibc-compatible tcbhead_t-tailed storage block, and copying of
// PT_TLS template data into it.
package tls

import (
	"encoding/binary"

	"github.com/zboralski/xelf/internal/addr"
	"github.com/zboralski/xelf/internal/mmapio"
	"github.com/zboralski/xelf/internal/object"
)

// tcbheadSize is the observed glibc tcbhead_t layout size on x86-64.
const tcbheadSize = 704

const (
	placeholderStackGuard   = 0xDEADBEEF
	placeholderPointerGuard = 0xFEEDFACE
)

// Block is the allocated TLS storage plus thread-control-block tail. It is
// allocated once, at its final capacity, and never reallocated: TCBAddr is
// computed once and remains valid for the process's lifetime.
type Block struct {
	mapping *mmapio.Mapping
	storage uint64 // total cumulative PT_TLS memsz across all objects
	TCBAddr addr.Addr
	// Offsets maps an object's base address to its distance from TCBAddr
	// downward: the object's TLS slot occupies
	// [TCBAddr-offset, TCBAddr-offset+memsz).
	Offsets map[addr.Addr]uint64
}

// Allocate scans objs in load order, summing PT_TLS memsz into a
// cumulative cursor (so later objects sit further from the TCB), then
// reserves one fixed-capacity block sized storage+tcbheadSize and installs
// the tcbhead_t tail immediately.
func Allocate(objs []*object.Object) (*Block, error) {
	offsets := make(map[addr.Addr]uint64)
	var cursor uint64
	for _, o := range objs {
		if o.View.TLS == nil || o.View.TLS.Memsz == 0 {
			continue
		}
		cursor += o.View.TLS.Memsz
		offsets[o.Base] = cursor
	}

	total := cursor + tcbheadSize
	mapping, err := mmapio.ReserveAnon(total)
	if err != nil {
		return nil, err
	}

	blockStart := addr.Addr(uint64(mapping.Addr))
	tcbAddr := blockStart.Add(cursor)

	b := &Block{
		mapping: mapping,
		storage: cursor,
		TCBAddr: tcbAddr,
		Offsets: offsets,
	}
	b.writeTCBHead()
	return b, nil
}

// writeTCBHead fills in the tcbhead_t-compatible tail: tcb self-pointer,
// dtv, thread pointer, multiple_threads, gscope_flag, sysinfo, and the
// (placeholder, insecure) stack/pointer guard values. This matches the
// source behavior the loader is grounded on; production use would need
// CSPRNG-derived guard values instead.
func (b *Block) writeTCBHead() {
	tcb := b.TCBAddr
	buf := make([]byte, 8)

	write := func(off uint64, v uint64) {
		binary.LittleEndian.PutUint64(buf, v)
		tcb.Add(off).WriteBytes(buf)
	}

	write(0, uint64(tcb))                      // tcb self-pointer
	write(8, 0)                                // dtv
	write(16, uint64(tcb))                     // thread pointer
	tcb.Add(24).WriteBytes([]byte{0, 0, 0, 0}) // multiple_threads
	tcb.Add(28).WriteBytes([]byte{0, 0, 0, 0}) // gscope_flag
	write(32, 0)                               // sysinfo
	write(40, placeholderStackGuard)
	write(48, placeholderPointerGuard)
}

// Initialize copies each object's PT_TLS filesz bytes from
// obj.base+ph.vaddr into tcb-offset, leaving [filesz, memsz) zero. Must run
// after relocation and before protection.
func Initialize(objs []*object.Object, b *Block) {
	for _, o := range objs {
		t := o.View.TLS
		if t == nil || t.Memsz == 0 {
			continue
		}
		off, ok := b.Offsets[o.Base]
		if !ok {
			continue
		}
		dst := b.TCBAddr.SubUint(off)
		if t.Filesz > 0 {
			src := o.Base.Add(t.Vaddr)
			dst.WriteBytes(src.Slice(int(t.Filesz)))
		}
		// [filesz, memsz) was already zero from the anonymous reservation.
	}
}
