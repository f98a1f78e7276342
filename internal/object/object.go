// Package object defines Object, Segment, and NamedSym: the loaded-state
// types a Loader produces for each ELF file it maps.
package object

import (
	"debug/elf"

	"github.com/zboralski/xelf/internal/addr"
	"github.com/zboralski/xelf/internal/elfview"
	"github.com/zboralski/xelf/internal/mmapio"
	"github.com/zboralski/xelf/internal/name"
)

// Segment is one loaded PT_LOAD region: the kernel-level mapping backing
// it (shared with any Name borrowing into the segment's bytes, since
// neither side ever unmaps it), the virtual-address range it occupies in
// the loaded object (including page-alignment padding), the padding
// amount, and its final permission flags.
type Segment struct {
	Mapping *mmapio.Mapping
	Start   addr.Addr // base + aligned vaddr
	End     addr.Addr // base + vaddr + memsz, unaligned end
	Padding uint64    // start alignment padding, in bytes
	Read    bool
	Write   bool
	Exec    bool
}

// Bytes returns the live byte slice of this segment's memory, length n
// starting at the segment's Start.
func (s *Segment) Bytes(n uint64) []byte {
	return s.Start.Slice(int(n))
}

// NamedSym pairs a raw ELF dynamic symbol with its resolved Name.
type NamedSym struct {
	Sym   elf.Symbol
	Name  name.Name
	Index int // position in the object's Syms; a relocation's 1-based symbol index is Index+1
}

// Defined reports whether the symbol has a section (is not SHN_UNDEF).
func (s NamedSym) Defined() bool {
	return s.Sym.Section != elf.SHN_UNDEF
}

// Value returns the symbol's loaded virtual address: obj.base + st_value.
func (s NamedSym) Value(base addr.Addr) addr.Addr {
	return base.Add(s.Sym.Value)
}

// Reloc is one relocation record (from the union of .rela.dyn and
// .rela.plt), carried alongside the object it belongs to so the
// relocation engine can compute obj.base + rel.Offset without a second
// lookup.
type Reloc struct {
	Offset uint64
	Type   uint32
	SymIdx uint32
	Addend int64
}

// Object is one loaded ELF file: its canonical path, load bias, owned ELF
// view, convex-hull memory range, ordered segments, ordered dynamic
// symbols (with resolved names), a name->symbols multimap for lookup, and
// its relocation list.
type Object struct {
	Path      string
	Base      addr.Addr // load bias: loaded_addr - file_vaddr
	View      *elfview.View
	HullStart addr.Addr
	HullEnd   addr.Addr
	Segments  []*Segment
	Syms      []NamedSym
	ByName    map[string][]int // name.Key(sym.Name) -> indices into Syms
	Relocs    []Reloc
	Index     int // stable index into the Loader's object list
}

// AddSym appends a NamedSym and indexes it by name.
func (o *Object) AddSym(s NamedSym) {
	s.Index = len(o.Syms)
	o.Syms = append(o.Syms, s)
	key := name.Key(s.Name)
	o.ByName[key] = append(o.ByName[key], s.Index)
}

// Lookup returns the symbols (in insertion order) registered under name n,
// or nil if none.
func (o *Object) Lookup(n string) []NamedSym {
	idxs, ok := o.ByName[n]
	if !ok {
		return nil
	}
	out := make([]NamedSym, len(idxs))
	for i, idx := range idxs {
		out[i] = o.Syms[idx]
	}
	return out
}

// SegmentContaining returns the segment whose loaded range covers vaddr
// (interpreted as a file-relative virtual address, not yet biased), or
// nil.
func (o *Object) SegmentContaining(vaddr uint64) *Segment {
	target := o.Base.Add(vaddr)
	for _, s := range o.Segments {
		if target >= s.Start && target < s.End {
			return s
		}
	}
	return nil
}

// New creates an empty Object for path, with base bias and view set by the
// caller (the Loader, which knows the reservation address).
func New(path string, base addr.Addr, view *elfview.View) *Object {
	return &Object{
		Path:   path,
		Base:   base,
		View:   view,
		ByName: make(map[string][]int),
	}
}
