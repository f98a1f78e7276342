// Package elfview is the loader's assumed-external ELF parser boundary.
// Per the loader's design, the ELF decoder itself is an external
// collaborator — only its observable contract (program headers, dynamic
// entries, symbol and relocation tables, byte-range queries) is assumed.
// This package is a thin wrapper over the standard library's debug/elf:
// the examples this loader was grounded on hand-roll their own ELF
// decoding as *part of* their own packages rather than importing a
// reusable third-party decoder, so there is no ecosystem library to adopt
// here; debug/elf is the correct, already-external boundary.
package elfview

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
)

// RelaEntry is one RELA-format relocation record (24 bytes on-disk:
// r_offset, r_info, r_addend), decoded from either .rela.dyn or .rela.plt.
type RelaEntry struct {
	Offset uint64
	Type   uint32
	Sym    uint32 // index into the dynamic symbol table, 0 means "no symbol"
	Addend int64
}

// Segment mirrors one PT_LOAD program header.
type Segment struct {
	Vaddr  uint64
	Memsz  uint64
	Filesz uint64
	Off    uint64
	Flags  elf.ProgFlag
}

// TLSSegment mirrors the PT_TLS program header, if present.
type TLSSegment struct {
	Vaddr  uint64
	Memsz  uint64
	Filesz uint64
}

// View is the parsed, read-only contract a loader needs from an ELF64
// file: its load segments, dynamic symbols, relocation entries, and
// dynamic string-table entries (NEEDED/RPATH/RUNPATH).
type View struct {
	f       *elf.File
	raw     []byte
	path    string
	Entry   uint64
	Segs    []Segment
	TLS     *TLSSegment
	DynSyms []elf.Symbol
	// DynSymNameOff[i] is the raw st_name byte offset into the dynamic
	// string table for DynSyms[i], parallel to DynSyms. debug/elf already
	// resolves Symbol.Name to a Go string; this parallel array recovers
	// the original offset so the loader can construct a Name that
	// literally borrows the string-table segment's bytes, per its
	// zero-copy Mapped contract.
	DynSymNameOff []uint32
	Relocs        []RelaEntry // union of .rela.dyn and .rela.plt, in file order
	Needed        []string
	RPath         []string
	RunPath       []string
}

// Open reads path fully into memory and parses it as an ELF64 file.
func Open(path string) (*View, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := elf.NewFile(bytesReaderAt(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if f.Class != elf.ELFCLASS64 || f.Machine != elf.EM_X86_64 {
		return nil, fmt.Errorf("parse %s: not an ELF64 x86-64 object (class=%v machine=%v)", path, f.Class, f.Machine)
	}

	v := &View{f: f, raw: raw, path: path, Entry: f.Entry}

	for _, p := range f.Progs {
		switch p.Type {
		case elf.PT_LOAD:
			v.Segs = append(v.Segs, Segment{
				Vaddr: p.Vaddr, Memsz: p.Memsz, Filesz: p.Filesz,
				Off: p.Off, Flags: p.Flags,
			})
		case elf.PT_TLS:
			v.TLS = &TLSSegment{Vaddr: p.Vaddr, Memsz: p.Memsz, Filesz: p.Filesz}
		}
	}
	if len(v.Segs) == 0 {
		return nil, fmt.Errorf("no PT_LOAD segments in %s", path)
	}

	if syms, err := f.DynamicSymbols(); err == nil {
		v.DynSyms = syms
		v.DynSymNameOff = decodeDynsymNameOffsets(f, len(syms))
	}

	v.Relocs = append(v.Relocs, decodeRela(f, ".rela.dyn")...)
	v.Relocs = append(v.Relocs, decodeRela(f, ".rela.plt")...)

	v.Needed, _ = f.DynString(elf.DT_NEEDED)
	v.RPath, _ = f.DynString(elf.DT_RPATH)
	v.RunPath, _ = f.DynString(elf.DT_RUNPATH)

	return v, nil
}

// Path returns the path this view was opened from.
func (v *View) Path() string { return v.path }

// FileRange returns the raw file bytes in [off, off+n).
func (v *View) FileRange(off, n uint64) []byte {
	return v.raw[off : off+n]
}

// MemHull returns the convex hull [lo, hi) of all PT_LOAD segments'
// virtual-address ranges.
func (v *View) MemHull() (lo, hi uint64) {
	lo = ^uint64(0)
	for _, s := range v.Segs {
		if s.Vaddr < lo {
			lo = s.Vaddr
		}
		if end := s.Vaddr + s.Memsz; end > hi {
			hi = end
		}
	}
	return lo, hi
}

// StrtabAddr returns the virtual address of the string table the dynamic
// symbols' names were resolved against: the section that .dynsym's sh_link
// names. It reports false if there is no .dynsym or that section has no
// address.
func (v *View) StrtabAddr() (uint64, bool) {
	ds := v.f.SectionByType(elf.SHT_DYNSYM)
	if ds == nil {
		return 0, false
	}
	// debug/elf does not expose DT_STRTAB directly; the dynamic symbol
	// table's linked string table section is authoritative and carries
	// the same virtual address.
	if int(ds.Link) >= len(v.f.Sections) {
		return 0, false
	}
	strSec := v.f.Sections[ds.Link]
	return strSec.Addr, strSec.Addr != 0
}

// decodeDynsymNameOffsets re-parses the raw .dynsym table to recover each
// entry's st_name offset. debug/elf's DynamicSymbols() returns symbols in
// the same order as the raw table, skipping the leading STN_UNDEF entry,
// which this walk mirrors.
func decodeDynsymNameOffsets(f *elf.File, want int) []uint32 {
	sec := f.SectionByType(elf.SHT_DYNSYM)
	if sec == nil {
		return nil
	}
	data, err := sec.Data()
	if err != nil {
		return nil
	}
	const entsz = 24 // Elf64_Sym: st_name(4) st_info(1) st_other(1) st_shndx(2) st_value(8) st_size(8)
	out := make([]uint32, 0, want)
	for i := entsz; i+entsz <= len(data) && len(out) < want; i += entsz {
		out = append(out, binary.LittleEndian.Uint32(data[i:]))
	}
	return out
}

func decodeRela(f *elf.File, name string) []RelaEntry {
	sec := f.Section(name)
	if sec == nil {
		return nil
	}
	data, err := sec.Data()
	if err != nil {
		return nil
	}
	const entsz = 24
	out := make([]RelaEntry, 0, len(data)/entsz)
	for i := 0; i+entsz <= len(data); i += entsz {
		off := binary.LittleEndian.Uint64(data[i:])
		info := binary.LittleEndian.Uint64(data[i+8:])
		addend := int64(binary.LittleEndian.Uint64(data[i+16:]))
		out = append(out, RelaEntry{
			Offset: off,
			Type:   uint32(info),
			Sym:    uint32(info >> 32),
			Addend: addend,
		})
	}
	return out
}

// bytesReaderAt adapts a []byte to io.ReaderAt without an extra copy.
type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, fmt.Errorf("elfview: read at %d out of range (len %d)", off, len(b))
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, fmt.Errorf("elfview: short read at %d", off)
	}
	return n, nil
}
