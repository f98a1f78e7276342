// Package loader implements the Loader: file lookup along a search path,
// ELF parsing, address-space reservation, segment mapping, and per-object
// symbol/relocation indexing, plus the breadth-first DT_NEEDED dependency
// closure.
package loader

import (
	"debug/elf"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zboralski/xelf/internal/addr"
	"github.com/zboralski/xelf/internal/elfview"
	"github.com/zboralski/xelf/internal/loaderr"
	"github.com/zboralski/xelf/internal/mmapio"
	"github.com/zboralski/xelf/internal/name"
	"github.com/zboralski/xelf/internal/object"
	"github.com/zboralski/xelf/internal/xlog"
)

// DefaultSearchPath is tried last, after any DT_RPATH/DT_RUNPATH entries
// and any configured extra directories.
const DefaultSearchPath = "/usr/lib/x86_64-linux-gnu"

const pageSize = 0x1000

// Loader owns the object list (dense, index-addressable, stable indices)
// and the ordered search path used to resolve DT_NEEDED names.
type Loader struct {
	SearchPath []string
	Objects    []*object.Object
	byPath     map[string]int
	log        *xlog.Logger
}

// New creates a Loader with extra prepended ahead of DefaultSearchPath.
func New(extra []string, log *xlog.Logger) *Loader {
	if log == nil {
		log = xlog.NewNop()
	}
	l := &Loader{
		byPath: make(map[string]int),
		log:    log,
	}
	l.SearchPath = append(l.SearchPath, extra...)
	l.SearchPath = append(l.SearchPath, DefaultSearchPath)
	return l
}

// Resolution reports whether get_object returned a pre-existing object
// (Cached) or loaded a new one (Fresh).
type Resolution struct {
	Index int
	Fresh bool
}

// Load parses, maps, and indexes path, appending a new Object. If the
// canonical path is already loaded, it returns the existing index and
// appends nothing. It does not follow DT_NEEDED; use LoadClosure for the
// full dependency graph.
func (l *Loader) Load(path string) (int, error) {
	canon, err := filepath.Abs(path)
	if err != nil {
		return 0, loaderr.Pathf(loaderr.IOFailure, path, err)
	}
	if resolved, err := filepath.EvalSymlinks(canon); err == nil {
		canon = resolved
	} else if os.IsNotExist(err) {
		return 0, loaderr.Pathf(loaderr.IOFailure, path, err)
	}

	if idx, ok := l.byPath[canon]; ok {
		return idx, nil
	}

	view, err := elfview.Open(canon)
	if err != nil {
		return 0, loaderr.Pathf(loaderr.ParseFailure, canon, err)
	}

	hullStart, hullEnd := view.MemHull()
	if hullEnd <= hullStart {
		return 0, loaderr.Pathf(loaderr.NoLoadSegments, canon, nil)
	}
	hullSize := hullEnd - hullStart

	reservation, err := mmapio.ReserveAnon(hullSize)
	if err != nil {
		return 0, loaderr.Pathf(loaderr.MappingFailure, canon, err)
	}
	base := addr.Addr(uint64(reservation.Addr)) - addr.Addr(hullStart)

	obj := object.New(canon, base, view)
	obj.HullStart = base.Add(hullStart)
	obj.HullEnd = base.Add(hullEnd)

	f, err := os.Open(canon)
	if err != nil {
		return 0, loaderr.Pathf(loaderr.IOFailure, canon, err)
	}
	defer f.Close()

	for _, seg := range view.Segs {
		if seg.Memsz == 0 {
			continue
		}
		if err := mapSegment(f, base, seg, obj); err != nil {
			return 0, loaderr.Pathf(loaderr.MappingFailure, canon, err)
		}
	}

	if err := indexSymbols(view, base, obj); err != nil {
		return 0, loaderr.Pathf(loaderr.ParseFailure, canon, err)
	}

	for _, r := range view.Relocs {
		obj.Relocs = append(obj.Relocs, object.Reloc{
			Offset: r.Offset, Type: r.Type, SymIdx: r.Sym, Addend: r.Addend,
		})
	}

	origin := filepath.Dir(canon)
	for _, rp := range append(append([]string{}, view.RPath...), view.RunPath...) {
		expanded := strings.ReplaceAll(rp, "$ORIGIN", origin)
		l.SearchPath = append([]string{expanded}, l.SearchPath...)
	}

	idx := len(l.Objects)
	obj.Index = idx
	l.Objects = append(l.Objects, obj)
	l.byPath[canon] = idx

	l.log.WithObject(canon).Info("loaded object",
		xlog.Addr("base", uint64(base)),
		xlog.Addr("entry", view.Entry))

	return idx, nil
}

// mapSegment reserves the final page-aligned placement for one PT_LOAD
// segment within the object's hull reservation. Only the pages actually
// backed by file data are mapped from the file; the remaining whole bss
// pages get a separate anonymous mapping, matching how the original loader
// avoids ever mapping a file-backed page past EOF (a segment's memsz
// commonly runs a full page or more past its filesz, and EOF can fall
// inside that gap, which makes a single file-backed mmap of the whole
// range SIGBUS on first touch).
func mapSegment(f *os.File, base addr.Addr, seg elfview.Segment, obj *object.Object) error {
	start := base.Add(seg.Vaddr)
	alignedStart := start.AlignDown(pageSize)
	padding := start.Sub(alignedStart)
	end := start.Add(seg.Memsz)
	alignedEnd := end.AlignUp(pageSize)

	fileOff := int64(seg.Off) - int64(padding)
	if fileOff < 0 {
		fileOff = int64(seg.Off)
	}

	fileBackedEnd := alignedStart
	if seg.Filesz > 0 {
		fileBackedEnd = start.Add(seg.Filesz).AlignUp(pageSize)
		if fileBackedEnd > alignedEnd {
			fileBackedEnd = alignedEnd
		}
		if err := mmapio.MapFileFixed(f, uintptr(alignedStart), fileBackedEnd.Sub(alignedStart), fileOff); err != nil {
			return err
		}

		// The kernel copies whole pages, so bytes between filesz and the
		// end of that last file-backed page are stale file content past
		// the segment's declared size and must be zeroed.
		tailStart := start.Add(seg.Filesz)
		if fileBackedEnd > tailStart {
			mmapio.ZeroFill(uintptr(tailStart), fileBackedEnd.Sub(tailStart))
		}
	}

	if alignedEnd > fileBackedEnd {
		if err := mmapio.MapAnonFixed(uintptr(fileBackedEnd), alignedEnd.Sub(fileBackedEnd)); err != nil {
			return err
		}
	}

	obj.Segments = append(obj.Segments, &object.Segment{
		Mapping: &mmapio.Mapping{Addr: uintptr(alignedStart), Len: uintptr(alignedEnd.Sub(alignedStart))},
		Start:   alignedStart,
		End:     end,
		Padding: padding,
		Read:    seg.Flags&elf.PF_R != 0,
		Write:   seg.Flags&elf.PF_W != 0,
		Exec:    seg.Flags&elf.PF_X != 0,
	})
	return nil
}

// indexSymbols builds NamedSyms for every dynamic symbol, resolving each
// name into the segment covering DT_STRTAB so the Name borrows that
// segment's live mapping.
func indexSymbols(view *elfview.View, base addr.Addr, obj *object.Object) error {
	if len(view.DynSyms) == 0 {
		return nil
	}
	strtabAddr, ok := view.StrtabAddr()
	if !ok {
		return fmt.Errorf("no DT_STRTAB for object with dynamic symbols")
	}
	strSeg := obj.SegmentContaining(strtabAddr)
	if strSeg == nil {
		return fmt.Errorf("DT_STRTAB at 0x%x not covered by any segment", strtabAddr)
	}

	// The string table's live bytes, as mapped: base(segment-relative) so
	// a raw st_name offset (relative to DT_STRTAB) indexes directly into
	// it once we add the segment's start-of-table displacement.
	tableStart := base.Add(strtabAddr)
	tableOff := int(tableStart.Sub(strSeg.Start))
	tableBytes := strSeg.Bytes(strSeg.End.Sub(strSeg.Start))

	for i, sym := range view.DynSyms {
		var n name.Name
		if i < len(view.DynSymNameOff) {
			off := tableOff + int(view.DynSymNameOff[i])
			mapped, err := name.NewMapped(tableBytes, off)
			if err != nil {
				// A corrupt or unbounded string table entry; fall back to
				// the name debug/elf already decoded rather than failing
				// the whole object load over one bad symbol name.
				mapped = name.NewOwned([]byte(sym.Name))
			}
			n = mapped
		} else {
			n = name.NewOwned([]byte(sym.Name))
		}
		obj.AddSym(object.NamedSym{Sym: sym, Name: n})
	}
	return nil
}
