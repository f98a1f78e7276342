// Package reloc implements symbol resolution across the loaded object
// graph and application of x86-64 RELA-format relocation records.
package reloc

import (
	"debug/elf"
	"fmt"

	"github.com/zboralski/xelf/internal/addr"
	"github.com/zboralski/xelf/internal/loaderr"
	"github.com/zboralski/xelf/internal/object"
	"github.com/zboralski/xelf/internal/symfmt"
	"github.com/zboralski/xelf/internal/xlog"
)

// x86-64 relocation types this engine understands. Any other type fails
// with UnimplementedRelocation, per spec.
const (
	R_X86_64_64        = 1
	R_X86_64_COPY      = 5
	R_X86_64_GLOB_DAT  = 6
	R_X86_64_JUMP_SLOT = 7
	R_X86_64_RELATIVE  = 8
	R_X86_64_DTPMOD64  = 16
	R_X86_64_TPOFF64   = 18
	R_X86_64_IRELATIVE = 37
)

// Found is the result of a successful symbol lookup: the resolving object
// and the matched symbol.
type Found struct {
	Obj *object.Object
	Sym object.NamedSym
}

// Value returns the symbol's loaded virtual address: obj.base + st_value.
func (f Found) Value() addr.Addr { return f.Sym.Value(f.Obj.Base) }

// LookupSymbol iterates objs in load order and returns the first symbol
// named wanted whose section index is defined (not SHN_UNDEF). If
// ignoreSelf is non-nil, that object is skipped entirely — used only for
// R_X86_64_COPY, which must not resolve to its own object's definition.
func LookupSymbol(objs []*object.Object, wanted string, ignoreSelf *object.Object) (Found, bool) {
	for _, o := range objs {
		if o == ignoreSelf {
			continue
		}
		for _, sym := range o.Lookup(wanted) {
			if sym.Defined() {
				return Found{Obj: o, Sym: sym}, true
			}
		}
	}
	return Found{}, false
}

// IFunc is called to resolve an R_X86_64_IRELATIVE target: the function at
// obj.base+addend, with signature () -> Addr, is invoked and its return
// value is written to the relocation target.
type IFunc func(target addr.Addr) addr.Addr

// ApplyAll applies every relocation record of every object in objs,
// objects visited in reverse load order (mirroring glibc). tlsOffsets maps
// an object's base to its TLS block offset (see package tls), required for
// R_X86_64_TPOFF64.
func ApplyAll(objs []*object.Object, tlsOffsets map[addr.Addr]uint64, callIFunc IFunc, log *xlog.Logger) error {
	for i := len(objs) - 1; i >= 0; i-- {
		o := objs[i]
		for _, rel := range o.Relocs {
			if err := apply(objs, o, rel, tlsOffsets, callIFunc, log); err != nil {
				return err
			}
		}
	}
	return nil
}

func apply(objs []*object.Object, o *object.Object, rel object.Reloc, tlsOffsets map[addr.Addr]uint64, callIFunc IFunc, log *xlog.Logger) error {
	target := o.Base.Add(rel.Offset)

	var wanted *object.NamedSym
	var wantedName string
	if rel.SymIdx != 0 {
		// debug/elf's DynamicSymbols() skips the leading STN_UNDEF entry,
		// so the raw 1-based ELF symbol index maps to a 0-based Syms index
		// one lower.
		idx := int(rel.SymIdx) - 1
		if idx >= 0 && idx < len(o.Syms) {
			s := o.Syms[idx]
			wanted = &s
			wantedName = s.Name.String()
		} else {
			return undefErr(rel.Type, fmt.Sprintf("#%d", rel.SymIdx), log)
		}
	}

	lookup := func(ignoreSelf bool) (Found, bool) {
		if wanted == nil {
			return Found{}, false
		}
		var ignore *object.Object
		if ignoreSelf {
			ignore = o
		}
		return LookupSymbol(objs, wantedName, ignore)
	}

	switch rel.Type {
	case R_X86_64_RELATIVE:
		target.WriteUint64(uint64(o.Base.AddSigned(rel.Addend)))
		return nil

	case R_X86_64_IRELATIVE:
		ifuncAddr := o.Base.AddSigned(rel.Addend)
		result := callIFunc(ifuncAddr)
		target.WriteUint64(uint64(result))
		return nil

	case R_X86_64_DTPMOD64:
		// Single-module TLS assumption: left unchanged.
		return nil
	}

	// Every other handled type needs a symbol, even if the relocation
	// carries symbol index 0 ("no symbol" -> Undefined).
	found, ok := Found{}, false
	if rel.SymIdx != 0 {
		found, ok = lookup(rel.Type == R_X86_64_COPY)
	}

	switch rel.Type {
	case R_X86_64_64:
		if !ok {
			if !undefOK(wanted) {
				return undefErr(rel.Type, wantedName, log)
			}
			target.WriteUint64(uint64(rel.Addend))
			return nil
		}
		target.WriteUint64(uint64(found.Value().AddSigned(rel.Addend)))
		return nil

	case R_X86_64_COPY:
		if !ok {
			return undefErr(rel.Type, wantedName, log)
		}
		src := found.Value()
		copy(target.Slice(int(found.Sym.Sym.Size)), src.Slice(int(found.Sym.Sym.Size)))
		return nil

	case R_X86_64_GLOB_DAT, R_X86_64_JUMP_SLOT:
		if !ok {
			if !undefOK(wanted) {
				return undefErr(rel.Type, wantedName, log)
			}
			target.WriteUint64(0)
			return nil
		}
		target.WriteUint64(uint64(found.Value()))
		return nil

	case R_X86_64_TPOFF64:
		if !ok {
			if !undefOK(wanted) {
				return undefErr(rel.Type, wantedName, log)
			}
			return nil
		}
		off, hasOff := tlsOffsets[found.Obj.Base]
		if !hasOff {
			if log != nil {
				log.RelocFailure(fmt.Sprintf("type=%d", rel.Type), symfmt.Demangle(wantedName), nil)
			}
			return loaderr.New(loaderr.UndefinedSymbol, o.Path, wantedName, rel.Type, fmt.Errorf("resolving object has no TLS block"))
		}
		val := -int64(off) + int64(found.Sym.Sym.Value) + rel.Addend
		target.WriteUint64(uint64(val))
		return nil
	}

	if log != nil {
		log.RelocFailure(fmt.Sprintf("type=%d", rel.Type), symfmt.Demangle(wantedName), nil)
	}
	return loaderr.New(loaderr.UnimplementedRelocation, o.Path, wantedName, rel.Type, nil)
}

// undefOK reports whether an undefined resolution is tolerable: only weak
// bindings resolve to zero silently, anything else (global, local) is a
// hard failure.
func undefOK(wanted *object.NamedSym) bool {
	if wanted == nil {
		return true // symbol index 0: "no symbol", not a failure
	}
	return elf.ST_BIND(wanted.Sym.Info) == elf.STB_WEAK
}

func undefErr(relType uint32, symName string, log *xlog.Logger) error {
	demangled := symfmt.Demangle(symName)
	if log != nil {
		log.RelocFailure(fmt.Sprintf("type=%d", relType), demangled, nil)
	}
	return loaderr.New(loaderr.UndefinedSymbol, "", demangled, relType, nil)
}
