// Package diag implements the "dig" and "autosym" external-CLI
// collaborators named in the loader's command surface: translating a
// runtime address to its containing object and nearest preceding symbol
// (no section is reported), and emitting GDB
// `add-symbol-file` directives for a loaded object graph. Neither
// exercises the core loader pipeline; both are read-only inspection over
// objects a Loader has already produced.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"github.com/zboralski/xelf/internal/object"
	"github.com/zboralski/xelf/internal/symfmt"
)

// Hit is the result of resolving an address against a loaded object graph.
type Hit struct {
	Object *object.Object
	Symbol *object.NamedSym
	Offset uint64 // distance from Symbol's value to the queried address
}

// Dig finds which object contains addr and, within it, the closest
// preceding defined symbol (the common "which function is this address
// in" query). It returns ok=false if no loaded object's hull covers addr.
func Dig(objs []*object.Object, address uint64) (Hit, bool) {
	a := addrT(address)
	for _, o := range objs {
		if a < uint64(o.HullStart) || a >= uint64(o.HullEnd) {
			continue
		}
		hit := Hit{Object: o}
		var best *object.NamedSym
		var bestVal uint64
		for i := range o.Syms {
			s := &o.Syms[i]
			if !s.Defined() {
				continue
			}
			val := uint64(o.Base) + s.Sym.Value
			if val <= a && (best == nil || val > bestVal) {
				best = s
				bestVal = val
			}
		}
		if best != nil {
			hit.Symbol = best
			hit.Offset = a - bestVal
		}
		return hit, true
	}
	return Hit{}, false
}

func addrT(a uint64) uint64 { return a }

// String renders a Hit the way a human wants it: object path, demangled
// symbol name, and "+offset" when the address isn't exactly at the
// symbol's start.
func (h Hit) String() string {
	if h.Object == nil {
		return "<unmapped>"
	}
	if h.Symbol == nil {
		return fmt.Sprintf("%s (no symbol)", h.Object.Path)
	}
	name := symfmt.Demangle(h.Symbol.Name.String())
	if h.Offset == 0 {
		return fmt.Sprintf("%s!%s", h.Object.Path, name)
	}
	return fmt.Sprintf("%s!%s+0x%x", h.Object.Path, name, h.Offset)
}

// AddSymbolFileDirectives renders one GDB `add-symbol-file` line per
// loaded object, ordered by load order, each naming the object's `.text`
// load address (its base plus the lowest executable segment's start).
func AddSymbolFileDirectives(objs []*object.Object) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		textAddr := uint64(o.Base)
		for _, s := range o.Segments {
			if s.Exec {
				textAddr = uint64(s.Start)
				break
			}
		}
		out = append(out, fmt.Sprintf("add-symbol-file %s 0x%x", o.Path, textAddr))
	}
	return out
}

// Insn is one decoded instruction at a fixed address, paired with its raw
// encoding for hex-dump style output.
type Insn struct {
	Addr   uint64
	Length int
	Text   string
	Raw    []byte
}

// Disassemble decodes up to count x86-64 instructions starting at the
// segment bytes code, labeling each with addresses starting at startAddr.
// A decode failure at an offset stops the walk there rather than guessing
// resync points; whatever decoded successfully is still returned.
func Disassemble(code []byte, startAddr uint64, count int) []Insn {
	var out []Insn
	off := 0
	for len(out) < count && off < len(code) {
		inst, err := x86asm.Decode(code[off:], 64)
		if err != nil || inst.Len == 0 {
			break
		}
		out = append(out, Insn{
			Addr:   startAddr + uint64(off),
			Length: inst.Len,
			Text:   x86asm.GNUSyntax(inst, startAddr+uint64(off), nil),
			Raw:    append([]byte(nil), code[off:off+inst.Len]...),
		})
		off += inst.Len
	}
	return out
}

// FindSymbolsBySubstring returns every defined symbol across objs whose
// demangled name contains substr (case-insensitive), sorted by name.
func FindSymbolsBySubstring(objs []*object.Object, substr string) []Hit {
	lower := strings.ToLower(substr)
	var out []Hit
	for _, o := range objs {
		for i := range o.Syms {
			s := &o.Syms[i]
			if !s.Defined() {
				continue
			}
			name := symfmt.Demangle(s.Name.String())
			if strings.Contains(strings.ToLower(name), lower) {
				out = append(out, Hit{Object: o, Symbol: s})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Symbol.Name.String() < out[j].Symbol.Name.String()
	})
	return out
}
