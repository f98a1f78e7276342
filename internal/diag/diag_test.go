package diag

import (
	"debug/elf"
	"testing"

	"github.com/zboralski/xelf/internal/addr"
	"github.com/zboralski/xelf/internal/name"
	"github.com/zboralski/xelf/internal/object"
)

func buildObject(path string, base uint64, hullEnd uint64) *object.Object {
	o := object.New(path, addr.Addr(base), nil)
	o.HullStart = addr.Addr(base)
	o.HullEnd = addr.Addr(hullEnd)
	return o
}

func TestDigFindsContainingObjectAndSymbol(t *testing.T) {
	o := buildObject("/lib/libfoo.so", 0x7f0000, 0x7f0000+0x2000)
	o.AddSym(object.NamedSym{
		Sym:  elf.Symbol{Value: 0x100, Section: elf.SectionIndex(1)},
		Name: name.NewOwned([]byte("do_thing")),
	})
	o.AddSym(object.NamedSym{
		Sym:  elf.Symbol{Value: 0x200, Section: elf.SectionIndex(1)},
		Name: name.NewOwned([]byte("do_other_thing")),
	})

	hit, ok := Dig([]*object.Object{o}, 0x7f0000+0x210)
	if !ok {
		t.Fatal("expected Dig to find an object covering this address")
	}
	if hit.Symbol == nil || hit.Symbol.Name.String() != "do_other_thing" {
		t.Fatalf("expected nearest preceding symbol do_other_thing, got %+v", hit.Symbol)
	}
	if hit.Offset != 0x10 {
		t.Fatalf("offset: got 0x%x, want 0x10", hit.Offset)
	}
}

func TestDigOutOfRange(t *testing.T) {
	o := buildObject("/lib/libfoo.so", 0x7f0000, 0x7f0000+0x1000)
	if _, ok := Dig([]*object.Object{o}, 0x800000); ok {
		t.Fatal("expected Dig to report no match for an address outside every object's hull")
	}
}

func TestAddSymbolFileDirectives(t *testing.T) {
	o := buildObject("/bin/prog", 0x400000, 0x401000)
	o.Segments = append(o.Segments, &object.Segment{
		Start: addr.Addr(0x400000),
		End:   addr.Addr(0x400fff),
		Exec:  true,
	})
	lines := AddSymbolFileDirectives([]*object.Object{o})
	if len(lines) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(lines))
	}
	want := "add-symbol-file /bin/prog 0x400000"
	if lines[0] != want {
		t.Fatalf("got %q, want %q", lines[0], want)
	}
}

func TestFindSymbolsBySubstring(t *testing.T) {
	o := buildObject("/lib/libfoo.so", 0x1000, 0x2000)
	o.AddSym(object.NamedSym{Sym: elf.Symbol{Section: elf.SectionIndex(1)}, Name: name.NewOwned([]byte("read_file"))})
	o.AddSym(object.NamedSym{Sym: elf.Symbol{Section: elf.SectionIndex(1)}, Name: name.NewOwned([]byte("write_file"))})
	o.AddSym(object.NamedSym{Sym: elf.Symbol{Section: elf.SHN_UNDEF}, Name: name.NewOwned([]byte("read_socket"))})

	hits := FindSymbolsBySubstring([]*object.Object{o}, "read")
	if len(hits) != 1 {
		t.Fatalf("expected 1 defined match for 'read', got %d", len(hits))
	}
	if hits[0].Symbol.Name.String() != "read_file" {
		t.Fatalf("got %q, want read_file", hits[0].Symbol.Name.String())
	}
}

func TestDisassembleDecodesKnownBytes(t *testing.T) {
	// mov rax, 0x2a; ret
	code := []byte{0x48, 0xc7, 0xc0, 0x2a, 0x00, 0x00, 0x00, 0xc3}
	insns := Disassemble(code, 0x1000, 10)
	if len(insns) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(insns))
	}
	if insns[0].Addr != 0x1000 || insns[0].Length != 7 {
		t.Fatalf("first insn: got addr=0x%x len=%d, want addr=0x1000 len=7", insns[0].Addr, insns[0].Length)
	}
	if insns[1].Addr != 0x1007 || insns[1].Length != 1 {
		t.Fatalf("second insn: got addr=0x%x len=%d, want addr=0x1007 len=1", insns[1].Addr, insns[1].Length)
	}
}

func TestDisassembleRespectsCount(t *testing.T) {
	code := []byte{0xc3, 0xc3, 0xc3, 0xc3} // four ret instructions
	insns := Disassemble(code, 0, 2)
	if len(insns) != 2 {
		t.Fatalf("expected count to cap decoding at 2, got %d", len(insns))
	}
}
