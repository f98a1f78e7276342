package reloc

import (
	"debug/elf"
	"testing"

	"github.com/zboralski/xelf/internal/addr"
	"github.com/zboralski/xelf/internal/mmapio"
	"github.com/zboralski/xelf/internal/name"
	"github.com/zboralski/xelf/internal/object"
	"github.com/zboralski/xelf/internal/xlog"
)

// newBackedObject allocates a real writable page and returns an Object
// whose Base points at it, so relocation targets are valid memory.
func newBackedObject(t *testing.T, path string) *object.Object {
	t.Helper()
	m, err := mmapio.ReserveAnon(4096)
	if err != nil {
		t.Fatalf("ReserveAnon: %v", err)
	}
	return object.New(path, addr.Addr(uint64(m.Addr)), nil)
}

func TestApplyRelative(t *testing.T) {
	o := newBackedObject(t, "/a.so")
	o.Relocs = append(o.Relocs, object.Reloc{Offset: 0x10, Type: R_X86_64_RELATIVE, Addend: 0x55})

	if err := ApplyAll([]*object.Object{o}, nil, nil, xlog.NewNop()); err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}
	got := o.Base.Add(0x10).ReadUint64()
	if got != uint64(o.Base)+0x55 {
		t.Fatalf("RELATIVE: got 0x%x, want 0x%x", got, uint64(o.Base)+0x55)
	}
}

func TestApplyGlobDatResolvesAcrossObjects(t *testing.T) {
	provider := newBackedObject(t, "/libc.so")
	provider.AddSym(object.NamedSym{
		Sym:  elf.Symbol{Name: "foo", Value: 0x40, Section: elf.SectionIndex(1)},
		Name: name.NewOwned([]byte("foo")),
	})

	consumer := newBackedObject(t, "/main")
	consumer.AddSym(object.NamedSym{
		Sym:  elf.Symbol{Name: "foo", Section: elf.SHN_UNDEF}, // undefined reference
		Name: name.NewOwned([]byte("foo")),
	})
	consumer.Relocs = append(consumer.Relocs, object.Reloc{
		Offset: 0x8, Type: R_X86_64_GLOB_DAT, SymIdx: 1, // 1-based: Syms[0]
	})

	objs := []*object.Object{provider, consumer}
	if err := ApplyAll(objs, nil, nil, xlog.NewNop()); err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}

	want := uint64(provider.Base) + 0x40
	got := consumer.Base.Add(0x8).ReadUint64()
	if got != want {
		t.Fatalf("GLOB_DAT: got 0x%x, want 0x%x", got, want)
	}
}

func TestApplyUndefinedStrongSymbolFails(t *testing.T) {
	o := newBackedObject(t, "/main")
	o.AddSym(object.NamedSym{
		Sym:  elf.Symbol{Name: "missing", Info: uint8(elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC)), Section: elf.SHN_UNDEF},
		Name: name.NewOwned([]byte("missing")),
	})
	o.Relocs = append(o.Relocs, object.Reloc{Offset: 0x8, Type: R_X86_64_GLOB_DAT, SymIdx: 1})

	err := ApplyAll([]*object.Object{o}, nil, nil, xlog.NewNop())
	if err == nil {
		t.Fatal("expected an error for an undefined strong (non-weak) symbol")
	}
}

func TestApplyUndefinedWeakSymbolResolvesToZero(t *testing.T) {
	o := newBackedObject(t, "/main")
	o.AddSym(object.NamedSym{
		Sym:  elf.Symbol{Name: "weakthing", Info: uint8(elf.ST_INFO(elf.STB_WEAK, elf.STT_FUNC)), Section: elf.SHN_UNDEF},
		Name: name.NewOwned([]byte("weakthing")),
	})
	o.Relocs = append(o.Relocs, object.Reloc{Offset: 0x8, Type: R_X86_64_GLOB_DAT, SymIdx: 1})

	if err := ApplyAll([]*object.Object{o}, nil, nil, xlog.NewNop()); err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}
	if got := o.Base.Add(0x8).ReadUint64(); got != 0 {
		t.Fatalf("weak undefined GLOB_DAT: got 0x%x, want 0", got)
	}
}

func TestApplyIRelativeCallsResolver(t *testing.T) {
	o := newBackedObject(t, "/main")
	o.Relocs = append(o.Relocs, object.Reloc{Offset: 0x10, Type: R_X86_64_IRELATIVE, Addend: 7})

	called := false
	resolver := func(target addr.Addr) addr.Addr {
		called = true
		if target != o.Base.AddSigned(7) {
			t.Fatalf("resolver called with 0x%x, want 0x%x", uint64(target), uint64(o.Base.AddSigned(7)))
		}
		return addr.Addr(0xabc)
	}

	if err := ApplyAll([]*object.Object{o}, nil, resolver, xlog.NewNop()); err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}
	if !called {
		t.Fatal("expected the ifunc resolver to be called")
	}
	if got := o.Base.Add(0x10).ReadUint64(); got != 0xabc {
		t.Fatalf("IRELATIVE: got 0x%x, want 0xabc", got)
	}
}
