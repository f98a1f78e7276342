package xlog

import "testing"

func TestHexFormatting(t *testing.T) {
	cases := map[uint64]string{
		0:      "0x0",
		255:    "0xff",
		0x1000: "0x1000",
	}
	for in, want := range cases {
		if got := Hex(in); got != want {
			t.Fatalf("Hex(%d): got %q, want %q", in, got, want)
		}
	}
}

func TestNewNopDoesNotPanic(t *testing.T) {
	l := NewNop()
	l.Phase("Loading")
	l.Segment("/lib/x.so", 0x1000, 0x2000, "r-x")
	l.Reloc("GLOB_DAT", 0x3000)
	l.RelocFailure("GLOB_DAT", "missing_symbol", nil)
}

func TestWithObjectDoesNotMutateParent(t *testing.T) {
	base := NewNop()
	child := base.WithObject("/lib/libc.so.6")
	if child == base {
		t.Fatal("expected WithObject to return a distinct logger")
	}
}
