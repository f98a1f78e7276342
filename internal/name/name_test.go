package name

import "testing"

func TestNewMappedFindsTerminator(t *testing.T) {
	buf := []byte("abc\x00printf\x00rest")
	n, err := NewMapped(buf, 4)
	if err != nil {
		t.Fatalf("NewMapped: %v", err)
	}
	if n.String() != "printf" {
		t.Fatalf("got %q, want %q", n.String(), "printf")
	}
}

func TestNewMappedNoTerminator(t *testing.T) {
	buf := make([]byte, maxScan+10)
	for i := range buf {
		buf[i] = 'a'
	}
	if _, err := NewMapped(buf, 0); err == nil {
		t.Fatal("expected error for missing NUL within maxScan")
	}
}

func TestNewMappedOffsetOutOfRange(t *testing.T) {
	buf := []byte("abc\x00")
	if _, err := NewMapped(buf, 100); err == nil {
		t.Fatal("expected error for out-of-range offset")
	}
}

func TestOwnedIndependentOfSource(t *testing.T) {
	src := []byte("mutable")
	n := NewOwned(src)
	src[0] = 'X'
	if n.String() != "mutable" {
		t.Fatalf("owned name mutated via source slice: got %q", n.String())
	}
}

func TestEqualAcrossRepresentations(t *testing.T) {
	mapped, err := NewMapped([]byte("foo\x00"), 0)
	if err != nil {
		t.Fatalf("NewMapped: %v", err)
	}
	owned := NewOwned([]byte("foo"))
	if !mapped.Equal(owned) || !owned.Equal(mapped) {
		t.Fatal("expected mapped and owned names with identical content to compare equal")
	}
	other := NewOwned([]byte("bar"))
	if mapped.Equal(other) {
		t.Fatal("expected different content to compare unequal")
	}
}

func TestKeyUsableAsMapKey(t *testing.T) {
	a := NewOwned([]byte("sym"))
	b := NewOwned([]byte("sym"))
	m := map[string]int{}
	m[Key(a)] = 1
	m[Key(b)] = 2
	if len(m) != 1 {
		t.Fatalf("expected Key to collapse equal-content names to one map entry, got %d", len(m))
	}
}
