package start

import (
	"testing"

	"github.com/zboralski/xelf/internal/addr"
)

func addrsOf(vs []uint64) []addr.Addr {
	out := make([]addr.Addr, len(vs))
	for i, v := range vs {
		out[i] = addr.Addr(v)
	}
	return out
}

func TestHostAuxvReadsRecognizedTypes(t *testing.T) {
	auxv, err := HostAuxv()
	if err != nil {
		t.Fatalf("HostAuxv: %v", err)
	}
	if len(auxv) == 0 {
		t.Fatal("expected at least one recognized, nonzero auxv entry on a real Linux host")
	}
	for _, pair := range auxv {
		if pair[1] == 0 {
			t.Fatalf("HostAuxv returned a zero-value entry for type %d, which should have been filtered", pair[0])
		}
	}
}

func TestStringsRoundTrip(t *testing.T) {
	in := []string{"/bin/prog", "--flag", "value"}
	addrs, err := Strings(in)
	if err != nil {
		t.Fatalf("Strings: %v", err)
	}
	if len(addrs) != len(in) {
		t.Fatalf("got %d addresses, want %d", len(addrs), len(in))
	}
	for i, s := range in {
		got := addrs[i].Slice(len(s))
		if string(got) != s {
			t.Fatalf("string %d: got %q, want %q", i, got, s)
		}
		// NUL terminator directly follows.
		if addrs[i].Add(uint64(len(s))).Slice(1)[0] != 0 {
			t.Fatalf("string %d: missing NUL terminator", i)
		}
	}
}

func TestStringsEmpty(t *testing.T) {
	addrs, err := Strings(nil)
	if err != nil {
		t.Fatalf("Strings(nil): %v", err)
	}
	if addrs != nil {
		t.Fatalf("expected nil addresses for empty input, got %v", addrs)
	}
}

func TestBuildStackLayout(t *testing.T) {
	argv := addrsOf([]uint64{0x1000, 0x1010})
	envp := addrsOf([]uint64{0x2000})
	auxv := [][2]uint64{{atPagesz, 4096}}

	words := BuildStack(argv, envp, auxv)

	// argc
	if words[0] != 2 {
		t.Fatalf("argc: got %d, want 2", words[0])
	}
	// argv pointers + NUL
	if words[1] != 0x1000 || words[2] != 0x1010 || words[3] != 0 {
		t.Fatalf("argv region: got %v", words[1:4])
	}
	// envp pointer + NUL
	if words[4] != 0x2000 || words[5] != 0 {
		t.Fatalf("envp region: got %v", words[4:6])
	}
	// auxv pair + AT_NULL terminator
	if words[6] != atPagesz || words[7] != 4096 {
		t.Fatalf("auxv pair: got %v", words[6:8])
	}
	if words[8] != atNull || words[9] != 0 {
		t.Fatalf("auxv terminator: got %v", words[8:10])
	}
	if len(words)%2 != 0 {
		t.Fatalf("expected 16-byte-aligned word count, got %d words", len(words))
	}
}
