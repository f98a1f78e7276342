package elfview

import "testing"

// candidateBinaries lists real ELF64 x86-64 objects likely present on any
// Linux dev or CI host. Tests skip (not fail) if none exist, since this
// package's only job is parsing real files and there is no safe way to
// hand-construct a byte-exact ELF64 dynamic executable without a toolchain.
var candidateBinaries = []string{
	"/bin/true",
	"/usr/bin/true",
	"/bin/ls",
	"/usr/bin/ls",
	"/lib/x86_64-linux-gnu/libc.so.6",
	"/usr/lib/x86_64-linux-gnu/libc.so.6",
}

func findCandidate(t *testing.T) string {
	t.Helper()
	for _, p := range candidateBinaries {
		if _, err := Open(p); err == nil {
			return p
		}
	}
	t.Skip("no real ELF64 x86-64 binary found on this host to parse")
	return ""
}

func TestOpenParsesSegments(t *testing.T) {
	path := findCandidate(t)
	v, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	if len(v.Segs) == 0 {
		t.Fatal("expected at least one PT_LOAD segment")
	}
	lo, hi := v.MemHull()
	if hi <= lo {
		t.Fatalf("MemHull: got [0x%x, 0x%x), want hi > lo", lo, hi)
	}
	if v.Path() != path {
		t.Fatalf("Path(): got %q, want %q", v.Path(), path)
	}
}

func TestOpenRejectsNonELF(t *testing.T) {
	if _, err := Open("/dev/null"); err == nil {
		t.Fatal("expected Open to reject a non-ELF file")
	}
}

func TestOpenRejectsMissingFile(t *testing.T) {
	if _, err := Open("/nonexistent/path/to/nothing"); err == nil {
		t.Fatal("expected Open to fail for a missing file")
	}
}

func TestDynamicSymbolNameOffsetsParallelDynSyms(t *testing.T) {
	path := findCandidate(t)
	v, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s): %v", path, err)
	}
	if len(v.DynSyms) == 0 {
		t.Skip("no dynamic symbols in this binary")
	}
	if len(v.DynSymNameOff) != len(v.DynSyms) {
		t.Fatalf("DynSymNameOff len %d != DynSyms len %d", len(v.DynSymNameOff), len(v.DynSyms))
	}
}
