// Package symfmt presents symbol names for humans: it demangles Itanium
// C++ ABI names where possible and falls back to the raw name otherwise.
// Used by the relocation engine's failure diagnostics and by the dig/
// autosym external-CLI collaborators.
package symfmt

import "github.com/ianlancetaylor/demangle"

// Demangle returns a demangled form of name if it looks like a mangled
// Itanium C++ symbol (starts with "_Z"), otherwise returns name unchanged.
func Demangle(name string) string {
	if len(name) < 2 || name[0] != '_' || name[1] != 'Z' {
		return name
	}
	out, err := demangle.ToString(name, demangle.NoParams)
	if err != nil {
		return name
	}
	return out
}
