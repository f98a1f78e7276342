// Package protect applies final page protections to every mapped segment
// of every loaded object. This runs last, after relocation and TLS
// initialization: once applied, segments marked read-only can no longer be
// patched.
package protect

import (
	"github.com/zboralski/xelf/internal/loaderr"
	"github.com/zboralski/xelf/internal/mmapio"
	"github.com/zboralski/xelf/internal/object"
)

// Apply sets final POSIX protection bits on every segment of every object,
// derived from the segment's ELF R/W/X flags.
func Apply(objs []*object.Object) error {
	for _, o := range objs {
		for _, s := range o.Segments {
			prot := mmapio.ProtectionBits(s.Read, s.Write, s.Exec)
			size := uint64(s.Mapping.Len)
			if err := mmapio.Protect(s.Mapping.Addr, size, prot); err != nil {
				return loaderr.Pathf(loaderr.MappingFailure, o.Path, err)
			}
		}
	}
	return nil
}
