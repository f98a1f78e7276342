// Package process implements the staged loader state machine:
// Loading -> TLSAllocated -> Relocated -> TLSInitialized -> Protected ->
// start (noreturn). Each phase is a distinct Go type exposing only the
// single method that advances it, so calling a phase's method out of order
// is a compile-time type error (there is no method to skip to). Go has no
// affine/linear types, so each transition also consumes its receiver at
// runtime: it marks the value used and panics on a second call, which is
// the "explicit runtime phase enum with assertions" fallback the design
// calls for when the host language lacks move semantics.
package process

import (
	"fmt"

	"github.com/zboralski/xelf/internal/addr"
	"github.com/zboralski/xelf/internal/object"
	"github.com/zboralski/xelf/internal/protect"
	"github.com/zboralski/xelf/internal/reloc"
	"github.com/zboralski/xelf/internal/tls"
	"github.com/zboralski/xelf/internal/xlog"
)

type stage struct {
	used bool
}

func (s *stage) consume(phase string) {
	if s.used {
		panic("process: " + phase + " phase reused after transition")
	}
	s.used = true
}

// Loading is the initial phase: objects are loaded and dependency-closed,
// but no TLS, relocation, or protection work has happened yet.
type Loading struct {
	stage
	Objects []*object.Object
	Log     *xlog.Logger
}

// New wraps an already dependency-closed object list as the Loading phase.
func New(objs []*object.Object, log *xlog.Logger) *Loading {
	if log == nil {
		log = xlog.NewNop()
	}
	return &Loading{Objects: objs, Log: log}
}

// AllocateTLS reserves the TLS block and advances to TLSAllocated.
func (l *Loading) AllocateTLS() (*TLSAllocated, error) {
	l.consume("Loading")
	l.Log.Phase("TLSAllocated")
	block, err := tls.Allocate(l.Objects)
	if err != nil {
		return nil, fmt.Errorf("allocate tls: %w", err)
	}
	return &TLSAllocated{Objects: l.Objects, Block: block, Log: l.Log}, nil
}

// TLSAllocated: the TLS block exists with its offsets assigned, but
// relocations have not yet been applied.
type TLSAllocated struct {
	stage
	Objects []*object.Object
	Block   *tls.Block
	Log     *xlog.Logger
}

// Relocate applies every relocation record of every object and advances to
// Relocated. callIFunc resolves R_X86_64_IRELATIVE targets.
func (t *TLSAllocated) Relocate(callIFunc reloc.IFunc) (*Relocated, error) {
	t.consume("TLSAllocated")
	t.Log.Phase("Relocated")
	if err := reloc.ApplyAll(t.Objects, t.Block.Offsets, callIFunc, t.Log); err != nil {
		return nil, fmt.Errorf("apply relocations: %w", err)
	}
	return &Relocated{Objects: t.Objects, Block: t.Block, Log: t.Log}, nil
}

// Relocated: every relocation has been applied exactly once; TLS template
// data has not yet been copied in.
type Relocated struct {
	stage
	Objects []*object.Object
	Block   *tls.Block
	Log     *xlog.Logger
}

// InitializeTLS copies PT_TLS template data into the TLS block and
// advances to TLSInitialized.
func (r *Relocated) InitializeTLS() (*TLSInitialized, error) {
	r.consume("Relocated")
	r.Log.Phase("TLSInitialized")
	tls.Initialize(r.Objects, r.Block)
	return &TLSInitialized{Objects: r.Objects, Block: r.Block, Log: r.Log}, nil
}

// TLSInitialized: all guest-visible state is correct, but segment
// protections are still the permissive RWX the loader used while writing.
type TLSInitialized struct {
	stage
	Objects []*object.Object
	Block   *tls.Block
	Log     *xlog.Logger
}

// Protect applies final page protections and advances to Protected.
func (t *TLSInitialized) Protect() (*Protected, error) {
	t.consume("TLSInitialized")
	t.Log.Phase("Protected")
	if err := protect.Apply(t.Objects); err != nil {
		return nil, fmt.Errorf("adjust protections: %w", err)
	}
	return &Protected{Objects: t.Objects, Block: t.Block, Log: t.Log}, nil
}

// Protected is the terminal phase before start: everything the guest will
// ever observe is finalized. Its only valid next step is handing TCBAddr
// to package start (InstallTCB, then Jump, which never returns).
type Protected struct {
	stage
	Objects []*object.Object
	Block   *tls.Block
	Log     *xlog.Logger
}

// TCBAddr returns the address to install into %fs.
func (p *Protected) TCBAddr() addr.Addr {
	return p.Block.TCBAddr
}
