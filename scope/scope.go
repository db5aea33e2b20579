// Package scope implements Railway's three-namespace variable table
// (locals, monos, globals) and the ownership bookkeeping attached to
// each binding (§3, §4.2 of SPEC_FULL.md).
package scope

import (
	"fmt"
	"io"
	"os"

	"github.com/jndean/Railway/concurrency"
	"github.com/jndean/Railway/railerr"
	"github.com/jndean/Railway/value"
)

// Variable is a single binding: the memory it refers to, and the
// ownership/mono-ness flags that govern what statements may do with
// it (§3).
type Variable struct {
	Mem      *value.Cell
	IsMono   bool
	Borrowed bool
}

// Globals holds module-level bindings, shared by every Scope spawned
// from the same module (§8). It has no lock of its own: parallel
// threads (§5.4) only read the map, and Railway has no syntax for
// binding a global after module-init, so Define is only ever called
// during Load, before any thread starts.
type Globals struct {
	vars map[string]*Variable
}

// NewGlobals builds an empty global table.
func NewGlobals() *Globals {
	return &Globals{vars: make(map[string]*Variable)}
}

// Define installs a new global binding, used only during module-init
// (§8). Returns a NameClash error if the name is already bound.
func (g *Globals) Define(name string, v *Variable) error {
	if _, exists := g.vars[name]; exists {
		return railerr.New(railerr.NameClash, nil, "global %q is already defined", name)
	}
	g.vars[name] = v
	return nil
}

func (g *Globals) lookup(name string) (*Variable, bool) {
	v, ok := g.vars[name]
	return v, ok
}

// All returns a copy of every currently-defined global binding, used
// by the module loader to merge an imported module's globals into the
// importer's namespace (§4.8).
func (g *Globals) All() map[string]*Variable {
	out := make(map[string]*Variable, len(g.vars))
	for name, v := range g.vars {
		out[name] = v
	}
	return out
}

// Scope is one function-call activation record: its own locals and
// monos, a handle to the shared Globals, and the thread/call context
// needed to build a railerr.Frame stack trace.
type Scope struct {
	Parent *Scope
	Function string
	Thread   int
	Globals  *Globals

	// ThreadIndex and ThreadCount back the `thread_id`/`num_threads`
	// expressions (§4.4). Both are -1 outside a parallel call; a
	// parallel worker's scope has them set to its 0-based index and the
	// call's thread count.
	ThreadIndex int
	ThreadCount int

	// Coordinator is non-nil exactly when this scope belongs to a
	// worker spawned by a parallel CallBlock (§4.7); it is the shared
	// handle barrier/mutex statements use to find their named
	// instance. Nil outside any parallel call.
	Coordinator *concurrency.Coordinator

	// Writer is where Print/Println send output (§6.4). Nil means
	// "ask Parent"; if no scope in the chain sets it, Output() falls
	// back to os.Stdout. module.Load leaves it nil; tests can set it on
	// a root scope to capture output deterministically instead of
	// writing through a bare global fmt.Println.
	Writer io.Writer

	locals map[string]*Variable
	monos  map[string]*Variable
}

// New builds a fresh activation record for a call to function, on the
// given thread id (§5.3; 0 outside any parallel construct). ThreadIndex
// and ThreadCount default to -1 (the "not parallel" sentinel, §4.4);
// callers spawning parallel workers set them explicitly afterwards.
func New(function string, thread int, globals *Globals, parent *Scope) *Scope {
	return &Scope{
		Parent:      parent,
		Function:    function,
		Thread:      thread,
		Globals:     globals,
		ThreadIndex: -1,
		ThreadCount: -1,
		locals:      make(map[string]*Variable),
		monos:       make(map[string]*Variable),
	}
}

// Output returns where Print/Println should write, resolving up the
// Parent chain and defaulting to os.Stdout if no scope in the chain
// has an explicit Writer.
func (s *Scope) Output() io.Writer {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Writer != nil {
			return cur.Writer
		}
	}
	return os.Stdout
}

// IsMonoName reports whether name denotes the mono namespace (§3:
// names beginning with '.'). Exported so callers outside this package
// (e.g. ast's binding sites) can tag a *Variable's IsMono flag
// consistently with how it will be looked up.
func IsMonoName(name string) bool {
	return len(name) > 0 && name[0] == '.'
}

// isMonoName is kept as an unexported alias for in-package call sites.
func isMonoName(name string) bool {
	return IsMonoName(name)
}

// Lookup resolves name against monos, then locals, then globals, per
// §3's namespace precedence.
func (s *Scope) Lookup(name string) (*Variable, error) {
	if isMonoName(name) {
		if v, ok := s.monos[name]; ok {
			return v, nil
		}
		return nil, railerr.New(railerr.UndefinedVariable, s.Trace(), "mono variable %q is not defined", name)
	}
	if v, ok := s.locals[name]; ok {
		return v, nil
	}
	if v, ok := s.Globals.lookup(name); ok {
		return v, nil
	}
	return nil, railerr.New(railerr.UndefinedVariable, s.Trace(), "variable %q is not defined", name)
}

// Assign installs a new binding for name, routing it to the mono or
// local namespace by its leading character, and rejecting a name
// already bound in that namespace (§4.2's `let`/`unlet` NameClash
// check is performed by the caller, which knows the statement kind;
// Assign itself only protects the namespace invariant).
func (s *Scope) Assign(name string, v *Variable) error {
	if isMonoName(name) {
		if _, exists := s.monos[name]; exists {
			return railerr.New(railerr.NameClash, s.Trace(), "mono variable %q is already defined", name)
		}
		s.monos[name] = v
		return nil
	}
	if _, exists := s.locals[name]; exists {
		return railerr.New(railerr.NameClash, s.Trace(), "variable %q is already defined", name)
	}
	s.locals[name] = v
	return nil
}

// Remove deletes a binding (used by `unlet`), returning the Variable
// that was bound so the caller can validate its shape/ownership before
// discarding it.
func (s *Scope) Remove(name string) (*Variable, error) {
	if isMonoName(name) {
		v, ok := s.monos[name]
		if !ok {
			return nil, railerr.New(railerr.UndefinedVariable, s.Trace(), "mono variable %q is not defined", name)
		}
		delete(s.monos, name)
		return v, nil
	}
	v, ok := s.locals[name]
	if !ok {
		return nil, railerr.New(railerr.UndefinedVariable, s.Trace(), "variable %q is not defined", name)
	}
	delete(s.locals, name)
	return v, nil
}

// LocalNames returns the current non-mono local variable names, used
// by Function's end-of-body leaked-information check (§4.5).
func (s *Scope) LocalNames() []string {
	names := make([]string, 0, len(s.locals))
	for n := range s.locals {
		names = append(names, n)
	}
	return names
}

// HasLiveMono reports whether any mono variable is currently bound in
// this scope, used by the direction controller to forbid a direction
// flip while mono information is live (§4.4/§5.2).
func (s *Scope) HasLiveMono() bool {
	return len(s.monos) > 0
}

// MonoNames returns the currently bound mono variable names, used by
// DoUndo's own direction-change check (§5.2) to report which names
// leaked.
func (s *Scope) MonoNames() []string {
	names := make([]string, 0, len(s.monos))
	for n := range s.monos {
		names = append(names, n)
	}
	return names
}

// Trace walks the scope chain from s to the root, producing the stack
// trace attached to any railerr.Error raised while s is active. Frames
// are ordered innermost-first (most recent call first).
func (s *Scope) Trace() []railerr.Frame {
	var frames []railerr.Frame
	for cur := s; cur != nil; cur = cur.Parent {
		frames = append(frames, railerr.Frame{Function: cur.Function, Thread: cur.Thread})
	}
	return frames
}

// String renders a Scope for debugging (never used in user-facing
// output).
func (s *Scope) String() string {
	return fmt.Sprintf("scope(%s, thread=%d, locals=%d, monos=%d)", s.Function, s.Thread, len(s.locals), len(s.monos))
}
