package ast

import (
	"github.com/jndean/Railway/railerr"
	"github.com/jndean/Railway/scope"
)

// Stmt is any executable statement. Eval runs it in the given
// direction and returns the direction execution should continue in
// afterwards — ordinarily the same as backwards, except for
// constructs that can themselves flip the arrow of time (DoUndo,
// Try, and anything whose body is run through RunLines and flips
// inside it) §4.3/§4.5.
type Stmt interface {
	Eval(s *scope.Scope, backwards bool) (bool, error)
}

// RunLines is the single direction-aware line-runner used by every
// construct that owns a statement sequence: Function bodies, If
// branches, Loop bodies, For/Try bodies, DoUndo's do/yield blocks, and
// Mutex bodies (§4.5). It walks the sequence forward from index 0 or
// backward from the last index, and is the one place that detects a
// direction flip: if a line returns a different direction than it was
// given, and any mono variable is currently live in s, that is a
// direction-change error (mono variables must not witness the flip).
func RunLines(lines []Stmt, s *scope.Scope, backwards bool) (bool, error) {
	n := len(lines)
	if n == 0 {
		return backwards, nil
	}
	idx := 0
	if backwards {
		idx = n - 1
	}
	for idx >= 0 && idx < n {
		newDir, err := lines[idx].Eval(s, backwards)
		if err != nil {
			return backwards, err
		}
		if newDir != backwards {
			if s.HasLiveMono() {
				return backwards, railerr.New(railerr.DirectionChange, s.Trace(),
					"direction changed while mono variable(s) %v are live", s.MonoNames())
			}
			backwards = newDir
		}
		if backwards {
			idx--
		} else {
			idx++
		}
	}
	return backwards, nil
}
