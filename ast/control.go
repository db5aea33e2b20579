package ast

import (
	"errors"

	"github.com/jndean/Railway/concurrency"
	"github.com/jndean/Railway/railerr"
	"github.com/jndean/Railway/scope"
)

func evalTruth(s *scope.Scope, e Expr) (bool, error) {
	c, err := e.Eval(s)
	if err != nil {
		return false, err
	}
	n, err := asNumber(s, c)
	if err != nil {
		return false, err
	}
	return n.Truth(), nil
}

// If implements §4.3's if/fi. ModReverse gates the backward no-op
// (not Mono, per the resolved ambiguity in SPEC_FULL.md §4.3); Mono
// additionally skips the exit assertion (enter_expr and exit_expr
// coincide by construction in that case).
type If struct {
	EnterExpr, ExitExpr Expr
	ThenLines, ElseLines []Stmt
	Mono, ModReverse      bool
}

func (i *If) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if backwards && !i.ModReverse {
		return backwards, nil
	}
	pickExpr := i.EnterExpr
	if backwards {
		pickExpr = i.ExitExpr
	}
	pickVal, err := evalTruth(s, pickExpr)
	if err != nil {
		return backwards, err
	}
	branch := i.ElseLines
	if pickVal {
		branch = i.ThenLines
	}
	finalDir, err := RunLines(branch, s, backwards)
	if err != nil {
		return finalDir, err
	}
	if i.Mono {
		return finalDir, nil
	}
	assertExpr := i.ExitExpr
	if finalDir {
		assertExpr = i.EnterExpr
	}
	assertVal, err := evalTruth(s, assertExpr)
	if err != nil {
		return finalDir, err
	}
	if assertVal != pickVal {
		return finalDir, railerr.New(railerr.FailedAssertion, s.Trace(), "if exit assertion disagreed with entry condition")
	}
	return finalDir, nil
}

// Loop implements §4.3's loop/pool. A mono loop carries only
// ForwardCond (BackwardCond nil) and skips both assertions; ModReverse
// gates the backward no-op, mirroring If.
type Loop struct {
	ForwardCond, BackwardCond Expr
	Body                      []Stmt
	Mono, ModReverse          bool
}

func (lp *Loop) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if backwards && !lp.ModReverse {
		return backwards, nil
	}
	dir := backwards
	if !lp.Mono {
		checkExpr := lp.BackwardCond
		if dir {
			checkExpr = lp.ForwardCond
		}
		v, err := evalTruth(s, checkExpr)
		if err != nil {
			return dir, err
		}
		if v {
			return dir, railerr.New(railerr.FailedAssertion, s.Trace(), "loop entry assertion failed")
		}
	}
	for {
		condExpr := lp.ForwardCond
		if dir {
			condExpr = lp.BackwardCond
		}
		v, err := evalTruth(s, condExpr)
		if err != nil {
			return dir, err
		}
		if !v {
			break
		}
		newDir, err := RunLines(lp.Body, s, dir)
		if err != nil {
			return newDir, err
		}
		dir = newDir
		if !lp.Mono {
			assertExpr := lp.BackwardCond
			if dir {
				assertExpr = lp.ForwardCond
			}
			v2, err := evalTruth(s, assertExpr)
			if err != nil {
				return dir, err
			}
			if !v2 {
				return dir, railerr.New(railerr.FailedAssertion, s.Trace(), "loop exit assertion failed")
			}
		}
	}
	return dir, nil
}

// For implements §4.3's for/rof. Never skipped outright: its own
// bidirectional semantics (iterate in reverse order when running
// backward) govern both directions.
type For struct {
	Var  string
	Iter Expr
	Body []Stmt
}

func (f *For) Eval(s *scope.Scope, backwards bool) (bool, error) {
	it, err := Iterate(f.Iter, s)
	if err != nil {
		return backwards, err
	}
	n := it.Len()
	dir := backwards
	for step := 0; step < n; step++ {
		idx := step
		if backwards {
			idx = n - 1 - step
		}
		elem := it.At(idx)
		if err := s.Assign(f.Var, &scope.Variable{Mem: elem, Borrowed: true}); err != nil {
			return dir, err
		}
		newDir, err := RunLines(f.Body, s, dir)
		if err != nil {
			return newDir, err
		}
		dir = newDir
		cur, err := s.Lookup(f.Var)
		if err != nil {
			return dir, err
		}
		expected := it.At(idx)
		if !cur.Mem.DeepEqual(expected) {
			return dir, railerr.New(railerr.FailedAssertion, s.Trace(), "for-loop variable %q diverged from its iterator element", f.Var)
		}
		if _, err := s.Remove(f.Var); err != nil {
			return dir, err
		}
	}
	return dir, nil
}

// errCatch is the sentinel a Catch statement returns to signal "reject
// this attempt"; Try intercepts it and never lets it escape as a
// program-visible error.
var errCatch = errors.New("ast: try element rejected by catch")

// Catch implements §4.3's catch(expr), legal only inside a Try body.
// It has no backward effect.
type Catch struct {
	Cond Expr
}

func (c *Catch) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if backwards {
		return backwards, nil
	}
	reject, err := evalTruth(s, c.Cond)
	if err != nil {
		return backwards, err
	}
	if reject {
		return backwards, errCatch
	}
	return backwards, nil
}

// Try implements §4.3's try/yrt, including the reverse-replay
// protocol described there: reversing a Try re-enters the body with
// each iterator element running FORWARDS to relocate the same
// acceptance, then runs the accepted body backward to remove its
// residue.
type Try struct {
	Var  string
	Iter Expr
	Body []Stmt
}

func (t *Try) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if backwards {
		return t.reverse(s)
	}
	return t.forward(s)
}

func (t *Try) forward(s *scope.Scope) (bool, error) {
	it, err := Iterate(t.Iter, s)
	if err != nil {
		return false, err
	}
	for idx := 0; idx < it.Len(); idx++ {
		elem := it.At(idx)
		if err := s.Assign(t.Var, &scope.Variable{Mem: elem, Borrowed: true}); err != nil {
			return false, err
		}
		dir, err := RunLines(t.Body, s, false)
		if err == errCatch {
			if _, rmErr := s.Remove(t.Var); rmErr != nil {
				return false, rmErr
			}
			continue
		}
		if err != nil {
			return dir, err
		}
		accepted := elem.DeepCopy()
		if _, err := s.Remove(t.Var); err != nil {
			return dir, err
		}
		if err := s.Assign(t.Var, &scope.Variable{Mem: accepted, IsMono: scope.IsMonoName(t.Var)}); err != nil {
			return dir, err
		}
		return dir, nil
	}
	return false, railerr.New(railerr.ExhaustedTry, s.Trace(), "try iterator exhausted without an accepted element")
}

func (t *Try) reverse(s *scope.Scope) (bool, error) {
	recorded, err := s.Lookup(t.Var)
	if err != nil {
		return true, err
	}
	recordedVal := recorded.Mem.DeepCopy()
	if _, err := s.Remove(t.Var); err != nil {
		return true, err
	}
	it, err := Iterate(t.Iter, s)
	if err != nil {
		return true, err
	}
	for idx := 0; idx < it.Len(); idx++ {
		elem := it.At(idx)
		if err := s.Assign(t.Var, &scope.Variable{Mem: elem, Borrowed: true}); err != nil {
			return true, err
		}
		_, err := RunLines(t.Body, s, false)
		if err == errCatch {
			if _, rmErr := s.Remove(t.Var); rmErr != nil {
				return true, rmErr
			}
			continue
		}
		if err != nil {
			return true, err
		}
		if !elem.DeepEqual(recordedVal) {
			return true, railerr.New(railerr.TryReverseError, s.Trace(), "reverse try replay accepted a different value than was recorded")
		}
		dir, err := RunLines(t.Body, s, true)
		if err != nil {
			return dir, err
		}
		if _, err := s.Remove(t.Var); err != nil {
			return dir, err
		}
		return dir, nil
	}
	return true, railerr.New(railerr.ExhaustedTry, s.Trace(), "reverse try iterator exhausted without an accepted element")
}

// DoUndo implements §4.5's do/yield/undo sandwich.
type DoUndo struct {
	DoLines, YieldLines []Stmt
}

func (du *DoUndo) Eval(s *scope.Scope, backwards bool) (bool, error) {
	doDir, err := RunLines(du.DoLines, s, false)
	if err != nil {
		return doDir, err
	}
	if doDir {
		if s.HasLiveMono() {
			return doDir, railerr.New(railerr.DirectionChange, s.Trace(), "mono variable(s) %v live across do-block reversal", s.MonoNames())
		}
		if _, err := RunLines(du.DoLines, s, true); err != nil {
			return true, err
		}
		return true, nil
	}
	yieldDir, err := RunLines(du.YieldLines, s, backwards)
	if err != nil {
		return yieldDir, err
	}
	if yieldDir != backwards && s.HasLiveMono() {
		return yieldDir, railerr.New(railerr.DirectionChange, s.Trace(), "mono variable(s) %v live across yield-block reversal", s.MonoNames())
	}
	if _, err := RunLines(du.DoLines, s, true); err != nil {
		return yieldDir, err
	}
	return yieldDir, nil
}

// BarrierStmt implements §4.7's `barrier "name"`: a symmetric
// rendezvous, direction-irrelevant.
type BarrierStmt struct {
	Name string
}

func (b *BarrierStmt) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if s.Coordinator == nil {
		return backwards, railerr.New(railerr.CallError, s.Trace(), "barrier %q used outside a parallel call", b.Name)
	}
	if err := s.Coordinator.Barrier(b.Name).Wait(); err != nil {
		return backwards, railerr.New(railerr.Sympathetic, s.Trace(), "barrier %q aborted: a peer thread failed", b.Name)
	}
	return backwards, nil
}

// MutexStmt implements §4.7's `mutex "name" … xetum`: a directional
// ring hand-off around a statement body that may itself flip
// direction.
type MutexStmt struct {
	Name string
	Body []Stmt
}

func (m *MutexStmt) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if s.Coordinator == nil {
		return backwards, railerr.New(railerr.CallError, s.Trace(), "mutex %q used outside a parallel call", m.Name)
	}
	mu := s.Coordinator.Mutex(m.Name)
	if err := mu.Enter(s.ThreadIndex, backwards); err != nil {
		return backwards, mutexErr(s, m.Name, err)
	}
	dir, err := RunLines(m.Body, s, backwards)
	mu.Exit(s.ThreadIndex, backwards)
	return dir, err
}

func mutexErr(s *scope.Scope, name string, err error) error {
	if err == concurrency.ErrCounterFlow {
		return railerr.New(railerr.MutexError, s.Trace(), "mutex %q entered with conflicting direction", name)
	}
	return railerr.New(railerr.Sympathetic, s.Trace(), "mutex %q aborted: a peer thread failed", name)
}
