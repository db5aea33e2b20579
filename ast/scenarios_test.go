package ast

import (
	"sync"
	"testing"
	"time"

	"github.com/jndean/Railway/concurrency"
	"github.com/jndean/Railway/railerr"
	"github.com/jndean/Railway/scope"
	"github.com/jndean/Railway/value"
	"github.com/stretchr/testify/require"
)

func newTestScope() *scope.Scope {
	return scope.New("test", 0, scope.NewGlobals(), nil)
}

func mustModop(t *testing.T, target *Lookup, op ModOp, rhs Expr, isMono bool) *Modop {
	t.Helper()
	m, err := NewModop(target, op, rhs, isMono)
	require.NoError(t, err)
	return m
}

func railKind(t *testing.T, err error) railerr.Kind {
	t.Helper()
	re, ok := err.(*railerr.Error)
	require.Truef(t, ok, "expected *railerr.Error, got %T (%v)", err, err)
	return re.Kind
}

func intOf(t *testing.T, v *scope.Variable) int64 {
	t.Helper()
	n, ok := v.Mem.Num().Int64()
	require.True(t, ok, "expected an integral number")
	return n
}

func TestPromoteRoundTrip(t *testing.T) {
	s := newTestScope()
	let := &Let{Lhs: ".m", Rhs: &NumberLit{Val: value.NewInt(5)}, IsMono: true}
	_, err := let.Eval(s, false)
	require.NoError(t, err)
	mv, err := s.Lookup(".m")
	require.NoError(t, err)
	require.True(t, mv.IsMono, "let .m=... should bind a mono variable")

	promote := &Promote{Src: ".m", Dst: "n"}
	_, err = promote.Eval(s, false)
	require.NoError(t, err)
	nv, err := s.Lookup("n")
	require.NoError(t, err)
	require.False(t, nv.IsMono, "promote should clear the mono flag on the destination")
	require.EqualValues(t, 5, intOf(t, nv))

	_, err = promote.Eval(s, true)
	require.NoError(t, err)
	mv, err = s.Lookup(".m")
	require.NoError(t, err)
	require.True(t, mv.IsMono, "reversing promote should restore the mono flag")
}

func TestMonoStolenParameterCall(t *testing.T) {
	worker := &Function{
		Name:      "worker",
		InParams:  []string{".x"},
		OutParams: []string{".x"},
		Lines:     []Stmt{mustModop(t, &Lookup{Name: ".x"}, ModAdd, &NumberLit{Val: value.NewInt(1)}, true)},
	}
	funcs := map[string]*Function{"worker": worker}
	call := &Call{
		InParams:  []string{".m"},
		Blocks:    []*CallBlock{{FunctionName: "worker", Funcs: funcs}},
		OutParams: []string{".m"},
	}

	s := newTestScope()
	let := &Let{Lhs: ".m", Rhs: &NumberLit{Val: value.NewInt(5)}, IsMono: true}
	_, err := let.Eval(s, false)
	require.NoError(t, err)

	_, err = call.Eval(s, false)
	require.NoError(t, err)

	v, err := s.Lookup(".m")
	require.NoError(t, err)
	require.True(t, v.IsMono, "mono stolen variable should still be mono after the call chain")
	require.EqualValues(t, 6, intOf(t, v))
}

func TestUnletMismatch(t *testing.T) {
	s := newTestScope()
	let := &Let{Lhs: "x", Rhs: &NumberLit{Val: value.NewInt(5)}}
	_, err := let.Eval(s, false)
	require.NoError(t, err)

	unlet := &Unlet{Lhs: "x", Rhs: &NumberLit{Val: value.NewInt(6)}}
	_, err = unlet.Eval(s, false)
	require.Error(t, err, "expected unlet mismatch error")
	require.Equal(t, railerr.ValueError, railKind(t, err))
}

func TestIfReversibility(t *testing.T) {
	s := newTestScope()
	require.NoError(t, s.Assign("x", &scope.Variable{Mem: value.NewNumber(value.NewInt(5))}))

	lookupX := &Lookup{Name: "x"}
	stmt := &If{
		EnterExpr:  lookupX,
		ExitExpr:   lookupX,
		ThenLines:  []Stmt{mustModop(t, &Lookup{Name: "x"}, ModAdd, &NumberLit{Val: value.NewInt(1)}, false)},
		ElseLines:  nil,
		ModReverse: true,
	}
	_, err := stmt.Eval(s, false)
	require.NoError(t, err)
	v, err := s.Lookup("x")
	require.NoError(t, err)
	require.EqualValues(t, 6, intOf(t, v), "expected x=6 after forward")

	_, err = stmt.Eval(s, true)
	require.NoError(t, err)
	v, err = s.Lookup("x")
	require.NoError(t, err)
	require.EqualValues(t, 5, intOf(t, v), "expected x=5 after backward")
}

func TestLoopReversibility(t *testing.T) {
	s := newTestScope()
	require.NoError(t, s.Assign("x", &scope.Variable{Mem: value.NewNumber(value.NewInt(0))}))

	lookupX := &Lookup{Name: "x"}
	lp := &Loop{
		ForwardCond:  &Binop{Op: OpLess, Lhs: lookupX, Rhs: &NumberLit{Val: value.NewInt(3)}},
		BackwardCond: &Binop{Op: OpGreat, Lhs: lookupX, Rhs: &NumberLit{Val: value.NewInt(0)}},
		Body:         []Stmt{mustModop(t, &Lookup{Name: "x"}, ModAdd, &NumberLit{Val: value.NewInt(1)}, false)},
		ModReverse:   true,
	}
	_, err := lp.Eval(s, false)
	require.NoError(t, err)
	v, err := s.Lookup("x")
	require.NoError(t, err)
	require.EqualValues(t, 3, intOf(t, v), "expected x=3 after forward loop")

	_, err = lp.Eval(s, true)
	require.NoError(t, err)
	v, err = s.Lookup("x")
	require.NoError(t, err)
	require.EqualValues(t, 0, intOf(t, v), "expected x=0 after backward loop")
}

func TestForOverRange(t *testing.T) {
	s := newTestScope()
	require.NoError(t, s.Assign("sum", &scope.Variable{Mem: value.NewNumber(value.NewInt(0))}))

	forStmt := &For{
		Var:  "i",
		Iter: &ArrayRange{Start: &NumberLit{Val: value.NewInt(0)}, Stop: &NumberLit{Val: value.NewInt(5)}, Step: &NumberLit{Val: value.NewInt(1)}},
		Body: []Stmt{mustModop(t, &Lookup{Name: "sum"}, ModAdd, &Lookup{Name: "i"}, false)},
	}
	_, err := forStmt.Eval(s, false)
	require.NoError(t, err)
	v, err := s.Lookup("sum")
	require.NoError(t, err)
	require.EqualValues(t, 10, intOf(t, v), "expected sum=10 after forward for")

	_, err = forStmt.Eval(s, true)
	require.NoError(t, err)
	v, err = s.Lookup("sum")
	require.NoError(t, err)
	require.EqualValues(t, 0, intOf(t, v), "expected sum=0 after backward for")
}

func TestParallelSum(t *testing.T) {
	worker := &Function{
		Name:      "worker",
		InParams:  []string{"x"},
		OutParams: []string{"x"},
		Lines:     []Stmt{mustModop(t, &Lookup{Name: "x"}, ModAdd, &NumberLit{Val: value.NewInt(1)}, false)},
	}
	funcs := map[string]*Function{"worker": worker}
	block := &CallBlock{
		FunctionName: "worker",
		Funcs:        funcs,
		NumThreads:   &NumberLit{Val: value.NewInt(3)},
	}
	call := &Call{InParams: []string{"arr"}, Blocks: []*CallBlock{block}, OutParams: []string{"result"}}

	s := newTestScope()
	arr := value.NewArray([]*value.Cell{
		value.NewNumber(value.NewInt(1)),
		value.NewNumber(value.NewInt(2)),
		value.NewNumber(value.NewInt(3)),
	})
	require.NoError(t, s.Assign("arr", &scope.Variable{Mem: arr}))

	_, err := call.Eval(s, false)
	require.NoError(t, err)

	v, err := s.Lookup("result")
	require.NoError(t, err)
	require.True(t, v.Mem.IsArray())
	require.Equal(t, 3, v.Mem.Len())

	want := []int64{2, 3, 4}
	for i, w := range want {
		got, _ := v.Mem.Elems()[i].Num().Int64()
		require.Equalf(t, w, got, "result[%d]", i)
	}
}

// signalAndHoldStmt closes ch (signalling the caller has entered its
// critical section) then sleeps briefly, widening the window for a
// concurrent Enter from another thread to observe the held direction.
type signalAndHoldStmt struct{ ch chan struct{} }

func (t *signalAndHoldStmt) Eval(s *scope.Scope, backwards bool) (bool, error) {
	close(t.ch)
	time.Sleep(20 * time.Millisecond)
	return backwards, nil
}

func TestMutexDirectionConflict(t *testing.T) {
	globals := scope.NewGlobals()
	coord := concurrency.NewCoordinator(2)
	s0 := scope.New("w", 0, globals, nil)
	s0.ThreadIndex, s0.ThreadCount, s0.Coordinator = 0, 2, coord
	s1 := scope.New("w", 1, globals, nil)
	s1.ThreadIndex, s1.ThreadCount, s1.Coordinator = 1, 2, coord

	ch := make(chan struct{})
	var wg sync.WaitGroup
	var err0, err1 error
	wg.Add(2)
	go func() {
		defer wg.Done()
		ms := &MutexStmt{Name: "m", Body: []Stmt{&signalAndHoldStmt{ch: ch}}}
		_, err0 = ms.Eval(s0, false)
	}()
	go func() {
		defer wg.Done()
		<-ch
		ms := &MutexStmt{Name: "m", Body: nil}
		_, err1 = ms.Eval(s1, true)
	}()
	wg.Wait()

	require.NoError(t, err0, "thread 0 (forward, first in ring) should not fail")
	require.Error(t, err1, "expected a counter-flow error for thread 1 entering backward while thread 0 holds forward")
	require.Equal(t, railerr.MutexError, railKind(t, err1))
}
