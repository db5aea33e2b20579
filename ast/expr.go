// Package ast implements Railway's expression and statement evaluator:
// the compiled-program tree a parser/compiler would build, and the
// bidirectional evaluation methods attached to each node (§4 of
// SPEC_FULL.md).
package ast

import (
	"strings"

	"github.com/jndean/Railway/railerr"
	"github.com/jndean/Railway/scope"
	"github.com/jndean/Railway/value"
)

// Expr is any node that can be evaluated to produce a memory cell.
// HasMono reports the compile-time mono-propagation flag (§4.1): the
// evaluator trusts this flag rather than recomputing it.
type Expr interface {
	Eval(s *scope.Scope) (*value.Cell, error)
	HasMono() bool
}

// unownedExpr is implemented by expressions whose result is always a
// freshly constructed Cell with no other owner, so that `let` may
// adopt the storage directly instead of deep-copying it (§4.3's Let,
// resolved against the retrieved original source's `unowned=True`
// marking on range/tensor constructors; extended here to array
// literals too, since a literal's result is equally fresh).
type unownedExpr interface {
	Unowned() bool
}

// IsUnowned reports whether e's result may be adopted by `let` without
// a defensive copy.
func IsUnowned(e Expr) bool {
	u, ok := e.(unownedExpr)
	return ok && u.Unowned()
}

// BinOp identifies a binary operator (§4.1). Ground truth for the
// operator set and XOR/OR/AND being boolean-over-truthiness (not
// bitwise) is the retrieved original source's `binops` table.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpIDiv
	OpMod
	OpXor
	OpOr
	OpAnd
	OpLess
	OpLeq
	OpGreat
	OpGeq
	OpEq
	OpNeq
)

// Binop is a binary expression. And/Or get dedicated short-circuit
// evaluation; every other operator evaluates both sides first.
type Binop struct {
	Op       BinOp
	Lhs, Rhs Expr
	Mono     bool
}

func (b *Binop) HasMono() bool { return b.Mono }

func (b *Binop) Eval(s *scope.Scope) (*value.Cell, error) {
	if b.Op == OpAnd || b.Op == OpOr {
		return b.evalShortCircuit(s)
	}
	lc, err := b.Lhs.Eval(s)
	if err != nil {
		return nil, err
	}
	rc, err := b.Rhs.Eval(s)
	if err != nil {
		return nil, err
	}
	ln, err := asNumber(s, lc)
	if err != nil {
		return nil, err
	}
	rn, err := asNumber(s, rc)
	if err != nil {
		return nil, err
	}
	result, err := applyBinop(b.Op, ln, rn)
	if err != nil {
		return nil, wrapArith(s, err)
	}
	return value.NewNumber(result), nil
}

func (b *Binop) evalShortCircuit(s *scope.Scope) (*value.Cell, error) {
	lc, err := b.Lhs.Eval(s)
	if err != nil {
		return nil, err
	}
	ln, err := asNumber(s, lc)
	if err != nil {
		return nil, err
	}
	if b.Op == OpAnd && !ln.Truth() {
		return value.NewNumber(value.Zero), nil
	}
	if b.Op == OpOr && ln.Truth() {
		return value.NewNumber(value.One), nil
	}
	rc, err := b.Rhs.Eval(s)
	if err != nil {
		return nil, err
	}
	rn, err := asNumber(s, rc)
	if err != nil {
		return nil, err
	}
	if rn.Truth() {
		return value.NewNumber(value.One), nil
	}
	return value.NewNumber(value.Zero), nil
}

func boolNum(b bool) value.Number {
	if b {
		return value.One
	}
	return value.Zero
}

func applyBinop(op BinOp, a, b value.Number) (value.Number, error) {
	switch op {
	case OpAdd:
		return value.Add(a, b), nil
	case OpSub:
		return value.Sub(a, b), nil
	case OpMul:
		return value.Mul(a, b), nil
	case OpDiv:
		return value.Div(a, b)
	case OpPow:
		return value.Pow(a, b)
	case OpIDiv:
		return value.IDiv(a, b)
	case OpMod:
		return value.Mod(a, b)
	case OpXor:
		return boolNum(a.Truth() != b.Truth()), nil
	case OpOr:
		return boolNum(a.Truth() || b.Truth()), nil
	case OpAnd:
		return boolNum(a.Truth() && b.Truth()), nil
	case OpLess:
		return boolNum(a.Cmp(b) < 0), nil
	case OpLeq:
		return boolNum(a.Cmp(b) <= 0), nil
	case OpGreat:
		return boolNum(a.Cmp(b) > 0), nil
	case OpGeq:
		return boolNum(a.Cmp(b) >= 0), nil
	case OpEq:
		return boolNum(a.Cmp(b) == 0), nil
	case OpNeq:
		return boolNum(a.Cmp(b) != 0), nil
	default:
		panic("ast: unknown BinOp")
	}
}

// UniOp identifies a unary operator.
type UniOp int

const (
	OpNot UniOp = iota
	OpNeg
)

// Uniop is a unary expression.
type Uniop struct {
	Op   UniOp
	Sub  Expr
	Mono bool
}

func (u *Uniop) HasMono() bool { return u.Mono }

func (u *Uniop) Eval(s *scope.Scope) (*value.Cell, error) {
	c, err := u.Sub.Eval(s)
	if err != nil {
		return nil, err
	}
	n, err := asNumber(s, c)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case OpNot:
		return value.NewNumber(value.Not(n)), nil
	case OpNeg:
		return value.NewNumber(value.Neg(n)), nil
	default:
		panic("ast: unknown UniOp")
	}
}

// NumberLit is a literal numeric constant.
type NumberLit struct {
	Val value.Number
}

func (n *NumberLit) HasMono() bool                         { return false }
func (n *NumberLit) Eval(*scope.Scope) (*value.Cell, error) { return value.NewNumber(n.Val), nil }

// Length implements `#x`.
type Length struct {
	Sub  Expr
	Mono bool
}

func (l *Length) HasMono() bool { return l.Mono }

func (l *Length) Eval(s *scope.Scope) (*value.Cell, error) {
	c, err := l.Sub.Eval(s)
	if err != nil {
		return nil, err
	}
	if !c.IsArray() {
		return nil, railerr.New(railerr.TypeError, s.Trace(), "# applied to a non-array value")
	}
	return value.NewNumber(value.NewInt(int64(c.Len()))), nil
}

// ArrayLiteral implements `[e1, e2, …]`.
type ArrayLiteral struct {
	Elems []Expr
	Mono  bool
}

func (a *ArrayLiteral) HasMono() bool { return a.Mono }
func (a *ArrayLiteral) Unowned() bool { return true }

func (a *ArrayLiteral) Eval(s *scope.Scope) (*value.Cell, error) {
	elems := make([]*value.Cell, len(a.Elems))
	for i, e := range a.Elems {
		c, err := e.Eval(s)
		if err != nil {
			return nil, err
		}
		elems[i] = c.DeepCopy()
	}
	return value.NewArray(elems), nil
}

// ArrayRange implements `[start to stop by step]`. Iterate (see
// iter.go) special-cases it with a lazy rangeIterable so that for/try
// loops can index it without materialising the whole sequence (§4.1).
type ArrayRange struct {
	Start, Stop, Step Expr
	Mono              bool
}

func (r *ArrayRange) HasMono() bool { return r.Mono }
func (r *ArrayRange) Unowned() bool { return true }

func (r *ArrayRange) bounds(s *scope.Scope) (start, stop, step value.Number, err error) {
	startC, err := r.Start.Eval(s)
	if err != nil {
		return
	}
	stopC, err := r.Stop.Eval(s)
	if err != nil {
		return
	}
	var stepC *value.Cell
	if r.Step != nil {
		stepC, err = r.Step.Eval(s)
		if err != nil {
			return
		}
	}
	if start, err = asNumber(s, startC); err != nil {
		return
	}
	if stop, err = asNumber(s, stopC); err != nil {
		return
	}
	if stepC == nil {
		step = value.One
	} else if step, err = asNumber(s, stepC); err != nil {
		return
	}
	if step.Sign() == 0 {
		err = railerr.New(railerr.ValueError, s.Trace(), "range step must not be zero")
	}
	return
}

// rangeLength computes how many elements [start, stop) by step yields.
func rangeLength(start, stop, step value.Number) int {
	if step.Sign() > 0 {
		if start.Cmp(stop) >= 0 {
			return 0
		}
	} else {
		if start.Cmp(stop) <= 0 {
			return 0
		}
	}
	diff := value.Sub(stop, start)
	q, _ := value.IDiv(diff, step)
	n, _ := q.Int64()
	// IDiv floors; if the floor division has an exact remainder short
	// of stop, that's the count, otherwise we need one more for the
	// strict boundary already guaranteed by IDiv's floor semantics.
	if value.Mul(q, step).Equal(diff) {
		return int(n)
	}
	return int(n) + 1
}

func (r *ArrayRange) Eval(s *scope.Scope) (*value.Cell, error) {
	start, stop, step, err := r.bounds(s)
	if err != nil {
		return nil, err
	}
	n := rangeLength(start, stop, step)
	elems := make([]*value.Cell, n)
	cur := start
	for i := 0; i < n; i++ {
		elems[i] = value.NewNumber(cur)
		cur = value.Add(cur, step)
	}
	return value.NewArray(elems), nil
}

// ArrayTensor implements `[fill tensor dims]`.
type ArrayTensor struct {
	Dims Expr
	Fill Expr
	Mono bool
}

func (t *ArrayTensor) HasMono() bool { return t.Mono }
func (t *ArrayTensor) Unowned() bool { return true }

func (t *ArrayTensor) Eval(s *scope.Scope) (*value.Cell, error) {
	dimsC, err := t.Dims.Eval(s)
	if err != nil {
		return nil, err
	}
	if !dimsC.IsArray() {
		return nil, railerr.New(railerr.TypeError, s.Trace(), "tensor dimensions must be an array")
	}
	dims := make([]int64, dimsC.Len())
	for i, e := range dimsC.Elems() {
		if e.IsArray() {
			return nil, railerr.New(railerr.TypeError, s.Trace(), "tensor dimension must be a number")
		}
		n, ok := e.Num().Int64()
		if !ok || n < 0 {
			return nil, railerr.New(railerr.ValueError, s.Trace(), "tensor dimension must be a non-negative integer")
		}
		if n == 0 && i != len(dims)-1 {
			return nil, railerr.New(railerr.ValueError, s.Trace(), "only the final tensor dimension may be zero")
		}
		dims[i] = n
	}
	fillC, err := t.Fill.Eval(s)
	if err != nil {
		return nil, err
	}
	return value.Fill(dims, fillC), nil
}

// ThreadID implements the `thread_id` expression (§4.4).
type ThreadID struct{}

func (ThreadID) HasMono() bool { return false }
func (ThreadID) Eval(s *scope.Scope) (*value.Cell, error) {
	return value.NewNumber(value.NewInt(int64(s.ThreadIndex))), nil
}

// NumThreads implements the `num_threads` expression (§4.4).
type NumThreads struct{}

func (NumThreads) HasMono() bool { return false }
func (NumThreads) Eval(s *scope.Scope) (*value.Cell, error) {
	return value.NewNumber(value.NewInt(int64(s.ThreadCount))), nil
}

// asNumber requires c to be a scalar, reporting a type error otherwise
// (applying an arithmetic/comparison operator to an array, §4.1).
func asNumber(s *scope.Scope, c *value.Cell) (value.Number, error) {
	if c.IsArray() {
		return value.Zero, railerr.New(railerr.TypeError, s.Trace(), "expected a number, got an array")
	}
	return c.Num(), nil
}

// wrapArith maps a plain arithmetic error (division/modulus by zero,
// non-rational power) from the value package into the matching
// railerr.Kind, attaching the current stack.
func wrapArith(s *scope.Scope, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "division by zero") || strings.Contains(msg, "modulus by zero") {
		return railerr.New(railerr.ZeroError, s.Trace(), "%s", msg)
	}
	return railerr.New(railerr.ValueError, s.Trace(), "%s", msg)
}
