package ast

import (
	"github.com/jndean/Railway/railerr"
	"github.com/jndean/Railway/scope"
	"github.com/jndean/Railway/value"
)

// Iterable is anything a `for`/`try` construct can step over without
// necessarily materialising every element up front (§4.1: "Range may
// be evaluated lazily in for/try contexts").
type Iterable interface {
	Len() int
	At(i int) *value.Cell
}

// arrayIterable adapts an already-materialised array Cell.
type arrayIterable struct{ elems []*value.Cell }

func (a arrayIterable) Len() int            { return len(a.elems) }
func (a arrayIterable) At(i int) *value.Cell { return a.elems[i] }

// rangeIterable lazily computes each element of an ArrayRange on
// demand, never allocating the whole sequence.
type rangeIterable struct {
	start, step value.Number
	n           int
}

func (r rangeIterable) Len() int { return r.n }
func (r rangeIterable) At(i int) *value.Cell {
	return value.NewNumber(value.Add(r.start, value.Mul(value.NewInt(int64(i)), r.step)))
}

// Iterate resolves expr into an Iterable, taking the lazy path for a
// bare ArrayRange and falling back to full evaluation (and a type
// check) otherwise.
func Iterate(expr Expr, s *scope.Scope) (Iterable, error) {
	if r, ok := expr.(*ArrayRange); ok {
		start, stop, step, err := r.bounds(s)
		if err != nil {
			return nil, err
		}
		return rangeIterable{start: start, step: step, n: rangeLength(start, stop, step)}, nil
	}
	c, err := expr.Eval(s)
	if err != nil {
		return nil, err
	}
	if !c.IsArray() {
		return nil, railerr.New(railerr.TypeError, s.Trace(), "for/try iterator must be an array")
	}
	return arrayIterable{elems: c.Elems()}, nil
}
