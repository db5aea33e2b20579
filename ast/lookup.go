package ast

import (
	"github.com/jndean/Railway/railerr"
	"github.com/jndean/Railway/scope"
	"github.com/jndean/Railway/value"
)

// Lookup is a variable reference, optionally indexed into nested
// arrays: `name[i1][i2]…`. It is the only expression with a write
// path (Set), since only lvalue contexts ever write through a lookup
// (§4.4).
type Lookup struct {
	Name    string
	Indices []Expr
	Mono    bool
}

func (l *Lookup) HasMono() bool { return l.Mono }

// resolve walks from the named variable's root memory through every
// index but the last, returning the parent cell and, if there are
// indices, the final index value. The final index is not
// bounds-checked here, nor is the parent checked to be an array;
// callers do both. With no indices it returns the variable's root cell
// directly and hasIdx=false.
func (l *Lookup) resolve(s *scope.Scope) (parent *value.Cell, lastIdx int, hasIdx bool, err error) {
	v, err := s.Lookup(l.Name)
	if err != nil {
		return nil, 0, false, err
	}
	cur := v.Mem
	if len(l.Indices) == 0 {
		return cur, 0, false, nil
	}
	for _, idxExpr := range l.Indices[:len(l.Indices)-1] {
		idx, err := evalIndex(s, idxExpr)
		if err != nil {
			return nil, 0, false, err
		}
		if !cur.IsArray() {
			return nil, 0, false, railerr.New(railerr.IndexError, s.Trace(), "cannot index into a scalar")
		}
		if idx < 0 || idx >= cur.Len() {
			return nil, 0, false, railerr.New(railerr.IndexError, s.Trace(), "index %d out of bounds (length %d)", idx, cur.Len())
		}
		cur = cur.Elems()[idx]
	}
	last, err := evalIndex(s, l.Indices[len(l.Indices)-1])
	if err != nil {
		return nil, 0, false, err
	}
	return cur, last, true, nil
}

func evalIndex(s *scope.Scope, e Expr) (int, error) {
	c, err := e.Eval(s)
	if err != nil {
		return 0, err
	}
	n, err := asNumber(s, c)
	if err != nil {
		return 0, err
	}
	i, ok := n.Int64()
	if !ok {
		return 0, railerr.New(railerr.IndexError, s.Trace(), "index out of range")
	}
	return int(i), nil
}

// Eval navigates to the final indexed cell and returns it.
func (l *Lookup) Eval(s *scope.Scope) (*value.Cell, error) {
	parent, idx, hasIdx, err := l.resolve(s)
	if err != nil {
		return nil, err
	}
	if !hasIdx {
		return parent, nil
	}
	if !parent.IsArray() {
		return nil, railerr.New(railerr.IndexError, s.Trace(), "cannot index into a scalar")
	}
	if idx < 0 || idx >= parent.Len() {
		return nil, railerr.New(railerr.IndexError, s.Trace(), "index %d out of bounds (length %d)", idx, parent.Len())
	}
	return parent.Elems()[idx], nil
}

// Set writes val into the cell l denotes (§4.4). Only a scalar target
// may be written; writing a non-scalar val into a scalar slot, or
// targeting a non-scalar slot at all, is a type error.
func (l *Lookup) Set(s *scope.Scope, val *value.Cell) error {
	if val.IsArray() {
		return railerr.New(railerr.TypeError, s.Trace(), "cannot write an array into a scalar slot")
	}
	parent, idx, hasIdx, err := l.resolve(s)
	if err != nil {
		return err
	}
	if !hasIdx {
		if parent.IsArray() {
			return railerr.New(railerr.TypeError, s.Trace(), "cannot write a number over an array")
		}
		parent.SetNum(val.Num())
		return nil
	}
	if !parent.IsArray() {
		return railerr.New(railerr.IndexError, s.Trace(), "cannot index into a scalar")
	}
	if idx < 0 || idx >= parent.Len() {
		return railerr.New(railerr.IndexError, s.Trace(), "index %d out of bounds (length %d)", idx, parent.Len())
	}
	target := parent.Elems()[idx]
	if target.IsArray() {
		return railerr.New(railerr.TypeError, s.Trace(), "cannot write a number over an array")
	}
	target.SetNum(val.Num())
	return nil
}

// Variable returns the named variable's binding itself (its memory
// cell and ownership flags), ignoring any indices.
func (l *Lookup) Variable(s *scope.Scope) (*scope.Variable, error) {
	return s.Lookup(l.Name)
}
