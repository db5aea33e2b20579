package value

import "strings"

// Cell is a single memory cell: either a scalar Number or an ordered
// array of child cells (§3). Arrays may nest arbitrarily and may be
// empty.
//
// Cells are always heap-allocated and referred to by pointer so that
// borrowing (§3's "Borrowed parameter") can alias a cell exactly where
// the original dynamically-typed reference implementation relied on
// every value being boxed. This is the Go-native translation of that
// trick, documented in SPEC_FULL.md §3 and DESIGN.md.
type Cell struct {
	num   Number
	array []*Cell
}

// NewNumber builds a scalar cell.
func NewNumber(n Number) *Cell {
	return &Cell{num: n}
}

// NewArray builds an array cell from the given elements (taken by
// reference, not copied).
func NewArray(elems []*Cell) *Cell {
	if elems == nil {
		elems = []*Cell{}
	}
	return &Cell{array: elems}
}

// IsArray reports whether c holds a sequence rather than a number.
func (c *Cell) IsArray() bool {
	return c.array != nil
}

// Num returns the scalar value of c. Callers must check IsArray first.
func (c *Cell) Num() Number {
	return c.num
}

// SetNum overwrites c's scalar value in place, preserving aliasing:
// every other Variable/Cell pointer referring to c observes the
// update. Panics if c is an array, which would indicate a compiler
// bug upstream of this evaluator (write-to-array-as-scalar is caught
// earlier, at Lookup.Set, as a typed railerr.TypeError).
func (c *Cell) SetNum(n Number) {
	if c.IsArray() {
		panic("value: SetNum on an array cell")
	}
	c.num = n
}

// Elems returns the array's elements. Callers must check IsArray
// first. The returned slice aliases c's storage; push/pop-style
// mutation is expected to go through Append/PopLast.
func (c *Cell) Elems() []*Cell {
	return c.array
}

// Len returns the number of top-level elements. Callers must check
// IsArray first.
func (c *Cell) Len() int {
	return len(c.array)
}

// Append adds elem as the new last element of the array in place.
func (c *Cell) Append(elem *Cell) {
	c.array = append(c.array, elem)
}

// PopLast removes and returns the last element, and whether the array
// was non-empty.
func (c *Cell) PopLast() (*Cell, bool) {
	n := len(c.array)
	if n == 0 {
		return nil, false
	}
	last := c.array[n-1]
	c.array = c.array[:n-1]
	return last, true
}

// Swap exchanges the contents (not the pointer identity) of a and b,
// so that every other reference to a or b observes the exchange. Used
// by the `swap` statement (§4.3), which must work regardless of
// whether a and b denote the same underlying variable's memory or two
// distinct ones.
func Swap(a, b *Cell) {
	a.num, b.num = b.num, a.num
	a.array, b.array = b.array, a.array
}

// DeepCopy recursively clones c so that the result shares no storage
// with c. Used by `let` when adopting a non-"unowned" expression
// result (§4.3).
func (c *Cell) DeepCopy() *Cell {
	if c.IsArray() {
		elems := make([]*Cell, len(c.array))
		for i, e := range c.array {
			elems[i] = e.DeepCopy()
		}
		return NewArray(elems)
	}
	return NewNumber(c.num)
}

// DeepEqual reports whether c and other have identical shape and
// values, used by `unlet`'s structural-equality check (§4.3).
func (c *Cell) DeepEqual(other *Cell) bool {
	if c.IsArray() != other.IsArray() {
		return false
	}
	if !c.IsArray() {
		return c.num.Equal(other.num)
	}
	if len(c.array) != len(other.array) {
		return false
	}
	for i := range c.array {
		if !c.array[i].DeepEqual(other.array[i]) {
			return false
		}
	}
	return true
}

// String renders c the way Print/Println do (§6.4): "n" or "n/d" for
// numbers, "[e1, e2, ...]" for arrays.
func (c *Cell) String() string {
	if !c.IsArray() {
		return c.num.String()
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range c.array {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.String())
	}
	b.WriteByte(']')
	return b.String()
}

// Fill builds a nested array cell of the given shape (dims, outermost
// first), every leaf a deep copy of fill. Only the final dimension may
// be zero (§4.1's tensor constructor); the caller is expected to have
// already validated that.
func Fill(dims []int64, fill *Cell) *Cell {
	if len(dims) == 0 {
		return fill.DeepCopy()
	}
	n := dims[0]
	elems := make([]*Cell, n)
	for i := range elems {
		elems[i] = Fill(dims[1:], fill)
	}
	return NewArray(elems)
}
