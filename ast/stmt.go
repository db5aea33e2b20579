package ast

import (
	"fmt"

	"github.com/jndean/Railway/railerr"
	"github.com/jndean/Railway/scope"
	"github.com/jndean/Railway/value"
)

// Let binds a freshly evaluated rhs to lhs (§4.3). Backward Let is
// forward Unlet on the same operands, and vice versa — the core
// reversibility invariant of the pair.
type Let struct {
	Lhs    string
	Rhs    Expr
	IsMono bool
}

func (l *Let) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if backwards {
		if l.IsMono {
			return backwards, nil
		}
		return backwards, doUnlet(s, l.Lhs, l.Rhs)
	}
	return backwards, doLet(s, l.Lhs, l.Rhs)
}

// Unlet is Let's mirror image.
type Unlet struct {
	Lhs    string
	Rhs    Expr
	IsMono bool
}

func (u *Unlet) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if backwards {
		if u.IsMono {
			return backwards, nil
		}
		return backwards, doLet(s, u.Lhs, u.Rhs)
	}
	return backwards, doUnlet(s, u.Lhs, u.Rhs)
}

func doLet(s *scope.Scope, name string, rhs Expr) error {
	c, err := rhs.Eval(s)
	if err != nil {
		return err
	}
	mem := c
	if !IsUnowned(rhs) {
		mem = c.DeepCopy()
	}
	return s.Assign(name, &scope.Variable{Mem: mem, IsMono: scope.IsMonoName(name)})
}

func doUnlet(s *scope.Scope, name string, rhs Expr) error {
	v, err := s.Lookup(name)
	if err != nil {
		return err
	}
	if v.Borrowed {
		return railerr.New(railerr.ReferenceOwnership, s.Trace(), "cannot unlet borrowed variable %q", name)
	}
	rc, err := rhs.Eval(s)
	if err != nil {
		return err
	}
	if v.Mem.IsArray() != rc.IsArray() {
		return railerr.New(railerr.TypeError, s.Trace(), "unlet %q: shape mismatch", name)
	}
	if !v.Mem.DeepEqual(rc) {
		return railerr.New(railerr.ValueError, s.Trace(), "unlet %q: value does not match", name)
	}
	_, err = s.Remove(name)
	return err
}

// ModOp identifies an invertible (or mono-only) compound-assignment
// operator (§4.3). Ground truth for the invertible pairs and XOR's
// self-inverse is the retrieved original source's `modops`/
// `inv_modops` tables.
type ModOp int

const (
	ModAdd ModOp = iota
	ModSub
	ModMul
	ModDiv
	ModXor
	ModIDiv
	ModPow
	ModMod
	ModOr
	ModAnd
)

func (op ModOp) invertible() bool {
	switch op {
	case ModAdd, ModSub, ModMul, ModDiv, ModXor:
		return true
	default:
		return false
	}
}

func (op ModOp) inverse() ModOp {
	switch op {
	case ModAdd:
		return ModSub
	case ModSub:
		return ModAdd
	case ModMul:
		return ModDiv
	case ModDiv:
		return ModMul
	case ModXor:
		return ModXor
	default:
		panic("ast: modop has no inverse")
	}
}

func (op ModOp) asBinOp() BinOp {
	switch op {
	case ModAdd:
		return OpAdd
	case ModSub:
		return OpSub
	case ModMul:
		return OpMul
	case ModDiv:
		return OpDiv
	case ModXor:
		return OpXor
	case ModIDiv:
		return OpIDiv
	case ModPow:
		return OpPow
	case ModMod:
		return OpMod
	case ModOr:
		return OpOr
	case ModAnd:
		return OpAnd
	default:
		panic("ast: unknown ModOp")
	}
}

// Modop implements `x op= expr` (§4.3).
type Modop struct {
	Target *Lookup
	Op     ModOp
	Rhs    Expr
	IsMono bool
}

// NewModop is the checked constructor for a Modop. It rejects a
// non-invertible operator on a non-mono statement at construction
// time (mirroring the original source's compile-time
// RailwayNoninvertibleModification check); a Modop built through it
// therefore never reaches a non-invertible op running backward, so
// Modop.Eval treats that case as an internal invariant violation
// (a panic) rather than a recoverable railerr.Error (DESIGN NOTES §9).
// A Modop composite literal bypasses this check.
func NewModop(target *Lookup, op ModOp, rhs Expr, isMono bool) (*Modop, error) {
	if !op.invertible() && !isMono {
		return nil, fmt.Errorf("ast: modop is not invertible and must be mono")
	}
	return &Modop{Target: target, Op: op, Rhs: rhs, IsMono: isMono}, nil
}

func (m *Modop) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if backwards && m.IsMono {
		return backwards, nil
	}
	op := m.Op
	if backwards {
		if !op.invertible() {
			panic("ast: non-invertible modop reached in reverse")
		}
		op = op.inverse()
	}
	rc, err := m.Rhs.Eval(s)
	if err != nil {
		return backwards, err
	}
	rn, err := asNumber(s, rc)
	if err != nil {
		return backwards, err
	}
	tc, err := m.Target.Eval(s)
	if err != nil {
		return backwards, err
	}
	ln, err := asNumber(s, tc)
	if err != nil {
		return backwards, err
	}
	result, err := applyBinop(op.asBinOp(), ln, rn)
	if err != nil {
		return backwards, wrapArith(s, err)
	}
	return backwards, m.Target.Set(s, value.NewNumber(result))
}

// Push implements `push src => dst` (§4.3): src must be a bare,
// owned variable; it is appended (as a single element) to dst's
// array and removed from the scope. Push and Pop are mutual
// inverses.
type Push struct {
	Src, Dst string
	IsMono   bool
}

func (p *Push) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if backwards {
		if p.IsMono {
			return backwards, nil
		}
		return backwards, doPop(s, p.Dst, p.Src)
	}
	return backwards, doPush(s, p.Src, p.Dst)
}

// Pop implements `pop src => dst`.
type Pop struct {
	Src, Dst string
	IsMono   bool
}

func (pp *Pop) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if backwards {
		if pp.IsMono {
			return backwards, nil
		}
		return backwards, doPush(s, pp.Dst, pp.Src)
	}
	return backwards, doPop(s, pp.Src, pp.Dst)
}

func doPush(s *scope.Scope, srcName, dstName string) error {
	srcVar, err := s.Lookup(srcName)
	if err != nil {
		return err
	}
	if srcVar.Borrowed {
		return railerr.New(railerr.ReferenceOwnership, s.Trace(), "cannot push borrowed variable %q", srcName)
	}
	dstVar, err := s.Lookup(dstName)
	if err != nil {
		return err
	}
	if !dstVar.Mem.IsArray() {
		return railerr.New(railerr.TypeError, s.Trace(), "push destination %q is not an array", dstName)
	}
	dstVar.Mem.Append(srcVar.Mem)
	_, err = s.Remove(srcName)
	return err
}

func doPop(s *scope.Scope, srcName, dstName string) error {
	srcVar, err := s.Lookup(srcName)
	if err != nil {
		return err
	}
	if !srcVar.Mem.IsArray() {
		return railerr.New(railerr.TypeError, s.Trace(), "pop source %q is not an array", srcName)
	}
	elem, ok := srcVar.Mem.PopLast()
	if !ok {
		return railerr.New(railerr.IndexError, s.Trace(), "pop from empty array %q", srcName)
	}
	return s.Assign(dstName, &scope.Variable{Mem: elem, IsMono: scope.IsMonoName(dstName)})
}

// Swap implements `swap a[…] <=> b[…]`, exchanging the memory cells
// denoted by two lookups in place. Swap is its own inverse regardless
// of direction.
type Swap struct {
	A, B   *Lookup
	IsMono bool
}

func (sw *Swap) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if backwards && sw.IsMono {
		return backwards, nil
	}
	ac, err := sw.A.Eval(s)
	if err != nil {
		return backwards, err
	}
	bc, err := sw.B.Eval(s)
	if err != nil {
		return backwards, err
	}
	value.Swap(ac, bc)
	return backwards, nil
}

// Promote implements `promote .m => n` (§4.3): moves a mono binding
// out of the mono namespace into non-mono locals, clearing its mono
// flag. Reversing moves it back, restoring the mono flag.
type Promote struct {
	Src, Dst string
	IsMono   bool
}

func (pr *Promote) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if backwards {
		if pr.IsMono {
			return backwards, nil
		}
		v, err := s.Remove(pr.Dst)
		if err != nil {
			return backwards, err
		}
		v.IsMono = true
		return backwards, s.Assign(pr.Src, v)
	}
	v, err := s.Remove(pr.Src)
	if err != nil {
		return backwards, err
	}
	if v.Borrowed {
		return backwards, railerr.New(railerr.ReferenceOwnership, s.Trace(), "cannot promote borrowed variable %q", pr.Src)
	}
	if !v.IsMono {
		return backwards, railerr.New(railerr.ExpectedMono, s.Trace(), "promote source %q is not mono", pr.Src)
	}
	v.IsMono = false
	return backwards, s.Assign(pr.Dst, v)
}

// Print and Println implement §4.3/§6.4's output statements: forward
// only (unconditionally a no-op backward, resolving spec.md's Open
// Question), never touching scope.
type Print struct{ Args []Expr }
type Println struct{ Args []Expr }

func (p *Print) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if backwards {
		return backwards, nil
	}
	return backwards, writeArgs(s, p.Args, "")
}

func (p *Println) Eval(s *scope.Scope, backwards bool) (bool, error) {
	if backwards {
		return backwards, nil
	}
	return backwards, writeArgs(s, p.Args, "\n")
}

func writeArgs(s *scope.Scope, args []Expr, suffix string) error {
	w := s.Output()
	for i, a := range args {
		c, err := a.Eval(s)
		if err != nil {
			return err
		}
		if i > 0 {
			if _, err := fmt.Fprint(w, " "); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprint(w, c.String()); err != nil {
			return err
		}
	}
	if suffix != "" {
		if _, err := fmt.Fprint(w, suffix); err != nil {
			return err
		}
	}
	return nil
}
