// Package value implements Railway's runtime value model: exact
// rational numbers and nested arrays of them (§3, §4.1 of SPEC_FULL.md).
package value

import (
	"fmt"
	"math/big"
)

// Number is an exact rational, backed by math/big. There is no
// separate integer/float/bool type in Railway: truthiness is
// "value != 0", and comparisons produce the numbers 0 or 1.
type Number struct {
	r *big.Rat
}

// Zero and One are convenience constants. Callers must not mutate the
// big.Rat reachable from them: a Number shares its big.Rat when it is
// stored or returned, and every operation in this package builds a
// fresh big.Rat for its result instead of mutating an operand.
var (
	Zero = NewInt(0)
	One  = NewInt(1)
)

// NewInt builds a Number from a machine integer.
func NewInt(n int64) Number {
	return Number{r: big.NewRat(n, 1)}
}

// NewRat builds a Number from a numerator/denominator pair. Panics if
// denom is zero, mirroring math/big.Rat's own contract; callers that
// might pass a zero denominator should check first.
func NewRat(num, denom int64) Number {
	return Number{r: big.NewRat(num, denom)}
}

// FromBigRat adopts a *big.Rat as a Number without copying. The caller
// must not mutate r afterwards.
func FromBigRat(r *big.Rat) Number {
	if r == nil {
		return Zero
	}
	return Number{r: r}
}

// FromFloat64 builds the closest exact rational to f. Used by an
// external driver decoding -f32/-f64 literals (§6.1); not used inside
// the evaluator itself, since Railway has no float type.
func FromFloat64(f float64) Number {
	r := new(big.Rat)
	r.SetFloat64(f)
	if r.Sign() == 0 && f != 0 {
		// SetFloat64 returns nil for NaN/Inf; fall back to zero rather
		// than panicking on a nil big.Rat receiver.
		return Zero
	}
	return Number{r: r}
}

// Rat exposes the underlying big.Rat for read-only use (e.g. by a
// driver stringifying a result). The returned pointer must not be
// mutated.
func (n Number) Rat() *big.Rat {
	if n.r == nil {
		return big.NewRat(0, 1)
	}
	return n.r
}

func (n Number) bigRat() *big.Rat {
	if n.r == nil {
		return big.NewRat(0, 1)
	}
	return n.r
}

// Truth reports whether n is non-zero.
func (n Number) Truth() bool {
	return n.bigRat().Sign() != 0
}

// Sign returns -1, 0, or 1.
func (n Number) Sign() int {
	return n.bigRat().Sign()
}

// IsInt reports whether n has denominator 1.
func (n Number) IsInt() bool {
	return n.bigRat().IsInt()
}

// Int64 returns n truncated towards zero, and whether the value fits
// in an int64 (used for index/length arithmetic, §4.1).
func (n Number) Int64() (int64, bool) {
	r := n.bigRat()
	q := new(big.Int).Quo(r.Num(), r.Denom())
	if !q.IsInt64() {
		return 0, false
	}
	return q.Int64(), true
}

// Equal reports exact rational equality.
func (n Number) Equal(m Number) bool {
	return n.bigRat().Cmp(m.bigRat()) == 0
}

// Cmp returns -1, 0, or 1 comparing n and m.
func (n Number) Cmp(m Number) int {
	return n.bigRat().Cmp(m.bigRat())
}

// String renders n as "p" when integral or "p/q" otherwise, per §6.4.
func (n Number) String() string {
	r := n.bigRat()
	if r.IsInt() {
		return r.Num().String()
	}
	return r.RatString()
}

// Add, Sub, Mul, Div implement the basic exact rational operations.
// Div reports a zero-denominator error rather than panicking, since
// division by zero is a Railway runtime error (ZeroError, §7), not a
// host panic.
func Add(a, b Number) Number { return Number{r: new(big.Rat).Add(a.bigRat(), b.bigRat())} }
func Sub(a, b Number) Number { return Number{r: new(big.Rat).Sub(a.bigRat(), b.bigRat())} }
func Mul(a, b Number) Number { return Number{r: new(big.Rat).Mul(a.bigRat(), b.bigRat())} }

func Div(a, b Number) (Number, error) {
	if b.Sign() == 0 {
		return Zero, fmt.Errorf("division by zero")
	}
	return Number{r: new(big.Rat).Quo(a.bigRat(), b.bigRat())}, nil
}

// Neg returns -a.
func Neg(a Number) Number { return Number{r: new(big.Rat).Neg(a.bigRat())} }

// Not returns the logical negation of a's truthiness, as 0 or 1.
func Not(a Number) Number {
	if a.Truth() {
		return Zero
	}
	return One
}

// IDiv implements Railway's floor (integer) division "a // b".
func IDiv(a, b Number) (Number, error) {
	if b.Sign() == 0 {
		return Zero, fmt.Errorf("division by zero")
	}
	q := floorDiv(a.bigRat(), b.bigRat())
	return Number{r: q}, nil
}

// Mod implements Railway's modulus "a % b" as a - b*floor(a/b), so
// the result always has the sign of b (Python/Railway convention).
func Mod(a, b Number) (Number, error) {
	if b.Sign() == 0 {
		return Zero, fmt.Errorf("modulus by zero")
	}
	q := floorDiv(a.bigRat(), b.bigRat())
	prod := new(big.Rat).Mul(q, b.bigRat())
	return Number{r: new(big.Rat).Sub(a.bigRat(), prod)}, nil
}

func floorDiv(a, b *big.Rat) *big.Rat {
	quot := new(big.Rat).Quo(a, b)
	num := new(big.Int).Quo(quot.Num(), quot.Denom())
	rem := new(big.Int).Rem(quot.Num(), quot.Denom())
	// Rat.Num()/Denom() is an exact fraction; Quo/Rem truncate toward
	// zero, so when there's a nonzero remainder and the true quotient
	// is negative we must round down (toward -inf), not toward zero.
	if rem.Sign() != 0 && (quot.Sign() < 0) {
		num.Sub(num, big.NewInt(1))
	}
	return new(big.Rat).SetInt(num)
}

// Pow implements Railway's "**". Integral, non-negative exponents are
// always exact. Negative integral exponents invert. Fractional
// exponents are only legal when the result is itself exactly
// rational (an exact integer root); anything else is a value error,
// per §4.1 and the resolved Open Question in SPEC_FULL.md §9.
func Pow(base, exp Number) (Number, error) {
	if exp.IsInt() {
		e, ok := exp.Int64()
		if !ok {
			return Zero, fmt.Errorf("exponent out of range")
		}
		if e == 0 {
			return One, nil
		}
		if e < 0 {
			if base.Sign() == 0 {
				return Zero, fmt.Errorf("division by zero")
			}
			pos, _ := Pow(base, Neg(exp))
			return Div(One, pos)
		}
		r := new(big.Rat).SetInt64(1)
		b := base.bigRat()
		for i := int64(0); i < e; i++ {
			r.Mul(r, b)
		}
		return Number{r: r}, nil
	}

	// Fractional exponent p/q: base must be a perfect q-th power (as a
	// rational, i.e. numerator and denominator both perfect q-th
	// powers) for the result to be exactly rational.
	eRat := exp.bigRat()
	q := eRat.Denom()
	p := eRat.Num()
	if base.Sign() < 0 {
		return Zero, fmt.Errorf("fractional power of a negative number is not rational")
	}
	bNum, bDen := base.bigRat().Num(), base.bigRat().Denom()
	numRoot, ok := exactRoot(bNum, q)
	if !ok {
		return Zero, fmt.Errorf("result of ** is not an exact rational")
	}
	denRoot, ok := exactRoot(bDen, q)
	if !ok {
		return Zero, fmt.Errorf("result of ** is not an exact rational")
	}
	result := new(big.Rat).SetFrac(numRoot, denRoot)
	resultNum := Number{r: result}
	if p.Sign() < 0 {
		return Pow(resultNum, Number{r: new(big.Rat).SetInt(new(big.Int).Neg(p))})
	}
	return Pow(resultNum, Number{r: new(big.Rat).SetInt(p)})
}

// exactRoot returns x^(1/q) if it is an exact non-negative integer,
// via Newton's method over big.Int followed by an exact verification.
func exactRoot(x *big.Int, q *big.Int) (*big.Int, bool) {
	if x.Sign() == 0 {
		return big.NewInt(0), true
	}
	if !q.IsInt64() {
		return nil, false
	}
	n := q.Int64()
	if n == 1 {
		return new(big.Int).Set(x), true
	}
	// Initial guess is x itself, refined downward by Newton's method on
	// f(r) = r^n - x.
	guess := new(big.Int).Set(x)
	nBig := big.NewInt(n)
	one := big.NewInt(1)
	for {
		pw := new(big.Int).Exp(guess, nBig, nil)
		if pw.Cmp(x) == 0 {
			return guess, true
		}
		// next = guess - (guess^n - x) / (n * guess^(n-1))
		num := new(big.Int).Sub(pw, x)
		denomExp := new(big.Int).Exp(guess, new(big.Int).Sub(nBig, one), nil)
		denom := new(big.Int).Mul(nBig, denomExp)
		if denom.Sign() == 0 {
			return nil, false
		}
		delta := new(big.Int).Quo(num, denom)
		if delta.Sign() == 0 {
			// Converged without exact hit (or is exact at a neighbour);
			// probe a small neighbourhood.
			for _, cand := range []*big.Int{
				guess,
				new(big.Int).Add(guess, one),
				new(big.Int).Sub(guess, one),
			} {
				if cand.Sign() < 0 {
					continue
				}
				if new(big.Int).Exp(cand, nBig, nil).Cmp(x) == 0 {
					return cand, true
				}
			}
			return nil, false
		}
		next := new(big.Int).Sub(guess, delta)
		if next.Sign() <= 0 {
			next = big.NewInt(1)
		}
		if next.Cmp(guess) == 0 {
			return nil, false
		}
		guess = next
	}
}
