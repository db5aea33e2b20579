package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArithmetic(t *testing.T) {
	a := NewRat(1, 2)
	b := NewRat(1, 3)

	require.Equal(t, "5/6", Add(a, b).String())
	require.Equal(t, "1/6", Mul(a, b).String())
	div, err := Div(a, b)
	require.NoError(t, err)
	require.Equal(t, "3/2", div.String())
	_, err = Div(a, Zero)
	require.Error(t, err, "Div by zero should fail")
}

func TestIDivAndMod(t *testing.T) {
	cases := []struct {
		a, b    int64
		wantQ   string
		wantMod string
	}{
		{7, 2, "3", "1"},
		{-7, 2, "-4", "1"},
		{7, -2, "-4", "-1"},
		{-7, -2, "3", "-1"},
	}
	for _, c := range cases {
		q, err := IDiv(NewInt(c.a), NewInt(c.b))
		require.NoErrorf(t, err, "IDiv(%d,%d)", c.a, c.b)
		require.Equalf(t, c.wantQ, q.String(), "IDiv(%d,%d)", c.a, c.b)
		m, err := Mod(NewInt(c.a), NewInt(c.b))
		require.NoErrorf(t, err, "Mod(%d,%d)", c.a, c.b)
		require.Equalf(t, c.wantMod, m.String(), "Mod(%d,%d)", c.a, c.b)
	}
}

func TestPowIntegerExponents(t *testing.T) {
	p, err := Pow(NewInt(2), NewInt(10))
	require.NoError(t, err)
	require.Equal(t, "1024", p.String())

	neg, err := Pow(NewInt(2), NewInt(-1))
	require.NoError(t, err)
	require.Equal(t, "1/2", neg.String())
}

func TestPowExactRationalRoot(t *testing.T) {
	half := NewRat(1, 2)
	got, err := Pow(NewInt(4), half)
	require.NoError(t, err)
	require.Equal(t, "2", got.String())
}

func TestPowIrrationalResultIsValueError(t *testing.T) {
	half := NewRat(1, 2)
	_, err := Pow(NewInt(2), half)
	require.Error(t, err, "Pow(2, 1/2) should fail: irrational result")
}

func TestTruthAndComparison(t *testing.T) {
	require.False(t, Zero.Truth(), "Zero should not be truthy")
	require.True(t, One.Truth(), "One should be truthy")
	require.Zero(t, NewRat(2, 4).Cmp(NewRat(1, 2)), "2/4 should compare equal to 1/2")
}

func TestString(t *testing.T) {
	require.Equal(t, "3", NewInt(3).String())
	require.Equal(t, "3/4", NewRat(3, 4).String())
}
