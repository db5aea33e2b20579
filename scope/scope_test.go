package scope

import (
	"testing"

	"github.com/jndean/Railway/value"
	"github.com/stretchr/testify/require"
)

func TestAssignAndLookupNamespaces(t *testing.T) {
	g := NewGlobals()
	s := New("main", 0, g, nil)

	local := &Variable{Mem: value.NewNumber(value.NewInt(1))}
	require.NoError(t, s.Assign("x", local))
	mono := &Variable{Mem: value.NewNumber(value.NewInt(2)), IsMono: true}
	require.NoError(t, s.Assign(".m", mono))

	got, err := s.Lookup("x")
	require.NoError(t, err)
	require.Same(t, local, got)

	got, err = s.Lookup(".m")
	require.NoError(t, err)
	require.Same(t, mono, got)
}

func TestAssignNameClash(t *testing.T) {
	g := NewGlobals()
	s := New("main", 0, g, nil)
	v := &Variable{Mem: value.NewNumber(value.Zero)}
	require.NoError(t, s.Assign("x", v))
	require.Error(t, s.Assign("x", v), "expected NameClash on second assign")
}

func TestLookupFallsThroughToGlobals(t *testing.T) {
	g := NewGlobals()
	gv := &Variable{Mem: value.NewNumber(value.NewInt(7))}
	require.NoError(t, g.Define("G", gv))
	s := New("main", 0, g, nil)
	got, err := s.Lookup("G")
	require.NoError(t, err)
	require.Same(t, gv, got)
}

func TestHasLiveMono(t *testing.T) {
	g := NewGlobals()
	s := New("f", 0, g, nil)
	require.False(t, s.HasLiveMono(), "fresh scope should have no live monos")

	require.NoError(t, s.Assign(".m", &Variable{Mem: value.NewNumber(value.Zero), IsMono: true}))
	require.True(t, s.HasLiveMono(), "expected live mono after assign")

	_, err := s.Remove(".m")
	require.NoError(t, err)
	require.False(t, s.HasLiveMono(), "expected no live mono after remove")
}

func TestTraceOrdersInnermostFirst(t *testing.T) {
	g := NewGlobals()
	root := New("main", 0, g, nil)
	child := New("f", 1, g, root)
	trace := child.Trace()
	require.Len(t, trace, 2)
	require.Equal(t, "f", trace[0].Function)
	require.Equal(t, "main", trace[1].Function)
}
