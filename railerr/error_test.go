package railerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMessageIncludesStack(t *testing.T) {
	err := New(UndefinedVariable, []Frame{{Function: "main", Thread: 0}, {Function: "foo", Thread: 2}}, "variable %q not found", "x")
	msg := err.Error()
	require.Contains(t, msg, "UndefinedVariable")
	require.Contains(t, msg, `variable "x" not found`)
	require.Contains(t, msg, "foo (thread 2)")
}

func TestIsMatchesOnKindOnly(t *testing.T) {
	a := New(ZeroError, nil, "division by zero")
	b := New(ZeroError, []Frame{{Function: "other"}}, "different message")
	require.True(t, errors.Is(a, b), "expected errors.Is to match on Kind alone")

	c := New(ValueError, nil, "division by zero")
	require.False(t, errors.Is(a, c), "expected different Kinds to not match")
}

func TestWithStackCopies(t *testing.T) {
	orig := New(MutexError, []Frame{{Function: "a"}}, "conflict")
	wrapped := orig.WithStack([]Frame{{Function: "b"}, {Function: "a"}})
	require.Len(t, orig.Stack, 1, "original stack mutated")
	require.Len(t, wrapped.Stack, 2)
}
