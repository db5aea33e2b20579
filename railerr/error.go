// Package railerr defines the error taxonomy raised by the evaluator
// (§7 of SPEC_FULL.md): a fixed set of Kinds, each carrying the
// call-stack trace at the point it was raised.
package railerr

import (
	"fmt"
	"strings"
)

// Kind identifies which of Railway's fixed error categories an Error
// belongs to. Kinds never change meaning once added; new statements
// must reuse an existing Kind rather than invent a near-duplicate.
type Kind int

const (
	LeakedInformation Kind = iota
	UndefinedVariable
	NameClash
	IndexError
	TypeError
	UndefinedFunction
	FailedAssertion
	DirectionChange
	ReferenceOwnership
	ZeroError
	ValueError
	CallError
	IllegalMono
	ExpectedMono
	ExhaustedTry
	TryReverseError
	ImportError
	MutexError
	Sympathetic
)

var kindNames = map[Kind]string{
	LeakedInformation:  "LeakedInformation",
	UndefinedVariable:  "UndefinedVariable",
	NameClash:          "NameClash",
	IndexError:         "IndexError",
	TypeError:          "TypeError",
	UndefinedFunction:  "UndefinedFunction",
	FailedAssertion:    "FailedAssertion",
	DirectionChange:    "DirectionChange",
	ReferenceOwnership: "ReferenceOwnership",
	ZeroError:          "ZeroError",
	ValueError:         "ValueError",
	CallError:          "CallError",
	IllegalMono:        "IllegalMono",
	ExpectedMono:       "ExpectedMono",
	ExhaustedTry:       "ExhaustedTry",
	TryReverseError:    "TryReverseError",
	ImportError:        "ImportError",
	MutexError:         "MutexError",
	Sympathetic:        "Sympathetic",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Frame is one entry of a captured stack trace: the function that was
// executing, and which thread (§5.3) it was executing on.
type Frame struct {
	Function string
	Thread   int
}

func (f Frame) String() string {
	if f.Thread == 0 {
		return f.Function
	}
	return fmt.Sprintf("%s (thread %d)", f.Function, f.Thread)
}

// Error is the concrete type of every error the evaluator raises.
// Stack is captured at raise time from the scope chain (never a live
// *scope.Scope pointer, so that an Error can outlive the scopes that
// produced it — e.g. when it crosses a goroutine boundary during
// parallel execution, §5.4/§7).
type Error struct {
	Kind    Kind
	Message string
	Stack   []Frame
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	for _, f := range e.Stack {
		b.WriteString("\n\tat ")
		b.WriteString(f.String())
	}
	return b.String()
}

// Is supports errors.Is(err, railerr.New(kind, nil, "")) style matching on
// Kind alone, ignoring Message and Stack.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an Error with the given Kind and formatted message,
// attaching stack as its captured trace.
func New(kind Kind, stack []Frame, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Stack:   append([]Frame(nil), stack...),
	}
}

// WithStack returns a copy of e with its Stack replaced, for a caller
// that re-observes an error raised deep in a callee and wants to
// attach its own frames. The evaluator itself does not call it.
func (e *Error) WithStack(stack []Frame) *Error {
	cp := *e
	cp.Stack = append([]Frame(nil), stack...)
	return &cp
}
