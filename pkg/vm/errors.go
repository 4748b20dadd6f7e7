// Package vm - typed runtime errors with call-frame context, adapted from
// the teacher's pkg/vm/errors.go RuntimeError/StackFrame shape (there keyed
// by method name and message selector; here by instruction pointer and
// frame pointer, since this VM has no classes or message sends).
package vm

import (
	"fmt"
	"strings"
)

// ErrKind is the runtime error taxonomy of spec §7 — exactly four members.
type ErrKind byte

const (
	TypeError ErrKind = iota
	OutOfRange
	StackOverflow
	OutOfMemory
)

func (k ErrKind) String() string {
	switch k {
	case TypeError:
		return "TypeError"
	case OutOfRange:
		return "OutOfRange"
	case StackOverflow:
		return "StackOverflow"
	case OutOfMemory:
		return "OutOfMemory"
	default:
		return "?unknown-error-kind?"
	}
}

// FrameInfo captures one call frame at the moment an error was raised —
// the VM's analog of the teacher's StackFrame, trading method/selector
// names (this VM has neither classes nor message sends) for the raw
// ip/frame-pointer coordinates spec §4.3 defines.
type FrameInfo struct {
	IP            uint32
	FramePointer  int
}

// RuntimeError is a typed, described runtime failure (spec §7). Its
// description is considered arena-scoped text for the duration of a single
// run, per spec §3's "Lifecycle" (Go's GC backs the actual string, but the
// error is never retained past the Run call that produced it).
type RuntimeError struct {
	Kind    ErrKind
	Message string
	Frames  []FrameInfo // innermost frame first
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	for _, f := range e.Frames {
		fmt.Fprintf(&b, "\n  at ip=%d fp=%d", f.IP, f.FramePointer)
	}
	return b.String()
}

func newError(kind ErrKind, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
