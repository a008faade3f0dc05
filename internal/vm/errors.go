package vm

import "fmt"

// ErrorKind classifies runtime errors.
type ErrorKind int

const (
	TypeMismatch ErrorKind = iota
	IndexOutOfRange
	UndefinedStructMember
	ArityMismatch
	UnknownBuiltin
	StackOverflow
	StackUnderflow
	FrameOverflow
	GlobalOverflow
	DanglingReference
	NotCallable
	BuiltinFailed
)

var kindNames = [...]string{
	TypeMismatch:          "TypeMismatch",
	IndexOutOfRange:       "IndexOutOfRange",
	UndefinedStructMember: "UndefinedStructMember",
	ArityMismatch:         "ArityMismatch",
	UnknownBuiltin:        "UnknownBuiltin",
	StackOverflow:         "StackOverflow",
	StackUnderflow:        "StackUnderflow",
	FrameOverflow:         "FrameOverflow",
	GlobalOverflow:        "GlobalOverflow",
	DanglingReference:     "DanglingReference",
	NotCallable:           "NotCallable",
	BuiltinFailed:         "BuiltinFailed",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// RuntimeError stops the current run.
type RuntimeError struct {
	Kind ErrorKind
	Func string
	Line int
	Msg  string
	Err  error // builtin failure, if any
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("runtime error in %s at line %d: %s", e.Func, e.Line, e.Msg)
	}
	return fmt.Sprintf("runtime error: %s", e.Msg)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func errorf(kind ErrorKind, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
