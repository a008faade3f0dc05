package ir

import "fmt"

// ErrorKind classifies compile errors.
type ErrorKind int

const (
	DuplicateDefinition ErrorKind = iota
	UndefinedVariable
	TooManySymbols
	InvalidReferenceTarget
	AssignToCallExpression
	InvalidAssignTarget
	ImportFailed
)

func (k ErrorKind) String() string {
	switch k {
	case DuplicateDefinition:
		return "DuplicateDefinition"
	case UndefinedVariable:
		return "UndefinedVariable"
	case TooManySymbols:
		return "TooManySymbols"
	case InvalidReferenceTarget:
		return "InvalidReferenceTarget"
	case AssignToCallExpression:
		return "AssignToCallExpression"
	case InvalidAssignTarget:
		return "InvalidAssignTarget"
	case ImportFailed:
		return "ImportFailed"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// CompileError is the first error met while compiling a program.
type CompileError struct {
	Kind   ErrorKind
	Line   int
	Column int
	Msg    string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}
