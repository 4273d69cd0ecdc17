package vm

import "fmt"

// ---------------------------------------------------------------------------
// InterpretResult: tagged outcome of one run
// ---------------------------------------------------------------------------

// ResultKind tags an InterpretResult.
type ResultKind int

const (
	ResultOK ResultKind = iota
	ResultCompileError
	ResultRuntimeError
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultCompileError:
		return "compile-error"
	case ResultRuntimeError:
		return "runtime-error"
	}
	return fmt.Sprintf("ResultKind(%d)", int(k))
}

// CompileError is one diagnostic produced by the compiler.
// Line is 1-based, Start is the 0-based byte column within the line and
// Len is the span length in bytes (at least 1).
type CompileError struct {
	Line    int
	Start   int
	Len     int
	Message string
}

func (e CompileError) Error() string {
	return fmt.Sprintf("[line %d:%d] %s", e.Line, e.Start+1, e.Message)
}

// RuntimeError is the single fault that halted a run.
type RuntimeError struct {
	Message string
	Line    int
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[line %d] %s", e.Line, e.Message)
	}
	return e.Message
}

// InterpretResult is what Interpret returns: exactly one of OK, a non-empty
// list of compile errors, or one runtime error.
type InterpretResult struct {
	Kind          ResultKind
	CompileErrors []CompileError
	RuntimeError  *RuntimeError
}

// ---------------------------------------------------------------------------
// Run lifecycle
// ---------------------------------------------------------------------------

// State is the lifecycle position of a run. Terminal states are
// StateCompileFailed, StateRuntimeFailed and StateCompleted.
type State int

const (
	StateCreated State = iota
	StateCompiling
	StateCompileFailed
	StateRunning
	StateRuntimeFailed
	StateCompleted
)

var stateNames = [...]string{
	StateCreated:       "created",
	StateCompiling:     "compiling",
	StateCompileFailed: "compile-failed",
	StateRunning:       "running",
	StateRuntimeFailed: "runtime-failed",
	StateCompleted:     "completed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompileFailed || s == StateRuntimeFailed || s == StateCompleted
}
