package host

import (
	"fmt"
	"strings"

	"github.com/chazu/lantern/vm"
)

// CompileError is the host-facing copy of one compile diagnostic.
type CompileError struct {
	Line    uint   `cbor:"1,keyasint"`
	Start   uint   `cbor:"2,keyasint"`
	Len     uint   `cbor:"3,keyasint"`
	Message string `cbor:"4,keyasint,omitempty"`
}

func (e CompileError) String() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Start+1, e.Message)
}

// Status is the two-valued result of the minimal surface.
type Status string

const (
	StatusGood Status = "good"
	StatusBad  Status = "bad"
)

// Outcome is the flat report of one run. Exactly one of these holds:
// success with no diagnostics; failure with at least one compile error;
// failure with a non-empty runtime error. Outcomes are read-only once built.
type Outcome struct {
	success       bool
	compileErrors []CompileError
	runtimeError  string
	runtimeLine   uint
}

const (
	missingDiagnostic = "compilation failed without diagnostics"
	missingFault      = "runtime error"
)

// OutcomeOK reports a run that completed.
func OutcomeOK() *Outcome {
	return &Outcome{success: true}
}

// OutcomeFromCompileErrors maps each diagnostic 1:1, in the order given.
// A compile failure always carries a diagnostic, so an empty list is a
// collaborator defect; it is logged and replaced by one synthetic entry.
func OutcomeFromCompileErrors(errs []vm.CompileError) *Outcome {
	if len(errs) == 0 {
		log.Error("compile failure reported with no diagnostics")
		return &Outcome{compileErrors: []CompileError{{Line: 1, Len: 1, Message: missingDiagnostic}}}
	}

	out := make([]CompileError, len(errs))
	for i, e := range errs {
		out[i] = CompileError{
			Line:    clampUint(e.Line, 0),
			Start:   clampUint(e.Start, 0),
			Len:     clampUint(e.Len, 1),
			Message: e.Message,
		}
	}
	return &Outcome{compileErrors: out}
}

// OutcomeFromRuntimeError copies the fault message verbatim and keeps the
// line separately.
func OutcomeFromRuntimeError(rerr *vm.RuntimeError) *Outcome {
	if rerr == nil {
		log.Error("runtime failure reported with no error")
		return &Outcome{runtimeError: missingFault}
	}
	line := clampUint(rerr.Line, 0)
	if rerr.Message == "" {
		log.Error("runtime failure reported with no message")
		return &Outcome{runtimeError: missingFault, runtimeLine: line}
	}
	return &Outcome{runtimeError: rerr.Message, runtimeLine: line}
}

// NewOutcome marshals a tagged VM result.
func NewOutcome(res vm.InterpretResult) *Outcome {
	switch res.Kind {
	case vm.ResultOK:
		return OutcomeOK()
	case vm.ResultCompileError:
		return OutcomeFromCompileErrors(res.CompileErrors)
	case vm.ResultRuntimeError:
		return OutcomeFromRuntimeError(res.RuntimeError)
	}
	log.Errorf("unknown result kind %v", res.Kind)
	return &Outcome{runtimeError: fmt.Sprintf("unknown result kind %v", res.Kind)}
}

func clampUint(n, min int) uint {
	if n < min {
		return uint(min)
	}
	return uint(n)
}

// Success reports whether the run completed.
func (o *Outcome) Success() bool {
	return o.success
}

// CompileErrors returns a copy of the diagnostics in source order.
func (o *Outcome) CompileErrors() []CompileError {
	if len(o.compileErrors) == 0 {
		return nil
	}
	errs := make([]CompileError, len(o.compileErrors))
	copy(errs, o.compileErrors)
	return errs
}

// RuntimeError returns the fault message, or "".
func (o *Outcome) RuntimeError() string {
	return o.runtimeError
}

// RuntimeLine returns the 1-based source line of the fault, or 0 when the
// line is unknown or the run did not fault.
func (o *Outcome) RuntimeLine() uint {
	return o.runtimeLine
}

// Kind returns the VM result tag this outcome was built from.
func (o *Outcome) Kind() vm.ResultKind {
	switch {
	case o.success:
		return vm.ResultOK
	case len(o.compileErrors) > 0:
		return vm.ResultCompileError
	}
	return vm.ResultRuntimeError
}

// Status collapses the outcome for the minimal surface.
func (o *Outcome) Status() Status {
	if o.success {
		return StatusGood
	}
	return StatusBad
}

// String renders a one-line summary.
func (o *Outcome) String() string {
	switch o.Kind() {
	case vm.ResultOK:
		return "ok"
	case vm.ResultCompileError:
		msgs := make([]string, len(o.compileErrors))
		for i, e := range o.compileErrors {
			msgs[i] = e.String()
		}
		return fmt.Sprintf("%d compile error(s): %s", len(msgs), strings.Join(msgs, "; "))
	}
	if o.runtimeLine > 0 {
		return fmt.Sprintf("runtime error: [line %d] %s", o.runtimeLine, o.runtimeError)
	}
	return "runtime error: " + o.runtimeError
}

// Validate checks the exclusivity of the three states.
func (o *Outcome) Validate() error {
	hasCompile := len(o.compileErrors) > 0
	hasRuntime := o.runtimeError != ""
	switch {
	case o.success && (hasCompile || hasRuntime):
		return fmt.Errorf("invalid outcome: success with errors attached")
	case !o.success && hasCompile && hasRuntime:
		return fmt.Errorf("invalid outcome: both compile errors and runtime error")
	case !o.success && !hasCompile && !hasRuntime:
		return fmt.Errorf("invalid outcome: failure without errors")
	case o.runtimeLine > 0 && !hasRuntime:
		return fmt.Errorf("invalid outcome: runtime line without runtime error")
	}
	for i, e := range o.compileErrors {
		if e.Len == 0 {
			return fmt.Errorf("invalid outcome: compile error %d has zero length", i)
		}
	}
	return nil
}
