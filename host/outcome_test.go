package host

import (
	"bytes"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/lantern/vm"
)

func TestNewOutcome_States(t *testing.T) {
	tests := []struct {
		name    string
		res     vm.InterpretResult
		success bool
		errs    int
		runtime string
	}{
		{"ok", vm.InterpretResult{Kind: vm.ResultOK}, true, 0, ""},
		{"compile", vm.InterpretResult{
			Kind:          vm.ResultCompileError,
			CompileErrors: []vm.CompileError{{Line: 1, Start: 2, Len: 3, Message: "bad"}},
		}, false, 1, ""},
		{"runtime", vm.InterpretResult{
			Kind:         vm.ResultRuntimeError,
			RuntimeError: &vm.RuntimeError{Message: "boom"},
		}, false, 0, "boom"},
		{"empty compile list", vm.InterpretResult{Kind: vm.ResultCompileError}, false, 1, ""},
		{"nil runtime error", vm.InterpretResult{Kind: vm.ResultRuntimeError}, false, 0, missingFault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOutcome(tt.res)
			if err := o.Validate(); err != nil {
				t.Fatal(err)
			}
			if o.Success() != tt.success {
				t.Errorf("Success: got %v, want %v", o.Success(), tt.success)
			}
			if len(o.CompileErrors()) != tt.errs {
				t.Errorf("CompileErrors: got %d, want %d", len(o.CompileErrors()), tt.errs)
			}
			if o.RuntimeError() != tt.runtime {
				t.Errorf("RuntimeError: got %q, want %q", o.RuntimeError(), tt.runtime)
			}
			if o.Kind() != tt.res.Kind {
				t.Errorf("Kind: got %v, want %v", o.Kind(), tt.res.Kind)
			}
		})
	}
}

func TestOutcomeFromCompileErrors_MapsFields(t *testing.T) {
	o := OutcomeFromCompileErrors([]vm.CompileError{
		{Line: 3, Start: 7, Len: 2, Message: "a"},
		{Line: 3, Start: 7, Len: 2, Message: "a"},
		{Line: 1, Start: -1, Len: 0, Message: "b"},
	})
	want := []CompileError{
		{Line: 3, Start: 7, Len: 2, Message: "a"},
		{Line: 3, Start: 7, Len: 2, Message: "a"},
		{Line: 1, Start: 0, Len: 1, Message: "b"},
	}
	got := o.CompileErrors()
	if len(got) != len(want) {
		t.Fatalf("got %d errors, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("error %d: got %+v, want %+v", i, got[i], want[i])
		}
	}

	// Callers get a copy.
	got[0].Line = 99
	if o.CompileErrors()[0].Line != 3 {
		t.Error("CompileErrors exposed internal storage")
	}
}

func TestOutcomeFromRuntimeError_KeepsMessageVerbatim(t *testing.T) {
	o := OutcomeFromRuntimeError(&vm.RuntimeError{Message: "division by zero", Line: 4})
	if o.RuntimeError() != "division by zero" {
		t.Errorf("RuntimeError: got %q, want %q", o.RuntimeError(), "division by zero")
	}
	if o.RuntimeLine() != 4 {
		t.Errorf("RuntimeLine: got %d, want 4", o.RuntimeLine())
	}
	if o.String() != "runtime error: [line 4] division by zero" {
		t.Errorf("String: got %q", o.String())
	}

	data, err := MarshalOutcome(o)
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalOutcome(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.RuntimeError() != "division by zero" || got.RuntimeLine() != 4 {
		t.Errorf("round trip: got %q at line %d", got.RuntimeError(), got.RuntimeLine())
	}

	if o := OutcomeFromRuntimeError(&vm.RuntimeError{Message: "boom"}); o.RuntimeLine() != 0 || o.String() != "runtime error: boom" {
		t.Errorf("unknown line: got %d, %q", o.RuntimeLine(), o.String())
	}
}

func TestOutcome_Status(t *testing.T) {
	if OutcomeOK().Status() != StatusGood {
		t.Error("ok outcome is not good")
	}
	if OutcomeFromRuntimeError(&vm.RuntimeError{Message: "x"}).Status() != StatusBad {
		t.Error("runtime failure is not bad")
	}
}

func TestOutcome_CBORRoundTrip(t *testing.T) {
	outcomes := []*Outcome{
		OutcomeOK(),
		OutcomeFromCompileErrors([]vm.CompileError{
			{Line: 2, Start: 0, Len: 1, Message: "x"},
			{Line: 1, Start: 4, Len: 3, Message: "y"},
		}),
		OutcomeFromRuntimeError(&vm.RuntimeError{Message: "division by zero", Line: 1}),
	}
	for _, o := range outcomes {
		data, err := MarshalOutcome(o)
		if err != nil {
			t.Fatalf("MarshalOutcome(%s): %v", o, err)
		}
		got, err := UnmarshalOutcome(data)
		if err != nil {
			t.Fatalf("UnmarshalOutcome(%s): %v", o, err)
		}
		if got.String() != o.String() {
			t.Errorf("round trip: got %s, want %s", got, o)
		}

		again, _ := MarshalOutcome(got)
		if !bytes.Equal(again, data) {
			t.Errorf("encoding of %s is not deterministic", o)
		}
	}
}

func TestUnmarshalOutcome_RejectsInvalid(t *testing.T) {
	invalid := []outcomeWire{
		{Success: true, RuntimeError: "x"},
		{Success: false},
		{Success: false, RuntimeError: "x", CompileErrors: []CompileError{{Line: 1, Len: 1}}},
		{Success: false, CompileErrors: []CompileError{{Line: 1, Len: 0}}},
		{Success: true, RuntimeLine: 3},
	}
	for _, w := range invalid {
		data, err := cbor.Marshal(w)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := UnmarshalOutcome(data); err == nil {
			t.Errorf("UnmarshalOutcome(%+v): expected error", w)
		}
	}
}

func TestOutcome_CBORMarshaler(t *testing.T) {
	type envelope struct {
		Run     string   `cbor:"run"`
		Outcome *Outcome `cbor:"outcome"`
	}
	in := envelope{Run: "r1", Outcome: OutcomeFromRuntimeError(&vm.RuntimeError{Message: "boom"})}

	data, err := cbor.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out envelope
	if err := cbor.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Outcome == nil || out.Outcome.RuntimeError() != "boom" {
		t.Errorf("got %+v", out.Outcome)
	}
}
