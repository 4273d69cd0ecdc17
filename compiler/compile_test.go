package compiler

import (
	"strings"
	"testing"

	"github.com/chazu/lantern/vm"
)

// printDispatcher collects the display form of every print call.
type printDispatcher struct {
	out []string
}

func (d *printDispatcher) Dispatch(id vm.DispatchID, args []vm.Value) (vm.Value, error) {
	d.out = append(d.out, args[0].String())
	return vm.Nil, nil
}

var printNative = []vm.NativeFunction{{Name: "print", Arity: 1, ID: 0}}

func run(t *testing.T, source string) ([]string, vm.InterpretResult) {
	t.Helper()
	machine := vm.New()
	machine.UseCompiler(Compile)
	d := &printDispatcher{}
	res := machine.Interpret(source, printNative, d)
	return d.out, res
}

func TestCompileAndRun(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{"arithmetic", "print(1 + 2 * 3 - 4 / 2)", []string{"5"}},
		{"grouping", "print((1 + 2) * 3)", []string{"9"}},
		{"modulo", "print(7 % 3)", []string{"1"}},
		{"negation", "print(-(2 - 5))", []string{"3"}},
		{"concatenation", `print("a" + "b")`, []string{"ab"}},
		{"comparison", "print(1 < 2)\nprint(2 <= 1)\nprint(3 >= 3)\nprint(1 != 1)", []string{"true", "false", "true", "false"}},
		{"equality across kinds", `print(1 == "1")`, []string{"false"}},
		{"not", "print(!nil)", []string{"true"}},
		{"globals", "var a = 1\na = a + 1\nprint(a)", []string{"2"}},
		{"uninitialized global", "var a\nprint(a)", []string{"nil"}},
		{"locals shadow", "var a = \"outer\"\n{ var a = \"inner\"; print(a) }\nprint(a)", []string{"inner", "outer"}},
		{"nested locals", "{ var a = 1; { var b = a + 1; print(b) } print(a) }", []string{"2", "1"}},
		{"if else", "if (1 > 2) print(\"yes\") else print(\"no\")", []string{"no"}},
		{"if no else", "if (true) print(1)\nprint(2)", []string{"1", "2"}},
		{"while", "var i = 0\nwhile (i < 3) { print(i); i = i + 1 }", []string{"0", "1", "2"}},
		{"and short circuit", "print(false and undefined)\nprint(1 and 2)", []string{"false", "2"}},
		{"or short circuit", "print(1 or undefined)\nprint(nil or \"x\")", []string{"1", "x"}},
		{"semicolons", "print(1); print(2);", []string{"1", "2"}},
		{"comments", "// nothing\nprint(1) // trailing", []string{"1"}},
		{"print native", "print(print)", []string{"<native print/1>"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, res := run(t, tt.source)
			if res.Kind != vm.ResultOK {
				t.Fatalf("kind = %v, compile errors %v, runtime %v", res.Kind, res.CompileErrors, res.RuntimeError)
			}
			if strings.Join(out, "|") != strings.Join(tt.want, "|") {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestCompileRuntimeErrors(t *testing.T) {
	tests := []struct {
		source string
		want   string
		line   int
	}{
		{"1/0", "division by zero", 1},
		{"print(1)\nprint(x)", "undefined variable 'x'", 2},
		{"y = 1", "undefined variable 'y'", 1},
		{`-"a"`, "operand must be a number", 1},
		{`1 < "a"`, "operands must be numbers", 1},
		{"var f = 1\nf()", "can only call functions, got number", 2},
		{"print(1, 2)", "print: expected 1 arguments but got 2", 1},
	}

	for _, tt := range tests {
		_, res := run(t, tt.source)
		if res.Kind != vm.ResultRuntimeError {
			t.Errorf("%q: kind = %v, want runtime-error", tt.source, res.Kind)
			continue
		}
		if res.RuntimeError.Message != tt.want || res.RuntimeError.Line != tt.line {
			t.Errorf("%q: got %q at line %d, want %q at line %d",
				tt.source, res.RuntimeError.Message, res.RuntimeError.Line, tt.want, tt.line)
		}
	}
}

func TestCompileScopeErrors(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"{ var a = 1; var a = 2 }", "variable 'a' already declared in this scope"},
		{"{ var a = a }", "can't read local variable 'a' in its own initializer"},
	}

	for _, tt := range tests {
		chunk, errs := Compile(tt.source)
		if chunk != nil {
			t.Errorf("%q: got a chunk despite errors", tt.source)
		}
		if len(errs) != 1 || errs[0].Message != tt.want {
			t.Errorf("%q: errors = %v, want %q", tt.source, errs, tt.want)
		}
	}
}

func TestCompileReportsAllParseErrors(t *testing.T) {
	_, errs := Compile("var = 1\nprint(1 +)\nvar ok = 2\nif x) y")
	if len(errs) != 3 {
		t.Fatalf("got %d errors: %v", len(errs), errs)
	}
	for i, line := range []int{1, 2, 4} {
		if errs[i].Line != line {
			t.Errorf("error %d on line %d, want %d", i, errs[i].Line, line)
		}
	}
}

func TestCompileGlobalRedefinition(t *testing.T) {
	out, res := run(t, "var a = 1\nvar a = 2\nprint(a)")
	if res.Kind != vm.ResultOK {
		t.Fatalf("kind = %v", res.Kind)
	}
	if len(out) != 1 || out[0] != "2" {
		t.Errorf("output = %v, want [2]", out)
	}
}

func TestCompileDisassembles(t *testing.T) {
	chunk, errs := Compile("var a = 1\nprint(a)")
	if len(errs) > 0 {
		t.Fatal(errs)
	}
	listing := vm.Disassemble(chunk, "script")
	for _, op := range []string{"DEFINE_GLOBAL", "PUSH_GLOBAL", "CALL", "RETURN"} {
		if !strings.Contains(listing, op) {
			t.Errorf("listing missing %s:\n%s", op, listing)
		}
	}
}
