// Package vm implements the Lantern bytecode virtual machine.
//
// A VM is driven through Interpret, which compiles source with the compiler
// injected by UseCompiler, binds the host's native descriptors as globals,
// runs the program to completion and reports a tagged InterpretResult. Native
// calls leave the VM through a Dispatcher, keyed by DispatchID only.
package vm

// CompileFunc compiles source into a chunk. A non-empty error slice means
// compilation failed; the chunk is then ignored.
type CompileFunc func(source string) (*Chunk, []CompileError)

// VM is a single-threaded interpreter instance. It is not safe for
// concurrent use and must not be re-entered from a native call.
type VM struct {
	compile CompileFunc

	// Execution state, reset by every Interpret call
	chunk      *Chunk
	ip         int
	opStart    int
	stack      []Value
	sp         int
	globals    map[string]Value
	natives    []NativeFunction
	dispatcher Dispatcher

	state     State
	stateHook func(State)
}

// New creates a VM with no compiler attached.
func New() *VM {
	return &VM{
		stack:   make([]Value, 256),
		globals: make(map[string]Value),
	}
}

// UseCompiler sets the compiler backend (typically compiler.Compile).
func (vm *VM) UseCompiler(compileFunc CompileFunc) {
	vm.compile = compileFunc
}

// OnStateChange registers a hook called on every lifecycle transition.
func (vm *VM) OnStateChange(fn func(State)) {
	vm.stateHook = fn
}

// State returns the lifecycle state of the current or last run.
func (vm *VM) State() State {
	return vm.state
}

// Global returns the value of a global after a run, for inspection.
func (vm *VM) Global(name string) (Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

func (vm *VM) setState(s State) {
	vm.state = s
	if vm.stateHook != nil {
		vm.stateHook(s)
	}
}

func (vm *VM) reset() {
	vm.chunk = nil
	vm.ip = 0
	vm.opStart = 0
	vm.sp = 0
	vm.globals = make(map[string]Value)
	vm.natives = nil
	vm.dispatcher = nil
	vm.setState(StateCreated)
}

// Check compiles source without running it and returns its diagnostics.
func (vm *VM) Check(source string) []CompileError {
	if vm.compile == nil {
		return []CompileError{{Line: 1, Start: 0, Len: 1, Message: "no compiler configured"}}
	}
	_, errs := vm.compile(source)
	return errs
}

// Interpret compiles and runs source. natives are bound as globals under
// their names; calls to them go through d with the descriptor's ID.
func (vm *VM) Interpret(source string, natives []NativeFunction, d Dispatcher) InterpretResult {
	vm.reset()

	vm.setState(StateCompiling)
	if vm.compile == nil {
		vm.setState(StateCompileFailed)
		return InterpretResult{
			Kind:          ResultCompileError,
			CompileErrors: []CompileError{{Line: 1, Start: 0, Len: 1, Message: "no compiler configured"}},
		}
	}
	chunk, errs := vm.compile(source)
	if len(errs) > 0 {
		vm.setState(StateCompileFailed)
		return InterpretResult{Kind: ResultCompileError, CompileErrors: errs}
	}

	vm.bindNatives(natives)
	vm.dispatcher = d
	vm.chunk = chunk

	vm.setState(StateRunning)
	if rerr := vm.run(); rerr != nil {
		vm.setState(StateRuntimeFailed)
		return InterpretResult{Kind: ResultRuntimeError, RuntimeError: rerr}
	}
	vm.setState(StateCompleted)
	return InterpretResult{Kind: ResultOK}
}

// bindNatives copies the descriptors into VM-owned storage so every global
// points at its own immutable slot.
func (vm *VM) bindNatives(natives []NativeFunction) {
	vm.natives = make([]NativeFunction, len(natives))
	copy(vm.natives, natives)
	for i := range vm.natives {
		desc := &vm.natives[i]
		vm.globals[desc.Name] = FromNative(desc)
	}
}
