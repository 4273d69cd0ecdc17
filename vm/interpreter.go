package vm

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Stack operations
// ---------------------------------------------------------------------------

func (vm *VM) push(v Value) {
	if vm.sp >= len(vm.stack) {
		// Grow the stack dynamically instead of panicking
		newStack := make([]Value, len(vm.stack)*2)
		copy(newStack, vm.stack)
		vm.stack = newStack
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	if vm.sp <= 0 {
		panic("stack underflow")
	}
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	if vm.sp-1-distance < 0 {
		panic("stack underflow")
	}
	return vm.stack[vm.sp-1-distance]
}

// ---------------------------------------------------------------------------
// Operand decoding
// ---------------------------------------------------------------------------

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readUint16() uint16 {
	v := vm.chunk.ReadUint16(vm.ip)
	vm.ip += 2
	return v
}

func (vm *VM) readConstant() Value {
	idx := int(vm.readUint16())
	if idx >= len(vm.chunk.Constants) {
		panic(fmt.Sprintf("constant index %d out of bounds (len=%d)", idx, len(vm.chunk.Constants)))
	}
	return vm.chunk.Constants[idx]
}

// fault builds the runtime error for the instruction being executed.
func (vm *VM) fault(format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{
		Message: fmt.Sprintf(format, args...),
		Line:    vm.chunk.LineAt(vm.opStart),
	}
}

// ---------------------------------------------------------------------------
// Execution loop
// ---------------------------------------------------------------------------

// run executes vm.chunk until it returns or faults. Internal panics (corrupt
// bytecode, stack underflow) are converted to runtime errors.
func (vm *VM) run() (rerr *RuntimeError) {
	defer func() {
		if r := recover(); r != nil {
			rerr = vm.fault("internal error: %v", r)
		}
	}()

	code := vm.chunk.Code
	for {
		if vm.ip >= len(code) {
			return nil
		}

		vm.opStart = vm.ip
		op := Opcode(vm.readByte())

		switch op {
		// --- Stack operations ---
		case OpNOP:
			// Do nothing

		case OpPOP:
			vm.pop()

		// --- Push constants ---
		case OpPushNil:
			vm.push(Nil)

		case OpPushTrue:
			vm.push(True)

		case OpPushFalse:
			vm.push(False)

		case OpPushConstant:
			vm.push(vm.readConstant())

		// --- Variables ---
		case OpPushLocal:
			slot := int(vm.readByte())
			vm.push(vm.stack[slot])

		case OpStoreLocal:
			slot := int(vm.readByte())
			vm.stack[slot] = vm.peek(0)

		case OpPushGlobal:
			name := vm.readConstant().Str()
			v, ok := vm.globals[name]
			if !ok {
				return vm.fault("undefined variable '%s'", name)
			}
			vm.push(v)

		case OpStoreGlobal:
			name := vm.readConstant().Str()
			if _, ok := vm.globals[name]; !ok {
				return vm.fault("undefined variable '%s'", name)
			}
			vm.globals[name] = vm.peek(0)

		case OpDefineGlobal:
			name := vm.readConstant().Str()
			vm.globals[name] = vm.pop()

		// --- Arithmetic ---
		case OpAdd:
			b, a := vm.pop(), vm.pop()
			switch {
			case a.IsNumber() && b.IsNumber():
				vm.push(FromNumber(a.Number() + b.Number()))
			case a.IsString() && b.IsString():
				vm.push(FromString(a.Str() + b.Str()))
			default:
				return vm.fault("operands must be two numbers or two strings")
			}

		case OpSubtract, OpMultiply, OpDivide, OpModulo, OpGreater, OpLess:
			if err := vm.binaryNumeric(op); err != nil {
				return err
			}

		case OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.fault("operand must be a number")
			}
			vm.push(FromNumber(-vm.pop().Number()))

		case OpNot:
			vm.push(FromBool(vm.pop().IsFalsey()))

		case OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(FromBool(a.Equal(b)))

		// --- Control flow ---
		case OpJump:
			offset := int(vm.readUint16())
			vm.ip += offset

		case OpJumpIfFalse:
			offset := int(vm.readUint16())
			if vm.peek(0).IsFalsey() {
				vm.ip += offset
			}

		case OpLoop:
			offset := int(vm.readUint16())
			vm.ip -= offset

		case OpCall:
			argc := int(vm.readByte())
			if err := vm.callNative(argc); err != nil {
				return err
			}

		case OpReturn:
			return nil

		default:
			return vm.fault("unknown opcode 0x%02X", byte(op))
		}
	}
}

func (vm *VM) binaryNumeric(op Opcode) *RuntimeError {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.fault("operands must be numbers")
	}
	b, a := vm.pop().Number(), vm.pop().Number()

	switch op {
	case OpSubtract:
		vm.push(FromNumber(a - b))
	case OpMultiply:
		vm.push(FromNumber(a * b))
	case OpDivide:
		if b == 0 {
			return vm.fault("division by zero")
		}
		vm.push(FromNumber(a / b))
	case OpModulo:
		if b == 0 {
			return vm.fault("modulo by zero")
		}
		vm.push(FromNumber(math.Mod(a, b)))
	case OpGreater:
		vm.push(FromBool(a > b))
	case OpLess:
		vm.push(FromBool(a < b))
	}
	return nil
}

// callNative invokes the native sitting below argc arguments. The
// descriptor's ID, not its name, selects the host callable.
func (vm *VM) callNative(argc int) *RuntimeError {
	callee := vm.peek(argc)
	desc := callee.Native()
	if desc == nil {
		return vm.fault("can only call functions, got %s", callee.Kind())
	}
	if int(desc.Arity) != argc {
		return vm.fault("%s: expected %d arguments but got %d", desc.Name, desc.Arity, argc)
	}
	if vm.dispatcher == nil {
		return vm.fault("%s: no native dispatcher", desc.Name)
	}

	args := make([]Value, argc)
	copy(args, vm.stack[vm.sp-argc:vm.sp])

	result, err := vm.dispatcher.Dispatch(desc.ID, args)
	if err != nil {
		return vm.fault("%s", err.Error())
	}

	vm.sp -= argc + 1
	vm.push(result)
	return nil
}
