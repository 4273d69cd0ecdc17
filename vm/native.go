package vm

// ---------------------------------------------------------------------------
// Native functions: the registration contract between the VM and its host
// ---------------------------------------------------------------------------

// MaxArity is the largest arity a native may declare. Call sites encode the
// argument count in a single byte.
const MaxArity = 255

// DispatchID identifies one registered native. The VM treats it as opaque
// and hands it back to the Dispatcher unchanged.
type DispatchID uint32

// NativeFunction describes a host callable to the VM. The VM never sees the
// callable itself, only this descriptor.
type NativeFunction struct {
	Name  string
	Arity uint8
	ID    DispatchID
}

// Dispatcher invokes natives on behalf of the VM. An error returned from
// Dispatch becomes the run's runtime error.
type Dispatcher interface {
	Dispatch(id DispatchID, args []Value) (Value, error)
}
