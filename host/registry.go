package host

import (
	"fmt"

	"github.com/chazu/lantern/vm"
)

// Callable is a host function invocable from script. Arguments arrive as
// nil, bool, float64 or string; the result may be nil, bool, any Go integer
// or float, string, or a vm.Value.
type Callable func(args []any) (any, error)

// Native pairs a callable with the name and arity scripts see.
type Native struct {
	Name     string
	Arity    int
	Callback Callable
}

// registration is one immutable row of the dispatch table.
type registration struct {
	desc vm.NativeFunction
	fn   Callable
	raw  bool // arguments are passed as vm.Value, unconverted
}

// Registry owns the natives available to one run. Dispatch ids are indices
// into an append-only table, fixed when each native is registered, so a
// descriptor always resolves to the callable registered with it.
type Registry struct {
	table  []registration
	byName map[string]vm.DispatchID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]vm.DispatchID)}
}

// Register adds a native and returns its dispatch id.
func (r *Registry) Register(name string, arity int, fn Callable) (vm.DispatchID, error) {
	return r.register(name, arity, fn, false)
}

// registerBuiltin adds a native that receives its arguments as vm.Value,
// so values with no Go form (natives) still reach it.
func (r *Registry) registerBuiltin(name string, arity int, fn Callable) (vm.DispatchID, error) {
	return r.register(name, arity, fn, true)
}

func (r *Registry) register(name string, arity int, fn Callable, raw bool) (vm.DispatchID, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty name", ErrInvalidNative)
	}
	if fn == nil {
		return 0, fmt.Errorf("%w: %q has no callback", ErrInvalidNative, name)
	}
	if arity < 0 || arity > vm.MaxArity {
		return 0, fmt.Errorf("%w: %q declares %d, must be 0..%d", ErrInvalidArity, name, arity, vm.MaxArity)
	}
	if _, exists := r.byName[name]; exists {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	id := vm.DispatchID(len(r.table))
	r.table = append(r.table, registration{
		desc: vm.NativeFunction{Name: name, Arity: uint8(arity), ID: id},
		fn:   fn,
		raw:  raw,
	})
	r.byName[name] = id
	return id, nil
}

// RegisterAll registers natives in order, stopping at the first error.
func (r *Registry) RegisterAll(natives []Native) error {
	for _, n := range natives {
		if _, err := r.Register(n.Name, n.Arity, n.Callback); err != nil {
			return err
		}
	}
	return nil
}

// Descriptors returns a snapshot of the descriptors in registration order.
func (r *Registry) Descriptors() []vm.NativeFunction {
	descs := make([]vm.NativeFunction, len(r.table))
	for i, reg := range r.table {
		descs[i] = reg.desc
	}
	return descs
}

// Resolve returns the callable registered under id.
func (r *Registry) Resolve(id vm.DispatchID) (Callable, error) {
	reg, err := r.registration(id)
	if err != nil {
		return nil, err
	}
	return reg.fn, nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (vm.NativeFunction, bool) {
	id, ok := r.byName[name]
	if !ok {
		return vm.NativeFunction{}, false
	}
	return r.table[id].desc, true
}

// Len returns the number of registered natives.
func (r *Registry) Len() int {
	return len(r.table)
}

func (r *Registry) registration(id vm.DispatchID) (registration, error) {
	if int(id) >= len(r.table) {
		return registration{}, fmt.Errorf("%w: %d", ErrUnknownDispatchID, id)
	}
	return r.table[id], nil
}
