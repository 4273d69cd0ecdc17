package host

import (
	"fmt"
	"reflect"

	"github.com/chazu/lantern/vm"
)

// Bridge carries native calls out of the VM. It implements vm.Dispatcher:
// the id selects the registry row, arguments are converted to Go values,
// and the callable's result is converted back.
type Bridge struct {
	registry *Registry
}

// NewBridge returns a dispatcher over r.
func NewBridge(r *Registry) *Bridge {
	return &Bridge{registry: r}
}

// Dispatch invokes the native registered under id. Any failure, including a
// panic inside the callable, is returned as an error and becomes the run's
// runtime error.
func (b *Bridge) Dispatch(id vm.DispatchID, args []vm.Value) (result vm.Value, err error) {
	reg, err := b.registry.registration(id)
	if err != nil {
		return vm.Nil, err
	}
	name := reg.desc.Name

	if len(args) != int(reg.desc.Arity) {
		return vm.Nil, fmt.Errorf("%s: %w: expected %d arguments but got %d",
			name, ErrArityMismatch, reg.desc.Arity, len(args))
	}

	in := make([]any, len(args))
	for i, arg := range args {
		if reg.raw {
			in[i] = arg
			continue
		}
		if in[i], err = ToGo(arg); err != nil {
			return vm.Nil, &MarshalError{Native: name, Where: fmt.Sprintf("argument %d", i+1), Type: arg.Kind().String()}
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result = vm.Nil
			err = fmt.Errorf("%s: native panicked: %v", name, r)
		}
	}()

	out, err := reg.fn(in)
	if err != nil {
		return vm.Nil, fmt.Errorf("%s: %w", name, err)
	}
	v, err := FromGo(out)
	if err != nil {
		return vm.Nil, &MarshalError{Native: name, Where: "result", Type: fmt.Sprintf("%T", out)}
	}
	return v, nil
}

// ToGo converts a script value into the Go value a Callable receives.
// Natives have no Go form and are rejected.
func ToGo(v vm.Value) (any, error) {
	switch v.Kind() {
	case vm.KindNil:
		return nil, nil
	case vm.KindBool:
		return v.Bool(), nil
	case vm.KindNumber:
		return v.Number(), nil
	case vm.KindString:
		return v.Str(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMarshal, v.Kind())
}

// FromGo converts a Callable's result into a script value. Every Go integer
// and float kind becomes a number.
func FromGo(x any) (vm.Value, error) {
	switch x := x.(type) {
	case nil:
		return vm.Nil, nil
	case vm.Value:
		return x, nil
	case bool:
		return vm.FromBool(x), nil
	case string:
		return vm.FromString(x), nil
	case float64:
		return vm.FromNumber(x), nil
	case int:
		return vm.FromNumber(float64(x)), nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return vm.FromNumber(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return vm.FromNumber(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return vm.FromNumber(rv.Float()), nil
	case reflect.Bool:
		return vm.FromBool(rv.Bool()), nil
	case reflect.String:
		return vm.FromString(rv.String()), nil
	}
	return vm.Nil, fmt.Errorf("%w: %T", ErrMarshal, x)
}
