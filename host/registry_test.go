package host

import (
	"errors"
	"testing"

	"github.com/chazu/lantern/vm"
)

func constant(v any) Callable {
	return func(args []any) (any, error) { return v, nil }
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	for i, name := range []string{"a", "b", "c"} {
		id, err := r.Register(name, i, constant(i))
		if err != nil {
			t.Fatalf("Register(%q): %v", name, err)
		}
		if id != vm.DispatchID(i) {
			t.Errorf("Register(%q): got id %d, want %d", name, id, i)
		}
	}
	if r.Len() != 3 {
		t.Errorf("Len: got %d, want 3", r.Len())
	}

	descs := r.Descriptors()
	for i, d := range descs {
		if d.ID != vm.DispatchID(i) || int(d.Arity) != i {
			t.Errorf("descriptor %d: got %+v", i, d)
		}
	}

	// The snapshot is independent of later registrations.
	if _, err := r.Register("d", 0, constant(nil)); err != nil {
		t.Fatal(err)
	}
	if len(descs) != 3 {
		t.Errorf("snapshot grew to %d", len(descs))
	}
}

func TestRegistry_RegisterErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Register("f", 1, constant(nil)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		arity int
		fn    Callable
		want  error
	}{
		{"f", 1, constant(nil), ErrDuplicateName},
		{"g", -1, constant(nil), ErrInvalidArity},
		{"g", vm.MaxArity + 1, constant(nil), ErrInvalidArity},
		{"", 0, constant(nil), ErrInvalidNative},
		{"g", 0, nil, ErrInvalidNative},
	}
	for _, tt := range tests {
		if _, err := r.Register(tt.name, tt.arity, tt.fn); !errors.Is(err, tt.want) {
			t.Errorf("Register(%q, %d): got %v, want %v", tt.name, tt.arity, err, tt.want)
		}
	}
	if r.Len() != 1 {
		t.Errorf("failed registrations changed the table: Len %d", r.Len())
	}
	if _, err := r.Register("wide", vm.MaxArity, constant(nil)); err != nil {
		t.Errorf("arity %d rejected: %v", vm.MaxArity, err)
	}
}

func TestRegistry_ResolveAndLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterAll([]Native{
		{Name: "zero", Callback: constant(0)},
		{Name: "one", Callback: constant(1)},
	}); err != nil {
		t.Fatal(err)
	}

	fn, err := r.Resolve(1)
	if err != nil {
		t.Fatalf("Resolve(1): %v", err)
	}
	if got, _ := fn(nil); got != 1 {
		t.Errorf("Resolve(1)(): got %v, want 1", got)
	}

	if _, err := r.Resolve(2); !errors.Is(err, ErrUnknownDispatchID) {
		t.Errorf("Resolve(2): got %v, want ErrUnknownDispatchID", err)
	}

	d, ok := r.Lookup("zero")
	if !ok || d.ID != 0 || d.Name != "zero" {
		t.Errorf("Lookup(zero): got %+v, %v", d, ok)
	}
	if _, ok := r.Lookup("two"); ok {
		t.Error("Lookup(two): found")
	}
}

func TestRegistry_RegisterAllStopsAtFirstError(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterAll([]Native{
		{Name: "a", Callback: constant(nil)},
		{Name: "a", Callback: constant(nil)},
		{Name: "b", Callback: constant(nil)},
	})
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("got %v, want ErrDuplicateName", err)
	}
	if _, ok := r.Lookup("b"); ok {
		t.Error("registration continued past the error")
	}
}
