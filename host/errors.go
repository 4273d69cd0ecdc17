package host

import (
	"errors"
	"fmt"
)

// Registry errors are setup-time defects returned to the host directly.
// Bridge errors (ErrArityMismatch, ErrMarshal) surface as the run's
// runtime error instead.
var (
	ErrDuplicateName     = errors.New("duplicate native name")
	ErrInvalidArity      = errors.New("invalid native arity")
	ErrInvalidNative     = errors.New("invalid native")
	ErrUnknownDispatchID = errors.New("unknown dispatch id")
	ErrArityMismatch     = errors.New("arity mismatch")
	ErrMarshal           = errors.New("unsupported value")
	ErrReentrant         = errors.New("session is already interpreting")
)

// MarshalError reports a value that cannot cross the boundary.
type MarshalError struct {
	Native string // name of the native being called
	Where  string // "argument N" or "result"
	Type   string // the offending kind or Go type
}

func (e *MarshalError) Error() string {
	return fmt.Sprintf("%s: cannot marshal %s of type %s: %v", e.Native, e.Where, e.Type, ErrMarshal)
}

// Unwrap lets errors.Is(err, ErrMarshal) match.
func (e *MarshalError) Unwrap() error {
	return ErrMarshal
}
