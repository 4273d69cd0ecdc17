// Package host is the embedding boundary of the Lantern engine.
//
// A Session runs script source in a fresh VM, exposes Go callables to the
// script through a Registry and Bridge, and reports each run as a flat
// Outcome: success, a list of compile errors, or a single runtime error.
package host

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/lantern/compiler"
	"github.com/chazu/lantern/vm"
)

var log = commonlog.GetLogger("lantern.host")

// Session owns the natives a host registered and runs scripts against them.
// Every Interpret call gets a fresh VM and a fresh Registry: globals never
// carry over, natives registered on the Session do, and natives passed to
// Interpret last for that call only.
//
// A Session is not safe for concurrent use; server.Worker serializes access
// when several goroutines share one.
type Session struct {
	id      string
	out     io.Writer
	log     commonlog.Logger
	compile vm.CompileFunc

	natives []Native
	running atomic.Bool
	state   vm.State
}

// Option configures a Session.
type Option func(*Session)

// WithOutput sets where print writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Session) {
		s.out = w
	}
}

// WithLogger replaces the session logger.
func WithLogger(l commonlog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// WithNatives adds session-lifetime natives. Name collisions are reported by
// the first Interpret call.
func WithNatives(natives ...Native) Option {
	return func(s *Session) {
		s.natives = append(s.natives, natives...)
	}
}

// WithCompiler replaces the compiler backend.
func WithCompiler(fn vm.CompileFunc) Option {
	return func(s *Session) {
		s.compile = fn
	}
}

// New creates a Session.
func New(opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		out:     os.Stdout,
		log:     log,
		compile: compiler.Compile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// State returns the lifecycle state reached by the last run.
func (s *Session) State() vm.State {
	return s.state
}

// Register adds a session-lifetime native. The name is checked against
// print and every native already registered on the Session.
func (s *Session) Register(name string, arity int, fn Callable) error {
	if s.running.Load() {
		return ErrReentrant
	}
	candidate := append(s.nativesCopy(), Native{Name: name, Arity: arity, Callback: fn})
	if _, err := s.registry(candidate); err != nil {
		return err
	}
	s.natives = candidate
	return nil
}

// Natives returns the descriptors a script run would see with no per-call
// natives: print followed by the session natives, in registration order.
// Natives that cannot be registered, such as a name given twice through
// WithNatives, are logged and left out; the rest are still listed.
func (s *Session) Natives() []vm.NativeFunction {
	reg := NewRegistry()
	if _, err := reg.registerBuiltin(PrintName, 1, printNative(s.out)); err != nil {
		s.log.Errorf("session %s: %v", s.id, err)
	}
	for _, n := range s.natives {
		if _, err := reg.Register(n.Name, n.Arity, n.Callback); err != nil {
			s.log.Errorf("session %s: %v", s.id, err)
		}
	}
	return reg.Descriptors()
}

// Interpret compiles and runs source. natives are layered on top of print
// and the session natives for this call only. A registry error is returned
// as err before the script runs; script failures are reported in the
// Outcome.
func (s *Session) Interpret(source string, natives []Native) (*Outcome, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrReentrant
	}
	defer s.running.Store(false)

	reg, err := s.registry(append(s.nativesCopy(), natives...))
	if err != nil {
		return nil, err
	}

	machine := vm.New()
	machine.UseCompiler(s.compile)
	machine.OnStateChange(func(st vm.State) {
		s.state = st
		s.log.Debugf("session %s: %s", s.id, st)
	})

	res := machine.Interpret(source, reg.Descriptors(), NewBridge(reg))
	outcome := NewOutcome(res)
	if outcome.Success() {
		s.log.Infof("session %s: run completed", s.id)
	} else {
		s.log.Infof("session %s: run failed: %s", s.id, outcome)
	}
	return outcome, nil
}

// Check compiles source without running it.
func (s *Session) Check(source string) *Outcome {
	machine := vm.New()
	machine.UseCompiler(s.compile)
	if errs := machine.Check(source); len(errs) > 0 {
		return OutcomeFromCompileErrors(errs)
	}
	return OutcomeOK()
}

// registry builds the table for one run: print first, then natives.
func (s *Session) registry(natives []Native) (*Registry, error) {
	reg := NewRegistry()
	if _, err := reg.registerBuiltin(PrintName, 1, printNative(s.out)); err != nil {
		return nil, err
	}
	if err := reg.RegisterAll(natives); err != nil {
		return nil, fmt.Errorf("session %s: %w", s.id, err)
	}
	return reg, nil
}

func (s *Session) nativesCopy() []Native {
	natives := make([]Native, len(s.natives))
	copy(natives, s.natives)
	return natives
}
