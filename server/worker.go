// Package server shares a host.Session between goroutines and serves it to
// editors over the Language Server Protocol.
package server

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"

	"github.com/chazu/lantern/host"
	"github.com/chazu/lantern/vm"
)

// ErrStopped is returned by Do after Stop.
var ErrStopped = errors.New("worker stopped")

// request represents a unit of work to be executed on the session goroutine.
type request struct {
	fn   func(*host.Session) any
	done chan result
}

// result holds the return value from a session operation.
type result struct {
	value any
	err   error
}

// Worker serializes all Session access through a single goroutine.
// A Session runs one script at a time; every caller that may run
// concurrently must go through the worker. A native that calls back into
// its own worker gets host.ErrReentrant instead of waiting on itself.
type Worker struct {
	session  *host.Session
	requests chan request
	quit     chan struct{}
	stopOnce sync.Once
	gid      atomic.Int64 // id of the loop goroutine
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(s *host.Session) *Worker {
	w := &Worker{
		session:  s,
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	w.gid.Store(goid.Get())
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the session, recovering from panics.
func (w *Worker) execute(fn func(*host.Session) any) result {
	var res result
	func() {
		defer func() {
			if r := recover(); r != nil {
				res.err = fmt.Errorf("%v", r)
			}
		}()
		res.value = fn(w.session)
	}()
	return res
}

// Do submits a function for execution on the session goroutine and blocks
// until it completes. Returns the result and any error (including panics).
// Called from the worker's own goroutine, it returns host.ErrReentrant.
func (w *Worker) Do(fn func(*host.Session) any) (any, error) {
	if goid.Get() == w.gid.Load() {
		return nil, host.ErrReentrant
	}
	req := request{
		fn:   fn,
		done: make(chan result, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrStopped
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, ErrStopped
	}
}

// Interpret runs source on the worker goroutine.
func (w *Worker) Interpret(source string, natives []host.Native) (*host.Outcome, error) {
	type reply struct {
		outcome *host.Outcome
		err     error
	}
	v, err := w.Do(func(s *host.Session) any {
		outcome, err := s.Interpret(source, natives)
		return reply{outcome, err}
	})
	if err != nil {
		return nil, err
	}
	r := v.(reply)
	return r.outcome, r.err
}

// Check compiles source on the worker goroutine.
func (w *Worker) Check(source string) (*host.Outcome, error) {
	v, err := w.Do(func(s *host.Session) any {
		return s.Check(source)
	})
	if err != nil {
		return nil, err
	}
	return v.(*host.Outcome), nil
}

// Natives lists the descriptors a run on the session would see.
func (w *Worker) Natives() []vm.NativeFunction {
	v, err := w.Do(func(s *host.Session) any {
		return s.Natives()
	})
	if err != nil {
		return nil
	}
	return v.([]vm.NativeFunction)
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}

// Session returns the underlying session (for read-only metadata such as
// its id and native descriptors).
func (w *Worker) Session() *host.Session {
	return w.session
}
