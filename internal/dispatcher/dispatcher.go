package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cexll/triagebot/internal/handlers"
	"github.com/cexll/triagebot/internal/triage"
)

// Outcome is the result of one handler in a run.
type Outcome struct {
	Handler  string
	Err      error
	Duration time.Duration
}

// Result collects every handler outcome of a run in registration order.
type Result struct {
	Outcomes []Outcome
}

// Failed reports whether any handler recorded a hard failure.
func (r *Result) Failed() bool {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return true
		}
	}
	return false
}

// FailedHandlers returns the names of handlers that failed.
func (r *Result) FailedHandlers() []string {
	var names []string
	for _, o := range r.Outcomes {
		if o.Err != nil {
			names = append(names, o.Handler)
		}
	}
	return names
}

// Err joins the handler errors, or returns nil when the run succeeded.
func (r *Result) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("handler %s: %w", o.Handler, o.Err))
		}
	}
	return errors.Join(errs...)
}

// Dispatcher runs every registered handler on a run concurrently and waits
// for all of them. Handlers are independent: a failure or panic in one never
// cancels another. Runs for the same issue are serialised so two deliveries
// cannot interleave their guard checks and mutations.
type Dispatcher struct {
	registry   *handlers.Registry
	keyedLocks *keyedMutex
}

// New creates a dispatcher over registry.
func New(registry *handlers.Registry) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		keyedLocks: newKeyedMutex(),
	}
}

// Dispatch runs all handlers on run and returns their joined outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, run *triage.Run) *Result {
	key := fmt.Sprintf("%s#%d", run.Event.GetRepositoryFullName(), run.Number())
	d.keyedLocks.Lock(key)
	defer d.keyedLocks.Unlock(key)

	all := d.registry.All()
	result := &Result{Outcomes: make([]Outcome, len(all))}

	// A plain Group: a failing handler must not cancel its siblings' context.
	// Wait still reports the first failure; Result keeps all of them.
	var g errgroup.Group
	for i, h := range all {
		g.Go(func() error {
			out := d.invoke(ctx, h, run)
			result.Outcomes[i] = out
			if out.Err != nil {
				run.Log.WithField("handler", out.Handler).WithError(out.Err).Error("Handler failed")
				return fmt.Errorf("handler %s: %w", out.Handler, out.Err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		run.Log.WithError(err).WithField("failed", result.FailedHandlers()).Warn("Run completed with failures")
		return result
	}
	run.Log.Debug("Run completed")
	return result
}

func (d *Dispatcher) invoke(ctx context.Context, h handlers.Handler, run *triage.Run) (out Outcome) {
	out.Handler = h.Name()
	start := time.Now()

	scoped := *run
	scoped.Log = run.Log.WithField("handler", h.Name())

	defer func() {
		out.Duration = time.Since(start)
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic: %v", r)
		}
		scoped.Log.WithField("duration", out.Duration).Debug("Handler finished")
	}()

	out.Err = h.Handle(ctx, &scoped)
	return out
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{
		locks: make(map[string]*keyedEntry),
	}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}
