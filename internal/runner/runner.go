/*
Copyright (c) 2026 Tickway Authors.
Licensed under the MIT License.
*/

package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/tickway/go-cron-runner/api"
)

// Options are the options for creating a new job runner.
type Options struct {
	// Log is the logger to use for logging.
	Log logr.Logger

	// Name is the name of the registered job.
	Name string

	// Handle is the engine registration handle owned by this runner.
	Handle api.Handle

	// Handler is the job handler invoked once per due trigger.
	Handler api.Handler
}

// Runner drives a single registered job: it repeatedly awaits the engine's
// next trigger, invokes the handler, and reports the handler outcome on the
// following trigger request. A runner exclusively owns its handle and last
// outcome state; it is single threaded with respect to its job, so there is
// never more than one in-flight trigger request or handler execution.
type Runner struct {
	log     logr.Logger
	name    string
	handle  api.Handle
	handler api.Handler

	running     atomic.Bool
	releaseOnce sync.Once
}

func New(opts Options) *Runner {
	return &Runner{
		log:     opts.Log.WithName("runner").WithValues("job", opts.Name),
		name:    opts.Name,
		handle:  opts.Handle,
		handler: opts.Handler,
	}
}

// Run is a blocking function that drives the job until the engine signals no
// further triggers, the registration is cancelled, or the given context is
// cancelled. Handler failures are logged and reported to the engine; they
// never stop the loop. The registration handle is released on every return
// path, at most once.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return errors.New("runner is already running")
	}
	defer r.running.Store(false)

	// Release on context cancellation so an in-flight trigger request
	// observes the release rather than blocking until the next trigger is
	// due.
	stop := context.AfterFunc(ctx, r.release)
	defer stop()
	defer r.release()

	success := true
	for {
		due, err := r.handle.NextTrigger(ctx, success)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to await next trigger: %w", err)
		}

		if !due {
			r.log.V(1).Info("engine signalled no further triggers")
			return nil
		}

		success = r.trigger(ctx)
	}
}

// Cancel releases the job's registration, causing the drive loop to observe
// the release and terminate. Cancelling more than once, or after the loop
// has already terminated, is a no-op.
func (r *Runner) Cancel() {
	r.release()
}

func (r *Runner) trigger(ctx context.Context) (success bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error(fmt.Errorf("%v", rec), "job handler panicked")
			success = false
		}
	}()

	if err := r.handler(ctx); err != nil {
		r.log.Error(err, "job handler failed")
		return false
	}

	return true
}

func (r *Runner) release() {
	r.releaseOnce.Do(func() {
		if err := r.handle.Release(context.Background()); err != nil {
			r.log.Error(err, "failed to release job registration")
		}
	})
}
