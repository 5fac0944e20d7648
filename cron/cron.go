/*
Copyright (c) 2026 Tickway Authors.
Licensed under the MIT License.
*/

package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"github.com/tickway/go-cron-runner/api"
	apierrors "github.com/tickway/go-cron-runner/api/errors"
	"github.com/tickway/go-cron-runner/internal/grammar"
	"github.com/tickway/go-cron-runner/internal/runner"
	"github.com/tickway/go-cron-runner/internal/validator"
)

// ErrClosed is returned by API calls made after the instance has begun
// shutting down.
var ErrClosed = errors.New("cron runner is closed")

// Options are the options for creating a new cron runner instance.
type Options struct {
	// Log is the logger to use for logging.
	Log logr.Logger

	// Engine is the scheduling engine to register jobs with. Required.
	Engine api.Engine

	// JobNameSanitizer is a replacer that sanitizes job names before name
	// validation.
	JobNameSanitizer *strings.Replacer
}

// cron is the implementation of the cron runner interface.
type cron struct {
	log       logr.Logger
	engine    api.Engine
	validator *validator.Validator

	lock   sync.Mutex
	jobs   map[string]*entry
	runCtx context.Context
	wg     sync.WaitGroup

	running atomic.Bool
	readyCh chan struct{}
	closeCh chan struct{}
}

// entry tracks a single registered job's drive loop. err is written at most
// once, before doneCh is closed.
type entry struct {
	runner *runner.Runner
	doneCh chan struct{}
	err    error
}

// New creates a new cron runner instance.
func New(opts Options) (api.Interface, error) {
	if opts.Engine == nil {
		return nil, errors.New("engine is required")
	}

	log := opts.Log
	if log.GetSink() == nil {
		sink, err := zap.NewProduction()
		if err != nil {
			return nil, err
		}
		log = zapr.NewLogger(sink)
		log = log.WithName("cron-runner")
	}

	return &cron{
		log:    log,
		engine: opts.Engine,
		validator: validator.New(validator.Options{
			JobNameSanitizer: opts.JobNameSanitizer,
		}),
		jobs:    make(map[string]*entry),
		readyCh: make(chan struct{}),
		closeCh: make(chan struct{}),
	}, nil
}

// Run is a blocking function that runs the cron runner instance. The
// instance is single use: once Run returns, all job drive loops have
// terminated and released their registrations, and the instance accepts no
// further jobs.
func (c *cron) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("cron runner is already running")
	}

	c.lock.Lock()
	c.runCtx = ctx
	c.lock.Unlock()

	close(c.readyCh)
	c.log.Info("cron runner is ready")

	<-ctx.Done()

	c.log.Info("cron runner is shutting down")

	// Closing under the lock orders this against Add's closed check, so a
	// drive loop is never started after the WaitGroup drain has begun.
	c.lock.Lock()
	close(c.closeCh)
	c.lock.Unlock()
	c.wg.Wait()

	return nil
}

// Add registers the named job with the engine and starts its drive loop.
func (c *cron) Add(ctx context.Context, name string, job *api.Job) error {
	if err := c.waitReady(ctx); err != nil {
		return err
	}

	if job == nil {
		return errors.New("job cannot be nil")
	}
	if err := c.validator.JobName(name); err != nil {
		return err
	}
	if job.Handler == nil {
		return errors.New("job handler cannot be nil")
	}
	if job.Schedule == nil {
		return errors.New("job schedule cannot be nil")
	}
	if err := c.validator.BackoffSchedule(job.BackoffSchedule); err != nil {
		return err
	}

	schedule, err := grammar.Canonical(job.Schedule)
	if err != nil {
		return err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	select {
	case <-c.closeCh:
		return ErrClosed
	default:
	}

	if existing, ok := c.jobs[name]; ok {
		select {
		case <-existing.doneCh:
			// Terminated; the name may be reused.
		default:
			return apierrors.NewJobAlreadyExists(name)
		}
	}

	handle, err := c.engine.CreateRegistration(ctx, name, schedule, job.BackoffSchedule)
	if err != nil {
		return fmt.Errorf("failed to create registration: %w", err)
	}

	r := runner.New(runner.Options{
		Log:     c.log,
		Name:    name,
		Handle:  handle,
		Handler: job.Handler,
	})

	e := &entry{
		runner: r,
		doneCh: make(chan struct{}),
	}
	c.jobs[name] = e

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(e.doneCh)

		if err := r.Run(c.runCtx); err != nil {
			e.err = err
			c.log.Error(err, "job drive loop failed", "job", name)
		}
	}()

	return nil
}

// Delete releases the named job's registration. The job's drive loop
// observes the release and terminates.
func (c *cron) Delete(ctx context.Context, name string) error {
	if err := c.waitReady(ctx); err != nil {
		return err
	}

	c.lock.Lock()
	e, ok := c.jobs[name]
	c.lock.Unlock()
	if !ok {
		return nil
	}

	e.runner.Cancel()

	return nil
}

// Wait blocks until the named job's drive loop has terminated.
func (c *cron) Wait(ctx context.Context, name string) error {
	select {
	case <-c.readyCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.lock.Lock()
	e, ok := c.jobs[name]
	c.lock.Unlock()
	if !ok {
		return fmt.Errorf("job does not exist: '%s'", name)
	}

	select {
	case <-e.doneCh:
		return e.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *cron) waitReady(ctx context.Context) error {
	select {
	case <-c.closeCh:
		return ErrClosed
	case <-c.readyCh:
		select {
		case <-c.closeCh:
			return ErrClosed
		default:
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
