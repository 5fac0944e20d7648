/*
Copyright (c) 2026 Tickway Authors.
Licensed under the MIT License.
*/

// Package fake implements an in-memory scheduling engine for testing
// consumers of this library. Triggers are offered manually through the
// Handle's Trigger method; the fake never computes trigger times itself.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dapr/kit/cron"
	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/tickway/go-cron-runner/api"
	apierrors "github.com/tickway/go-cron-runner/api/errors"
)

// Engine is a fake scheduling engine.
type Engine struct {
	lock          sync.Mutex
	clock         clock.Clock
	createErr     error
	registrations map[string]*Handle
}

func New() *Engine {
	return &Engine{
		clock:         clock.RealClock{},
		registrations: make(map[string]*Handle),
	}
}

// WithClock sets the clock used to apply backoff delays after reported
// failures.
func (e *Engine) WithClock(c clock.Clock) *Engine {
	e.clock = c
	return e
}

// WithCreateRegistrationError makes all CreateRegistration calls fail with
// the given error.
func (e *Engine) WithCreateRegistrationError(err error) *Engine {
	e.createErr = err
	return e
}

// CreateRegistration registers a named job. Malformed canonical schedule
// strings and duplicate live names are rejected, mirroring the engine
// contract.
func (e *Engine) CreateRegistration(ctx context.Context, name, schedule string, backoff []time.Duration) (api.Handle, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	if e.createErr != nil {
		return nil, e.createErr
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("malformed schedule %q: %w", schedule, err)
	}

	if existing, ok := e.registrations[name]; ok && !existing.Released() {
		return nil, apierrors.NewJobAlreadyExists(name)
	}

	handle := &Handle{
		id:        uuid.New(),
		name:      name,
		schedule:  schedule,
		backoff:   backoff,
		clock:     e.clock,
		triggerCh: make(chan struct{}, 1024),
		stopCh:    make(chan struct{}),
		releaseCh: make(chan struct{}),
	}
	e.registrations[name] = handle

	return handle, nil
}

// Registration returns the handle registered under the given name, or nil.
func (e *Engine) Registration(name string) *Handle {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.registrations[name]
}

// Handle is a fake registration handle.
type Handle struct {
	id       uuid.UUID
	name     string
	schedule string
	backoff  []time.Duration
	clock    clock.Clock

	lock     sync.Mutex
	outcomes []bool
	failures int

	triggerCh   chan struct{}
	stopCh      chan struct{}
	stopOnce    sync.Once
	releaseCh   chan struct{}
	releaseOnce sync.Once
}

// NextTrigger records the reported outcome, applies the registered backoff
// schedule after consecutive failures, then blocks until a trigger is
// offered, the handle is released or stopped, or ctx is cancelled.
func (h *Handle) NextTrigger(ctx context.Context, prevSuccess bool) (bool, error) {
	h.lock.Lock()
	h.outcomes = append(h.outcomes, prevSuccess)
	if prevSuccess {
		h.failures = 0
	} else {
		h.failures++
	}
	failures := h.failures
	h.lock.Unlock()

	if failures > 0 && len(h.backoff) > 0 {
		timer := h.clock.NewTimer(h.backoff[min(failures, len(h.backoff))-1])
		defer timer.Stop()
		select {
		case <-timer.C():
		case <-h.releaseCh:
			return false, nil
		case <-h.stopCh:
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	// A release or stop always wins over an already offered trigger, so a
	// released registration never delivers another trigger.
	select {
	case <-h.releaseCh:
		return false, nil
	case <-h.stopCh:
		return false, nil
	default:
	}

	select {
	case <-h.releaseCh:
		return false, nil
	case <-h.stopCh:
		return false, nil
	case <-h.triggerCh:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Release cancels pending and future triggers. Idempotent.
func (h *Handle) Release(ctx context.Context) error {
	h.releaseOnce.Do(func() {
		close(h.releaseCh)
	})
	return nil
}

// Trigger offers a single trigger to the next NextTrigger call.
func (h *Handle) Trigger() {
	h.triggerCh <- struct{}{}
}

// Stop makes all further NextTrigger calls report definitive termination,
// as an engine which will never produce another trigger.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
	})
}

// Outcomes returns the sequence of prevSuccess values reported so far.
func (h *Handle) Outcomes() []bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	outcomes := make([]bool, len(h.outcomes))
	copy(outcomes, h.outcomes)
	return outcomes
}

// Released returns whether the handle has been released.
func (h *Handle) Released() bool {
	select {
	case <-h.releaseCh:
		return true
	default:
		return false
	}
}

func (h *Handle) ID() uuid.UUID    { return h.id }
func (h *Handle) Name() string     { return h.name }
func (h *Handle) Schedule() string { return h.schedule }
