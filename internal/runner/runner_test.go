/*
Copyright (c) 2026 Tickway Authors.
Licensed under the MIT License.
*/

package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickway/go-cron-runner/api"
	"github.com/tickway/go-cron-runner/fake"
)

func registration(t *testing.T, engine *fake.Engine, name string) *fake.Handle {
	t.Helper()
	handle, err := engine.CreateRegistration(context.Background(), name, "* * * * *", nil)
	require.NoError(t, err)
	return handle.(*fake.Handle)
}

func waitCalled(t *testing.T, calledCh <-chan struct{}) {
	t.Helper()
	select {
	case <-calledCh:
	case <-time.After(5 * time.Second):
		require.Fail(t, "handler was not invoked")
	}
}

func Test_RunOutcomeReporting(t *testing.T) {
	t.Parallel()

	handle := registration(t, fake.New(), "flaky")

	var calls atomic.Int64
	calledCh := make(chan struct{}, 2)
	r := New(Options{
		Log:    logr.Discard(),
		Name:   "flaky",
		Handle: handle,
		Handler: func(context.Context) error {
			defer func() { calledCh <- struct{}{} }()
			if calls.Add(1) == 1 {
				return errors.New("this is an expected error")
			}
			return nil
		},
	})

	errCh := make(chan error)
	go func() { errCh <- r.Run(context.Background()) }()

	handle.Trigger()
	waitCalled(t, calledCh)
	handle.Trigger()
	waitCalled(t, calledCh)
	handle.Stop()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "runner did not terminate")
	}

	assert.Equal(t, int64(2), calls.Load())
	// The first request always reports success; trigger 1's failure is
	// carried on the request for trigger 2.
	assert.Equal(t, []bool{true, false, true}, handle.Outcomes())
}

func Test_RunEngineStop(t *testing.T) {
	t.Parallel()

	handle := registration(t, fake.New(), "stopped")

	r := New(Options{
		Log:    logr.Discard(),
		Name:   "stopped",
		Handle: handle,
		Handler: func(context.Context) error {
			assert.Fail(t, "handler should not be invoked")
			return nil
		},
	})

	handle.Stop()

	errCh := make(chan error)
	go func() { errCh <- r.Run(context.Background()) }()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "runner did not terminate")
	}

	assert.True(t, handle.Released())
}

func Test_RunCancel(t *testing.T) {
	t.Parallel()

	handle := registration(t, fake.New(), "cancelled")

	var calls atomic.Int64
	r := New(Options{
		Log:    logr.Discard(),
		Name:   "cancelled",
		Handle: handle,
		Handler: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	})

	errCh := make(chan error)
	go func() { errCh <- r.Run(context.Background()) }()

	r.Cancel()
	// Triggers offered after the release must never reach the handler.
	handle.Trigger()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "runner did not terminate")
	}

	assert.True(t, handle.Released())
	assert.Equal(t, int64(0), calls.Load())

	// Cancelling again after termination is a no-op.
	r.Cancel()
}

func Test_RunContextCancelled(t *testing.T) {
	t.Parallel()

	handle := registration(t, fake.New(), "ctx")

	r := New(Options{
		Log:     logr.Discard(),
		Name:    "ctx",
		Handle:  handle,
		Handler: func(context.Context) error { return nil },
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- r.Run(ctx) }()

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "runner did not terminate")
	}

	assert.True(t, handle.Released())
}

func Test_RunPanicRecovered(t *testing.T) {
	t.Parallel()

	handle := registration(t, fake.New(), "panicky")

	var calls atomic.Int64
	calledCh := make(chan struct{}, 2)
	r := New(Options{
		Log:    logr.Discard(),
		Name:   "panicky",
		Handle: handle,
		Handler: func(context.Context) error {
			defer func() { calledCh <- struct{}{} }()
			if calls.Add(1) == 1 {
				panic("this is an expected panic")
			}
			return nil
		},
	})

	errCh := make(chan error)
	go func() { errCh <- r.Run(context.Background()) }()

	handle.Trigger()
	waitCalled(t, calledCh)
	handle.Trigger()
	waitCalled(t, calledCh)
	handle.Stop()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "runner did not terminate")
	}

	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, []bool{true, false, true}, handle.Outcomes())
}

func Test_RunEngineError(t *testing.T) {
	t.Parallel()

	handle := &erroringHandle{err: errors.New("this is an expected error")}

	r := New(Options{
		Log:     logr.Discard(),
		Name:    "broken",
		Handle:  handle,
		Handler: func(context.Context) error { return nil },
	})

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, handle.released.Load())
}

func Test_RunAlreadyRunning(t *testing.T) {
	t.Parallel()

	handle := registration(t, fake.New(), "double")

	startedCh := make(chan struct{})
	var once sync.Once
	r := New(Options{
		Log:    logr.Discard(),
		Name:   "double",
		Handle: handle,
		Handler: func(context.Context) error {
			once.Do(func() { close(startedCh) })
			return nil
		},
	})

	errCh := make(chan error)
	go func() { errCh <- r.Run(context.Background()) }()

	handle.Trigger()
	select {
	case <-startedCh:
	case <-time.After(5 * time.Second):
		require.Fail(t, "runner did not start")
	}

	require.Error(t, r.Run(context.Background()))

	handle.Stop()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "runner did not terminate")
	}
}

type erroringHandle struct {
	err      error
	released atomic.Bool
}

func (e *erroringHandle) NextTrigger(context.Context, bool) (bool, error) {
	return false, e.err
}

func (e *erroringHandle) Release(context.Context) error {
	e.released.Store(true)
	return nil
}

var _ api.Handle = (*erroringHandle)(nil)
