/*
Copyright (c) 2026 Tickway Authors.
Licensed under the MIT License.
*/

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/tickway/go-cron-runner/api"
	"github.com/tickway/go-cron-runner/cron"
	"github.com/tickway/go-cron-runner/fake"
)

// Options are the options for creating an integration instance.
type Options struct {
	// Engine is the fake engine to run against. Defaults to a new fake.
	Engine *fake.Engine

	// Log is the logger for the cron runner. Defaults to a discarding
	// logger.
	Log *logr.Logger
}

// Instance is a running cron runner wired to a fake engine, torn down with
// the test.
type Instance struct {
	api    api.Interface
	engine *fake.Engine
	ctx    context.Context
}

func New(t *testing.T, opts Options) *Instance {
	t.Helper()

	engine := opts.Engine
	if engine == nil {
		engine = fake.New()
	}

	log := logr.Discard()
	if opts.Log != nil {
		log = *opts.Log
	}

	c, err := cron.New(cron.Options{
		Log:    log,
		Engine: engine,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- c.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			require.Fail(t, "cron runner did not shut down")
		}
	})

	return &Instance{
		api:    c,
		engine: engine,
		ctx:    ctx,
	}
}

func (i *Instance) API() api.Interface {
	return i.api
}

func (i *Instance) Engine() *fake.Engine {
	return i.engine
}

func (i *Instance) Context() context.Context {
	return i.ctx
}

// Handle returns the fake registration handle for the given job name,
// waiting for the registration to appear.
func (i *Instance) Handle(t *testing.T, name string) *fake.Handle {
	t.Helper()
	require.Eventually(t, func() bool {
		return i.engine.Registration(name) != nil
	}, 5*time.Second, 10*time.Millisecond)
	return i.engine.Registration(name)
}
