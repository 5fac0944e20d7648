/*
Copyright (c) 2026 Tickway Authors.
Licensed under the MIT License.
*/

package suite

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickway/go-cron-runner/api"
	"github.com/tickway/go-cron-runner/tests/framework/integration"
)

func Test_deleteStopsTriggers(t *testing.T) {
	t.Parallel()

	inst := integration.New(t, integration.Options{})

	var calls atomic.Int64
	calledCh := make(chan struct{}, 1)
	require.NoError(t, inst.API().Add(inst.Context(), "yoyo", &api.Job{
		Schedule: new(api.Spec),
		Handler: func(context.Context) error {
			calls.Add(1)
			calledCh <- struct{}{}
			return nil
		},
	}))

	handle := inst.Handle(t, "yoyo")

	handle.Trigger()
	waitCalled(t, calledCh)

	require.NoError(t, inst.API().Delete(inst.Context(), "yoyo"))
	require.NoError(t, inst.API().Wait(inst.Context(), "yoyo"))
	assert.True(t, handle.Released())

	// Triggers offered after the release never reach the handler.
	handle.Trigger()
	assert.Equal(t, int64(1), calls.Load())

	// Deleting again is a no-op.
	require.NoError(t, inst.API().Delete(inst.Context(), "yoyo"))
}

func Test_deleteDuringInflightTriggerRequest(t *testing.T) {
	t.Parallel()

	inst := integration.New(t, integration.Options{})

	require.NoError(t, inst.API().Add(inst.Context(), "yoyo", &api.Job{
		Schedule: new(api.Spec),
		Handler: func(context.Context) error {
			assert.Fail(t, "handler should not be invoked")
			return nil
		},
	}))

	// The drive loop is parked awaiting its first trigger; deleting must
	// resolve that in-flight request promptly.
	require.NoError(t, inst.API().Delete(inst.Context(), "yoyo"))
	require.NoError(t, inst.API().Wait(inst.Context(), "yoyo"))
	assert.True(t, inst.Handle(t, "yoyo").Released())
}
