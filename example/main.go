/*
Copyright (c) 2026 Tickway Authors.
Licensed under the MIT License.
*/

package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tickway/go-cron-runner/api"
	"github.com/tickway/go-cron-runner/cron"
)

// intervalEngine is a toy scheduling engine which offers a trigger at a
// fixed interval, standing in for a real engine implementation. It ignores
// the canonical schedule string and the backoff schedule.
type intervalEngine struct {
	interval time.Duration
}

type intervalHandle struct {
	interval time.Duration

	releaseOnce sync.Once
	releaseCh   chan struct{}
}

func (e *intervalEngine) CreateRegistration(_ context.Context, name, schedule string, _ []time.Duration) (api.Handle, error) {
	fmt.Printf("registered %q with schedule %q\n", name, schedule)
	return &intervalHandle{
		interval:  e.interval,
		releaseCh: make(chan struct{}),
	}, nil
}

func (h *intervalHandle) NextTrigger(ctx context.Context, prevSuccess bool) (bool, error) {
	select {
	case <-time.After(h.interval):
		return true, nil
	case <-h.releaseCh:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (h *intervalHandle) Release(context.Context) error {
	h.releaseOnce.Do(func() { close(h.releaseCh) })
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, err := cron.New(cron.Options{
		Engine: &intervalEngine{interval: time.Second},
	})
	if err != nil {
		panic(err)
	}

	go func() {
		if err := runner.Add(ctx, "hello", &api.Job{
			Schedule: &api.Spec{
				Minute:    api.Step{Start: 5, Every: 10},
				DayOfWeek: []uint32{1, 3},
			},
			BackoffSchedule: []time.Duration{time.Second, 5 * time.Second},
			Handler: func(context.Context) error {
				fmt.Println("triggered!")
				return nil
			},
		}); err != nil {
			panic(err)
		}
	}()

	if err := runner.Run(ctx); err != nil {
		panic(err)
	}
}
