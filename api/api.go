/*
Copyright (c) 2026 Tickway Authors.
Licensed under the MIT License.
*/

package api

import (
	"context"
	"time"
)

// Handler is the function invoked once per due trigger of a registered job.
// Returning a non-nil error marks the trigger as failed; the failure is
// reported to the engine on the next trigger request so it can apply the
// job's backoff schedule. A Handler error never stops the job's drive loop.
type Handler func(ctx context.Context) error

// Job describes a recurring job to be registered with the engine.
type Job struct {
	// Schedule is the cron schedule of the job, either a pre-formatted
	// Expression or a structured *Spec. Required.
	Schedule Schedule

	// Handler is invoked once per due trigger. Required.
	Handler Handler

	// BackoffSchedule is the ordered sequence of delays the engine applies
	// after consecutive Handler failures, before offering the next trigger.
	// All delays must be non-negative. Optional.
	BackoffSchedule []time.Duration
}

// Engine is the scheduling engine collaborator. It owns trigger time
// computation, persistence, and coordination; this library only speaks the
// registration contract below.
type Engine interface {
	// CreateRegistration registers a named job with the engine, given its
	// canonical five-field cron schedule string and optional backoff
	// schedule. The engine treats name as a uniqueness key and rejects
	// duplicates. Returns the handle used to request triggers for, and
	// eventually release, the registration.
	CreateRegistration(ctx context.Context, name, schedule string, backoff []time.Duration) (Handle, error)
}

// Handle is an opaque reference to a live registration. It is owned by the
// job's drive loop and released at most once by this library.
type Handle interface {
	// NextTrigger blocks until the engine determines a trigger is due,
	// carrying whether the previous trigger's handler completed without
	// error. The first call always carries true. Returns false to signal
	// definitive termination: no further triggers will ever be produced,
	// including after the handle has been released.
	NextTrigger(ctx context.Context, prevSuccess bool) (bool, error)

	// Release cancels all pending and future triggers for this
	// registration. In-flight NextTrigger calls observe the release and
	// return false. Release is idempotent.
	Release(ctx context.Context) error
}

// API is the interface for registering jobs against the engine and driving
// their triggers.
type API interface {
	// Add registers the named job with the engine and starts its drive
	// loop. Configuration errors (invalid name, schedule, handler, or
	// backoff schedule, or a duplicate live job name) are returned before
	// any engine interaction. The drive loop's lifetime is bound to the
	// instance's Run context, not to the given ctx.
	Add(ctx context.Context, name string, job *Job) error

	// Delete releases the named job's registration, cancelling future
	// triggers and terminating its drive loop. Deleting an unknown or
	// already terminated job is a no-op.
	Delete(ctx context.Context, name string) error

	// Wait blocks until the named job's drive loop has terminated, either
	// because the engine signalled no further triggers, the job was
	// deleted, or the instance is shutting down. Returns the terminal
	// engine error of the drive loop, if any.
	Wait(ctx context.Context, name string) error
}

// Interface is a cron runner instance. It registers named recurring jobs
// with an external scheduling engine and drives each job's triggers through
// its handler, reporting per-trigger success or failure back to the engine.
type Interface interface {
	// Run is a blocking function that runs the cron runner instance. It
	// returns an error if the instance is already running. Returns when the
	// given context is cancelled, after all job drive loops have
	// terminated and released their registrations.
	Run(ctx context.Context) error

	// API implements the job registration API for the instance.
	API
}
