/*
Copyright (c) 2026 Tickway Authors.
Licensed under the MIT License.
*/

package errors

import (
	"errors"
	"fmt"
)

// JobAlreadyExists is an error type that indicates a live Job with the same
// name is already registered.
type JobAlreadyExists struct {
	err string
}

func (j JobAlreadyExists) Error() string {
	return j.err
}

func NewJobAlreadyExists(job string) JobAlreadyExists {
	return JobAlreadyExists{err: fmt.Sprintf("job already exists: '%s'", job)}
}

func IsJobAlreadyExists(err error) bool {
	var jobAlreadyExists JobAlreadyExists
	return errors.As(err, &jobAlreadyExists)
}

// InvalidSchedule is an error type that indicates a structured schedule is
// malformed. It is always raised before any engine interaction.
type InvalidSchedule struct {
	err string
}

func (i InvalidSchedule) Error() string {
	return i.err
}

func NewInvalidSchedule(reason string) InvalidSchedule {
	return InvalidSchedule{err: fmt.Sprintf("invalid schedule: %s", reason)}
}

func IsInvalidSchedule(err error) bool {
	var invalidSchedule InvalidSchedule
	return errors.As(err, &invalidSchedule)
}
