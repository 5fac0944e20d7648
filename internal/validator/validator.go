/*
Copyright (c) 2026 Tickway Authors.
Licensed under the MIT License.
*/

package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/validation"
)

// Options is a struct that contains options for the validator.
type Options struct {
	// JobNameSanitizer is a replacer that sanitizes job names before name
	// validation.
	JobNameSanitizer *strings.Replacer
}

// Validator validates job registration payloads before they reach the
// engine.
type Validator struct {
	jobNameSanitizer *strings.Replacer
}

func New(opts Options) *Validator {
	jobNameSanitizer := opts.JobNameSanitizer
	if jobNameSanitizer == nil {
		jobNameSanitizer = strings.NewReplacer("_", "", ":", "", "-", "", " ", "")
	}
	return &Validator{
		jobNameSanitizer: jobNameSanitizer,
	}
}

// JobName validates a job name string.
func (v *Validator) JobName(name string) error {
	if len(name) == 0 {
		return errors.New("job name cannot be empty")
	}

	name = v.jobNameSanitizer.Replace(name)
	for _, segment := range strings.Split(strings.ToLower(name), "||") {
		if errs := validation.IsDNS1123Subdomain(segment); len(errs) > 0 {
			return fmt.Errorf("job name is invalid %q: %s", name, strings.Join(errs, ", "))
		}
	}

	return nil
}

// BackoffSchedule validates a backoff delay sequence. Delays are magnitudes
// and must not be negative.
func (v *Validator) BackoffSchedule(backoff []time.Duration) error {
	for i, delay := range backoff {
		if delay < 0 {
			return fmt.Errorf("backoff schedule delay %d is negative: %s", i, delay)
		}
	}

	return nil
}
