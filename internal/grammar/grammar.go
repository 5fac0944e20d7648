/*
Copyright (c) 2026 Tickway Authors.
Licensed under the MIT License.
*/

package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tickway/go-cron-runner/api"
	apierrors "github.com/tickway/go-cron-runner/api/errors"
)

// Validate returns whether the given schedule is well formed. An Expression
// is always valid: it is passed to the engine verbatim and the engine is
// responsible for rejecting malformed cron expressions. A Spec is valid iff
// every present field carries a recognized shape.
func Validate(schedule api.Schedule) error {
	switch s := schedule.(type) {
	case api.Expression:
		return nil

	case *api.Spec:
		if s == nil {
			return apierrors.NewInvalidSchedule("schedule is nil")
		}

		for _, field := range []struct {
			name  string
			value api.Field
		}{
			{"minute", s.Minute},
			{"hour", s.Hour},
			{"day_of_month", s.DayOfMonth},
			{"month", s.Month},
		} {
			if err := validateField(field.value); err != nil {
				return apierrors.NewInvalidSchedule(fmt.Sprintf("field %q: %s", field.name, err))
			}
		}

		return nil

	case nil:
		return apierrors.NewInvalidSchedule("schedule is nil")

	default:
		return apierrors.NewInvalidSchedule(fmt.Sprintf("unrecognized schedule type %T", schedule))
	}
}

// Canonical validates the given schedule and canonicalizes it into the
// five-field cron grammar consumed by the engine: one token per field in
// minute, hour, day of month, month, day of week order, single space
// separated. An absent field formats as "*", an exact value as its decimal
// form, a step pair as "<start>/<every>", and the day of week set as its
// comma-joined decimal forms. An Expression is returned unchanged.
func Canonical(schedule api.Schedule) (string, error) {
	if err := Validate(schedule); err != nil {
		return "", err
	}

	switch s := schedule.(type) {
	case api.Expression:
		return string(s), nil

	case *api.Spec:
		tokens := []string{
			fieldToken(s.Minute),
			fieldToken(s.Hour),
			fieldToken(s.DayOfMonth),
			fieldToken(s.Month),
			dayOfWeekToken(s.DayOfWeek),
		}
		return strings.Join(tokens, " "), nil

	default:
		return "", apierrors.NewInvalidSchedule(fmt.Sprintf("unrecognized schedule type %T", schedule))
	}
}

func validateField(field api.Field) error {
	switch field.(type) {
	case nil, api.Exact, api.Step:
		return nil
	default:
		return fmt.Errorf("unrecognized field value %T", field)
	}
}

func fieldToken(field api.Field) string {
	switch f := field.(type) {
	case api.Exact:
		return strconv.FormatUint(uint64(f), 10)
	case api.Step:
		return strconv.FormatUint(uint64(f.Start), 10) + "/" + strconv.FormatUint(uint64(f.Every), 10)
	default:
		return "*"
	}
}

func dayOfWeekToken(days []uint32) string {
	if len(days) == 0 {
		return "*"
	}

	tokens := make([]string, len(days))
	for i, day := range days {
		tokens[i] = strconv.FormatUint(uint64(day), 10)
	}

	return strings.Join(tokens, ",")
}
