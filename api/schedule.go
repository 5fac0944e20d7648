/*
Copyright (c) 2026 Tickway Authors.
Licensed under the MIT License.
*/

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Schedule is the cron schedule of a job. It is either an opaque
// pre-formatted Expression, or a structured *Spec which is canonicalized
// into the five-field cron grammar before reaching the engine.
type Schedule interface {
	schedule()
}

// Expression is a pre-formatted cron expression. It is passed to the engine
// verbatim; the engine is responsible for rejecting malformed expressions.
type Expression string

func (Expression) schedule() {}

// Spec is a structured five-field cron schedule. A nil field matches every
// value of that field.
type Spec struct {
	Minute     Field
	Hour       Field
	DayOfMonth Field
	Month      Field

	// DayOfWeek is the set of matching weekdays. Order is preserved and
	// duplicates are permitted but meaningless. Nil matches every day.
	DayOfWeek []uint32
}

func (*Spec) schedule() {}

// Field is a single schedule field value: an Exact value or a Step pair. A
// nil Field matches every value.
type Field interface {
	field()
}

// Exact matches a single field value.
type Exact uint32

func (Exact) field() {}

// Step matches every Every values starting at Start, formatted as
// "<start>/<every>".
type Step struct {
	Start uint32
	Every uint32
}

func (Step) field() {}

const (
	fieldMinute     = "minute"
	fieldHour       = "hour"
	fieldDayOfMonth = "day_of_month"
	fieldMonth      = "month"
	fieldDayOfWeek  = "day_of_week"
)

// UnmarshalJSON decodes a structured schedule, rejecting any key outside the
// five recognized field names, any field value which is neither a
// non-negative integer nor a {start, every} pair of non-negative integers,
// and any day_of_week element which is not a non-negative integer.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	spec := Spec{}
	for name, value := range raw {
		if isJSONNull(value) {
			// A null field is treated as absent.
			continue
		}

		switch name {
		case fieldMinute, fieldHour, fieldMonth, fieldDayOfMonth:
			field, err := unmarshalField(value)
			if err != nil {
				return fmt.Errorf("field %q: %w", name, err)
			}

			switch name {
			case fieldMinute:
				spec.Minute = field
			case fieldHour:
				spec.Hour = field
			case fieldDayOfMonth:
				spec.DayOfMonth = field
			case fieldMonth:
				spec.Month = field
			}

		case fieldDayOfWeek:
			var elems []json.RawMessage
			if err := json.Unmarshal(value, &elems); err != nil {
				return fmt.Errorf("field %q must be an array: %w", name, err)
			}

			days := make([]uint32, 0, len(elems))
			for _, elem := range elems {
				day, err := unmarshalUint(elem)
				if err != nil {
					return fmt.Errorf("field %q element: %w", name, err)
				}
				days = append(days, day)
			}
			spec.DayOfWeek = days

		default:
			return fmt.Errorf("unrecognized schedule field %q", name)
		}
	}

	*s = spec
	return nil
}

// MarshalJSON encodes the schedule with its wire field names, omitting
// absent fields.
func (s *Spec) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Minute     Field    `json:"minute,omitempty"`
		Hour       Field    `json:"hour,omitempty"`
		DayOfMonth Field    `json:"day_of_month,omitempty"`
		Month      Field    `json:"month,omitempty"`
		DayOfWeek  []uint32 `json:"day_of_week,omitempty"`
	}{s.Minute, s.Hour, s.DayOfMonth, s.Month, s.DayOfWeek})
}

func (e Exact) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(e), 10)), nil
}

func (st Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start uint32 `json:"start"`
		Every uint32 `json:"every"`
	}{st.Start, st.Every})
}

func unmarshalField(data []byte) (Field, error) {
	if value, err := unmarshalUint(data); err == nil {
		return Exact(value), nil
	}

	var pair map[string]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, fmt.Errorf("must be a non-negative integer or a {start, every} pair")
	}

	rawStart, okStart := pair["start"]
	rawEvery, okEvery := pair["every"]
	if !okStart || !okEvery || len(pair) != 2 {
		return nil, fmt.Errorf("step pair must have exactly the keys %q and %q", "start", "every")
	}

	start, err := unmarshalUint(rawStart)
	if err != nil {
		return nil, fmt.Errorf("step start: %w", err)
	}
	every, err := unmarshalUint(rawEvery)
	if err != nil {
		return nil, fmt.Errorf("step every: %w", err)
	}

	return Step{Start: start, Every: every}, nil
}

func unmarshalUint(data []byte) (uint32, error) {
	var num float64
	if isJSONNull(data) || json.Unmarshal(data, &num) != nil {
		return 0, fmt.Errorf("must be a non-negative integer")
	}

	if num < 0 || num > math.MaxUint32 || num != math.Trunc(num) {
		return 0, fmt.Errorf("must be a non-negative integer")
	}

	return uint32(num), nil
}

func isJSONNull(data []byte) bool {
	return string(bytes.TrimSpace(data)) == "null"
}
