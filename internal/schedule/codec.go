/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// record is one entry of the persisted schedule file.
type record struct {
	Enabled          *bool  `json:"enabled,omitempty"`
	Time             string `json:"time"`
	EnabledWeekdays  []int  `json:"enabled_weekdays"`
	OpenedTimeServo1 uint64 `json:"opened_time_servo1"`
	OpenedTimeServo2 uint64 `json:"opened_time_servo2"`
}

// WeekdayCode maps a weekday to its persisted code, 1=Monday .. 7=Sunday.
func WeekdayCode(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

// WeekdayFromCode is the inverse of WeekdayCode. Unknown codes map to Sunday.
func WeekdayFromCode(code int) time.Weekday {
	if code >= 1 && code <= 6 {
		return time.Weekday(code)
	}
	return time.Sunday
}

// Encode renders the schedule in the persisted JSON format.
func Encode(s *Schedule) ([]byte, error) {
	enabled := true
	records := make([]record, 0, s.Len())
	for _, o := range s.Occasions() {
		codes := make([]int, 0, 7)
		for _, d := range o.Weekdays.Days() {
			codes = append(codes, WeekdayCode(d))
		}

		ts, err := formatClock(o.At)
		if err != nil {
			return nil, fmt.Errorf("encode schedule: occasion %d: %w", len(records), err)
		}
		records = append(records, record{
			Enabled:          &enabled,
			Time:             ts,
			EnabledWeekdays:  codes,
			OpenedTimeServo1: millis(o.OpenTime(0)),
			OpenedTimeServo2: millis(o.OpenTime(1)),
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode schedule: %w", err)
	}
	return data, nil
}

// Decode parses the persisted JSON format. Records explicitly marked disabled are skipped.
// Only the hour and minute written in each timestamp are used.
func Decode(data []byte) (*Schedule, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode schedule: %w", err)
	}

	s := New()
	for i, r := range records {
		if r.Enabled != nil && !*r.Enabled {
			continue
		}

		at, err := parseClock(r.Time)
		if err != nil {
			return nil, fmt.Errorf("decode schedule: record %d: %w", i, err)
		}

		var days WeekdaySet
		for _, code := range r.EnabledWeekdays {
			days = days.With(WeekdayFromCode(code))
		}

		s.Add(Occasion{
			At:       at,
			Weekdays: days,
			OpenTimes: []time.Duration{
				time.Duration(r.OpenedTimeServo1) * time.Millisecond,
				time.Duration(r.OpenedTimeServo2) * time.Millisecond,
			},
		})
	}
	return s, nil
}

// epochDate is the calendar date every persisted timestamp carries.
const epochDate = "1970-01-01"

// formatClock writes tod as an RFC 3339 timestamp on 1970-01-01 in the local zone.
// Hours and minutes outside the clock range are kept verbatim as long as they fit two digits.
func formatClock(tod TimeOfDay) (string, error) {
	if tod.Hour < 0 || tod.Hour > 99 || tod.Minute < 0 || tod.Minute > 99 {
		return "", fmt.Errorf("time %d:%d cannot be written as two-digit hour and minute", tod.Hour, tod.Minute)
	}
	offset := time.Date(1970, time.January, 1, 0, 0, 0, 0, time.Local).Format("Z07:00")
	return fmt.Sprintf("%sT%02d:%02d:00%s", epochDate, tod.Hour, tod.Minute, offset), nil
}

// parseClock reads the hour and minute as written in an RFC 3339 timestamp. The rest of the
// timestamp must be valid; the clock digits may be out of range.
func parseClock(s string) (TimeOfDay, error) {
	ts, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return At(ts.Hour(), ts.Minute()), nil
	}
	if len(s) < 17 || s[10] != 'T' || s[13] != ':' || s[16] != ':' {
		return TimeOfDay{}, err
	}
	for _, c := range s[11:13] + s[14:16] {
		if c < '0' || c > '9' {
			return TimeOfDay{}, err
		}
	}
	hour, _ := strconv.Atoi(s[11:13])
	minute, _ := strconv.Atoi(s[14:16])
	if _, perr := time.Parse(time.RFC3339, s[:11]+"00:00"+s[16:]); perr != nil {
		return TimeOfDay{}, err
	}
	return At(hour, minute), nil
}

func millis(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d.Milliseconds())
}
