/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock hour and minute. Dates and seconds are not tracked.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// At is shorthand for TimeOfDay{Hour: hour, Minute: minute}.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// Matches reports whether t falls in the same hour and minute.
func (tod TimeOfDay) Matches(t time.Time) bool {
	return tod.Hour == t.Hour() && tod.Minute == t.Minute()
}

func (tod TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", tod.Hour, tod.Minute)
}

// WeekdaySet is a set of days of the week stored as a bit mask indexed by time.Weekday.
type WeekdaySet uint8

// EveryDay contains all seven weekdays.
const EveryDay WeekdaySet = 1<<7 - 1

// weekOrder lists weekdays Monday first, the order used for display and persistence.
var weekOrder = [7]time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// NewWeekdaySet builds a set from the given days. Repeated days are ignored.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// With returns a copy of the set including day.
func (s WeekdaySet) With(day time.Weekday) WeekdaySet {
	if day < time.Sunday || day > time.Saturday {
		return s
	}
	return s | 1<<uint(day)
}

// Contains reports whether day is in the set.
func (s WeekdaySet) Contains(day time.Weekday) bool {
	if day < time.Sunday || day > time.Saturday {
		return false
	}
	return s&(1<<uint(day)) != 0
}

// Days returns the members ordered Monday..Sunday.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for _, d := range weekOrder {
		if s.Contains(d) {
			days = append(days, d)
		}
	}
	return days
}

// Len returns the number of days in the set.
func (s WeekdaySet) Len() int {
	n := 0
	for _, d := range weekOrder {
		if s.Contains(d) {
			n++
		}
	}
	return n
}

func (s WeekdaySet) String() string {
	if s == EveryDay {
		return "daily"
	}
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, d.String()[:3])
	}
	return strings.Join(names, ",")
}

// Occasion is a recurring feeding rule: a time of day gated by weekday membership,
// with one open duration per actuator.
type Occasion struct {
	At       TimeOfDay
	Weekdays WeekdaySet
	// OpenTimes holds the dispensing duration per actuator. Index 0 is servo 1.
	OpenTimes []time.Duration
}

// IsEnabled reports whether the occasion applies on weekday.
func (o Occasion) IsEnabled(weekday time.Weekday) bool {
	return o.Weekdays.Contains(weekday)
}

// OpenTime returns the open duration for actuator i, or zero if none is configured.
func (o Occasion) OpenTime(i int) time.Duration {
	if i < 0 || i >= len(o.OpenTimes) {
		return 0
	}
	return o.OpenTimes[i]
}

// Matches reports whether the occasion fires at t. Only hour, minute and weekday are compared.
func (o Occasion) Matches(t time.Time) bool {
	return o.IsEnabled(t.Weekday()) && o.At.Matches(t)
}

func (o Occasion) clone() Occasion {
	out := o
	out.OpenTimes = append([]time.Duration(nil), o.OpenTimes...)
	return out
}
