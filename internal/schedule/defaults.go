/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import "time"

// Default open times for the two dispensers.
const (
	DefaultServo1OpenTime = 320 * time.Millisecond
	DefaultServo2OpenTime = 280 * time.Millisecond
)

// defaultTimes is the factory feeding plan. 11:30 is listed three times; only the first
// entry can ever match, which is kept as-is so existing installs behave the same.
var defaultTimes = []TimeOfDay{
	At(4, 25),
	At(7, 30),
	At(8, 30),
	At(9, 30),
	At(10, 30),
	At(11, 30),
	At(12, 30),
	At(11, 30),
	At(11, 30),
	At(15, 30),
	At(16, 30),
	At(17, 30),
	At(18, 30),
	At(19, 30),
	At(20, 30),
}

// Default returns the schedule used when no persisted schedule can be loaded.
func Default() *Schedule {
	s := New()
	for _, at := range defaultTimes {
		s.Add(Occasion{
			At:        at,
			Weekdays:  EveryDay,
			OpenTimes: []time.Duration{DefaultServo1OpenTime, DefaultServo2OpenTime},
		})
	}
	return s
}
