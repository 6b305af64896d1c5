/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule holds the feeding schedule model and its on-disk format.
package schedule

import "time"

// Schedule is an ordered list of occasions. It is built once at startup and only read afterwards.
type Schedule struct {
	occasions []Occasion
}

// New returns a schedule holding the given occasions in order.
func New(occasions ...Occasion) *Schedule {
	s := &Schedule{occasions: make([]Occasion, 0, len(occasions))}
	for _, o := range occasions {
		s.Add(o)
	}
	return s
}

// Add appends an occasion. Nothing is validated and duplicates are kept.
func (s *Schedule) Add(o Occasion) {
	s.occasions = append(s.occasions, o.clone())
}

// Len returns the number of occasions.
func (s *Schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.occasions)
}

// Occasions returns a copy of the occasions in insertion order.
func (s *Schedule) Occasions() []Occasion {
	if s == nil {
		return nil
	}
	out := make([]Occasion, len(s.occasions))
	for i, o := range s.occasions {
		out[i] = o.clone()
	}
	return out
}

// Match returns the first occasion, in insertion order, that fires at now.
// When two occasions share the same hour and minute the earlier one wins.
func (s *Schedule) Match(now time.Time) (Occasion, bool) {
	if s == nil {
		return Occasion{}, false
	}
	for _, o := range s.occasions {
		if o.Matches(now) {
			return o.clone(), true
		}
	}
	return Occasion{}, false
}

// CountActive returns how many occasions are enabled on weekday.
func (s *Schedule) CountActive(weekday time.Weekday) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, o := range s.occasions {
		if o.IsEnabled(weekday) {
			n++
		}
	}
	return n
}

// SplitBudget divides a daily open-time budget evenly across the occasions active on weekday.
// Division is done on whole milliseconds and truncates. With no active occasions the
// budget is returned unchanged.
func (s *Schedule) SplitBudget(total time.Duration, weekday time.Weekday) time.Duration {
	n := s.CountActive(weekday)
	if n == 0 {
		return total
	}
	return time.Duration(total.Milliseconds()/int64(n)) * time.Millisecond
}
