/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package events defines the feeding events reported by the control loop and the sinks that receive them.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates event categories.
type EventType string

const (
	EventFeedCompleted     EventType = "feed.completed"
	EventFeedFailed        EventType = "feed.failed"
	EventFeedSimulated     EventType = "feed.simulated"
	EventScheduleLoaded    EventType = "schedule.loaded"
	EventScheduleDefaulted EventType = "schedule.defaulted"
)

// FeedEvent describes one thing the feeder did. Servo and Duration are empty for schedule events.
type FeedEvent struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Servo     string        `json:"servo,omitempty"`
	Occasion  string        `json:"occasion,omitempty"`
	Duration  time.Duration `json:"duration_ns,omitempty"`
	Simulated bool          `json:"simulated,omitempty"`
	Error     string        `json:"error,omitempty"`
	Occasions int           `json:"occasions,omitempty"`
	At        time.Time     `json:"at"`
}

// New returns an event of the given type with a fresh ID.
func New(t EventType, at time.Time) FeedEvent {
	return FeedEvent{
		ID:   uuid.NewString(),
		Type: t,
		At:   at,
	}
}

// Sink receives events. Implementations log their own failures; Emit never blocks the feeder on an error.
type Sink interface {
	Emit(ctx context.Context, ev FeedEvent)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev FeedEvent)

func (f SinkFunc) Emit(ctx context.Context, ev FeedEvent) { f(ctx, ev) }

// Nop discards events.
type Nop struct{}

func (Nop) Emit(context.Context, FeedEvent) {}

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, ev FeedEvent) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}
