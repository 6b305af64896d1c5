/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package history

import (
	"context"
	"testing"
	"time"

	"github.com/friendsincode/petfeeder/internal/config"
	"github.com/friendsincode/petfeeder/internal/events"
	"github.com/rs/zerolog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.DatabaseSQLite, "file::memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func feedEvent(t events.EventType, servo string, at time.Time) events.FeedEvent {
	ev := events.New(t, at)
	ev.Servo = servo
	ev.Occasion = at.Format("15:04")
	ev.Duration = 320 * time.Millisecond
	return ev
}

func TestEmitAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 7, 30, 0, 0, time.UTC)

	s.Emit(ctx, feedEvent(events.EventFeedCompleted, "servo1", base))
	failed := feedEvent(events.EventFeedFailed, "servo2", base.Add(time.Hour))
	failed.Error = "servo servo2: open (860µs): device busy"
	s.Emit(ctx, failed)
	sim := feedEvent(events.EventFeedSimulated, "servo1", base.Add(2*time.Hour))
	sim.Simulated = true
	s.Emit(ctx, sim)

	rows, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0].ID != sim.ID || !rows[0].Simulated {
		t.Errorf("newest row = %+v", rows[0])
	}
	if rows[1].Error == "" || rows[1].Servo != "servo2" {
		t.Errorf("failed row = %+v", rows[1])
	}
	if rows[2].DurationMS != 320 || rows[2].Occasion != "07:30" || rows[2].EventType != "feed.completed" {
		t.Errorf("oldest row = %+v", rows[2])
	}

	limited, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != sim.ID {
		t.Errorf("limited = %+v", limited)
	}
}

func TestEmitIgnoresScheduleEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.Emit(ctx, events.New(events.EventScheduleDefaulted, time.Now()))

	rows, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("schedule event journaled: %+v", rows)
	}
}

func TestEmitReplacesInvalidID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ev := feedEvent(events.EventFeedCompleted, "servo1", time.Now())
	ev.ID = "not-a-uuid"
	s.Emit(ctx, ev)

	rows, err := s.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(rows) != 1 || rows[0].ID == "not-a-uuid" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(config.DatabaseBackend("oracle"), "x", zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
