/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package servo

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakePWM struct {
	widths   []time.Duration
	failAt   int // 1-based write index that fails, 0 never
	disabled int
}

func (f *fakePWM) SetPulseWidth(w time.Duration) error {
	f.widths = append(f.widths, w)
	if f.failAt > 0 && len(f.widths) == f.failAt {
		return errors.New("sysfs write: device busy")
	}
	return nil
}

func (f *fakePWM) Disable() error {
	f.disabled++
	return nil
}

var testPositions = Positions{
	Closed: 2400 * time.Microsecond,
	Open:   1850 * time.Microsecond,
	Passed: 2650 * time.Microsecond,
}

func newTestSequencer(slept *[]time.Duration) *Sequencer {
	s := NewSequencer(zerolog.Nop())
	s.Sleep = func(d time.Duration) { *slept = append(*slept, d) }
	return s
}

func TestFeedSequence(t *testing.T) {
	var slept []time.Duration
	seq := newTestSequencer(&slept)
	pwm := &fakePWM{}

	if err := seq.Feed(Servo{Name: "servo1", Positions: testPositions, PWM: pwm}, 320*time.Millisecond); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	wantWidths := []time.Duration{
		1850 * time.Microsecond,
		2650 * time.Microsecond, 2400 * time.Microsecond,
		2650 * time.Microsecond, 2400 * time.Microsecond,
		2650 * time.Microsecond, 2400 * time.Microsecond,
	}
	if len(pwm.widths) != len(wantWidths) {
		t.Fatalf("writes = %v, want %v", pwm.widths, wantWidths)
	}
	for i := range wantWidths {
		if pwm.widths[i] != wantWidths[i] {
			t.Errorf("write %d = %v, want %v", i, pwm.widths[i], wantWidths[i])
		}
	}

	wantSleeps := []time.Duration{320 * time.Millisecond}
	for i := 0; i < 6; i++ {
		wantSleeps = append(wantSleeps, 200*time.Millisecond)
	}
	if len(slept) != len(wantSleeps) {
		t.Fatalf("sleeps = %v, want %v", slept, wantSleeps)
	}
	for i := range wantSleeps {
		if slept[i] != wantSleeps[i] {
			t.Errorf("sleep %d = %v, want %v", i, slept[i], wantSleeps[i])
		}
	}

	if pwm.disabled != 0 {
		t.Error("sequencer must not disable the pwm")
	}
	if last := pwm.widths[len(pwm.widths)-1]; last != testPositions.Closed {
		t.Errorf("final position = %v, want closed", last)
	}
}

func TestFeedWithoutPWMSimulates(t *testing.T) {
	var slept []time.Duration
	seq := newTestSequencer(&slept)

	if err := seq.Feed(Servo{Name: "servo2", Positions: testPositions}, time.Second); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(slept) != 0 {
		t.Fatalf("simulation slept %v", slept)
	}
}

func TestFeedWriteFailure(t *testing.T) {
	tests := []struct {
		name       string
		failAt     int
		wantStep   string
		wantWrites int
		wantSleeps int
	}{
		{"open fails", 1, "open", 1, 0},
		{"first settle fails", 2, "settle passed", 2, 1},
		{"close in last cycle fails", 7, "settle closed", 7, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var slept []time.Duration
			seq := newTestSequencer(&slept)
			pwm := &fakePWM{failAt: tt.failAt}

			err := seq.Feed(Servo{Name: "servo1", Positions: testPositions, PWM: pwm}, 100*time.Millisecond)
			if !errors.Is(err, ErrHardwareWrite) {
				t.Fatalf("err = %v, want ErrHardwareWrite", err)
			}
			var we *WriteError
			if !errors.As(err, &we) {
				t.Fatalf("err %T is not a *WriteError", err)
			}
			if we.Step != tt.wantStep || we.Servo != "servo1" {
				t.Errorf("WriteError = %+v", we)
			}
			if len(pwm.widths) != tt.wantWrites {
				t.Errorf("writes = %d, want %d", len(pwm.widths), tt.wantWrites)
			}
			if len(slept) != tt.wantSleeps {
				t.Errorf("sleeps = %d, want %d", len(slept), tt.wantSleeps)
			}
		})
	}
}

func TestFeedZeroSettleCycles(t *testing.T) {
	var slept []time.Duration
	seq := newTestSequencer(&slept)
	seq.SettleCycles = 0
	pwm := &fakePWM{}

	if err := seq.Feed(Servo{Name: "servo1", Positions: testPositions, PWM: pwm}, 50*time.Millisecond); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(pwm.widths) != 1 || len(slept) != 1 {
		t.Fatalf("writes=%v sleeps=%v", pwm.widths, slept)
	}
}
