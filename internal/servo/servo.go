/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package servo drives a dispenser servo through its open, settle and close sequence.
package servo

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrHardwareWrite is matched by every *WriteError.
var ErrHardwareWrite = errors.New("pwm write failed")

// PWM is the hardware capability a servo needs. Implementations are not safe for concurrent use.
type PWM interface {
	SetPulseWidth(width time.Duration) error
	Disable() error
}

// Positions are the pulse widths for the three mechanical positions of a dispenser.
type Positions struct {
	Closed time.Duration
	Open   time.Duration
	// Passed is slightly past Closed and is used to shake loose food during settling.
	Passed time.Duration
}

// Servo couples a named actuator with its positions. A nil PWM means no hardware is
// attached and the sequence is only logged.
type Servo struct {
	Name      string
	Positions Positions
	PWM       PWM
}

// WriteError reports which step of a feed sequence failed to reach the hardware.
type WriteError struct {
	Servo string
	Step  string
	Width time.Duration
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("servo %s: %s (%s): %v", e.Servo, e.Step, e.Width, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrHardwareWrite) hold for any WriteError.
func (e *WriteError) Is(target error) bool { return target == ErrHardwareWrite }

// Default settle phase.
const (
	DefaultSettleCycles = 3
	DefaultSettleDelay  = 200 * time.Millisecond
)

// Sequencer runs feed sequences. It holds no per-servo state.
type Sequencer struct {
	SettleCycles int
	SettleDelay  time.Duration
	Sleep        func(time.Duration)

	logger zerolog.Logger
}

// NewSequencer returns a sequencer with the default settle phase and real sleeping.
func NewSequencer(logger zerolog.Logger) *Sequencer {
	return &Sequencer{
		SettleCycles: DefaultSettleCycles,
		SettleDelay:  DefaultSettleDelay,
		Sleep:        time.Sleep,
		logger:       logger.With().Str("component", "servo").Logger(),
	}
}

// Feed opens the servo for open, then rocks it between Passed and Closed SettleCycles
// times. The PWM is left enabled in the Closed position; releasing it is the caller's job.
func (s *Sequencer) Feed(sv Servo, open time.Duration) error {
	if sv.PWM == nil {
		s.logger.Info().
			Str("servo", sv.Name).
			Dur("open", open).
			Msg("no pwm attached, simulating feed")
		return nil
	}

	s.logger.Debug().Str("servo", sv.Name).Dur("open", open).Msg("opening")
	if err := s.write(sv, "open", sv.Positions.Open); err != nil {
		return err
	}
	s.sleep(open)

	for i := 0; i < s.SettleCycles; i++ {
		if err := s.write(sv, "settle passed", sv.Positions.Passed); err != nil {
			return err
		}
		s.sleep(s.SettleDelay)
		if err := s.write(sv, "settle closed", sv.Positions.Closed); err != nil {
			return err
		}
		s.sleep(s.SettleDelay)
	}

	s.logger.Debug().Str("servo", sv.Name).Msg("closed")
	return nil
}

func (s *Sequencer) write(sv Servo, step string, width time.Duration) error {
	if err := sv.PWM.SetPulseWidth(width); err != nil {
		return &WriteError{Servo: sv.Name, Step: step, Width: width, Err: err}
	}
	return nil
}

func (s *Sequencer) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if s.Sleep == nil {
		time.Sleep(d)
		return
	}
	s.Sleep(d)
}
