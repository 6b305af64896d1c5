/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package pwm wraps the SoC hardware PWM outputs used to drive the dispenser servos.
package pwm

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// ErrHardwareInit is matched by every *HardwareInitError.
var ErrHardwareInit = errors.New("pwm hardware init failed")

// HardwareInitError reports a channel that could not be acquired or started.
type HardwareInitError struct {
	Channel Channel
	Err     error
}

func (e *HardwareInitError) Error() string {
	return fmt.Sprintf("pwm %s: %v", e.Channel, e.Err)
}

func (e *HardwareInitError) Unwrap() error { return e.Err }

func (e *HardwareInitError) Is(target error) bool { return target == ErrHardwareInit }

// Channel is a hardware PWM output.
type Channel int

const (
	Pwm0 Channel = iota
	Pwm1
)

// Pin returns the GPIO line the channel is routed to on a Raspberry Pi header.
func (c Channel) Pin() string {
	switch c {
	case Pwm0:
		return "GPIO18"
	case Pwm1:
		return "GPIO19"
	default:
		return ""
	}
}

func (c Channel) String() string {
	switch c {
	case Pwm0:
		return "pwm0"
	case Pwm1:
		return "pwm1"
	default:
		return fmt.Sprintf("pwm(%d)", int(c))
	}
}

// ParseChannel accepts "pwm0", "pwm1", "0" or "1".
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pwm0", "0":
		return Pwm0, nil
	case "pwm1", "1":
		return Pwm1, nil
	default:
		return 0, fmt.Errorf("unknown pwm channel %q", s)
	}
}

// Polarity selects whether the pulse is the high or the low part of the period.
type Polarity int

const (
	Normal Polarity = iota
	Inverse
)

// Duty converts a pulse width within period into a periph duty cycle, clamped to [0, DutyMax].
func Duty(width, period time.Duration, polarity Polarity) gpio.Duty {
	if period <= 0 {
		return 0
	}
	if width < 0 {
		width = 0
	}
	if width > period {
		width = period
	}
	d := gpio.Duty(int64(gpio.DutyMax) * int64(width) / int64(period))
	if polarity == Inverse {
		d = gpio.DutyMax - d
	}
	return d
}

var (
	initOnce sync.Once
	initErr  error
)

func initHost() error {
	initOnce.Do(func() {
		_, initErr = host.Init()
	})
	return initErr
}

// Output is an acquired PWM channel.
type Output struct {
	channel  Channel
	pin      gpio.PinIO
	freq     physic.Frequency
	period   time.Duration
	polarity Polarity
}

// Open acquires channel with the given period and polarity. When enabled is set the
// output starts immediately at pulseWidth.
func Open(channel Channel, period, pulseWidth time.Duration, polarity Polarity, enabled bool) (*Output, error) {
	if period <= 0 {
		return nil, &HardwareInitError{Channel: channel, Err: fmt.Errorf("invalid period %s", period)}
	}
	if err := initHost(); err != nil {
		return nil, &HardwareInitError{Channel: channel, Err: err}
	}

	name := channel.Pin()
	if name == "" {
		return nil, &HardwareInitError{Channel: channel, Err: errors.New("no pin mapping")}
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, &HardwareInitError{Channel: channel, Err: fmt.Errorf("pin %s not found", name)}
	}

	o := &Output{
		channel:  channel,
		pin:      p,
		freq:     physic.PeriodToFrequency(period),
		period:   period,
		polarity: polarity,
	}
	if enabled {
		if err := o.SetPulseWidth(pulseWidth); err != nil {
			return nil, &HardwareInitError{Channel: channel, Err: err}
		}
	}
	return o, nil
}

// Channel returns the channel this output drives.
func (o *Output) Channel() Channel { return o.channel }

// SetPulseWidth changes the active pulse width.
func (o *Output) SetPulseWidth(width time.Duration) error {
	if err := o.pin.PWM(Duty(width, o.period, o.polarity), o.freq); err != nil {
		return fmt.Errorf("%s pulse %s: %w", o.channel, width, err)
	}
	return nil
}

// Disable stops the PWM and drives the line low so the servo is unpowered.
func (o *Output) Disable() error {
	if err := o.pin.Halt(); err != nil {
		return fmt.Errorf("%s halt: %w", o.channel, err)
	}
	if err := o.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("%s low: %w", o.channel, err)
	}
	return nil
}
