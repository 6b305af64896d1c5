/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package feeder runs the feeding loop: poll the clock, match the schedule, dispense.
package feeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/friendsincode/petfeeder/internal/events"
	"github.com/friendsincode/petfeeder/internal/pwm"
	"github.com/friendsincode/petfeeder/internal/schedule"
	"github.com/friendsincode/petfeeder/internal/servo"
	"github.com/friendsincode/petfeeder/internal/telemetry"
	"github.com/rs/zerolog"
)

// Loop timing defaults.
const (
	DefaultPollInterval = 30 * time.Second
	MinCooldown         = 60 * time.Second
	DefaultActuatorGap  = 3 * time.Second
)

// ActuatorConfig describes one dispenser. Slot is the index into Occasion.OpenTimes.
type ActuatorConfig struct {
	Name      string
	Slot      int
	Channel   pwm.Channel
	Period    time.Duration
	Positions servo.Positions
	Polarity  pwm.Polarity
}

// Opener acquires the PWM for an actuator. The handle is released with Disable after each use.
type Opener func(ActuatorConfig) (servo.PWM, error)

// HardwareOpener opens the actuator's hardware PWM, starting in the closed position.
func HardwareOpener(cfg ActuatorConfig) (servo.PWM, error) {
	out, err := pwm.Open(cfg.Channel, cfg.Period, cfg.Positions.Closed, cfg.Polarity, true)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Schedule     *schedule.Schedule
	Actuators    []ActuatorConfig
	Open         Opener
	Sequencer    *servo.Sequencer
	Sink         events.Sink
	PollInterval time.Duration
	Cooldown     time.Duration
	ActuatorGap  time.Duration
	SplitBudget  bool

	Now   func() time.Time
	Sleep func(time.Duration)
	After func(time.Duration) <-chan time.Time
}

// Service is the feeding control loop. It is not safe for concurrent use.
type Service struct {
	schedule     *schedule.Schedule
	actuators    []ActuatorConfig
	open         Opener
	sequencer    *servo.Sequencer
	sink         events.Sink
	pollInterval time.Duration
	cooldown     time.Duration
	gap          time.Duration
	splitBudget  bool

	now   func() time.Time
	sleep func(time.Duration)
	after func(time.Duration) <-chan time.Time

	logger zerolog.Logger
}

// New constructs the feeder service.
func New(opts Options, logger zerolog.Logger) *Service {
	logger = logger.With().Str("component", "feeder").Logger()

	s := &Service{
		schedule:     opts.Schedule,
		actuators:    append([]ActuatorConfig(nil), opts.Actuators...),
		open:         opts.Open,
		sequencer:    opts.Sequencer,
		sink:         opts.Sink,
		pollInterval: opts.PollInterval,
		cooldown:     opts.Cooldown,
		gap:          opts.ActuatorGap,
		splitBudget:  opts.SplitBudget,
		now:          opts.Now,
		sleep:        opts.Sleep,
		after:        opts.After,
		logger:       logger,
	}

	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	if s.cooldown < MinCooldown {
		s.cooldown = MinCooldown
	}
	if s.gap < 0 {
		s.gap = 0
	}
	if s.sequencer == nil {
		s.sequencer = servo.NewSequencer(logger)
	}
	if s.sink == nil {
		s.sink = events.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	if s.after == nil {
		s.after = time.After
	}
	return s
}

// Run checks the schedule immediately and then once per poll interval. A feeding adds
// the cooldown before the next poll wait. It returns when ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info().
		Int("occasions", s.schedule.Len()).
		Int("actuators", len(s.actuators)).
		Dur("poll_interval", s.pollInterval).
		Dur("cooldown", s.cooldown).
		Msg("feeder loop started")

	for {
		if s.Check(ctx) {
			if err := s.wait(ctx, s.cooldown); err != nil {
				return err
			}
		}
		if err := s.wait(ctx, s.pollInterval); err != nil {
			return err
		}
	}
}

func (s *Service) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		s.logger.Info().Msg("feeder loop stopped")
		return ctx.Err()
	case <-s.after(d):
		return nil
	}
}

// Check feeds if an occasion matches the current time and reports whether it did.
func (s *Service) Check(ctx context.Context) bool {
	telemetry.TicksTotal.Inc()

	now := s.now()
	occasion, ok := s.schedule.Match(now)
	if !ok {
		s.logger.Debug().Str("now", now.Format("Mon 15:04:05")).Msg("no feeding due")
		return false
	}

	s.logger.Info().
		Str("occasion", occasion.At.String()).
		Str("weekdays", occasion.Weekdays.String()).
		Msg("feeding time")
	s.FeedOccasion(ctx, occasion, now.Weekday())
	return true
}

// FeedOccasion runs every actuator with a non-zero open time for occasion, in order,
// pausing ActuatorGap between them. Failures are logged and reported, never returned.
func (s *Service) FeedOccasion(ctx context.Context, occasion schedule.Occasion, weekday time.Weekday) {
	ctx, span := telemetry.StartSpan(ctx, "feeder.occasion")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{
		"occasion": occasion.At.String(),
		"weekday":  weekday.String(),
	})

	fed := false
	for _, act := range s.actuators {
		open := occasion.OpenTime(act.Slot)
		if open <= 0 {
			s.logger.Debug().Str("servo", act.Name).Msg("no open time configured, skipping")
			continue
		}
		if s.splitBudget {
			open = s.schedule.SplitBudget(open, weekday)
		}

		if fed && s.gap > 0 {
			s.sleep(s.gap)
		}
		if err := s.dispense(ctx, act, occasion.At.String(), open); err != nil {
			telemetry.RecordError(span, err)
		}
		fed = true
	}
}

// TestActuators runs every configured actuator once for open, the way a feeding would.
// Hardware write failures are returned; a missing PWM only downgrades to simulation.
func (s *Service) TestActuators(ctx context.Context, open time.Duration) error {
	if open <= 0 {
		return fmt.Errorf("test duration must be positive, got %s", open)
	}

	ctx, span := telemetry.StartSpan(ctx, "feeder.test")
	defer span.End()

	var errs []error
	for i, act := range s.actuators {
		if i > 0 && s.gap > 0 {
			s.sleep(s.gap)
		}
		if err := s.dispense(ctx, act, "test", open); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	telemetry.RecordError(span, err)
	return err
}

// ReportSchedule publishes the loaded schedule size.
func (s *Service) ReportSchedule(ctx context.Context, defaulted bool) {
	telemetry.ScheduleOccasions.Set(float64(s.schedule.Len()))

	t := events.EventScheduleLoaded
	if defaulted {
		t = events.EventScheduleDefaulted
	}
	ev := events.New(t, s.now())
	ev.Occasions = s.schedule.Len()
	s.sink.Emit(ctx, ev)
}

// dispense acquires the actuator, runs one sequence and always releases the handle.
func (s *Service) dispense(ctx context.Context, act ActuatorConfig, occasion string, open time.Duration) error {
	ctx, span := telemetry.StartSpan(ctx, "feeder.dispense")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{
		"servo": act.Name,
		"open":  open,
	})

	logger := s.logger.With().Str("servo", act.Name).Str("occasion", occasion).Logger()

	var (
		handle  servo.PWM
		openErr error
	)
	if s.open != nil {
		handle, openErr = s.open(act)
		if openErr != nil {
			logger.Warn().Err(openErr).Msg("pwm unavailable, simulating")
			handle = nil
		}
	}

	feedErr := s.sequencer.Feed(servo.Servo{Name: act.Name, Positions: act.Positions, PWM: handle}, open)

	if handle != nil {
		if err := handle.Disable(); err != nil {
			logger.Warn().Err(err).Msg("failed to disable pwm")
		}
	}

	ev := events.New(events.EventFeedCompleted, s.now())
	ev.Servo = act.Name
	ev.Occasion = occasion
	ev.Duration = open

	outcome := telemetry.OutcomeCompleted
	switch {
	case feedErr != nil:
		outcome = telemetry.OutcomeFailed
		ev.Type = events.EventFeedFailed
		ev.Error = feedErr.Error()
		logger.Error().Err(feedErr).Msg("feeding aborted")
		telemetry.RecordError(span, feedErr)
	case handle == nil:
		outcome = telemetry.OutcomeSimulated
		ev.Type = events.EventFeedSimulated
		ev.Simulated = true
		if openErr != nil {
			ev.Error = openErr.Error()
		}
	default:
		telemetry.DispenseSecondsTotal.WithLabelValues(act.Name).Add(open.Seconds())
		logger.Info().Dur("open", open).Msg("fed")
	}

	telemetry.FeedingsTotal.WithLabelValues(act.Name, outcome).Inc()
	telemetry.LastFeedTimestamp.Set(float64(ev.At.Unix()))
	s.sink.Emit(ctx, ev)

	return feedErr
}
