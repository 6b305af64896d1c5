/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/petfeeder/internal/config"
	"github.com/friendsincode/petfeeder/internal/eventbus"
	"github.com/friendsincode/petfeeder/internal/events"
	"github.com/friendsincode/petfeeder/internal/feeder"
	"github.com/friendsincode/petfeeder/internal/history"
	"github.com/friendsincode/petfeeder/internal/logging"
	"github.com/friendsincode/petfeeder/internal/pwm"
	"github.com/friendsincode/petfeeder/internal/schedule"
	"github.com/friendsincode/petfeeder/internal/servo"
	"github.com/friendsincode/petfeeder/internal/telemetry"
	"github.com/friendsincode/petfeeder/internal/version"
)

// openActuator acquires actuator hardware for the run and test commands.
var openActuator feeder.Opener = feeder.HardwareOpener

func defaultActions() actions {
	return actions{
		run:      runLoop,
		test:     runTest,
		schedule: printSchedule,
		history:  printHistory,
	}
}

// loadConfig reads the configuration and sets up logging to logOut. Commands that print
// results to stdout log to stderr so their output stays parseable.
func loadConfig(logOut io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	return cfg, logging.SetupWithWriter(cfg.Environment, cfg.LogLevel, logOut), nil
}

// newService builds the feeder around sched, publishing to sink.
func newService(cfg *config.Config, logger zerolog.Logger, sched *schedule.Schedule, sink events.Sink) *feeder.Service {
	seq := servo.NewSequencer(logger)
	seq.SettleCycles = cfg.SettleCycles
	seq.SettleDelay = cfg.SettleDelay

	return feeder.New(feeder.Options{
		Schedule:     sched,
		Actuators:    actuatorConfigs(cfg),
		Open:         openActuator,
		Sequencer:    seq,
		Sink:         sink,
		PollInterval: cfg.PollInterval,
		Cooldown:     cfg.Cooldown,
		ActuatorGap:  cfg.ActuatorGap,
		SplitBudget:  cfg.SplitBudget,
	}, logger)
}

// actuatorConfigs maps enabled servos to actuators. Slot follows the servo's position
// in the schedule file, so servo 2 keeps slot 1 even when servo 1 is disabled.
func actuatorConfigs(cfg *config.Config) []feeder.ActuatorConfig {
	out := make([]feeder.ActuatorConfig, 0, len(cfg.Servos))
	for slot, s := range cfg.Servos {
		if !s.Enabled {
			continue
		}
		out = append(out, feeder.ActuatorConfig{
			Name:    s.Name,
			Slot:    slot,
			Channel: s.Channel,
			Period:  cfg.PWMPeriod,
			Positions: servo.Positions{
				Closed: s.Closed,
				Open:   s.Open,
				Passed: s.Passed,
			},
			Polarity: pwm.Normal,
		})
	}
	return out
}

// connectSinks opens the broker and journal sinks the configuration asks for. A sink that
// cannot connect is skipped. The returned closers release the ones that did.
func connectSinks(cfg *config.Config, logger zerolog.Logger) (events.Multi, []func() error) {
	var (
		sinks   events.Multi
		closers []func() error
	)

	bus, err := eventbus.New(cfg.EventsURL, cfg.EventsTopic, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("event publishing disabled")
	} else {
		sinks = append(sinks, bus)
		closers = append(closers, bus.Close)
	}

	if cfg.HistoryDSN != "" {
		store, err := history.Open(cfg.HistoryBackend, cfg.HistoryDSN, logger)
		if err != nil {
			logger.Warn().Err(err).Str("backend", string(cfg.HistoryBackend)).Msg("feeding journal disabled")
		} else {
			sinks = append(sinks, store)
			closers = append(closers, store.Close)
		}
	}

	if cfg.IsDevelopment() {
		sinks = append(sinks, events.SinkFunc(func(_ context.Context, ev events.FeedEvent) {
			logger.Debug().
				Str("event_id", ev.ID).
				Str("type", string(ev.Type)).
				Str("servo", ev.Servo).
				Dur("duration", ev.Duration).
				Msg("event")
		}))
	}

	return sinks, closers
}

func runLoop(ctx context.Context) error {
	cfg, logger, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}

	tracerProvider, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    "petfeeder",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	logger.Info().Str("version", version.Version).Msg("petfeeder starting")

	sched, defaulted := schedule.LoadOrDefault(cfg.ScheduleFile, logger)

	sinks, closers := connectSinks(cfg, logger)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn().Err(err).Msg("sink close failed")
			}
		}
	}()

	svc := newService(cfg, logger, sched, sinks)
	svc.ReportSchedule(ctx, defaulted)

	go func() {
		if err := telemetry.Serve(ctx, cfg.MetricsBind, logger); err != nil {
			logger.Error().Err(err).Msg("telemetry listener failed")
		}
	}()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("petfeeder stopped")
	return nil
}

// runTest drives the actuators once. It neither reads nor writes the schedule file and
// connects to no broker or journal.
func runTest(ctx context.Context, open time.Duration) error {
	cfg, logger, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}

	logger.Info().Dur("open", open).Msg("running actuator test")
	return newService(cfg, logger, schedule.New(), events.Nop{}).TestActuators(ctx, open)
}

func printSchedule(_ context.Context, out, errOut io.Writer) error {
	cfg, logger, err := loadConfig(errOut)
	if err != nil {
		return err
	}
	s, _ := schedule.LoadOrDefault(cfg.ScheduleFile, logger)
	data, err := schedule.ExportYAML(s)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func printHistory(ctx context.Context, limit int, out, errOut io.Writer) error {
	cfg, logger, err := loadConfig(errOut)
	if err != nil {
		return err
	}
	if cfg.HistoryDSN == "" {
		return errors.New("feeding journal is not configured: set FEEDER_HISTORY_DSN")
	}

	store, err := history.Open(cfg.HistoryBackend, cfg.HistoryDSN, logger)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = store.Close() }()

	rows, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FED AT\tSERVO\tOCCASION\tEVENT\tOPEN\tERROR")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.FedAt.Local().Format("2006-01-02 15:04:05"),
			r.Servo,
			r.Occasion,
			r.EventType,
			time.Duration(r.DurationMS)*time.Millisecond,
			r.Error,
		)
	}
	return tw.Flush()
}
