/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/petfeeder/internal/pwm"
	"github.com/friendsincode/petfeeder/internal/schedule"
	"github.com/joho/godotenv"
)

// DatabaseBackend selects the feeding journal database.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// MinCooldown keeps one occasion from firing twice within its minute.
const MinCooldown = 60 * time.Second

// ServoConfig describes one dispenser servo.
type ServoConfig struct {
	Name    string
	Enabled bool
	Channel pwm.Channel
	Closed  time.Duration
	Open    time.Duration
	Passed  time.Duration
}

// Config holds process configuration.
type Config struct {
	Environment  string
	LogLevel     string
	ScheduleFile string

	PollInterval time.Duration
	Cooldown     time.Duration
	ActuatorGap  time.Duration
	SplitBudget  bool

	SettleCycles int
	SettleDelay  time.Duration
	PWMPeriod    time.Duration
	Servos       []ServoConfig

	MetricsBind    string
	HistoryBackend DatabaseBackend
	HistoryDSN     string
	EventsURL      string
	EventsTopic    string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads environment variables, applies defaults, and validates the result.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Environment:  getEnvAny(keys("ENV"), "production"),
		LogLevel:     getEnvAny(keys("LOG_LEVEL"), ""),
		ScheduleFile: getEnvAny(keys("SCHEDULE_FILE"), schedule.DefaultFile),

		PollInterval: time.Duration(getEnvIntAny(keys("POLL_INTERVAL_SECONDS"), 30)) * time.Second,
		Cooldown:     time.Duration(getEnvIntAny(keys("COOLDOWN_SECONDS"), 60)) * time.Second,
		ActuatorGap:  time.Duration(getEnvIntAny(keys("ACTUATOR_GAP_MS"), 3000)) * time.Millisecond,
		SplitBudget:  getEnvBoolAny(keys("SPLIT_BUDGET"), false),

		SettleCycles: getEnvIntAny(keys("SETTLE_CYCLES"), 3),
		SettleDelay:  time.Duration(getEnvIntAny(keys("SETTLE_DELAY_MS"), 200)) * time.Millisecond,
		PWMPeriod:    time.Duration(getEnvIntAny(keys("PWM_PERIOD_MS"), 20)) * time.Millisecond,

		MetricsBind:    getEnvAny(keys("METRICS_BIND"), ""),
		HistoryBackend: DatabaseBackend(strings.ToLower(getEnvAny(keys("HISTORY_BACKEND"), string(DatabaseSQLite)))),
		HistoryDSN:     getEnvAny(keys("HISTORY_DSN"), ""),
		EventsURL:      getEnvAny(keys("EVENTS_URL"), ""),
		EventsTopic:    getEnvAny(keys("EVENTS_TOPIC"), "petfeeder/events"),

		TracingEnabled:    getEnvBoolAny(keys("TRACING_ENABLED"), false),
		OTLPEndpoint:      getEnvAny(keys("OTLP_ENDPOINT"), "localhost:4317"),
		TracingSampleRate: getEnvFloatAny(keys("TRACING_SAMPLE_RATE"), 1.0),
	}

	servo1, err := loadServo("servo1", "SERVO1", true, "pwm0", 2400, 1850, 2650)
	if err != nil {
		return nil, err
	}
	servo2, err := loadServo("servo2", "SERVO2", false, "pwm1", 1440, 860, 1700)
	if err != nil {
		return nil, err
	}
	cfg.Servos = []ServoConfig{servo1, servo2}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadServo(name, prefix string, enabled bool, channel string, closedUS, openUS, passedUS int) (ServoConfig, error) {
	raw := getEnvAny(keys(prefix+"_CHANNEL"), channel)
	ch, err := pwm.ParseChannel(raw)
	if err != nil {
		return ServoConfig{}, fmt.Errorf("FEEDER_%s_CHANNEL: %w", prefix, err)
	}
	return ServoConfig{
		Name:    name,
		Enabled: getEnvBoolAny(keys(prefix+"_ENABLED"), enabled),
		Channel: ch,
		Closed:  time.Duration(getEnvIntAny(keys(prefix+"_CLOSED_US"), closedUS)) * time.Microsecond,
		Open:    time.Duration(getEnvIntAny(keys(prefix+"_OPEN_US"), openUS)) * time.Microsecond,
		Passed:  time.Duration(getEnvIntAny(keys(prefix+"_PASSED_US"), passedUS)) * time.Microsecond,
	}, nil
}

func (c *Config) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("FEEDER_POLL_INTERVAL_SECONDS must be positive")
	}
	if c.Cooldown < MinCooldown {
		return fmt.Errorf("FEEDER_COOLDOWN_SECONDS must be at least %d", int(MinCooldown.Seconds()))
	}
	if c.ActuatorGap < 0 {
		return fmt.Errorf("FEEDER_ACTUATOR_GAP_MS must not be negative")
	}
	if c.SettleCycles < 0 || c.SettleDelay < 0 {
		return fmt.Errorf("FEEDER_SETTLE_CYCLES and FEEDER_SETTLE_DELAY_MS must not be negative")
	}
	if c.PWMPeriod <= 0 {
		return fmt.Errorf("FEEDER_PWM_PERIOD_MS must be positive")
	}

	if len(c.EnabledServos()) == 0 {
		return fmt.Errorf("at least one of FEEDER_SERVO1_ENABLED or FEEDER_SERVO2_ENABLED must be true")
	}
	for _, s := range c.EnabledServos() {
		if s.Closed <= 0 || s.Open <= 0 || s.Passed <= 0 {
			return fmt.Errorf("%s pulse widths must be positive", s.Name)
		}
		if s.Closed > c.PWMPeriod || s.Open > c.PWMPeriod || s.Passed > c.PWMPeriod {
			return fmt.Errorf("%s pulse widths must fit in the %s pwm period", s.Name, c.PWMPeriod)
		}
	}

	switch c.HistoryBackend {
	case DatabasePostgres, DatabaseMySQL, DatabaseSQLite:
	default:
		return fmt.Errorf("unsupported history backend %q", c.HistoryBackend)
	}

	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("FEEDER_TRACING_SAMPLE_RATE must be between 0 and 1")
	}
	return nil
}

// EnabledServos returns the enabled servos in actuation order.
func (c *Config) EnabledServos() []ServoConfig {
	out := make([]ServoConfig, 0, len(c.Servos))
	for _, s := range c.Servos {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// IsDevelopment reports whether debug logging should be on by default.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// keys returns the lookup order for a setting: FEEDER_<name>, then PETFEEDER_<name>.
func keys(name string) []string {
	return []string{"FEEDER_" + name, "PETFEEDER_" + name}
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
