/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func assertEquivalent(t *testing.T, want, got *Schedule) {
	t.Helper()
	if want.Len() != got.Len() {
		t.Fatalf("occasion count = %d, want %d", got.Len(), want.Len())
	}
	w, g := want.Occasions(), got.Occasions()
	for i := range w {
		if w[i].At != g[i].At {
			t.Errorf("occasion %d time = %s, want %s", i, g[i].At, w[i].At)
		}
		if w[i].Weekdays != g[i].Weekdays {
			t.Errorf("occasion %d weekdays = %s, want %s", i, g[i].Weekdays, w[i].Weekdays)
		}
		for servo := 0; servo < 2; servo++ {
			if w[i].OpenTime(servo) != g[i].OpenTime(servo) {
				t.Errorf("occasion %d servo %d open = %v, want %v", i, servo+1, g[i].OpenTime(servo), w[i].OpenTime(servo))
			}
		}
	}
}

func TestWeekdayCodes(t *testing.T) {
	for code := 1; code <= 7; code++ {
		if got := WeekdayCode(WeekdayFromCode(code)); got != code {
			t.Errorf("round trip of code %d = %d", code, got)
		}
	}
	if WeekdayFromCode(1) != time.Monday || WeekdayFromCode(7) != time.Sunday {
		t.Fatal("Monday must be 1 and Sunday 7")
	}
	if WeekdayFromCode(0) != time.Sunday || WeekdayFromCode(42) != time.Sunday {
		t.Fatal("unknown codes map to Sunday")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		schedule *Schedule
	}{
		{"default with duplicate minutes", Default()},
		{"single actuator", New(Occasion{At: At(0, 0), Weekdays: NewWeekdaySet(time.Sunday), OpenTimes: []time.Duration{5 * time.Millisecond}})},
		{"mixed weekdays", threeOccasions()},
		{"late evening", New(Occasion{At: At(23, 59), Weekdays: NewWeekdaySet(time.Saturday, time.Monday), OpenTimes: []time.Duration{time.Second, 2 * time.Second}})},
		{"hour past midnight stays unmatchable", New(Occasion{At: At(24, 30), Weekdays: EveryDay, OpenTimes: []time.Duration{320 * time.Millisecond}})},
		{"minute out of range", New(Occasion{At: At(7, 75), Weekdays: EveryDay, OpenTimes: []time.Duration{320 * time.Millisecond}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.schedule)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := Decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			assertEquivalent(t, tt.schedule, got)
		})
	}
}

func TestEncodeWireFormat(t *testing.T) {
	s := New(Occasion{At: At(7, 30), Weekdays: NewWeekdaySet(time.Monday, time.Sunday), OpenTimes: []time.Duration{320 * time.Millisecond, 280 * time.Millisecond}})
	data, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("got %d records", len(raw))
	}
	r := raw[0]
	if r["enabled"] != true {
		t.Errorf("enabled = %v", r["enabled"])
	}
	if r["opened_time_servo1"] != float64(320) || r["opened_time_servo2"] != float64(280) {
		t.Errorf("open times = %v / %v", r["opened_time_servo1"], r["opened_time_servo2"])
	}
	days, _ := r["enabled_weekdays"].([]any)
	if len(days) != 2 || days[0] != float64(1) || days[1] != float64(7) {
		t.Errorf("enabled_weekdays = %v, want [1 7]", r["enabled_weekdays"])
	}
	ts, _ := r["time"].(string)
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t.Fatalf("time %q is not RFC 3339: %v", ts, err)
	}
	if parsed.Hour() != 7 || parsed.Minute() != 30 {
		t.Errorf("time %q does not carry 07:30", ts)
	}
}

func TestEncodeKeepsOutOfRangeClock(t *testing.T) {
	data, err := Encode(New(Occasion{At: At(24, 30), Weekdays: EveryDay, OpenTimes: []time.Duration{time.Second}}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `"time":"1970-01-01T24:30:00`) {
		t.Errorf("encoded %s, want the 24:30 clock written as is", data)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := got.Match(time.Date(2026, 10, 19, 0, 30, 0, 0, time.UTC)); ok {
		t.Error("24:30 must not turn into a 00:30 feeding")
	}
}

func TestEncodeRejectsUnwritableClock(t *testing.T) {
	for _, at := range []TimeOfDay{At(100, 0), At(-1, 30), At(7, -5)} {
		if _, err := Encode(New(Occasion{At: at, Weekdays: EveryDay})); err == nil {
			t.Errorf("Encode(%d:%d) succeeded, want error", at.Hour, at.Minute)
		}
	}
}

func TestDecodeReadsWrittenHourAndMinute(t *testing.T) {
	input := `[{"enabled":true,"time":"2019-05-04T04:25:00-07:00","enabled_weekdays":[3],"opened_time_servo1":320}]`
	s, err := Decode([]byte(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	o := s.Occasions()[0]
	if o.At != At(4, 25) {
		t.Errorf("time = %s, want 04:25", o.At)
	}
	if o.Weekdays != NewWeekdaySet(time.Wednesday) {
		t.Errorf("weekdays = %s", o.Weekdays)
	}
	if o.OpenTime(1) != 0 {
		t.Errorf("missing servo2 should decode as zero, got %v", o.OpenTime(1))
	}
}

func TestDecodeSkipsDisabledRecords(t *testing.T) {
	input := `[
		{"enabled":false,"time":"1970-01-01T06:00:00+00:00","enabled_weekdays":[1],"opened_time_servo1":1,"opened_time_servo2":0},
		{"time":"1970-01-01T07:00:00+00:00","enabled_weekdays":[1],"opened_time_servo1":2,"opened_time_servo2":0}
	]`
	s, err := Decode([]byte(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Len() != 1 || s.Occasions()[0].At != At(7, 0) {
		t.Fatalf("decoded %v, want only the 07:00 record", s.Occasions())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not json", "feed the cat"},
		{"object instead of array", `{"time":"x"}`},
		{"bad timestamp", `[{"enabled":true,"time":"07:30","enabled_weekdays":[1],"opened_time_servo1":1,"opened_time_servo2":1}]`},
		{"letters in clock", `[{"enabled":true,"time":"1970-01-01Tab:30:00Z","enabled_weekdays":[1],"opened_time_servo1":1,"opened_time_servo2":1}]`},
		{"bad date with odd clock", `[{"enabled":true,"time":"1970-13-01T24:30:00Z","enabled_weekdays":[1],"opened_time_servo1":1,"opened_time_servo2":1}]`},
		{"negative duration", `[{"enabled":true,"time":"1970-01-01T07:30:00Z","enabled_weekdays":[1],"opened_time_servo1":-5,"opened_time_servo2":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.input)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestDecodeEmptyArray(t *testing.T) {
	s, err := Decode([]byte("[]"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("got %d occasions", s.Len())
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	want := threeOccasions()

	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	assertEquivalent(t, want, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrLoad) {
		t.Errorf("missing file error = %v, want ErrLoad", err)
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(empty); !errors.Is(err, ErrLoad) {
		t.Errorf("empty file error = %v, want ErrLoad", err)
	}
}

func TestSaveIntoMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "schedule.json")
	if err := Save(path, Default()); !errors.Is(err, ErrPersist) {
		t.Fatalf("error = %v, want ErrPersist", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("missing file creates and persists default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schedule.json")
		s, created := LoadOrDefault(path, zerolog.Nop())
		if !created {
			t.Fatal("expected default to be created")
		}
		assertEquivalent(t, Default(), s)

		persisted, err := Load(path)
		if err != nil {
			t.Fatalf("default was not persisted: %v", err)
		}
		assertEquivalent(t, Default(), persisted)
	})

	t.Run("empty file falls back to default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schedule.json")
		if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
			t.Fatal(err)
		}
		s, created := LoadOrDefault(path, zerolog.Nop())
		if !created || s.Len() != Default().Len() {
			t.Fatalf("created=%v len=%d", created, s.Len())
		}
	})

	t.Run("existing file is used", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schedule.json")
		if err := Save(path, threeOccasions()); err != nil {
			t.Fatal(err)
		}
		s, created := LoadOrDefault(path, zerolog.Nop())
		if created {
			t.Fatal("default should not be created")
		}
		assertEquivalent(t, threeOccasions(), s)
	})

	t.Run("persist failure still returns default", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing-dir", "schedule.json")
		s, created := LoadOrDefault(path, zerolog.Nop())
		if !created || s.Len() != 15 {
			t.Fatalf("created=%v len=%d", created, s.Len())
		}
	})
}

func TestExportYAML(t *testing.T) {
	out, err := ExportYAML(threeOccasions())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	text := string(out)
	for _, want := range []string{"occasions:", "time: \"07:30\"", "- Monday", "- Friday", "300ms"} {
		if !strings.Contains(text, want) {
			t.Errorf("export missing %q:\n%s", want, text)
		}
	}
}
