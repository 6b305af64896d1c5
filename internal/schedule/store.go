/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// DefaultFile is the schedule file name used when none is configured.
const DefaultFile = "schedule.json"

var (
	// ErrLoad is returned when a persisted schedule is missing, unreadable or malformed.
	ErrLoad = errors.New("schedule load failed")
	// ErrPersist is returned when the schedule cannot be written.
	ErrPersist = errors.New("schedule persist failed")
)

// Load reads and decodes the schedule file at path.
func Load(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoad, path, err)
	}
	return s, nil
}

// Save writes the schedule to path. The file is written next to its destination
// and renamed into place so a crash never leaves a truncated schedule behind.
func Save(path string, s *Schedule) error {
	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %w", ErrPersist, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %w", ErrPersist, tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// LoadOrDefault loads the schedule at path. If that fails for any reason the default
// schedule is used and written back to path. A failed write is logged and the in-memory
// default is still returned. The boolean reports whether the default was used.
func LoadOrDefault(path string, logger zerolog.Logger) (*Schedule, bool) {
	s, err := Load(path)
	if err == nil {
		logger.Info().Str("path", path).Int("occasions", s.Len()).Msg("persisted schedule found, using it")
		return s, false
	}

	logger.Warn().Err(err).Str("path", path).Msg("persisted schedule unavailable, creating default")
	s = Default()

	if err := Save(path, s); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to persist default schedule")
	} else {
		logger.Info().Str("path", path).Int("occasions", s.Len()).Msg("default schedule persisted")
	}
	return s, true
}
