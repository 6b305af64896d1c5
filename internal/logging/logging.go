/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process. An explicit level overrides the
// environment default; an unknown level is ignored.
func Setup(environment, level string) zerolog.Logger {
	return SetupWithWriter(environment, level, os.Stdout)
}

// SetupWithWriter configures zerolog writing human-readable output to out.
func SetupWithWriter(environment, level string, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(zerolog.ConsoleWriter{Out: out}).
		With().Timestamp().Logger().
		Level(ResolveLevel(environment, level))
	log.Logger = logger
	return logger
}

// ResolveLevel picks the log level: debug in development, info otherwise, unless level names another.
func ResolveLevel(environment, level string) zerolog.Level {
	resolved := zerolog.InfoLevel
	if strings.EqualFold(environment, "development") {
		resolved = zerolog.DebugLevel
	}
	if level != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && parsed != zerolog.NoLevel {
			resolved = parsed
		}
	}
	return resolved
}
