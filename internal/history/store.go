/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package history journals feeding events to a SQL database.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/friendsincode/petfeeder/internal/config"
	"github.com/friendsincode/petfeeder/internal/db"
	"github.com/friendsincode/petfeeder/internal/events"
	"github.com/friendsincode/petfeeder/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DefaultRecentLimit is the number of rows Recent returns for a non-positive limit.
const DefaultRecentLimit = 20

// Store writes one row per feeding event. It implements events.Sink.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New wraps an already migrated database.
func New(database *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     database,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Open connects to the journal database and migrates it.
func Open(backend config.DatabaseBackend, dsn string, logger zerolog.Logger) (*Store, error) {
	database, err := db.Connect(backend, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		_ = db.Close(database)
		return nil, err
	}
	return New(database, logger), nil
}

// Emit journals feed events. Schedule events are ignored. Failures are logged.
func (s *Store) Emit(ctx context.Context, ev events.FeedEvent) {
	if !strings.HasPrefix(string(ev.Type), "feed.") {
		return
	}

	id := ev.ID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	row := models.Feeding{
		ID:         id,
		EventType:  string(ev.Type),
		Occasion:   ev.Occasion,
		Servo:      ev.Servo,
		DurationMS: ev.Duration.Milliseconds(),
		Simulated:  ev.Simulated,
		Error:      ev.Error,
		FedAt:      ev.At,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logger.Error().Err(err).Str("event_id", id).Msg("failed to journal feeding")
	}
}

// Recent returns up to limit feedings, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.Feeding, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	var rows []models.Feeding
	err := s.db.WithContext(ctx).
		Order("fed_at DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list feedings: %w", err)
	}
	return rows, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return db.Close(s.db)
}
