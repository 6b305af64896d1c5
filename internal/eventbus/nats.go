/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/friendsincode/petfeeder/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

type natsPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes each event to the subject <topic>.<event type>.
// Slashes in the topic become dots so MQTT-style topics work unchanged.
type NATSSink struct {
	conn    natsPublisher
	close   func()
	subject string
	nodeID  string
	logger  zerolog.Logger
}

// NewNATSSink connects to the NATS server at url.
func NewNATSSink(url, topic string, logger zerolog.Logger) (*NATSSink, error) {
	cfg := DefaultNATSConfig()
	cfg.URL = url

	nc, err := nats.Connect(cfg.URL,
		nats.Name("petfeeder"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	logger.Info().Str("url", nc.ConnectedUrlRedacted()).Msg("nats connected")

	return &NATSSink{
		conn:    nc,
		close:   func() { _ = nc.Drain() },
		subject: natsSubject(topic),
		nodeID:  nodeID(),
		logger:  logger,
	}, nil
}

func natsSubject(topic string) string {
	return strings.Trim(strings.ReplaceAll(topic, "/", "."), ".")
}

// Emit publishes ev. Delivery is fire-and-forget.
func (s *NATSSink) Emit(_ context.Context, ev events.FeedEvent) {
	data, err := marshalMessage(ev, s.nodeID)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode event")
		return
	}

	subject := s.subject + "." + string(ev.Type)
	if err := s.conn.Publish(subject, data); err != nil {
		s.logger.Warn().Err(err).Str("subject", subject).Msg("nats publish failed")
		return
	}
	s.logger.Debug().Str("subject", subject).Str("event_id", ev.ID).Msg("event published")
}

// Close drains and closes the connection.
func (s *NATSSink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
