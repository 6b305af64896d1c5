/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/friendsincode/petfeeder/internal/events"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisPublishTimeout = 3 * time.Second

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes every event to a single pub/sub channel.
type RedisSink struct {
	client  redisPublisher
	close   func() error
	channel string
	nodeID  string
	logger  zerolog.Logger
}

// NewRedisSink connects using a redis:// or rediss:// URL and verifies the connection.
func NewRedisSink(url, channel string, logger zerolog.Logger) (*RedisSink, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.WriteTimeout = redisPublishTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Str("addr", opts.Addr).Msg("redis connected")

	return &RedisSink{
		client:  client,
		close:   client.Close,
		channel: channel,
		nodeID:  nodeID(),
		logger:  logger,
	}, nil
}

// Emit publishes ev to the channel.
func (s *RedisSink) Emit(ctx context.Context, ev events.FeedEvent) {
	data, err := marshalMessage(ev, s.nodeID)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, redisPublishTimeout)
	defer cancel()

	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		s.logger.Warn().Err(err).Str("channel", s.channel).Msg("redis publish failed")
		return
	}
	s.logger.Debug().Str("channel", s.channel).Str("event_id", ev.ID).Msg("event published")
}

// Close closes the client.
func (s *RedisSink) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
