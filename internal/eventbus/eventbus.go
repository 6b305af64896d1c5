/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus publishes feeder events to an external broker.
package eventbus

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/friendsincode/petfeeder/internal/events"
	"github.com/rs/zerolog"
)

// DefaultTopic is the base topic, subject or channel events are published under.
const DefaultTopic = "petfeeder/events"

// Sink is an events.Sink that holds a broker connection.
type Sink interface {
	events.Sink
	io.Closer
}

type nopSink struct{ events.Nop }

func (nopSink) Close() error { return nil }

// New connects to the broker named by rawURL. The scheme selects the transport:
// mqtt, tcp, ssl and tls use MQTT, nats uses NATS and redis or rediss use Redis pub/sub.
// An empty URL returns a sink that discards everything.
func New(rawURL, topic string, logger zerolog.Logger) (Sink, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nopSink{}, nil
	}
	if topic == "" {
		topic = DefaultTopic
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse events url: %w", err)
	}

	logger = logger.With().Str("component", "eventbus").Str("scheme", u.Scheme).Logger()

	switch strings.ToLower(u.Scheme) {
	case "mqtt", "tcp", "ssl", "tls", "mqtts":
		return NewMQTTSink(rawURL, topic, logger)
	case "nats":
		return NewNATSSink(rawURL, topic, logger)
	case "redis", "rediss":
		return NewRedisSink(rawURL, topic, logger)
	default:
		return nil, fmt.Errorf("unsupported events url scheme %q", u.Scheme)
	}
}

// message is the wire form of an event.
type message struct {
	events.FeedEvent
	NodeID string `json:"node_id"`
}

func marshalMessage(ev events.FeedEvent, nodeID string) ([]byte, error) {
	data, err := json.Marshal(message{FeedEvent: ev, NodeID: nodeID})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

func nodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "petfeeder"
	}
	return host
}
