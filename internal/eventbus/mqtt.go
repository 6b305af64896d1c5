/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/friendsincode/petfeeder/internal/events"
	"github.com/rs/zerolog"
)

const mqttPublishTimeout = 5 * time.Second

type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSink publishes each event to <topic>/<event type> with QoS 1.
type MQTTSink struct {
	client mqttPublisher
	close  func()
	topic  string
	nodeID string
	logger zerolog.Logger
}

// NewMQTTSink connects to broker and returns a sink publishing under topic.
func NewMQTTSink(broker, topic string, logger zerolog.Logger) (*MQTTSink, error) {
	id := nodeID()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("petfeeder-" + id)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info().Str("broker", broker).Msg("mqtt connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("mqtt connection lost")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}

	return &MQTTSink{
		client: client,
		close:  func() { client.Disconnect(250) },
		topic:  topic,
		nodeID: id,
		logger: logger,
	}, nil
}

// Emit publishes ev and waits for the broker acknowledgement.
func (s *MQTTSink) Emit(_ context.Context, ev events.FeedEvent) {
	payload, err := marshalMessage(ev, s.nodeID)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode event")
		return
	}

	topic := s.topic + "/" + string(ev.Type)
	token := s.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		s.logger.Warn().Str("topic", topic).Msg("mqtt publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("mqtt publish failed")
		return
	}
	s.logger.Debug().Str("topic", topic).Str("event_id", ev.ID).Msg("event published")
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
