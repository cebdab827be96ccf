// Package kafka feeds streamed sensor readings into the same synchronous
// registration path the HTTP endpoint uses. Delivery is at-most-once;
// malformed or failing messages are logged and skipped.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"

	"maintenance-service/internal/logging"
	"maintenance-service/internal/sensors"
)

type Config struct {
	Broker  string
	Topic   string
	GroupID string
}

type Consumer struct {
	reader *kafka.Reader
	svc    *sensors.Service
	logger *logging.Logger
}

func NewConsumer(cfg Config, svc *sensors.Service, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{cfg.Broker},
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})
	return &Consumer{reader: reader, svc: svc, logger: logger}
}

// Start consumes until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Infof("Kafka consumer started on topic %s", c.reader.Config().Topic)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.Infof("Kafka consumer stopped")
				return
			}
			c.logger.Errorf("Read message failed: %v", err)
			continue
		}

		var reading struct {
			SensorCode string  `json:"sensor_code"`
			Value      float64 `json:"value"`
		}
		if err := json.Unmarshal(msg.Value, &reading); err != nil {
			c.logger.Errorf("Unmarshal message failed: %v", err)
			continue
		}
		if reading.SensorCode == "" {
			c.logger.Errorf("Invalid message: missing sensor_code")
			continue
		}

		if _, err := c.svc.RegisterReading(ctx, reading.SensorCode, reading.Value); err != nil {
			c.logger.Errorf("Reading for %s rejected: %v", reading.SensorCode, err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
