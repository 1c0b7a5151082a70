package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const writeTimeout = 10 * time.Second

type KafkaPublisher struct {
	writer *kafka.Writer
	log    logrus.FieldLogger
}

func NewKafkaPublisher(brokers []string, topic string, log logrus.FieldLogger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	log = log.WithField("component", "events")
	log.WithFields(logrus.Fields{"brokers": brokers, "topic": topic}).Info("kafka publisher configured")
	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Key()),
		Value: value,
		Time:  e.Time,
	}); err != nil {
		return fmt.Errorf("failed to write event to kafka: %w", err)
	}
	p.log.WithFields(logrus.Fields{"event": e.Type, "key": e.Key()}).Debug("event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// log-only publisher otherwise.
func NewPublisher(brokers []string, topic string, log logrus.FieldLogger) Publisher {
	if len(brokers) == 0 {
		return NewLogPublisher(log)
	}
	return NewKafkaPublisher(brokers, topic, log)
}
