// Package notifier publishes ChangeEvents for downstream consumers such as
// a search indexer. The core never indexes anything itself; it only
// announces that a record changed. Adapted from the teacher's Kafka sink,
// narrowed to the single produce-and-forget operation this pipeline needs.
package notifier

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"midi-ingest/internal/model"
)

// Publisher announces a ChangeEvent. Implementations must not block the
// calling stage for long; a slow or unavailable notifier should not stall
// the pipeline.
type Publisher interface {
	Publish(model.ChangeEvent) error
	Close() error
}

// NullPublisher discards every event. Used in tests and single-node runs
// with no downstream indexer configured.
type NullPublisher struct{}

func (NullPublisher) Publish(model.ChangeEvent) error { return nil }
func (NullPublisher) Close() error                    { return nil }

// KafkaPublisher publishes ChangeEvents as JSON messages to a single topic
// via an async Sarama producer, logging (not failing the stage) on
// delivery errors — a dropped notification does not corrupt pipeline state,
// it only delays the downstream indexer.
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *logrus.Logger
}

// KafkaConfig configures a KafkaPublisher.
type KafkaConfig struct {
	Brokers []string  `yaml:"brokers"`
	Topic   string    `yaml:"topic"`
	TLS     TLSConfig `yaml:"tls"`
}

// NewKafkaPublisher dials the given brokers with a fire-and-forget async
// producer tuned for throughput over per-message delivery guarantees.
func NewKafkaPublisher(cfg KafkaConfig, logger *logrus.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("notifier: no kafka brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("notifier: no kafka topic configured")
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = false
	saramaCfg.Producer.Return.Errors = true
	saramaCfg.Producer.Compression = sarama.CompressionSnappy
	saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal

	if cfg.TLS.Enabled {
		tlsCfg, err := buildTLSConfig(cfg.TLS)
		if err != nil {
			return nil, err
		}
		saramaCfg.Net.TLS.Enable = true
		saramaCfg.Net.TLS.Config = tlsCfg
	}

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("notifier: dialing kafka: %w", err)
	}

	pub := &KafkaPublisher{producer: producer, topic: cfg.Topic, logger: logger}
	go pub.drainErrors()
	return pub, nil
}

func (p *KafkaPublisher) drainErrors() {
	for err := range p.producer.Errors() {
		p.logger.WithError(err.Err).Warn("notifier: dropped change event")
	}
}

// Publish encodes the event as JSON and enqueues it with the async
// producer. It returns promptly; delivery failures are logged, not
// returned, matching the fire-and-forget contract.
func (p *KafkaPublisher) Publish(ev model.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notifier: encoding change event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%d", ev.FileID)),
		Value: sarama.ByteEncoder(payload),
	}

	select {
	case p.producer.Input() <- msg:
		return nil
	default:
		return fmt.Errorf("notifier: producer input full, dropping change event for file %d", ev.FileID)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
