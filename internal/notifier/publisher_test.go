package notifier

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"midi-ingest/internal/model"
)

func TestNullPublisherDiscardsEvents(t *testing.T) {
	pub := NullPublisher{}
	assert.NoError(t, pub.Publish(model.ChangeEvent{FileID: 1, Kind: model.ChangeEventExported}))
	assert.NoError(t, pub.Close())
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "midi-events"}, logrus.New())
	assert.Error(t, err)
}

func TestNewKafkaPublisherRequiresTopic(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, logrus.New())
	assert.Error(t, err)
}
