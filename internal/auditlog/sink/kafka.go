package sink

import (
	"context"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"didledger/internal/auditlog/models"
)

// Producer is the subset of *kgo.Client the Kafka sink uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Kafka produces each entry as one record to topic.
type Kafka struct {
	producer Producer
	topic    string
}

func NewKafka(producer Producer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Deliver(ctx context.Context, entry models.Entry) error {
	body, err := encode(entry)
	if err != nil {
		return err
	}
	record := &kgo.Record{
		Topic:     k.topic,
		Key:       []byte(entry.SubjectID),
		Value:     body,
		Timestamp: entry.Timestamp,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(entry.EventType)},
			{Key: "sequence", Value: []byte(strconv.FormatUint(entry.Sequence, 10))},
		},
	}
	return k.producer.ProduceSync(ctx, record).FirstErr()
}
