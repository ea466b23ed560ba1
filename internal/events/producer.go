package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fathima-sithara/convert-service/internal/models"
	"github.com/segmentio/kafka-go"
)

// Producer publishes conversion events keyed by conversion ID.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Producer{writer: w}
}

func (p *Producer) Publish(ctx context.Context, ev models.ConversionEvent) error {
	msg, err := eventMessage(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// eventMessage keys by conversion ID so every event of one conversion lands
// on the same partition.
func eventMessage(ev models.ConversionEvent) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(ev.ID),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}, nil
}

func (p *Producer) Close() error { return p.writer.Close() }
