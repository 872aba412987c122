package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka: дублирует уведомления в топик для внешних потребителей.
type Kafka struct {
	writer messageWriter
	topic  string
}

type event struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: brokers are required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Kafka{writer: w, topic: topic}, nil
}

func (k *Kafka) Send(ctx context.Context, text string) error {
	v, err := sonic.Marshal(event{Text: text, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("kafka: marshal: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Topic: k.topic,
		Value: v,
		Time:  time.Now(),
	})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
