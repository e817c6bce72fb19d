package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/DesCaldnd/Crypota/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes JSON records keyed by request ID, so a request and its
// reply land on matching partitions.
type Producer struct {
	writer messageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// SendRequest publishes req to the request topic for a cipher server.
func (p *Producer) SendRequest(ctx context.Context, req domain.CipherRequest) error {
	return p.send(ctx, req.RequestID, req)
}

func (p *Producer) SendReply(ctx context.Context, reply domain.CipherReply) error {
	return p.send(ctx, reply.RequestID, reply)
}

func (p *Producer) send(ctx context.Context, key string, value any) error {
	msg, err := encodeMessage(key, value)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func encodeMessage(key string, value any) (kafka.Message, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal: %w", err)
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: data,
	}, nil
}
