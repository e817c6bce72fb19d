package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/DesCaldnd/Crypota/internal/domain"
)

const readRetryDelay = 500 * time.Millisecond

type Handler interface {
	Handle(ctx context.Context, req domain.CipherRequest) domain.CipherReply
}

type ReplySender interface {
	SendReply(ctx context.Context, reply domain.CipherReply) error
}

// Consumer reads cipher requests from the request topic and publishes one
// reply per record through its ReplySender.
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	replies ReplySender
	logger  *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, handler Handler, replies ReplySender, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  1 * time.Second,
	})
	return &Consumer{
		reader:  reader,
		handler: handler,
		replies: replies,
		logger:  logger,
	}
}

// Start consumes until ctx is cancelled. The returned channel closes once
// the reader is closed.
func (c *Consumer) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer c.reader.Close()

		for {
			m, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					c.logger.Info("Kafka consumer stopped")
					return
				}
				c.logger.Error("Kafka read error", slog.String("error", err.Error()))
				if !waitRetry(ctx, readRetryDelay) {
					c.logger.Info("Kafka consumer stopped")
					return
				}
				continue
			}

			reply := c.process(ctx, m)
			if err := c.replies.SendReply(ctx, reply); err != nil {
				c.logger.Error("Kafka reply failed",
					slog.String("request_id", reply.RequestID),
					slog.String("error", err.Error()))
			}
		}
	}()

	return done
}

// waitRetry sleeps for d and reports false if ctx ends first.
func waitRetry(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// process turns one record into a reply. The record key stands in for a
// missing request ID, and a fresh ID is used when both are empty.
func (c *Consumer) process(ctx context.Context, m kafka.Message) domain.CipherReply {
	var req domain.CipherRequest
	if err := json.Unmarshal(m.Value, &req); err != nil {
		return domain.CipherReply{
			RequestID: string(m.Key),
			Error:     fmt.Sprintf("Kafka JSON decode error: %v", err),
		}
	}

	if req.RequestID == "" {
		req.RequestID = string(m.Key)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	return c.handler.Handle(ctx, req)
}
