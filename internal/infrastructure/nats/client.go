package natsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/DesCaldnd/Crypota/internal/domain"
)

var ErrRemote = errors.New("remote cipher error")

// Client submits messages to a Server over NATS request/reply.
type Client struct {
	conn   *nats.Conn
	prefix string
}

func NewClient(conn *nats.Conn, prefix string) *Client {
	return &Client{conn: conn, prefix: prefix}
}

func (c *Client) Encrypt(ctx context.Context, data []byte) ([]byte, error) {
	return c.request(ctx, fmt.Sprintf(EncryptSubject, c.prefix), domain.NewCipherRequest(domain.OperationEncrypt, data))
}

func (c *Client) Decrypt(ctx context.Context, data []byte) ([]byte, error) {
	return c.request(ctx, fmt.Sprintf(DecryptSubject, c.prefix), domain.NewCipherRequest(domain.OperationDecrypt, data))
}

func (c *Client) request(ctx context.Context, subject string, req domain.CipherRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	msg, err := c.conn.RequestWithContext(ctx, subject, payload)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", subject, err)
	}

	return decodeReply(req.RequestID, msg.Data)
}

func decodeReply(requestID string, data []byte) ([]byte, error) {
	var reply domain.CipherReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRemote, reply.Error)
	}
	if reply.RequestID != requestID {
		return nil, fmt.Errorf("reply for request %q, want %q", reply.RequestID, requestID)
	}
	return reply.Data, nil
}
