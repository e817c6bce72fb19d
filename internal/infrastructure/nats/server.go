package natsrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/DesCaldnd/Crypota/internal/domain"
)

const (
	EncryptSubject = "%s.encrypt"
	DecryptSubject = "%s.decrypt"
)

type Handler interface {
	Handle(ctx context.Context, req domain.CipherRequest) domain.CipherReply
}

// Connect dials the NATS server with the reconnect policy shared by the
// server and the client.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("NATS error", slog.String("error", err.Error()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// Server answers cipher requests on <prefix>.encrypt and <prefix>.decrypt.
// Servers sharing a queue group split the load.
type Server struct {
	conn    *nats.Conn
	handler Handler
	prefix  string
	queue   string
	timeout time.Duration
	logger  *slog.Logger
	subs    []*nats.Subscription
}

func NewServer(conn *nats.Conn, handler Handler, prefix, queue string, timeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		conn:    conn,
		handler: handler,
		prefix:  prefix,
		queue:   queue,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *Server) Start() error {
	routes := []struct {
		subject string
		op      domain.Operation
	}{
		{fmt.Sprintf(EncryptSubject, s.prefix), domain.OperationEncrypt},
		{fmt.Sprintf(DecryptSubject, s.prefix), domain.OperationDecrypt},
	}

	for _, route := range routes {
		sub, err := s.conn.QueueSubscribe(route.subject, s.queue, s.respond(route.op))
		if err != nil {
			_ = s.Stop()
			return fmt.Errorf("subscribe %s: %w", route.subject, err)
		}
		s.subs = append(s.subs, sub)
		s.logger.Info("listening for cipher requests",
			slog.String("subject", route.subject),
			slog.String("queue", s.queue))
	}
	return nil
}

// Stop drains the subscriptions so requests already received are answered.
func (s *Server) Stop() error {
	var firstErr error
	for _, sub := range s.subs {
		if err := sub.Drain(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.subs = nil
	return firstErr
}

func (s *Server) respond(op domain.Operation) nats.MsgHandler {
	return func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := msg.Respond(processMessage(ctx, s.handler, op, msg.Data)); err != nil {
			s.logger.Error("failed to respond", slog.String("subject", msg.Subject), slog.String("error", err.Error()))
		}
	}
}

// processMessage decodes a request, runs it with the operation bound to the
// subject and encodes the reply. Undecodable payloads get an error reply.
func processMessage(ctx context.Context, handler Handler, op domain.Operation, data []byte) []byte {
	var req domain.CipherRequest
	var reply domain.CipherReply

	if err := json.Unmarshal(data, &req); err != nil {
		reply = domain.CipherReply{Error: fmt.Sprintf("unmarshal: %v", err)}
	} else {
		if req.RequestID == "" {
			req.RequestID = uuid.New().String()
		}
		req.Operation = op
		reply = handler.Handle(ctx, req)
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		payload, _ = json.Marshal(domain.CipherReply{RequestID: reply.RequestID, Error: err.Error()})
	}
	return payload
}
