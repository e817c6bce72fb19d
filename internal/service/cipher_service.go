package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DesCaldnd/Crypota/algorithm/deal"
	"github.com/DesCaldnd/Crypota/algorithm/des"
	"github.com/DesCaldnd/Crypota/algorithm/symmetric"
	"github.com/DesCaldnd/Crypota/internal/config"
	"github.com/DesCaldnd/Crypota/internal/domain"
	cryptoerrors "github.com/DesCaldnd/Crypota/internal/errors"
)

// NewBlockCipher returns an unkeyed cipher for the named algorithm. DEAL
// picks its variant from keySize.
func NewBlockCipher(algorithm string, keySize int) (symmetric.BlockCipher, error) {
	switch strings.ToUpper(strings.TrimSpace(algorithm)) {
	case "DES":
		return des.New(), nil
	case "DEAL":
		c, err := deal.New(keySize)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: algorithm %q", cryptoerrors.ErrUnsupported, algorithm)
	}
}

// NewCipherContext builds a keyed cipher context from its configuration.
func NewCipherContext(cfg config.CipherConfig, logger *slog.Logger) (*symmetric.CipherContext, error) {
	key, err := hex.DecodeString(cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("invalid cipher key: %w", err)
	}

	var iv []byte
	if cfg.IV != "" {
		if iv, err = hex.DecodeString(cfg.IV); err != nil {
			return nil, fmt.Errorf("invalid cipher iv: %w", err)
		}
	}

	mode, err := symmetric.ParseCipherMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	padding, err := symmetric.ParsePaddingMode(cfg.Padding)
	if err != nil {
		return nil, err
	}

	blockCipher, err := NewBlockCipher(cfg.Algorithm, len(key))
	if err != nil {
		return nil, err
	}

	cipherContext, err := symmetric.NewCipherContext(key, blockCipher, mode, padding, iv,
		symmetric.WithDelta(cfg.Delta),
		symmetric.WithWorkers(cfg.Workers),
		symmetric.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create cipher context: %w", err)
	}
	return cipherContext, nil
}

type CipherService struct {
	cipherContext *symmetric.CipherContext
	logger        *slog.Logger
}

func NewCipherService(cipherContext *symmetric.CipherContext, logger *slog.Logger) *CipherService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CipherService{cipherContext: cipherContext, logger: logger}
}

func (s *CipherService) Encrypt(ctx context.Context, data []byte) ([]byte, error) {
	return s.cipherContext.EncryptMessage(ctx, data)
}

func (s *CipherService) Decrypt(ctx context.Context, data []byte) ([]byte, error) {
	return s.cipherContext.DecryptMessage(ctx, data)
}

// Handle runs a transport request. Failures are reported in the reply, never
// returned, so every request gets exactly one answer.
func (s *CipherService) Handle(ctx context.Context, req domain.CipherRequest) domain.CipherReply {
	start := time.Now()
	reply := domain.CipherReply{RequestID: req.RequestID}

	var (
		out []byte
		err error
	)
	switch req.Operation {
	case domain.OperationEncrypt:
		out, err = s.Encrypt(ctx, req.Data)
	case domain.OperationDecrypt:
		out, err = s.Decrypt(ctx, req.Data)
	default:
		err = fmt.Errorf("%w: operation %q", cryptoerrors.ErrUnsupported, req.Operation)
	}

	if err != nil {
		s.logger.Error("cipher request failed",
			slog.String("request_id", req.RequestID),
			slog.String("operation", string(req.Operation)),
			slog.String("error", err.Error()))
		reply.Error = err.Error()
		return reply
	}

	s.logger.Info("cipher request processed",
		slog.String("request_id", req.RequestID),
		slog.String("operation", string(req.Operation)),
		slog.Int("bytes", len(out)),
		slog.Duration("elapsed", time.Since(start)))
	reply.Data = out
	return reply
}
