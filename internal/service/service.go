package service

import (
	"context"
	"log/slog"

	"github.com/DesCaldnd/Crypota/algorithm/symmetric"
	"github.com/DesCaldnd/Crypota/internal/domain"
)

type Cipher interface {
	Encrypt(ctx context.Context, data []byte) ([]byte, error)
	Decrypt(ctx context.Context, data []byte) ([]byte, error)
	Handle(ctx context.Context, req domain.CipherRequest) domain.CipherReply
}

type Service struct {
	Cipher
}

func NewService(cipherContext *symmetric.CipherContext, logger *slog.Logger) *Service {
	return &Service{
		Cipher: NewCipherService(cipherContext, logger),
	}
}
