package symmetric

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	cryptoerrors "github.com/DesCaldnd/Crypota/internal/errors"
)

// CipherContext binds a block cipher to a mode, a padding scheme and the
// mode parameters. Messages may be processed concurrently; SetKey waits for
// in-flight messages to finish.
type CipherContext struct {
	mu sync.RWMutex

	cipher    BlockCipher
	mode      CipherMode
	padding   PaddingMode
	iv        []byte
	blockSize int

	delta     int64
	hasDelta  bool
	deltaFunc DeltaFunc

	workers int
	logger  *slog.Logger
}

type Option func(*CipherContext)

// WithDelta sets the per-block step used by RandomDelta.
func WithDelta(delta int64) Option {
	return func(c *CipherContext) {
		c.delta = delta
		c.hasDelta = true
	}
}

func WithDeltaFunc(f DeltaFunc) Option {
	return func(c *CipherContext) {
		if f != nil {
			c.deltaFunc = f
		}
	}
}

// WithWorkers bounds the number of blocks processed at once. Values below
// one fall back to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *CipherContext) {
		c.workers = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *CipherContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCipherContext(
	key []byte,
	cipher BlockCipher,
	mode CipherMode,
	padding PaddingMode,
	iv []byte,
	opts ...Option) (*CipherContext, error) {

	if cipher == nil {
		return nil, fmt.Errorf("%w: cipher", cryptoerrors.ErrMissingParameter)
	}
	if !mode.valid() {
		return nil, fmt.Errorf("%w: cipher mode %d", cryptoerrors.ErrUnsupported, int(mode))
	}
	if !padding.valid() {
		return nil, fmt.Errorf("%w: padding mode %d", cryptoerrors.ErrUnsupported, int(padding))
	}

	blockSize := cipher.BlockSize()
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size %d", cryptoerrors.ErrUnsupported, blockSize)
	}
	if padding != Zeros && blockSize > 255 {
		return nil, fmt.Errorf("%w: %s padding with %d-byte blocks", cryptoerrors.ErrUnsupported, padding, blockSize)
	}

	cipherContext := &CipherContext{
		cipher:    cipher,
		mode:      mode,
		padding:   padding,
		blockSize: blockSize,
		deltaFunc: AdditiveDelta,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(cipherContext)
	}
	if cipherContext.workers < 1 {
		cipherContext.workers = runtime.GOMAXPROCS(0)
	}

	if iv != nil {
		if len(iv) != blockSize {
			return nil, cryptoerrors.NewSizeError("IV", len(iv), blockSize)
		}
		cipherContext.iv = append([]byte(nil), iv...)
	} else if mode.requiresIV() {
		return nil, fmt.Errorf("%w: %s mode requires an IV", cryptoerrors.ErrMissingParameter, mode)
	}

	if mode == RandomDelta && !cipherContext.hasDelta {
		return nil, fmt.Errorf("%w: RandomDelta mode requires a delta", cryptoerrors.ErrMissingParameter)
	}

	if err := cipherContext.SetKey(key); err != nil {
		return nil, fmt.Errorf("failed to set key: %w", err)
	}

	return cipherContext, nil
}

// SetKey rekeys the underlying cipher once in-flight messages complete.
func (c *CipherContext) SetKey(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(key) != c.cipher.KeySize() {
		return cryptoerrors.NewSizeError("key", len(key), c.cipher.KeySize())
	}
	return c.cipher.SetKey(key)
}

func (c *CipherContext) BlockSize() int {
	return c.blockSize
}

func (c *CipherContext) Mode() CipherMode {
	return c.mode
}

func (c *CipherContext) Padding() PaddingMode {
	return c.padding
}

// EncryptMessage pads data and encrypts it under the configured mode. An
// empty message yields an empty ciphertext for Zeros and one padding block
// otherwise.
func (c *CipherContext) EncryptMessage(ctx context.Context, data []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	padded, err := addPadding(data, c.blockSize, c.padding)
	if err != nil {
		return nil, fmt.Errorf("failed to add padding: %w", err)
	}

	c.logger.Debug("encrypting message",
		slog.String("mode", c.mode.String()),
		slog.String("padding", c.padding.String()),
		slog.Int("blocks", len(padded)/c.blockSize),
		slog.Int("workers", c.workers))

	encrypted := make([]byte, len(padded))

	switch c.mode {
	case ECB:
		err = c.encryptECB(ctx, padded, encrypted)
	case CBC:
		err = c.encryptCBC(ctx, padded, encrypted)
	case PCBC:
		err = c.encryptPCBC(ctx, padded, encrypted)
	case CFB:
		err = c.encryptCFB(ctx, padded, encrypted)
	case OFB:
		err = c.applyOFB(ctx, padded, encrypted)
	case CTR:
		err = c.applyCTR(ctx, padded, encrypted)
	case RandomDelta:
		err = c.encryptRandomDelta(ctx, padded, encrypted)
	default:
		err = fmt.Errorf("%w: cipher mode %d", cryptoerrors.ErrUnsupported, int(c.mode))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to encrypt data: %w", err)
	}

	return encrypted, nil
}

// DecryptMessage reverses EncryptMessage. The ciphertext length must be a
// multiple of the block size. Under Zeros the result keeps the padding
// zeros of a partial final block.
func (c *CipherContext) DecryptMessage(ctx context.Context, data []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(data)%c.blockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of %d",
			cryptoerrors.ErrSizeMismatch, len(data), c.blockSize)
	}

	c.logger.Debug("decrypting message",
		slog.String("mode", c.mode.String()),
		slog.String("padding", c.padding.String()),
		slog.Int("blocks", len(data)/c.blockSize),
		slog.Int("workers", c.workers))

	var err error
	decrypted := make([]byte, len(data))

	switch c.mode {
	case ECB:
		err = c.decryptECB(ctx, data, decrypted)
	case CBC:
		err = c.decryptCBC(ctx, data, decrypted)
	case PCBC:
		err = c.decryptPCBC(ctx, data, decrypted)
	case CFB:
		err = c.decryptCFB(ctx, data, decrypted)
	case OFB:
		err = c.applyOFB(ctx, data, decrypted)
	case CTR:
		err = c.applyCTR(ctx, data, decrypted)
	case RandomDelta:
		err = c.decryptRandomDelta(ctx, data, decrypted)
	default:
		err = fmt.Errorf("%w: cipher mode %d", cryptoerrors.ErrUnsupported, int(c.mode))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decrypt data: %w", err)
	}

	decrypted, err = removePadding(decrypted, c.blockSize, c.padding)
	if err != nil {
		return nil, fmt.Errorf("failed to remove padding: %w", err)
	}
	return decrypted, nil
}

func (c *CipherContext) EncryptMessageAsync(ctx context.Context, data []byte) (<-chan []byte, <-chan error) {
	return runAsync(func() ([]byte, error) {
		return c.EncryptMessage(ctx, data)
	})
}

func (c *CipherContext) DecryptMessageAsync(ctx context.Context, data []byte) (<-chan []byte, <-chan error) {
	return runAsync(func() ([]byte, error) {
		return c.DecryptMessage(ctx, data)
	})
}

// runAsync delivers exactly one value on either the result or the error
// channel, then closes both.
func runAsync(op func() ([]byte, error)) (<-chan []byte, <-chan error) {
	resultChan := make(chan []byte, 1)
	errorChan := make(chan error, 1)

	go func() {
		defer close(resultChan)
		defer close(errorChan)

		out, err := op()
		if err != nil {
			errorChan <- err
			return
		}
		resultChan <- out
	}()

	return resultChan, errorChan
}
