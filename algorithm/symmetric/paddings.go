package symmetric

import (
	"bytes"
	"crypto/rand"
	"fmt"

	cryptoerrors "github.com/DesCaldnd/Crypota/internal/errors"
)

// addPadding returns a copy of data extended to a multiple of blockSize.
// Zeros pads only a partial final block and is never removed, since padding
// zeros cannot be told apart from plaintext zeros; callers that know the
// message length truncate to it. The other schemes always append
// 1..blockSize bytes so the length can be recovered.
func addPadding(data []byte, blockSize int, mode PaddingMode) ([]byte, error) {
	paddingSize := blockSize - len(data)%blockSize

	switch mode {
	case Zeros:
		if paddingSize == blockSize {
			paddingSize = 0
		}
		return ZerosPadding(data, paddingSize), nil
	case AnsiX923:
		return ANSIX923Padding(data, paddingSize), nil
	case PKCS7:
		return PKCS7Padding(data, paddingSize), nil
	case Iso10126:
		return ISO10126Padding(data, paddingSize)
	default:
		return nil, fmt.Errorf("%w: padding mode %d", cryptoerrors.ErrUnsupported, int(mode))
	}
}

func removePadding(data []byte, blockSize int, mode PaddingMode) ([]byte, error) {
	switch mode {
	case Zeros:
		return data, nil
	case AnsiX923:
		return removeANSIX923Padding(data, blockSize)
	case PKCS7:
		return removePKCS7Padding(data, blockSize)
	case Iso10126:
		return removeISO10126Padding(data, blockSize)
	default:
		return nil, fmt.Errorf("%w: padding mode %d", cryptoerrors.ErrUnsupported, int(mode))
	}
}

func withTail(data []byte, tail []byte) []byte {
	out := make([]byte, 0, len(data)+len(tail))
	out = append(out, data...)
	return append(out, tail...)
}

func ZerosPadding(data []byte, paddingSize int) []byte {
	return withTail(data, make([]byte, paddingSize))
}

func ANSIX923Padding(data []byte, paddingSize int) []byte {
	padding := append(bytes.Repeat([]byte{0}, paddingSize-1), byte(paddingSize))
	return withTail(data, padding)
}

func PKCS7Padding(data []byte, paddingSize int) []byte {
	return withTail(data, bytes.Repeat([]byte{byte(paddingSize)}, paddingSize))
}

func ISO10126Padding(data []byte, paddingSize int) ([]byte, error) {
	padding := make([]byte, paddingSize)
	if _, err := rand.Read(padding[:paddingSize-1]); err != nil {
		return nil, fmt.Errorf("failed to generate padding: %w", err)
	}
	padding[paddingSize-1] = byte(paddingSize)
	return withTail(data, padding), nil
}

func paddingSize(data []byte, blockSize int) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: no data to unpad", cryptoerrors.ErrInvalidPadding)
	}
	size := int(data[len(data)-1])
	if size == 0 || size > blockSize || size > len(data) {
		return 0, fmt.Errorf("%w: padding size %d", cryptoerrors.ErrInvalidPadding, size)
	}
	return size, nil
}

func removeANSIX923Padding(data []byte, blockSize int) ([]byte, error) {
	size, err := paddingSize(data, blockSize)
	if err != nil {
		return nil, err
	}
	for _, b := range data[len(data)-size : len(data)-1] {
		if b != 0 {
			return nil, fmt.Errorf("%w: non-zero ANSI X.923 filler", cryptoerrors.ErrInvalidPadding)
		}
	}
	return data[:len(data)-size], nil
}

func removePKCS7Padding(data []byte, blockSize int) ([]byte, error) {
	size, err := paddingSize(data, blockSize)
	if err != nil {
		return nil, err
	}
	for _, b := range data[len(data)-size:] {
		if int(b) != size {
			return nil, fmt.Errorf("%w: inconsistent PKCS7 bytes", cryptoerrors.ErrInvalidPadding)
		}
	}
	return data[:len(data)-size], nil
}

func removeISO10126Padding(data []byte, blockSize int) ([]byte, error) {
	size, err := paddingSize(data, blockSize)
	if err != nil {
		return nil, err
	}
	return data[:len(data)-size], nil
}
