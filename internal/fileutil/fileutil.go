// Package fileutil moves whole files through a message codec. Chunked
// processing would pad every chunk, so files are read completely.
package fileutil

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Codec is the message-level surface of a cipher context.
type Codec interface {
	EncryptMessage(ctx context.Context, data []byte) ([]byte, error)
	DecryptMessage(ctx context.Context, data []byte) ([]byte, error)
}

func ReadFile(path string) ([]byte, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("input file %s does not exist", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read input file: %w", err)
	}
	return data, nil
}

// WriteFile writes data, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write output file: %w", err)
	}
	return nil
}

func EncryptFile(ctx context.Context, codec Codec, inputPath, outputPath string) error {
	return transform(ctx, codec.EncryptMessage, inputPath, outputPath)
}

func DecryptFile(ctx context.Context, codec Codec, inputPath, outputPath string) error {
	return transform(ctx, codec.DecryptMessage, inputPath, outputPath)
}

func transform(ctx context.Context, op func(context.Context, []byte) ([]byte, error), inputPath, outputPath string) error {
	data, err := ReadFile(inputPath)
	if err != nil {
		return err
	}
	out, err := op(ctx, data)
	if err != nil {
		return fmt.Errorf("%s: %w", inputPath, err)
	}
	return WriteFile(outputPath, out)
}

// EncryptFileAsync reports completion of EncryptFile on one of the returned
// channels.
func EncryptFileAsync(ctx context.Context, codec Codec, inputPath, outputPath string) (<-chan struct{}, <-chan error) {
	return runAsync(func() error {
		return EncryptFile(ctx, codec, inputPath, outputPath)
	})
}

func DecryptFileAsync(ctx context.Context, codec Codec, inputPath, outputPath string) (<-chan struct{}, <-chan error) {
	return runAsync(func() error {
		return DecryptFile(ctx, codec, inputPath, outputPath)
	})
}

func runAsync(op func() error) (<-chan struct{}, <-chan error) {
	successChan := make(chan struct{}, 1)
	errorChan := make(chan error, 1)

	go func() {
		defer close(successChan)
		defer close(errorChan)

		if err := op(); err != nil {
			errorChan <- err
			return
		}
		successChan <- struct{}{}
	}()

	return successChan, errorChan
}

// ToHex renders data as upper-case hex without separators.
func ToHex(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// FromHex accepts either letter case and ignores spaces.
func FromHex(s string) ([]byte, error) {
	data, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	return data, nil
}
