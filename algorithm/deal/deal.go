// Package deal implements DEAL, a 128-bit block cipher whose Feistel round
// function is a full DES encryption of the right half.
package deal

import (
	"encoding/binary"
	"fmt"

	"github.com/DesCaldnd/Crypota/algorithm/bitops"
	"github.com/DesCaldnd/Crypota/algorithm/des"
	"github.com/DesCaldnd/Crypota/algorithm/feistel"
	cryptoerrors "github.com/DesCaldnd/Crypota/internal/errors"
)

const (
	BlockSize = 16

	Key128 = 16
	Key192 = 24
	Key256 = 32
)

// scheduleKey is the fixed DES key used to derive DEAL round keys.
var scheduleKey = []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}

// RoundsFor returns the number of rounds DEAL uses for a key of keySize bytes.
func RoundsFor(keySize int) (int, error) {
	switch keySize {
	case Key128, Key192:
		return 6, nil
	case Key256:
		return 8, nil
	default:
		return 0, fmt.Errorf("%w: DEAL key must be 16, 24 or 32 bytes, got %d",
			cryptoerrors.ErrSizeMismatch, keySize)
	}
}

// KeySchedule encrypts the 8-byte key chunks, chained through the previous
// round key, under a fixed DES key. Once every chunk has been used the input
// is also mixed with the constants 1, 2, 4, 8.
type KeySchedule struct {
	keySize int
	rounds  int
}

// RoundKeys returns the schedule as raw 8-byte round keys.
func (s KeySchedule) RoundKeys(key []byte) ([][]byte, error) {
	if len(key) != s.keySize {
		return nil, cryptoerrors.NewSizeError("DEAL key", len(key), s.keySize)
	}

	fixed, err := des.NewWithKey(scheduleKey)
	if err != nil {
		return nil, err
	}

	chunks := len(key) / des.BlockSize
	roundKeys := make([][]byte, s.rounds)
	prev := make([]byte, des.BlockSize)

	for i := 0; i < s.rounds; i++ {
		chunk := key[(i%chunks)*des.BlockSize : (i%chunks+1)*des.BlockSize]
		rk, err := bitops.Xor(chunk, prev)
		if err != nil {
			return nil, err
		}
		if i >= chunks {
			var constant [des.BlockSize]byte
			binary.BigEndian.PutUint64(constant[:], 1<<uint(i-chunks))
			if err := bitops.XorInto(rk, constant[:]); err != nil {
				return nil, err
			}
		}
		if err := fixed.EncryptBlock(rk); err != nil {
			return nil, fmt.Errorf("round key %d: %w", i, err)
		}
		roundKeys[i] = rk
		prev = rk
	}

	return roundKeys, nil
}

// cipherSchedule keys one DES instance per round so the DES schedules are
// derived once per DEAL key.
type cipherSchedule struct {
	KeySchedule
}

func (s cipherSchedule) RoundKeys(key []byte) ([]*des.Cipher, error) {
	raw, err := s.KeySchedule.RoundKeys(key)
	if err != nil {
		return nil, err
	}
	ciphers := make([]*des.Cipher, len(raw))
	for i, rk := range raw {
		if ciphers[i], err = des.NewWithKey(rk); err != nil {
			return nil, fmt.Errorf("round %d: %w", i, err)
		}
	}
	return ciphers, nil
}

// RoundFunction encrypts the half block with the round's DES instance.
type RoundFunction struct{}

func (RoundFunction) Apply(half []byte, roundCipher *des.Cipher) ([]byte, error) {
	out := make([]byte, len(half))
	copy(out, half)
	if err := roundCipher.EncryptBlock(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Cipher is a DEAL instance for one key size.
type Cipher struct {
	keySize int
	network *feistel.Network[*des.Cipher]
}

// New returns an unkeyed DEAL instance for keys of keySize bytes.
func New(keySize int) (*Cipher, error) {
	rounds, err := RoundsFor(keySize)
	if err != nil {
		return nil, err
	}

	schedule := cipherSchedule{KeySchedule{keySize: keySize, rounds: rounds}}
	network, err := feistel.NewNetwork[*des.Cipher](schedule, RoundFunction{}, BlockSize, rounds)
	if err != nil {
		return nil, fmt.Errorf("failed to create Feistel network: %w", err)
	}

	return &Cipher{keySize: keySize, network: network}, nil
}

// NewWithKey returns a DEAL instance sized and keyed by key.
func NewWithKey(key []byte) (*Cipher, error) {
	c, err := New(len(key))
	if err != nil {
		return nil, err
	}
	if err := c.SetKey(key); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cipher) SetKey(key []byte) error {
	if len(key) != c.keySize {
		return cryptoerrors.NewSizeError("DEAL key", len(key), c.keySize)
	}
	return c.network.SetKey(key)
}

func (c *Cipher) BlockSize() int {
	return BlockSize
}

func (c *Cipher) KeySize() int {
	return c.keySize
}

func (c *Cipher) Rounds() int {
	return c.network.Rounds()
}

// EncryptBlock encrypts a 16-byte block in place.
func (c *Cipher) EncryptBlock(block []byte) error {
	if len(block) != BlockSize {
		return cryptoerrors.NewSizeError("DEAL block", len(block), BlockSize)
	}
	return c.network.EncryptBlock(block)
}

// DecryptBlock decrypts a 16-byte block in place.
func (c *Cipher) DecryptBlock(block []byte) error {
	if len(block) != BlockSize {
		return cryptoerrors.NewSizeError("DEAL block", len(block), BlockSize)
	}
	return c.network.DecryptBlock(block)
}
