// Package des implements the Data Encryption Standard on top of the generic
// Feistel network and the bitops permutation kernel.
package des

import (
	"encoding/binary"
	"fmt"

	"github.com/DesCaldnd/Crypota/algorithm/bitops"
	"github.com/DesCaldnd/Crypota/algorithm/feistel"
	cryptoerrors "github.com/DesCaldnd/Crypota/internal/errors"
)

const (
	BlockSize = 8
	KeySize   = 8
	Rounds    = 16

	halfKeyBits   = 28
	roundKeyBytes = 6
	startBit      = 1
)

// KeySchedule derives the sixteen 48-bit round keys. Parity bits of the key
// are ignored, not validated.
type KeySchedule struct{}

func (KeySchedule) RoundKeys(key []byte) ([][]byte, error) {
	if len(key) != KeySize {
		return nil, cryptoerrors.NewSizeError("DES key", len(key), KeySize)
	}

	state, err := bitops.PermuteBits(key, permutedChoice1, startBit, bitops.FromLeftToRight)
	if err != nil {
		return nil, fmt.Errorf("PC-1: %w", err)
	}
	c, d, err := bitops.SplitBits(state, 2*halfKeyBits)
	if err != nil {
		return nil, fmt.Errorf("split key state: %w", err)
	}

	roundKeys := make([][]byte, Rounds)
	for round, shift := range keyShifts {
		if c, err = bitops.CycleLeftShift(c, shift, halfKeyBits); err != nil {
			return nil, err
		}
		if d, err = bitops.CycleLeftShift(d, shift, halfKeyBits); err != nil {
			return nil, err
		}

		cd, err := bitops.JoinBits(c, halfKeyBits, d, halfKeyBits)
		if err != nil {
			return nil, err
		}
		if roundKeys[round], err = bitops.PermuteBits(cd, permutedChoice2, startBit, bitops.FromLeftToRight); err != nil {
			return nil, fmt.Errorf("PC-2 in round %d: %w", round, err)
		}
	}

	return roundKeys, nil
}

// RoundFunction is the DES f-function: expansion, key mixing, S-boxes and
// the P permutation.
type RoundFunction struct{}

func (RoundFunction) Apply(half []byte, roundKey []byte) ([]byte, error) {
	if len(half) != BlockSize/2 {
		return nil, cryptoerrors.NewSizeError("DES half block", len(half), BlockSize/2)
	}
	if len(roundKey) != roundKeyBytes {
		return nil, cryptoerrors.NewSizeError("DES round key", len(roundKey), roundKeyBytes)
	}

	expanded, err := bitops.PermuteBits(half, expansionTable, startBit, bitops.FromLeftToRight)
	if err != nil {
		return nil, fmt.Errorf("expansion: %w", err)
	}
	if err := bitops.XorInto(expanded, roundKey); err != nil {
		return nil, err
	}

	var mixed uint64
	for _, b := range expanded {
		mixed = mixed<<8 | uint64(b)
	}

	var substituted uint32
	for box := 0; box < 8; box++ {
		group := byte(mixed>>(42-6*box)) & 0x3f
		row := (group>>4)&0x2 | group&0x1
		col := (group >> 1) & 0xf
		substituted = substituted<<4 | uint32(sBoxes[box][row][col])
	}

	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, substituted)
	return bitops.PermuteBits(out, roundPermutation, startBit, bitops.FromLeftToRight)
}

// Cipher is a DES instance. Its round keys are owned by the instance and
// replaced wholesale by SetKey.
type Cipher struct {
	network *feistel.Network[[]byte]
}

// New returns an unkeyed DES instance; call SetKey before use.
func New() *Cipher {
	network, err := feistel.NewNetwork[[]byte](KeySchedule{}, RoundFunction{}, BlockSize, Rounds)
	if err != nil {
		// the arguments are constants
		panic(err)
	}
	return &Cipher{network: network}
}

// NewWithKey returns a DES instance with its schedule already derived.
func NewWithKey(key []byte) (*Cipher, error) {
	c := New()
	if err := c.SetKey(key); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cipher) SetKey(key []byte) error {
	if len(key) != KeySize {
		return cryptoerrors.NewSizeError("DES key", len(key), KeySize)
	}
	return c.network.SetKey(key)
}

func (c *Cipher) BlockSize() int {
	return BlockSize
}

func (c *Cipher) KeySize() int {
	return KeySize
}

// EncryptBlock encrypts an 8-byte block in place.
func (c *Cipher) EncryptBlock(block []byte) error {
	return c.process(block, c.network.EncryptBlock)
}

// DecryptBlock decrypts an 8-byte block in place.
func (c *Cipher) DecryptBlock(block []byte) error {
	return c.process(block, c.network.DecryptBlock)
}

func (c *Cipher) process(block []byte, rounds func([]byte) error) error {
	if len(block) != BlockSize {
		return cryptoerrors.NewSizeError("DES block", len(block), BlockSize)
	}

	permuted, err := bitops.PermuteBits(block, initialPermutation, startBit, bitops.FromLeftToRight)
	if err != nil {
		return fmt.Errorf("initial permutation: %w", err)
	}
	if err := rounds(permuted); err != nil {
		return err
	}
	out, err := bitops.PermuteBits(permuted, finalPermutation, startBit, bitops.FromLeftToRight)
	if err != nil {
		return fmt.Errorf("final permutation: %w", err)
	}

	copy(block, out)
	return nil
}
