// Package feistel provides the balanced Feistel network shared by DES and DEAL.
package feistel

import (
	"fmt"
	"sync"

	"github.com/DesCaldnd/Crypota/algorithm/bitops"
	cryptoerrors "github.com/DesCaldnd/Crypota/internal/errors"
)

// KeySchedule derives the ordered round keys for one key assignment.
type KeySchedule[K any] interface {
	RoundKeys(key []byte) ([]K, error)
}

// RoundFunction is the keyed function applied to the right half each round.
// It must not modify half.
type RoundFunction[K any] interface {
	Apply(half []byte, roundKey K) ([]byte, error)
}

// Network runs rounds of L, R = R, L ^ F(R, k) and emits R || L, so that
// decryption is the same network with the schedule reversed.
type Network[K any] struct {
	keySchedule   KeySchedule[K]
	roundFunction RoundFunction[K]
	blockSize     int
	rounds        int

	mu        sync.RWMutex
	roundKeys []K
}

// NewNetwork validates the parameters and returns an unkeyed network.
func NewNetwork[K any](keySchedule KeySchedule[K], roundFunction RoundFunction[K], blockSize, rounds int) (*Network[K], error) {
	if keySchedule == nil {
		return nil, fmt.Errorf("key schedule cannot be nil")
	}
	if roundFunction == nil {
		return nil, fmt.Errorf("round function cannot be nil")
	}
	if blockSize <= 0 || blockSize%2 != 0 {
		return nil, fmt.Errorf("%w: block size %d cannot be split into halves", cryptoerrors.ErrSizeMismatch, blockSize)
	}
	if rounds <= 0 {
		return nil, fmt.Errorf("rounds must be positive, got %d", rounds)
	}

	return &Network[K]{
		keySchedule:   keySchedule,
		roundFunction: roundFunction,
		blockSize:     blockSize,
		rounds:        rounds,
	}, nil
}

func (n *Network[K]) BlockSize() int {
	return n.blockSize
}

func (n *Network[K]) Rounds() int {
	return n.rounds
}

// SetKey derives a fresh schedule and replaces the previous one. Blocks
// already in flight finish with the schedule they started with.
func (n *Network[K]) SetKey(key []byte) error {
	roundKeys, err := n.keySchedule.RoundKeys(key)
	if err != nil {
		return fmt.Errorf("failed to generate round keys: %w", err)
	}
	if len(roundKeys) != n.rounds {
		return fmt.Errorf("key schedule produced %d round keys, need %d", len(roundKeys), n.rounds)
	}

	n.mu.Lock()
	n.roundKeys = roundKeys
	n.mu.Unlock()
	return nil
}

func (n *Network[K]) schedule() ([]K, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.roundKeys == nil {
		return nil, cryptoerrors.ErrKeyNotSet
	}
	return n.roundKeys, nil
}

// EncryptBlock transforms block in place.
func (n *Network[K]) EncryptBlock(block []byte) error {
	roundKeys, err := n.schedule()
	if err != nil {
		return err
	}
	return n.process(block, roundKeys, false)
}

// DecryptBlock transforms block in place, consuming round keys in reverse.
func (n *Network[K]) DecryptBlock(block []byte) error {
	roundKeys, err := n.schedule()
	if err != nil {
		return err
	}
	return n.process(block, roundKeys, true)
}

func (n *Network[K]) process(block []byte, roundKeys []K, reverse bool) error {
	if len(block) != n.blockSize {
		return cryptoerrors.NewSizeError("block", len(block), n.blockSize)
	}

	left, right, err := bitops.SplitInTwo(block)
	if err != nil {
		return err
	}

	for i := 0; i < n.rounds; i++ {
		k := i
		if reverse {
			k = n.rounds - 1 - i
		}

		f, err := n.roundFunction.Apply(right, roundKeys[k])
		if err != nil {
			return fmt.Errorf("round %d: %w", k, err)
		}
		if err := bitops.XorInto(left, f); err != nil {
			return fmt.Errorf("round %d: %w", k, err)
		}
		left, right = right, left
	}

	half := n.blockSize / 2
	copy(block[:half], right)
	copy(block[half:], left)
	return nil
}
