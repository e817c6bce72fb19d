// Package bitops implements the bit-indexed primitives shared by the block
// ciphers: table-driven permutation, halving, concatenation, rotation of a
// leading bit register and XOR.
//
// Buffers are treated as continuous bit strings. Unless an IndexingRule says
// otherwise, bit 0 is the most significant bit of the first byte and results
// are packed the same way, with the tail of the last byte zero-filled.
package bitops

import (
	"fmt"

	cryptoerrors "github.com/DesCaldnd/Crypota/internal/errors"
)

// IndexingRule selects how absolute bit numbers map onto a buffer.
type IndexingRule int

const (
	// FromLeftToRight numbers bits from the most significant bit of the first byte.
	FromLeftToRight IndexingRule = iota
	// FromRightToLeft numbers bits from the least significant bit of the last
	// byte, reading the whole buffer as one big-endian number.
	FromRightToLeft
)

func (r IndexingRule) String() string {
	switch r {
	case FromLeftToRight:
		return "FromLeftToRight"
	case FromRightToLeft:
		return "FromRightToLeft"
	default:
		return "Unknown"
	}
}

func bit(data []byte, pos int) byte {
	return (data[pos>>3] >> (7 - uint(pos&7))) & 1
}

func setBit(data []byte, pos int, v byte) {
	mask := byte(1) << (7 - uint(pos&7))
	if v != 0 {
		data[pos>>3] |= mask
	} else {
		data[pos>>3] &^= mask
	}
}

func bytesFor(bits int) int {
	return (bits + 7) / 8
}

// PermuteBits builds a new bit string whose i-th bit is the source bit number
// rule[i]-startBit, counted according to indexing. Rules may repeat or skip
// source bits. The result holds len(rule) bits.
func PermuteBits(value []byte, rule []int, startBit int, indexing IndexingRule) ([]byte, error) {
	if indexing != FromLeftToRight && indexing != FromRightToLeft {
		return nil, fmt.Errorf("%w: indexing rule %d", cryptoerrors.ErrUnsupported, int(indexing))
	}

	total := len(value) * 8
	result := make([]byte, bytesFor(len(rule)))

	for i, r := range rule {
		pos := r - startBit
		if pos < 0 || pos >= total {
			return nil, fmt.Errorf("%w: entry %d refers to bit %d of a %d-bit value (start %d)",
				cryptoerrors.ErrMalformedTable, i, r, total, startBit)
		}
		if indexing == FromRightToLeft {
			pos = total - 1 - pos
		}
		if bit(value, pos) == 1 {
			setBit(result, i, 1)
		}
	}

	return result, nil
}

// SplitInTwo splits value into its left and right halves.
func SplitInTwo(value []byte) ([]byte, []byte, error) {
	return SplitBits(value, len(value)*8)
}

// SplitBits splits the leading bitLen bits of value into two halves of
// bitLen/2 bits, each left-aligned in its own buffer.
func SplitBits(value []byte, bitLen int) ([]byte, []byte, error) {
	if bitLen < 0 || bitLen > len(value)*8 {
		return nil, nil, fmt.Errorf("%w: cannot take %d bits from %d bytes",
			cryptoerrors.ErrSizeMismatch, bitLen, len(value))
	}
	if bitLen%2 != 0 {
		return nil, nil, fmt.Errorf("%w: odd bit length %d cannot be halved",
			cryptoerrors.ErrSizeMismatch, bitLen)
	}

	half := bitLen / 2
	if half%8 == 0 {
		n := half / 8
		left := make([]byte, n)
		right := make([]byte, n)
		copy(left, value[:n])
		copy(right, value[n:2*n])
		return left, right, nil
	}

	left := make([]byte, bytesFor(half))
	right := make([]byte, bytesFor(half))
	for i := 0; i < half; i++ {
		setBit(left, i, bit(value, i))
		setBit(right, i, bit(value, half+i))
	}
	return left, right, nil
}

// JoinBits concatenates the leading leftBits of left with the leading
// rightBits of right.
func JoinBits(left []byte, leftBits int, right []byte, rightBits int) ([]byte, error) {
	if leftBits < 0 || leftBits > len(left)*8 {
		return nil, fmt.Errorf("%w: left part has %d bytes, %d bits requested",
			cryptoerrors.ErrSizeMismatch, len(left), leftBits)
	}
	if rightBits < 0 || rightBits > len(right)*8 {
		return nil, fmt.Errorf("%w: right part has %d bytes, %d bits requested",
			cryptoerrors.ErrSizeMismatch, len(right), rightBits)
	}

	result := make([]byte, bytesFor(leftBits+rightBits))
	if leftBits%8 == 0 {
		copy(result, left[:leftBits/8])
	} else {
		for i := 0; i < leftBits; i++ {
			setBit(result, i, bit(left, i))
		}
	}
	for i := 0; i < rightBits; i++ {
		setBit(result, leftBits+i, bit(right, i))
	}
	return result, nil
}

// CycleLeftShift rotates the leading bits bits of value left by shift
// positions. The shift is reduced modulo the register width, so negative
// values rotate right. Bits past the register are copied unchanged.
func CycleLeftShift(value []byte, shift, bits int) ([]byte, error) {
	if bits <= 0 || bits > len(value)*8 {
		return nil, fmt.Errorf("%w: register of %d bits does not fit %d bytes",
			cryptoerrors.ErrSizeMismatch, bits, len(value))
	}

	shift %= bits
	if shift < 0 {
		shift += bits
	}

	result := make([]byte, len(value))
	copy(result, value)
	if shift == 0 {
		return result, nil
	}

	for i := 0; i < bits; i++ {
		setBit(result, i, bit(value, (i+shift)%bits))
	}
	return result, nil
}

// Xor returns a ^ b.
func Xor(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: xor of %d and %d bytes", cryptoerrors.ErrSizeMismatch, len(a), len(b))
	}
	result := make([]byte, len(a))
	for i := range a {
		result[i] = a[i] ^ b[i]
	}
	return result, nil
}

// XorInto sets dst to dst ^ src.
func XorInto(dst, src []byte) error {
	if len(dst) != len(src) {
		return fmt.Errorf("%w: xor of %d and %d bytes", cryptoerrors.ErrSizeMismatch, len(dst), len(src))
	}
	for i := range src {
		dst[i] ^= src[i]
	}
	return nil
}
