package symmetric

import (
	"encoding/binary"
	"math/big"
)

// DeltaFunc derives the whitening value for block index of a RandomDelta
// message. The result must be len(iv) bytes and must depend only on its
// arguments, since blocks are processed out of order.
type DeltaFunc func(iv []byte, delta int64, index int) []byte

// AdditiveDelta returns (iv + index*delta) mod 2^(8*len(iv)), reading iv as
// a big-endian integer. It is the default DeltaFunc.
func AdditiveDelta(iv []byte, delta int64, index int) []byte {
	v := new(big.Int).SetBytes(iv)
	step := new(big.Int).Mul(big.NewInt(delta), big.NewInt(int64(index)))
	v.Add(v, step)

	modulus := new(big.Int).Lsh(big.NewInt(1), uint(8*len(iv)))
	v.Mod(v, modulus)

	return v.FillBytes(make([]byte, len(iv)))
}

// XorDelta returns iv with index*delta, as a big-endian 64-bit value, XORed
// into its trailing bytes.
func XorDelta(iv []byte, delta int64, index int) []byte {
	var step [8]byte
	binary.BigEndian.PutUint64(step[:], uint64(delta)*uint64(index))

	out := make([]byte, len(iv))
	copy(out, iv)
	for i := 0; i < len(step) && i < len(out); i++ {
		out[len(out)-1-i] ^= step[len(step)-1-i]
	}
	return out
}
