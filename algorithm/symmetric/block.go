package symmetric

import "crypto/cipher"

type stdBlock struct {
	c BlockCipher
}

// NewBlock exposes a keyed BlockCipher as a crypto/cipher.Block. Like the
// standard library ciphers, the returned Block panics on short input.
func NewBlock(c BlockCipher) cipher.Block {
	return stdBlock{c: c}
}

func (b stdBlock) BlockSize() int {
	return b.c.BlockSize()
}

func (b stdBlock) Encrypt(dst, src []byte) {
	block := b.prepare(dst, src)
	if err := b.c.EncryptBlock(block); err != nil {
		panic("symmetric: " + err.Error())
	}
}

func (b stdBlock) Decrypt(dst, src []byte) {
	block := b.prepare(dst, src)
	if err := b.c.DecryptBlock(block); err != nil {
		panic("symmetric: " + err.Error())
	}
}

func (b stdBlock) prepare(dst, src []byte) []byte {
	size := b.c.BlockSize()
	if len(src) < size {
		panic("symmetric: input not full block")
	}
	if len(dst) < size {
		panic("symmetric: output not full block")
	}
	block := dst[:size]
	copy(block, src[:size])
	return block
}
