package symmetric

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/DesCaldnd/Crypota/algorithm/bitops"
	cryptoerrors "github.com/DesCaldnd/Crypota/internal/errors"
)

// forEachBlock runs fn for every block index on at most c.workers
// goroutines. The first failure cancels the blocks not yet started.
func (c *CipherContext) forEachBlock(ctx context.Context, blocks int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)

	for i := 0; i < blocks; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// sequentialBlocks runs fn in block order, checking ctx between blocks.
func sequentialBlocks(ctx context.Context, blocks int, fn func(i int) error) error {
	for i := 0; i < blocks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}

func (c *CipherContext) slot(data []byte, i int) []byte {
	pos := i * c.blockSize
	return data[pos : pos+c.blockSize]
}

func (c *CipherContext) encryptBlock(block []byte, i int) error {
	if err := c.cipher.EncryptBlock(block); err != nil {
		return fmt.Errorf("encryption failed at block %d: %w", i, err)
	}
	return nil
}

func (c *CipherContext) decryptBlock(block []byte, i int) error {
	if err := c.cipher.DecryptBlock(block); err != nil {
		return fmt.Errorf("decryption failed at block %d: %w", i, err)
	}
	return nil
}

// keystream returns E(input) without touching input.
func (c *CipherContext) keystream(input []byte, i int) ([]byte, error) {
	stream := append([]byte(nil), input...)
	if err := c.encryptBlock(stream, i); err != nil {
		return nil, err
	}
	return stream, nil
}

func (c *CipherContext) encryptECB(ctx context.Context, src, dst []byte) error {
	return c.forEachBlock(ctx, len(src)/c.blockSize, func(i int) error {
		block := c.slot(dst, i)
		copy(block, c.slot(src, i))
		return c.encryptBlock(block, i)
	})
}

func (c *CipherContext) decryptECB(ctx context.Context, src, dst []byte) error {
	return c.forEachBlock(ctx, len(src)/c.blockSize, func(i int) error {
		block := c.slot(dst, i)
		copy(block, c.slot(src, i))
		return c.decryptBlock(block, i)
	})
}

// C_i = E(P_i ^ C_{i-1}), C_0 = IV
func (c *CipherContext) encryptCBC(ctx context.Context, src, dst []byte) error {
	previous := c.iv
	return sequentialBlocks(ctx, len(src)/c.blockSize, func(i int) error {
		block := c.slot(dst, i)
		copy(block, c.slot(src, i))
		if err := bitops.XorInto(block, previous); err != nil {
			return err
		}
		if err := c.encryptBlock(block, i); err != nil {
			return err
		}
		previous = block
		return nil
	})
}

// P_i = D(C_i) ^ C_{i-1}; every input block is known up front.
func (c *CipherContext) decryptCBC(ctx context.Context, src, dst []byte) error {
	return c.forEachBlock(ctx, len(src)/c.blockSize, func(i int) error {
		block := c.slot(dst, i)
		copy(block, c.slot(src, i))
		if err := c.decryptBlock(block, i); err != nil {
			return err
		}
		return bitops.XorInto(block, c.previousInput(src, i))
	})
}

// previousInput returns the input block before i, or the IV for block 0.
func (c *CipherContext) previousInput(src []byte, i int) []byte {
	if i == 0 {
		return c.iv
	}
	return c.slot(src, i-1)
}

// C_i = E(P_i ^ P_{i-1} ^ C_{i-1}), with P_0 ^ C_0 = IV
func (c *CipherContext) encryptPCBC(ctx context.Context, src, dst []byte) error {
	feedback := append([]byte(nil), c.iv...)
	return sequentialBlocks(ctx, len(src)/c.blockSize, func(i int) error {
		plain := c.slot(src, i)
		block := c.slot(dst, i)
		copy(block, plain)
		if err := bitops.XorInto(block, feedback); err != nil {
			return err
		}
		if err := c.encryptBlock(block, i); err != nil {
			return err
		}
		next, err := bitops.Xor(plain, block)
		if err != nil {
			return err
		}
		feedback = next
		return nil
	})
}

func (c *CipherContext) decryptPCBC(ctx context.Context, src, dst []byte) error {
	feedback := append([]byte(nil), c.iv...)
	return sequentialBlocks(ctx, len(src)/c.blockSize, func(i int) error {
		cipherBlock := c.slot(src, i)
		block := c.slot(dst, i)
		copy(block, cipherBlock)
		if err := c.decryptBlock(block, i); err != nil {
			return err
		}
		if err := bitops.XorInto(block, feedback); err != nil {
			return err
		}
		next, err := bitops.Xor(block, cipherBlock)
		if err != nil {
			return err
		}
		feedback = next
		return nil
	})
}

// C_i = P_i ^ E(C_{i-1}), C_0 = IV
func (c *CipherContext) encryptCFB(ctx context.Context, src, dst []byte) error {
	previous := c.iv
	return sequentialBlocks(ctx, len(src)/c.blockSize, func(i int) error {
		stream, err := c.keystream(previous, i)
		if err != nil {
			return err
		}
		block := c.slot(dst, i)
		copy(block, c.slot(src, i))
		if err := bitops.XorInto(block, stream); err != nil {
			return err
		}
		previous = block
		return nil
	})
}

func (c *CipherContext) decryptCFB(ctx context.Context, src, dst []byte) error {
	return c.forEachBlock(ctx, len(src)/c.blockSize, func(i int) error {
		stream, err := c.keystream(c.previousInput(src, i), i)
		if err != nil {
			return err
		}
		block := c.slot(dst, i)
		copy(block, c.slot(src, i))
		return bitops.XorInto(block, stream)
	})
}

// OFB is its own inverse: O_i = E(O_{i-1}), O_0 = IV, out_i = in_i ^ O_i.
func (c *CipherContext) applyOFB(ctx context.Context, src, dst []byte) error {
	stream := append([]byte(nil), c.iv...)
	return sequentialBlocks(ctx, len(src)/c.blockSize, func(i int) error {
		if err := c.encryptBlock(stream, i); err != nil {
			return err
		}
		block := c.slot(dst, i)
		copy(block, c.slot(src, i))
		return bitops.XorInto(block, stream)
	})
}

// CTR is its own inverse: out_i = in_i ^ E(IV + i), the counter wrapping
// modulo 2^(8*blockSize).
func (c *CipherContext) applyCTR(ctx context.Context, src, dst []byte) error {
	return c.forEachBlock(ctx, len(src)/c.blockSize, func(i int) error {
		stream, err := c.keystream(AdditiveDelta(c.iv, 1, i), i)
		if err != nil {
			return err
		}
		block := c.slot(dst, i)
		copy(block, c.slot(src, i))
		return bitops.XorInto(block, stream)
	})
}

func (c *CipherContext) whitening(i int) ([]byte, error) {
	t := c.deltaFunc(c.iv, c.delta, i)
	if len(t) != c.blockSize {
		return nil, fmt.Errorf("block %d: %w", i, cryptoerrors.NewSizeError("delta value", len(t), c.blockSize))
	}
	return t, nil
}

// C_i = E(P_i ^ T_i) with T_i derived from IV, delta and i.
func (c *CipherContext) encryptRandomDelta(ctx context.Context, src, dst []byte) error {
	return c.forEachBlock(ctx, len(src)/c.blockSize, func(i int) error {
		t, err := c.whitening(i)
		if err != nil {
			return err
		}
		block := c.slot(dst, i)
		copy(block, c.slot(src, i))
		if err := bitops.XorInto(block, t); err != nil {
			return err
		}
		return c.encryptBlock(block, i)
	})
}

func (c *CipherContext) decryptRandomDelta(ctx context.Context, src, dst []byte) error {
	return c.forEachBlock(ctx, len(src)/c.blockSize, func(i int) error {
		t, err := c.whitening(i)
		if err != nil {
			return err
		}
		block := c.slot(dst, i)
		copy(block, c.slot(src, i))
		if err := c.decryptBlock(block, i); err != nil {
			return err
		}
		return bitops.XorInto(block, t)
	})
}
