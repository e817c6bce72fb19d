package symmetric

import (
	"bytes"
	"context"
	"crypto/cipher"
	stddes "crypto/des"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/DesCaldnd/Crypota/algorithm/deal"
	"github.com/DesCaldnd/Crypota/algorithm/des"
	cryptoerrors "github.com/DesCaldnd/Crypota/internal/errors"
)

var allModes = []CipherMode{ECB, CBC, PCBC, CFB, OFB, CTR, RandomDelta}

var allPaddings = []PaddingMode{Zeros, AnsiX923, PKCS7, Iso10126}

func newContext(t *testing.T, c BlockCipher, key []byte, mode CipherMode, padding PaddingMode, opts ...Option) *CipherContext {
	t.Helper()

	iv := make([]byte, c.BlockSize())
	for i := range iv {
		iv[i] = byte(0xA0 + i)
	}
	opts = append([]Option{WithDelta(3)}, opts...)

	ctx, err := NewCipherContext(key, c, mode, padding, iv, opts...)
	if err != nil {
		t.Fatalf("NewCipherContext(%s, %s) failed: %v", mode, padding, err)
	}
	return ctx
}

func randomMessage(rng *rand.Rand, n int) []byte {
	msg := make([]byte, n)
	rng.Read(msg)
	return msg
}

// checkDecrypted compares a round-tripped message. Zeros keeps the filler of
// a partial final block, so only the message-length prefix must match and
// the rest must be fewer than blockSize zero bytes.
func checkDecrypted(t *testing.T, padding PaddingMode, blockSize int, got, want []byte) {
	t.Helper()

	if padding != Zeros {
		if !bytes.Equal(got, want) {
			t.Fatalf("len %d: got %x, want %x", len(want), got, want)
		}
		return
	}

	if len(got) < len(want) || len(got)-len(want) >= blockSize {
		t.Fatalf("len %d: decrypted length %d", len(want), len(got))
	}
	if !bytes.Equal(got[:len(want)], want) {
		t.Fatalf("len %d: got %x, want prefix %x", len(want), got, want)
	}
	for _, b := range got[len(want):] {
		if b != 0 {
			t.Fatalf("len %d: non-zero filler %x", len(want), got[len(want):])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	ciphers := []struct {
		name string
		make func() BlockCipher
		key  []byte
	}{
		{"DES", func() BlockCipher { return des.New() }, []byte("8bytekey")},
		{"DEAL-128", func() BlockCipher {
			c, _ := deal.New(deal.Key128)
			return c
		}, []byte("sixteen byte key")},
		{"DEAL-256", func() BlockCipher {
			c, _ := deal.New(deal.Key256)
			return c
		}, bytes.Repeat([]byte{0x3C}, deal.Key256)},
	}

	rng := rand.New(rand.NewSource(42))
	lengths := []int{0, 1, 7, 8, 15, 16, 17, 100, 257}

	for _, cc := range ciphers {
		for _, mode := range allModes {
			for _, padding := range allPaddings {
				name := fmt.Sprintf("%s/%s/%s", cc.name, mode, padding)
				t.Run(name, func(t *testing.T) {
					c := newContext(t, cc.make(), cc.key, mode, padding)
					for _, n := range lengths {
						msg := randomMessage(rng, n)

						encrypted, err := c.EncryptMessage(context.Background(), msg)
						if err != nil {
							t.Fatalf("len %d: encrypt failed: %v", n, err)
						}
						if len(encrypted)%c.BlockSize() != 0 {
							t.Fatalf("len %d: ciphertext length %d not block aligned", n, len(encrypted))
						}

						decrypted, err := c.DecryptMessage(context.Background(), encrypted)
						if err != nil {
							t.Fatalf("len %d: decrypt failed: %v", n, err)
						}
						checkDecrypted(t, padding, c.BlockSize(), decrypted, msg)
					}
				})
			}
		}
	}
}

func TestOneModeDesWithFile(t *testing.T) {
	message := []byte(strings.Repeat("The quick brown fox jumps over the lazy dog.\n", 50))

	c, err := NewCipherContext(
		make([]byte, des.KeySize),
		des.New(),
		ECB,
		Zeros,
		make([]byte, des.BlockSize),
		WithDelta(3),
	)
	if err != nil {
		t.Fatalf("NewCipherContext failed: %v", err)
	}

	encrypted, err := c.EncryptMessage(context.Background(), message)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	decrypted, err := c.DecryptMessage(context.Background(), encrypted)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if len(decrypted) < len(message) {
		t.Fatalf("decrypted %d bytes, want at least %d", len(decrypted), len(message))
	}
	if !bytes.Equal(decrypted[:len(message)], message) {
		t.Errorf("decrypted message differs from the plaintext")
	}
}

func TestZerosKeepsTrailingZeroBytes(t *testing.T) {
	messages := []struct {
		name string
		msg  []byte
	}{
		{"one zero block", make([]byte, 8)},
		{"ends in zero", []byte{1, 2, 3, 4, 5, 6, 7, 0}},
		{"two zero blocks", make([]byte, 16)},
		{"zero tail across blocks", []byte{9, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
	}

	for _, mode := range allModes {
		for _, tt := range messages {
			t.Run(fmt.Sprintf("%s/%s", mode, tt.name), func(t *testing.T) {
				c := newContext(t, des.New(), []byte("8bytekey"), mode, Zeros)

				encrypted, err := c.EncryptMessage(context.Background(), tt.msg)
				if err != nil {
					t.Fatalf("encrypt failed: %v", err)
				}
				if len(encrypted) != len(tt.msg) {
					t.Fatalf("ciphertext length = %d, want %d", len(encrypted), len(tt.msg))
				}

				decrypted, err := c.DecryptMessage(context.Background(), encrypted)
				if err != nil {
					t.Fatalf("decrypt failed: %v", err)
				}
				if !bytes.Equal(decrypted, tt.msg) {
					t.Errorf("got %x, want %x", decrypted, tt.msg)
				}
			})
		}
	}
}

func TestEmptyMessage(t *testing.T) {
	for _, padding := range allPaddings {
		c := newContext(t, des.New(), []byte("8bytekey"), CBC, padding)

		encrypted, err := c.EncryptMessage(context.Background(), nil)
		if err != nil {
			t.Fatalf("%s: encrypt failed: %v", padding, err)
		}

		wantLen := des.BlockSize
		if padding == Zeros {
			wantLen = 0
		}
		if len(encrypted) != wantLen {
			t.Errorf("%s: ciphertext length = %d, want %d", padding, len(encrypted), wantLen)
		}

		decrypted, err := c.DecryptMessage(context.Background(), encrypted)
		if err != nil {
			t.Fatalf("%s: decrypt failed: %v", padding, err)
		}
		if len(decrypted) != 0 {
			t.Errorf("%s: decrypted %x, want empty", padding, decrypted)
		}
	}
}

// The stdlib modes over crypto/des serve as the reference for the chained
// and stream modes.
func TestMatchesStandardLibrary(t *testing.T) {
	key := []byte{0x13, 0x34, 0x57, 0x79, 0x9B, 0xBC, 0xDF, 0xF1}
	iv := []byte{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 0xA6, 0xFF}

	rng := rand.New(rand.NewSource(3))
	msg := make([]byte, 8*64)
	rng.Read(msg)

	reference, err := stddes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		mode CipherMode
		want func() []byte
	}{
		{ECB, func() []byte {
			out := make([]byte, len(msg))
			for i := 0; i < len(msg); i += 8 {
				reference.Encrypt(out[i:i+8], msg[i:i+8])
			}
			return out
		}},
		{CBC, func() []byte {
			out := make([]byte, len(msg))
			cipher.NewCBCEncrypter(reference, iv).CryptBlocks(out, msg)
			return out
		}},
		{CFB, func() []byte {
			out := make([]byte, len(msg))
			cipher.NewCFBEncrypter(reference, iv).XORKeyStream(out, msg)
			return out
		}},
		{OFB, func() []byte {
			out := make([]byte, len(msg))
			cipher.NewOFB(reference, iv).XORKeyStream(out, msg)
			return out
		}},
		{CTR, func() []byte {
			out := make([]byte, len(msg))
			cipher.NewCTR(reference, iv).XORKeyStream(out, msg)
			return out
		}},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			c, err := NewCipherContext(key, des.New(), tt.mode, Zeros, iv, WithWorkers(4))
			if err != nil {
				t.Fatal(err)
			}

			got, err := c.EncryptMessage(context.Background(), msg)
			if err != nil {
				t.Fatalf("encrypt failed: %v", err)
			}
			if want := tt.want(); !bytes.Equal(got, want) {
				t.Errorf("ciphertext differs from crypto/cipher\n got %x\nwant %x", got[:16], want[:16])
			}
		})
	}
}

func TestPCBCPropagatesChanges(t *testing.T) {
	c := newContext(t, des.New(), []byte("8bytekey"), PCBC, Zeros)

	msg := bytes.Repeat([]byte{0x11}, 8*4)
	a, err := c.EncryptMessage(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}

	msg[0] ^= 0x80
	b, err := c.EncryptMessage(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		if bytes.Equal(a[i*8:(i+1)*8], b[i*8:(i+1)*8]) {
			t.Errorf("block %d unchanged after flipping a bit of block 0", i)
		}
	}
}

func TestRandomDeltaWhitening(t *testing.T) {
	key := []byte("8bytekey")
	iv := make([]byte, des.BlockSize)
	msg := bytes.Repeat([]byte("samebloc"), 4)

	ecb, err := NewCipherContext(key, des.New(), ECB, Zeros, nil)
	if err != nil {
		t.Fatal(err)
	}
	delta, err := NewCipherContext(key, des.New(), RandomDelta, Zeros, iv, WithDelta(3))
	if err != nil {
		t.Fatal(err)
	}

	plain, err := ecb.EncryptMessage(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	whitened, err := delta.EncryptMessage(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}

	// T_0 = IV = 0, so block 0 is plain ECB.
	if !bytes.Equal(whitened[:8], plain[:8]) {
		t.Errorf("block 0 = %x, want %x", whitened[:8], plain[:8])
	}
	for i := 1; i < 4; i++ {
		if bytes.Equal(whitened[i*8:(i+1)*8], plain[i*8:(i+1)*8]) {
			t.Errorf("block %d equals its ECB encryption", i)
		}
	}

	xor, err := NewCipherContext(key, des.New(), RandomDelta, Zeros, iv, WithDelta(3), WithDeltaFunc(XorDelta))
	if err != nil {
		t.Fatal(err)
	}
	other, err := xor.EncryptMessage(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	decrypted, err := xor.DecryptMessage(context.Background(), other)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decrypted, msg) {
		t.Errorf("XorDelta round-trip: got %x, want %x", decrypted, msg)
	}
}

func TestParallelOrder(t *testing.T) {
	key := []byte("8bytekey")
	rng := rand.New(rand.NewSource(11))
	msg := make([]byte, 8*512)
	rng.Read(msg)

	c, err := NewCipherContext(key, des.New(), ECB, Zeros, nil, WithWorkers(8))
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.EncryptMessage(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}

	single, err := des.NewWithKey(key)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(msg); i += 8 {
		block := append([]byte(nil), msg[i:i+8]...)
		if err := single.EncryptBlock(block); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got[i:i+8], block) {
			t.Fatalf("block %d out of place", i/8)
		}
	}
}

func TestConcurrentMessages(t *testing.T) {
	c := newContext(t, des.New(), []byte("8bytekey"), CTR, PKCS7)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for g := 0; g < 16; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := bytes.Repeat([]byte{byte(g)}, 100+g)
			encrypted, err := c.EncryptMessage(context.Background(), msg)
			if err != nil {
				errs <- err
				return
			}
			decrypted, err := c.DecryptMessage(context.Background(), encrypted)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(decrypted, msg) {
				errs <- fmt.Errorf("goroutine %d: round-trip mismatch", g)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestAsync(t *testing.T) {
	c := newContext(t, des.New(), []byte("8bytekey"), CBC, AnsiX923)
	msg := []byte("asynchronous message")

	resultChan, errorChan := c.EncryptMessageAsync(context.Background(), msg)
	if err := <-errorChan; err != nil {
		t.Fatalf("async encrypt failed: %v", err)
	}
	encrypted := <-resultChan

	resultChan, errorChan = c.DecryptMessageAsync(context.Background(), encrypted)
	if err := <-errorChan; err != nil {
		t.Fatalf("async decrypt failed: %v", err)
	}
	if decrypted := <-resultChan; !bytes.Equal(decrypted, msg) {
		t.Errorf("got %q, want %q", decrypted, msg)
	}

	resultChan, errorChan = c.DecryptMessageAsync(context.Background(), []byte{1, 2, 3})
	if err := <-errorChan; !errors.Is(err, cryptoerrors.ErrSizeMismatch) {
		t.Errorf("async short ciphertext: got %v, want ErrSizeMismatch", err)
	}
	if out, ok := <-resultChan; ok {
		t.Errorf("unexpected result %x on failure", out)
	}
}

func TestSetKey(t *testing.T) {
	c := newContext(t, des.New(), []byte("8bytekey"), ECB, PKCS7)
	msg := []byte("rekeyed")

	a, err := c.EncryptMessage(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetKey([]byte("otherkey")); err != nil {
		t.Fatal(err)
	}
	b, err := c.EncryptMessage(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Errorf("ciphertext unchanged after SetKey")
	}

	if err := c.SetKey([]byte("short")); !errors.Is(err, cryptoerrors.ErrSizeMismatch) {
		t.Errorf("short key: got %v, want ErrSizeMismatch", err)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, mode := range allModes {
		c := newContext(t, des.New(), []byte("8bytekey"), mode, PKCS7)
		if _, err := c.EncryptMessage(ctx, make([]byte, 64)); !errors.Is(err, context.Canceled) {
			t.Errorf("%s: got %v, want context.Canceled", mode, err)
		}
	}
}

// failingCipher rejects blocks whose first byte is 0xFF.
type failingCipher struct{}

var errRejected = errors.New("rejected block")

func (failingCipher) SetKey([]byte) error { return nil }
func (failingCipher) BlockSize() int      { return 4 }
func (failingCipher) KeySize() int        { return 1 }

func (failingCipher) EncryptBlock(block []byte) error {
	if block[0] == 0xFF {
		return errRejected
	}
	return nil
}

func (f failingCipher) DecryptBlock(block []byte) error {
	return f.EncryptBlock(block)
}

func TestBlockFailure(t *testing.T) {
	c, err := NewCipherContext([]byte{0}, failingCipher{}, ECB, Zeros, nil, WithWorkers(2))
	if err != nil {
		t.Fatal(err)
	}

	msg := make([]byte, 4*8)
	msg[4*5] = 0xFF

	_, err = c.EncryptMessage(context.Background(), msg)
	if !errors.Is(err, errRejected) {
		t.Fatalf("got %v, want errRejected", err)
	}
	if !strings.Contains(err.Error(), "block 5") {
		t.Errorf("error %q does not name the failing block", err)
	}
}

func TestConstructorErrors(t *testing.T) {
	key := []byte("8bytekey")
	iv := make([]byte, des.BlockSize)

	tests := []struct {
		name    string
		cipher  BlockCipher
		key     []byte
		mode    CipherMode
		padding PaddingMode
		iv      []byte
		opts    []Option
		want    error
	}{
		{"nil cipher", nil, key, ECB, Zeros, nil, nil, cryptoerrors.ErrMissingParameter},
		{"unknown mode", des.New(), key, CipherMode(42), Zeros, iv, nil, cryptoerrors.ErrUnsupported},
		{"unknown padding", des.New(), key, ECB, PaddingMode(9), nil, nil, cryptoerrors.ErrUnsupported},
		{"missing IV", des.New(), key, CBC, PKCS7, nil, nil, cryptoerrors.ErrMissingParameter},
		{"short IV", des.New(), key, OFB, PKCS7, iv[:4], nil, cryptoerrors.ErrSizeMismatch},
		{"missing delta", des.New(), key, RandomDelta, PKCS7, iv, nil, cryptoerrors.ErrMissingParameter},
		{"bad key", des.New(), key[:7], ECB, PKCS7, nil, nil, cryptoerrors.ErrSizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCipherContext(tt.key, tt.cipher, tt.mode, tt.padding, tt.iv, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecryptErrors(t *testing.T) {
	c := newContext(t, des.New(), []byte("8bytekey"), ECB, PKCS7)

	if _, err := c.DecryptMessage(context.Background(), make([]byte, 9)); !errors.Is(err, cryptoerrors.ErrSizeMismatch) {
		t.Errorf("unaligned ciphertext: got %v, want ErrSizeMismatch", err)
	}
	if _, err := c.DecryptMessage(context.Background(), nil); !errors.Is(err, cryptoerrors.ErrInvalidPadding) {
		t.Errorf("empty PKCS7 ciphertext: got %v, want ErrInvalidPadding", err)
	}
}

func TestNewBlock(t *testing.T) {
	key := []byte("8bytekey")
	ours, err := des.NewWithKey(key)
	if err != nil {
		t.Fatal(err)
	}
	reference, err := stddes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}

	block := NewBlock(ours)
	if block.BlockSize() != reference.BlockSize() {
		t.Fatalf("block size = %d, want %d", block.BlockSize(), reference.BlockSize())
	}

	iv := []byte("initvect")
	msg := bytes.Repeat([]byte("0123456789abcdef"), 8)

	got := make([]byte, len(msg))
	want := make([]byte, len(msg))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(got, msg)
	cipher.NewCBCEncrypter(reference, iv).CryptBlocks(want, msg)
	if !bytes.Equal(got, want) {
		t.Fatalf("CBC through adapter differs from crypto/des")
	}

	cipher.NewCBCDecrypter(block, iv).CryptBlocks(got, got)
	if !bytes.Equal(got, msg) {
		t.Errorf("in-place CBC decrypt through adapter failed")
	}

	defer func() {
		if recover() == nil {
			t.Errorf("short input did not panic")
		}
	}()
	block.Encrypt(make([]byte, 8), make([]byte, 3))
}
