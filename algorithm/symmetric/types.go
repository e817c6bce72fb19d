package symmetric

import (
	"fmt"
	"strings"

	cryptoerrors "github.com/DesCaldnd/Crypota/internal/errors"
)

type CipherMode int

const (
	ECB CipherMode = iota
	CBC
	PCBC
	CFB
	OFB
	CTR
	RandomDelta
)

func (m CipherMode) String() string {
	switch m {
	case ECB:
		return "ECB"
	case CBC:
		return "CBC"
	case PCBC:
		return "PCBC"
	case CFB:
		return "CFB"
	case OFB:
		return "OFB"
	case CTR:
		return "CTR"
	case RandomDelta:
		return "RandomDelta"
	default:
		return "Unknown"
	}
}

func (m CipherMode) valid() bool {
	return m >= ECB && m <= RandomDelta
}

func (m CipherMode) requiresIV() bool {
	return m.valid() && m != ECB
}

// ParseCipherMode maps a mode name, in any letter case, to its CipherMode.
func ParseCipherMode(name string) (CipherMode, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ECB":
		return ECB, nil
	case "CBC":
		return CBC, nil
	case "PCBC":
		return PCBC, nil
	case "CFB":
		return CFB, nil
	case "OFB":
		return OFB, nil
	case "CTR":
		return CTR, nil
	case "RANDOMDELTA", "RANDOM_DELTA", "DELTA":
		return RandomDelta, nil
	default:
		return 0, fmt.Errorf("%w: cipher mode %q", cryptoerrors.ErrUnsupported, name)
	}
}

type PaddingMode int

const (
	Zeros PaddingMode = iota
	AnsiX923
	PKCS7
	Iso10126
)

func (p PaddingMode) String() string {
	switch p {
	case Zeros:
		return "Zeros"
	case AnsiX923:
		return "ANSI X.923"
	case PKCS7:
		return "PKCS7"
	case Iso10126:
		return "ISO 10126"
	default:
		return "Unknown"
	}
}

func (p PaddingMode) valid() bool {
	return p >= Zeros && p <= Iso10126
}

// ParsePaddingMode maps a padding name, in any letter case, to its PaddingMode.
func ParsePaddingMode(name string) (PaddingMode, error) {
	normalized := strings.NewReplacer(" ", "", ".", "", "_", "", "-", "").Replace(strings.ToUpper(name))
	switch normalized {
	case "ZEROS", "ZERO":
		return Zeros, nil
	case "ANSIX923":
		return AnsiX923, nil
	case "PKCS7":
		return PKCS7, nil
	case "ISO10126":
		return Iso10126, nil
	default:
		return 0, fmt.Errorf("%w: padding mode %q", cryptoerrors.ErrUnsupported, name)
	}
}

// BlockCipher is the capability set the context drives. EncryptBlock and
// DecryptBlock transform exactly BlockSize bytes in place and must be safe
// for concurrent use between key assignments.
type BlockCipher interface {
	SetKey(key []byte) error
	EncryptBlock(block []byte) error
	DecryptBlock(block []byte) error
	BlockSize() int
	KeySize() int
}
