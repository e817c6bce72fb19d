package symmetric

import (
	"errors"
	"testing"

	cryptoerrors "github.com/DesCaldnd/Crypota/internal/errors"
)

func TestParseCipherMode(t *testing.T) {
	for _, mode := range allModes {
		got, err := ParseCipherMode(mode.String())
		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
		if got != mode {
			t.Errorf("ParseCipherMode(%q) = %s", mode.String(), got)
		}
	}

	if got, err := ParseCipherMode(" cbc "); err != nil || got != CBC {
		t.Errorf("lower case: got (%s, %v)", got, err)
	}
	if _, err := ParseCipherMode("GCM"); !errors.Is(err, cryptoerrors.ErrUnsupported) {
		t.Errorf("GCM: got %v, want ErrUnsupported", err)
	}
}

func TestParsePaddingMode(t *testing.T) {
	for _, padding := range allPaddings {
		got, err := ParsePaddingMode(padding.String())
		if err != nil {
			t.Fatalf("%s: %v", padding, err)
		}
		if got != padding {
			t.Errorf("ParsePaddingMode(%q) = %s", padding.String(), got)
		}
	}

	if got, err := ParsePaddingMode("ansi_x923"); err != nil || got != AnsiX923 {
		t.Errorf("ansi_x923: got (%s, %v)", got, err)
	}
	if _, err := ParsePaddingMode("OAEP"); !errors.Is(err, cryptoerrors.ErrUnsupported) {
		t.Errorf("OAEP: got %v, want ErrUnsupported", err)
	}
}
