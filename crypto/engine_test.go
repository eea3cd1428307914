package crypto

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestEngine_RoundTrip(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name      string
		plaintext string
	}{
		{"empty string", ""},
		{"short string", "hello"},
		{"unicode", "héllo wörld ☃"},
		{"multi-kilobyte", strings.Repeat("secret-", 1024)},
		{"binary-ish", "\x00\x01\x02\xff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := e.Encrypt(tt.plaintext, "passphrase-123")
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			got, err := e.Decrypt(blob, "passphrase-123")
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if got != tt.plaintext {
				t.Errorf("round trip = %q, want %q", got, tt.plaintext)
			}
		})
	}
}

func TestEngine_BlobFormat(t *testing.T) {
	e := NewEngine()

	blob, err := e.Encrypt("payload", "p")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	parts := strings.Split(blob, ":")
	if len(parts) != 3 {
		t.Fatalf("blob has %d parts, want 3", len(parts))
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != 16 {
		t.Errorf("IV part = %q, want 16 hex-encoded bytes", parts[0])
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != 16 {
		t.Errorf("tag part = %q, want 16 hex-encoded bytes", parts[1])
	}
	if _, err := hex.DecodeString(parts[2]); err != nil {
		t.Errorf("ciphertext part is not hex: %v", err)
	}
}

func TestEngine_FreshIVPerCall(t *testing.T) {
	e := NewEngine()

	blob1, err := e.Encrypt("same plaintext", "same passphrase")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	blob2, err := e.Encrypt("same plaintext", "same passphrase")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	iv1 := strings.Split(blob1, ":")[0]
	iv2 := strings.Split(blob2, ":")[0]
	if iv1 == iv2 {
		t.Error("IV reused across Encrypt calls")
	}
	if blob1 == blob2 {
		t.Error("identical blobs for repeated encryption")
	}
}

func TestEngine_WrongPassphrase(t *testing.T) {
	e := NewEngine()

	blob, err := e.Encrypt("payload", "right")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	_, err = e.Decrypt(blob, "wrong")
	if !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("Decrypt with wrong passphrase error = %v, want ErrDecryptFailed", err)
	}
}

func TestEngine_TamperDetection(t *testing.T) {
	e := NewEngine()

	blob, err := e.Encrypt("sensitive payload", "p")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	parts := strings.Split(blob, ":")

	flip := func(hexStr string) string {
		raw, err := hex.DecodeString(hexStr)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		raw[0] ^= 0x01
		return hex.EncodeToString(raw)
	}

	tests := []struct {
		name string
		blob string
	}{
		{"flipped IV bit", flip(parts[0]) + ":" + parts[1] + ":" + parts[2]},
		{"flipped tag bit", parts[0] + ":" + flip(parts[1]) + ":" + parts[2]},
		{"flipped ciphertext bit", parts[0] + ":" + parts[1] + ":" + flip(parts[2])},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Decrypt(tt.blob, "p")
			if !errors.Is(err, ErrDecryptFailed) {
				t.Errorf("Decrypt() error = %v, want ErrDecryptFailed", err)
			}
			if got != "" {
				t.Errorf("Decrypt() returned %q on tampered input, want empty", got)
			}
		})
	}
}

func TestEngine_MalformedBlob(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name string
		blob string
	}{
		{"empty", ""},
		{"one part", "deadbeef"},
		{"two parts", "dead:beef"},
		{"four parts", "de:ad:be:ef"},
		{"non-hex iv", "zz:" + strings.Repeat("00", 16) + ":00"},
		{"short iv", "0000:" + strings.Repeat("00", 16) + ":00"},
		{"short tag", strings.Repeat("00", 16) + ":0000:00"},
		{"non-hex ciphertext", strings.Repeat("00", 16) + ":" + strings.Repeat("00", 16) + ":zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Decrypt(tt.blob, "p")
			if !errors.Is(err, ErrMalformedBlob) {
				t.Errorf("Decrypt(%q) error = %v, want ErrMalformedBlob", tt.blob, err)
			}
		})
	}
}

func TestEngine_AssociatedDataBinding(t *testing.T) {
	appA := NewEngine(WithAssociatedData("app-a"))
	appB := NewEngine(WithAssociatedData("app-b"))

	blob, err := appA.Encrypt("payload", "p")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if _, err := appB.Decrypt(blob, "p"); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("cross-application decrypt error = %v, want ErrDecryptFailed", err)
	}

	// Same identity still round-trips.
	if got, err := appA.Decrypt(blob, "p"); err != nil || got != "payload" {
		t.Errorf("same-application decrypt = (%q, %v), want (%q, nil)", got, err, "payload")
	}
}

func TestEngine_CustomSalt(t *testing.T) {
	defaultEngine := NewEngine()
	salted := NewEngine(WithKDFSalt("other-salt"))

	blob, err := defaultEngine.Encrypt("payload", "p")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if _, err := salted.Decrypt(blob, "p"); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("decrypt under different salt error = %v, want ErrDecryptFailed", err)
	}
}
