package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// ivSize is the GCM nonce length in bytes, one AES block.
	ivSize = 16

	// tagSize is the GCM authentication tag length in bytes.
	tagSize = 16

	// keySize selects AES-256.
	keySize = 32

	// kdfIterations is the PBKDF2-SHA256 work factor.
	kdfIterations = 100_000

	// DefaultAssociatedData is the application identity bound into every
	// ciphertext as GCM associated data. Blobs produced under a different
	// identity fail authentication on decrypt.
	DefaultAssociatedData = "devboost-secure-storage-v1"

	// defaultKDFSalt is the fixed application-wide KDF salt. A fixed salt
	// is tolerable only because passphrases in this system are freshly
	// random per secret, never user-chosen; hosts that accept user
	// passphrases must supply their own per-secret salt via WithKDFSalt.
	defaultKDFSalt = "devboost-kdf-salt-v1"
)

var (
	// ErrMalformedBlob indicates the encrypted blob does not match the
	// ivHex:tagHex:ciphertextHex format.
	ErrMalformedBlob = errors.New("malformed encrypted blob")

	// ErrDecryptFailed indicates authentication failed: wrong passphrase,
	// wrong associated data, or tampered ciphertext.
	ErrDecryptFailed = errors.New("decryption failed")
)

// Engine performs authenticated encryption of at-rest secrets under a
// caller-supplied passphrase.
type Engine struct {
	associatedData []byte
	kdfSalt        []byte
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithAssociatedData overrides the application identity bound into
// ciphertexts. Blobs are only decryptable by an Engine carrying the same
// value.
func WithAssociatedData(ad string) EngineOption {
	return func(e *Engine) { e.associatedData = []byte(ad) }
}

// WithKDFSalt overrides the key-derivation salt.
func WithKDFSalt(salt string) EngineOption {
	return func(e *Engine) { e.kdfSalt = []byte(salt) }
}

// NewEngine creates an Engine with the default application identity and
// KDF salt.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		associatedData: []byte(DefaultAssociatedData),
		kdfSalt:        []byte(defaultKDFSalt),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// deriveKey stretches the passphrase into an AES-256 key.
func (e *Engine) deriveKey(passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), e.kdfSalt, kdfIterations, keySize, sha256.New)
}

// Encrypt seals plaintext under a key derived from passphrase and returns
// the blob as "ivHex:tagHex:ciphertextHex". A fresh random IV is drawn on
// every call; IV reuse under the same key never happens.
func (e *Engine) Encrypt(plaintext, passphrase string) (string, error) {
	aead, err := e.newAEAD(passphrase)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	// Seal appends the tag after the ciphertext.
	sealed := aead.Seal(nil, iv, []byte(plaintext), e.associatedData)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ct),
	), nil
}

// Decrypt parses a three-part blob, re-derives the key, and opens the
// ciphertext. It fails closed: a malformed blob returns ErrMalformedBlob
// and any authentication failure returns ErrDecryptFailed, never partial
// plaintext.
func (e *Engine) Decrypt(blob, passphrase string) (string, error) {
	iv, tag, ct, err := parseBlob(blob)
	if err != nil {
		return "", err
	}

	aead, err := e.newAEAD(passphrase)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, iv, append(ct, tag...), e.associatedData)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return string(plaintext), nil
}

func (e *Engine) newAEAD(passphrase string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.deriveKey(passphrase))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

// parseBlob validates the wire format: exactly three colon-separated hex
// parts with a block-length IV and a full-length tag.
func parseBlob(blob string) (iv, tag, ct []byte, err error) {
	parts := strings.Split(blob, ":")
	if len(parts) != 3 {
		return nil, nil, nil, fmt.Errorf("%w: expected 3 parts, got %d", ErrMalformedBlob, len(parts))
	}

	iv, err = hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return nil, nil, nil, fmt.Errorf("%w: bad IV", ErrMalformedBlob)
	}
	tag, err = hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return nil, nil, nil, fmt.Errorf("%w: bad auth tag", ErrMalformedBlob)
	}
	ct, err = hex.DecodeString(parts[2])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: bad ciphertext", ErrMalformedBlob)
	}
	return iv, tag, ct, nil
}
