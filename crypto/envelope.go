// Package crypto implements the envelope encryption used for stored
// private keys. Format: "ENCRYPTED:" + ivHex + ":" + ciphertextHex,
// AES-256-GCM with a PBKDF2-derived deployment key.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// EnvelopePrefix tags ciphertext produced by Encrypt. Stored keys
	// without the tag are legacy plaintext and pass through Decrypt
	// unchanged.
	EnvelopePrefix = "ENCRYPTED:"

	// Fixed application salt. Deliberately deployment-wide, not
	// per-record: the goal is one operator key, and the same constant is
	// shared with the executor so both sides derive identical keys.
	keySalt = "bags-sniper-salt-v1"

	keyIterations = 100000
	keySize       = 32
	nonceSize     = 12
)

var (
	// ErrConfig means ENCRYPTION_KEY is missing from the environment.
	// Raised at first use, not at startup.
	ErrConfig = errors.New("ENCRYPTION_KEY not set in environment")

	// ErrIntegrity means an envelope failed authentication or is
	// malformed. The stored key must be treated as unrecoverable.
	ErrIntegrity = errors.New("encrypted key failed integrity check")
)

var (
	keyMu      sync.Mutex
	derivedKey []byte
)

// DeriveKey stretches the operator secret into a 256-bit AES key with
// PBKDF2-SHA256.
func DeriveKey(secret []byte) []byte {
	return pbkdf2.Key(secret, []byte(keySalt), keyIterations, keySize, sha256.New)
}

// envelopeKey returns the cached deployment key, deriving it from
// ENCRYPTION_KEY on first use.
func envelopeKey() ([]byte, error) {
	keyMu.Lock()
	defer keyMu.Unlock()

	if derivedKey != nil {
		return derivedKey, nil
	}
	secret := os.Getenv("ENCRYPTION_KEY")
	if secret == "" {
		return nil, ErrConfig
	}
	derivedKey = DeriveKey([]byte(secret))
	return derivedKey, nil
}

// Encrypt seals a private key for storage. A fresh 96-bit nonce is drawn
// per call; nonce reuse under GCM would be a catastrophic confidentiality
// failure, so the nonce never comes from anywhere but crypto/rand.
func Encrypt(plaintext string) (string, error) {
	key, err := envelopeKey()
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return EnvelopePrefix + hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt opens a stored key. Legacy untagged values are returned as-is
// for backwards compatibility — that path is a migration shim, not a
// security boundary. Tagged values that fail to parse or authenticate
// return ErrIntegrity, never corrupted plaintext.
func Decrypt(stored string) (string, error) {
	if !IsEncrypted(stored) {
		return stored, nil
	}

	parts := strings.Split(stored, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: invalid envelope format", ErrIntegrity)
	}

	nonce, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: invalid IV hex", ErrIntegrity)
	}
	if len(nonce) != nonceSize {
		return "", fmt.Errorf("%w: invalid IV length %d", ErrIntegrity, len(nonce))
	}
	sealed, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext hex", ErrIntegrity)
	}

	key, err := envelopeKey()
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether a stored key carries the envelope tag.
func IsEncrypted(stored string) bool {
	return strings.HasPrefix(stored, EnvelopePrefix)
}
