// Package crypto seals event feed frames with NaCl secretbox.
//
// The 32-byte key is derived from the shared token with HKDF-SHA256. Each
// frame carries its own random nonce:
//
//	[ 24-byte nonce ][ ciphertext ]
//
// With an empty token callers pass a nil *Box and frames travel as plain JSON.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var hkdfInfo = []byte("sharecast-feed-v1")

// ErrOpen is returned when a frame fails authentication, usually because the
// two ends were configured with different tokens.
var ErrOpen = errors.New("decryption failed (wrong token?)")

// Box seals and opens frames with a token-derived key.
type Box struct {
	key [keySize]byte
}

// NewBox derives a Box from token. Both ends must use the same token.
func NewBox(token string) (*Box, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	b := &Box{}
	h := hkdf.New(sha256.New, []byte(token), nil, hkdfInfo)
	if _, err := io.ReadFull(h, b.key[:]); err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return b, nil
}

// Seal encrypts plaintext and returns nonce+ciphertext.
func (b *Box) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &b.key), nil
}

// Open decrypts a frame produced by Seal.
func (b *Box) Open(frame []byte) ([]byte, error) {
	if len(frame) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("frame too short (%d bytes)", len(frame))
	}
	var nonce [nonceSize]byte
	copy(nonce[:], frame[:nonceSize])
	plain, ok := secretbox.Open(nil, frame[nonceSize:], &nonce, &b.key)
	if !ok {
		return nil, ErrOpen
	}
	return plain, nil
}
