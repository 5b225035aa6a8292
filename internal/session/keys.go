// Package session derives pairwise session keys between job participants and
// decrypts the private content referenced by job events.
package session

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
	"golang.org/x/crypto/hkdf"

	"jobScope/internal/codec"
)

const (
	// KeyLength is the size of a session key.
	KeyLength = 32
	nonceSize = 12
)

var (
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrMalformedBlob    = errors.New("malformed ciphertext")
)

var sessionSalt = []byte("jobscope/session/v1")

// ParsePublicKey accepts a compressed (33 byte) or uncompressed (65 byte)
// secp256k1 public key.
func ParsePublicKey(raw []byte) (*ecdsa.PublicKey, error) {
	switch len(raw) {
	case 33:
		pub, err := crypto.DecompressPubkey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		return pub, nil
	case 65:
		pub, err := crypto.UnmarshalPubkey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("%w: length %d", ErrInvalidPublicKey, len(raw))
	}
}

// DeriveKey computes the session key shared by the owner of priv and the
// owner of pub for one job. Both sides derive the same key.
func DeriveKey(priv *ecdsa.PrivateKey, pub *ecdsa.PublicKey, jobID uint64) ([]byte, error) {
	shared, err := ecies.ImportECDSA(priv).GenerateShared(ecies.ImportECDSAPublic(pub), 16, 16)
	if err != nil {
		return nil, fmt.Errorf("key agreement: %w", err)
	}
	info := binary.BigEndian.AppendUint64([]byte("job"), jobID)
	key := make([]byte, KeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, sessionSalt, info), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext with AES-256-GCM. The result is nonce ‖ ciphertext.
func Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func Open(key, blob []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < nonceSize+aead.Overhead() {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedBlob, len(blob))
	}
	plaintext, err := aead.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return plaintext, nil
}

// SealSessionKey wraps a session key so that it fits the Disputed payload.
func SealSessionKey(wrapKey, sessionKey []byte) ([]byte, error) {
	if len(sessionKey) != KeyLength {
		return nil, fmt.Errorf("session key must be %d bytes, got %d", KeyLength, len(sessionKey))
	}
	return Seal(wrapKey, sessionKey)
}

// OpenSessionKey unwraps a session key sealed by SealSessionKey.
func OpenSessionKey(wrapKey, sealed []byte) ([]byte, error) {
	if len(sealed) != codec.SealedSessionKeyLength {
		return nil, fmt.Errorf("%w: sealed key is %d bytes", ErrMalformedBlob, len(sealed))
	}
	key, err := Open(wrapKey, sealed)
	if err != nil {
		return nil, err
	}
	if len(key) != KeyLength {
		return nil, fmt.Errorf("%w: unsealed key is %d bytes", ErrMalformedBlob, len(key))
	}
	return key, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// pair is an unordered pair of participants.
type pair [2]common.Address

func pairOf(a, b common.Address) pair {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return pair{a, b}
}
