// Package blobstore is content-addressed storage keyed by the keccak256 hash
// of the stored bytes.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNotFound is returned when no content is stored under a hash.
var ErrNotFound = errors.New("blob not found")

// Store fetches and stores content by hash.
type Store interface {
	Fetch(ctx context.Context, hash common.Hash) ([]byte, error)
	Put(ctx context.Context, data []byte) (common.Hash, error)
}

// Hash is the content address of data.
func Hash(data []byte) common.Hash {
	return crypto.Keccak256Hash(data)
}

func verify(hash common.Hash, data []byte) error {
	if got := Hash(data); got != hash {
		return fmt.Errorf("blob %s: content hashes to %s", hash.Hex(), got.Hex())
	}
	return nil
}

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[common.Hash][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[common.Hash][]byte)}
}

func (m *MemoryStore) Fetch(_ context.Context, hash common.Hash) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[hash]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", hash.Hex(), ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Put(_ context.Context, data []byte) (common.Hash, error) {
	hash := Hash(data)
	m.mu.Lock()
	m.blobs[hash] = append([]byte(nil), data...)
	m.mu.Unlock()
	return hash, nil
}
