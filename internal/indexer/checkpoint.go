package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Scope identifies what a checkpoint covers: one chain and one set of
// contracts. Resuming under a different scope would skip logs that were
// never delivered.
type Scope struct {
	ChainID   uint64
	Contracts []common.Address
}

func (s Scope) key() string {
	hexes := make([]string, len(s.Contracts))
	for i, addr := range s.Contracts {
		hexes[i] = strings.ToLower(addr.Hex())
	}
	slices.Sort(hexes)
	return strings.Join(slices.Compact(hexes), ",")
}

// Checkpoint records the last block whose logs the sink accepted.
type Checkpoint struct {
	ChainID            uint64 `json:"chain_id"`
	Contracts          string `json:"contracts"`
	LastProcessedBlock uint64 `json:"last_processed_block"`
	UpdatedAt          string `json:"updated_at"`
}

// CheckpointStore keeps the checkpoint in a JSON file.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled && path != ""}
}

// Load returns the checkpoint for scope. ok is false when there is none.
func (c *CheckpointStore) Load(scope Scope) (cp Checkpoint, ok bool, err error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint %s: %w", c.path, err)
	}

	switch {
	case cp.ChainID != scope.ChainID:
		return Checkpoint{}, false, fmt.Errorf("checkpoint %s is for chain %d, connected to %d", c.path, cp.ChainID, scope.ChainID)
	case cp.Contracts != scope.key():
		return Checkpoint{}, false, fmt.Errorf("checkpoint %s covers contracts %q, configured %q", c.path, cp.Contracts, scope.key())
	}
	return cp, true, nil
}

// Save replaces the checkpoint through a temp file and rename.
func (c *CheckpointStore) Save(scope Scope, lastProcessed uint64) error {
	if !c.enabled {
		return nil
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(Checkpoint{
		ChainID:            scope.ChainID,
		Contracts:          scope.key(),
		LastProcessedBlock: lastProcessed,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
