package model

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// LogRecord is the normalized representation of a chain log as delivered to the ingestor.
type LogRecord struct {
	ChainID     uint64         `json:"chain_id"`
	BlockNumber uint64         `json:"block_number"`
	BlockHash   common.Hash    `json:"block_hash"`
	TxHash      common.Hash    `json:"tx_hash"`
	TxIndex     uint64         `json:"tx_index"`
	LogIndex    uint64         `json:"log_index"`
	Address     common.Address `json:"address"`
	Topics      []common.Hash  `json:"topics"`
	Data        hexutil.Bytes  `json:"data"`
	Removed     bool           `json:"removed"`
	Timestamp   uint64         `json:"timestamp"`
	IngestedAt  string         `json:"ingested_at,omitempty"`
}

// ID returns the globally unique, sortable log identifier used as the JobEvent and Review primary key.
func (lr LogRecord) ID() string {
	return LogID(lr.BlockNumber, lr.LogIndex)
}

// Topic0 returns the event selector, or the zero hash when the log is anonymous.
func (lr LogRecord) Topic0() common.Hash {
	if len(lr.Topics) == 0 {
		return common.Hash{}
	}
	return lr.Topics[0]
}

// LogID formats a (block, log position) pair so that lexical order matches chain order.
func LogID(blockNumber, logIndex uint64) string {
	return fmt.Sprintf("%012d-%06d", blockNumber, logIndex)
}

// UnmarshalJSON decodes a LogRecord from JSON.
func (lr *LogRecord) UnmarshalJSON(data []byte) error {
	type Alias LogRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Data == nil {
		a.Data = hexutil.Bytes{}
	}
	*lr = LogRecord(a)
	return nil
}
