package model

import "github.com/ethereum/go-ethereum/common"

// DecodeError records a log that was skipped because its payload could not be decoded.
type DecodeError struct {
	LogID       string         `json:"log_id"`
	BlockNumber uint64         `json:"block_number"`
	TxHash      common.Hash    `json:"tx_hash"`
	LogIndex    uint64         `json:"log_index"`
	Address     common.Address `json:"address"`
	Topic0      common.Hash    `json:"topic0"`
	JobID       *uint64        `json:"job_id,omitempty"`
	EventType   *JobEventType  `json:"event_type,omitempty"`
	Error       string         `json:"error"`
}
