package codec

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"jobScope/internal/model"
)

// EncodeJobEvent builds the topics and data of a JobEvent log.
func (d *Decoder) EncodeJobEvent(ev JobEventLog) ([]common.Hash, []byte, error) {
	event := d.kindToEvent[KindJobEvent]
	data, err := event.Inputs.NonIndexed().Pack(jobEventData{
		Type:      uint8(ev.Type),
		Address:   ev.Address.Bytes(),
		Data:      ev.Data,
		Timestamp: uint32(ev.Timestamp),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("pack job event: %w", err)
	}
	topics := []common.Hash{event.ID, common.BigToHash(new(big.Int).SetUint64(ev.JobID))}
	return topics, data, nil
}

// EncodeUserRegistered builds the topics and data of a UserRegistered log.
func (d *Decoder) EncodeUserRegistered(ev UserRegistered) ([]common.Hash, []byte, error) {
	event := d.kindToEvent[KindUserRegistered]
	data, err := event.Inputs.NonIndexed().Pack(ev.Pubkey, ev.Name, ev.Bio, ev.Avatar)
	if err != nil {
		return nil, nil, fmt.Errorf("pack user registered: %w", err)
	}
	return []common.Hash{event.ID, common.BytesToHash(ev.Addr.Bytes())}, data, nil
}

// EncodeArbitratorRegistered builds the topics and data of an ArbitratorRegistered log.
func (d *Decoder) EncodeArbitratorRegistered(ev ArbitratorRegistered) ([]common.Hash, []byte, error) {
	event := d.kindToEvent[KindArbitratorRegistered]
	data, err := event.Inputs.NonIndexed().Pack(ev.Pubkey, ev.Name, ev.Bio, ev.Avatar, ev.Fee)
	if err != nil {
		return nil, nil, fmt.Errorf("pack arbitrator registered: %w", err)
	}
	return []common.Hash{event.ID, common.BytesToHash(ev.Addr.Bytes())}, data, nil
}

// JobLog is a convenience wrapper producing a complete LogRecord for a job event.
func (d *Decoder) JobLog(contract common.Address, block, logIndex uint64, ev JobEventLog) (model.LogRecord, error) {
	topics, data, err := d.EncodeJobEvent(ev)
	if err != nil {
		return model.LogRecord{}, err
	}
	return model.LogRecord{
		BlockNumber: block,
		LogIndex:    logIndex,
		Address:     contract,
		Topics:      topics,
		Data:        data,
		Timestamp:   ev.Timestamp,
	}, nil
}
