package codec

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"jobScope/internal/model"
)

const (
	// SealedSessionKeyLength is nonce(12) + key(32) + GCM tag(16).
	SealedSessionKeyLength = 12 + 32 + 16

	disputedPayloadLength = SealedSessionKeyLength + common.HashLength
	messagePayloadLength  = common.HashLength + common.AddressLength
)

var (
	payloadArgsOnce sync.Once
	payloadArgsErr  error

	createdArgs    abi.Arguments
	updatedArgs    abi.Arguments
	arbitratedArgs abi.Arguments
)

func payloadArguments() error {
	payloadArgsOnce.Do(func() {
		build := func(types ...string) (abi.Arguments, error) {
			args := make(abi.Arguments, 0, len(types))
			for _, name := range types {
				typ, err := abi.NewType(name, "", nil)
				if err != nil {
					return nil, fmt.Errorf("abi type %s: %w", name, err)
				}
				args = append(args, abi.Argument{Type: typ})
			}
			return args, nil
		}

		createdArgs, payloadArgsErr = build("string", "bytes32", "bool", "string[]", "address", "uint256", "uint32", "string", "address", "bool")
		if payloadArgsErr != nil {
			return
		}
		updatedArgs, payloadArgsErr = build("string", "bytes32", "string[]", "uint256", "uint32", "address", "bool")
		if payloadArgsErr != nil {
			return
		}
		arbitratedArgs, payloadArgsErr = build("uint16", "uint256", "uint16", "uint256", "bytes32", "address")
	})
	return payloadArgsErr
}

// DecodeJobPayload decodes the inner payload of a job event. Kinds without a
// payload return an empty JobPayload. Unknown kinds are not an error.
func DecodeJobPayload(eventType model.JobEventType, data []byte) (JobPayload, error) {
	if err := payloadArguments(); err != nil {
		return JobPayload{}, err
	}

	what := eventType.String()
	switch eventType {
	case model.JobEventCreated:
		details, err := decodeCreated(data)
		return JobPayload{Details: details}, wrapDecodeErr(what, err)
	case model.JobEventUpdated:
		details, err := decodeUpdated(data)
		return JobPayload{Details: details}, wrapDecodeErr(what, err)
	case model.JobEventTaken, model.JobEventPaid:
		if len(data) == 0 || len(data) > 32 {
			return JobPayload{}, decodeErr(what, "escrow id must be 1..32 bytes, got %d", len(data))
		}
		return JobPayload{EscrowID: new(big.Int).SetBytes(data)}, nil
	case model.JobEventDelivered:
		if len(data) < common.HashLength {
			return JobPayload{}, decodeErr(what, "result hash needs %d bytes, got %d", common.HashLength, len(data))
		}
		return JobPayload{ResultHash: common.BytesToHash(data[:common.HashLength])}, nil
	case model.JobEventSigned:
		if len(data) < 2 {
			return JobPayload{}, decodeErr(what, "payload needs at least 2 bytes, got %d", len(data))
		}
		return JobPayload{Details: model.JobSignedDetails{
			Revision:  binary.BigEndian.Uint16(data[:2]),
			Signature: append([]byte(nil), data[2:]...),
		}}, nil
	case model.JobEventRated:
		if len(data) < 2 {
			return JobPayload{}, decodeErr(what, "payload needs at least 2 bytes, got %d", len(data))
		}
		review := data[2:]
		if !utf8.Valid(review) {
			return JobPayload{}, decodeErr(what, "review is not valid utf-8")
		}
		return JobPayload{Details: model.JobRatedDetails{
			Rating: binary.BigEndian.Uint16(data[:2]),
			Review: string(review),
		}}, nil
	case model.JobEventDisputed:
		if len(data) < disputedPayloadLength {
			return JobPayload{}, decodeErr(what, "payload needs %d bytes, got %d", disputedPayloadLength, len(data))
		}
		return JobPayload{Details: model.JobDisputedDetails{
			SealedSessionKey: append([]byte(nil), data[:SealedSessionKeyLength]...),
			ContentHash:      common.BytesToHash(data[SealedSessionKeyLength:disputedPayloadLength]),
		}}, nil
	case model.JobEventArbitrated:
		details, err := decodeArbitrated(data)
		return JobPayload{Details: details}, wrapDecodeErr(what, err)
	case model.JobEventOwnerMessage, model.JobEventWorkerMessage:
		if len(data) < messagePayloadLength {
			return JobPayload{}, decodeErr(what, "payload needs %d bytes, got %d", messagePayloadLength, len(data))
		}
		return JobPayload{Details: model.JobMessageDetails{
			ContentHash: common.BytesToHash(data[:common.HashLength]),
			Recipient:   common.BytesToAddress(data[common.HashLength:messagePayloadLength]),
		}}, nil
	default:
		return JobPayload{}, nil
	}
}

func decodeCreated(data []byte) (model.EventDetails, error) {
	values, err := createdArgs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}
	if len(values) != 10 {
		return nil, fmt.Errorf("unexpected created values: %d", len(values))
	}

	var (
		details model.JobCreatedDetails
		errs    fieldErrors
	)
	details.Title = errs.str(values[0])
	details.ContentHash = errs.hash(values[1])
	details.MultipleApplicants = errs.boolean(values[2])
	details.Tags = errs.strs(values[3])
	details.Token = errs.addr(values[4])
	details.Amount = errs.bigInt(values[5])
	details.MaxTime = errs.u32(values[6])
	details.DeliveryMethod = errs.str(values[7])
	details.Arbitrator = errs.addr(values[8])
	details.WhitelistWorkers = errs.boolean(values[9])
	if errs.err != nil {
		return nil, errs.err
	}
	return details, nil
}

func decodeUpdated(data []byte) (model.EventDetails, error) {
	values, err := updatedArgs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}
	if len(values) != 7 {
		return nil, fmt.Errorf("unexpected updated values: %d", len(values))
	}

	var (
		details model.JobUpdatedDetails
		errs    fieldErrors
	)
	details.Title = errs.str(values[0])
	details.ContentHash = errs.hash(values[1])
	details.Tags = errs.strs(values[2])
	details.Amount = errs.bigInt(values[3])
	details.MaxTime = errs.u32(values[4])
	details.Arbitrator = errs.addr(values[5])
	details.WhitelistWorkers = errs.boolean(values[6])
	if errs.err != nil {
		return nil, errs.err
	}
	return details, nil
}

func decodeArbitrated(data []byte) (model.EventDetails, error) {
	values, err := arbitratedArgs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}
	if len(values) != 6 {
		return nil, fmt.Errorf("unexpected arbitrated values: %d", len(values))
	}

	var (
		details model.JobArbitratedDetails
		errs    fieldErrors
	)
	details.CreatorShare = errs.u16(values[0])
	details.CreatorAmount = errs.bigInt(values[1])
	details.WorkerShare = errs.u16(values[2])
	details.WorkerAmount = errs.bigInt(values[3])
	details.ReasonHash = errs.hash(values[4])
	details.WorkerAddress = errs.addr(values[5])
	if errs.err != nil {
		return nil, errs.err
	}
	return details, nil
}

// EncodeCreated packs a Created payload. It mirrors decodeCreated and is used
// by fixtures and tooling that need to produce job events.
func EncodeCreated(d model.JobCreatedDetails) ([]byte, error) {
	if err := payloadArguments(); err != nil {
		return nil, err
	}
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return createdArgs.Pack(d.Title, [32]byte(d.ContentHash), d.MultipleApplicants, tags, d.Token,
		orZero(d.Amount), d.MaxTime, d.DeliveryMethod, d.Arbitrator, d.WhitelistWorkers)
}

// EncodeUpdated packs an Updated payload.
func EncodeUpdated(d model.JobUpdatedDetails) ([]byte, error) {
	if err := payloadArguments(); err != nil {
		return nil, err
	}
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return updatedArgs.Pack(d.Title, [32]byte(d.ContentHash), tags, orZero(d.Amount), d.MaxTime, d.Arbitrator, d.WhitelistWorkers)
}

// EncodeArbitrated packs an Arbitrated payload.
func EncodeArbitrated(d model.JobArbitratedDetails) ([]byte, error) {
	if err := payloadArguments(); err != nil {
		return nil, err
	}
	return arbitratedArgs.Pack(d.CreatorShare, orZero(d.CreatorAmount), d.WorkerShare, orZero(d.WorkerAmount),
		[32]byte(d.ReasonHash), d.WorkerAddress)
}

// EncodeRated packs a Rated payload.
func EncodeRated(rating uint16, review string) []byte {
	out := binary.BigEndian.AppendUint16(nil, rating)
	return append(out, review...)
}

// EncodeSigned packs a Signed payload.
func EncodeSigned(revision uint16, signature []byte) []byte {
	out := binary.BigEndian.AppendUint16(nil, revision)
	return append(out, signature...)
}

// EncodeMessage packs an Owner/WorkerMessage payload.
func EncodeMessage(contentHash common.Hash, recipient common.Address) []byte {
	out := append([]byte(nil), contentHash.Bytes()...)
	return append(out, recipient.Bytes()...)
}

// EncodeDisputed packs a Disputed payload.
func EncodeDisputed(sealedSessionKey []byte, contentHash common.Hash) ([]byte, error) {
	if len(sealedSessionKey) != SealedSessionKeyLength {
		return nil, fmt.Errorf("sealed session key must be %d bytes, got %d", SealedSessionKeyLength, len(sealedSessionKey))
	}
	out := append([]byte(nil), sealedSessionKey...)
	return append(out, contentHash.Bytes()...), nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
