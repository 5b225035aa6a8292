package codec

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"jobScope/internal/model"
)

// Decoder turns raw marketplace logs into typed events.
type Decoder struct {
	marketplaceABI     abi.ABI
	marketplaceDataABI abi.ABI
	topicToKind        map[common.Hash]Kind
	kindToEvent        map[Kind]abi.Event
}

// NewDecoder builds the topic dispatch table from both contract ABIs.
func NewDecoder() (*Decoder, error) {
	marketplace, err := MarketplaceABI()
	if err != nil {
		return nil, fmt.Errorf("parse marketplace abi: %w", err)
	}
	marketplaceData, err := MarketplaceDataABI()
	if err != nil {
		return nil, fmt.Errorf("parse marketplace data abi: %w", err)
	}

	d := &Decoder{
		marketplaceABI:     marketplace,
		marketplaceDataABI: marketplaceData,
		topicToKind:        make(map[common.Hash]Kind),
		kindToEvent:        make(map[Kind]abi.Event),
	}
	for kind := KindInitialized; kind <= KindJobEvent; kind++ {
		source := marketplace
		if kind.Domain() == DomainMarketplaceData {
			source = marketplaceData
		}
		event, ok := source.Events[kind.String()]
		if !ok {
			return nil, fmt.Errorf("abi is missing event %s", kind)
		}
		d.topicToKind[event.ID] = kind
		d.kindToEvent[kind] = event
	}
	return d, nil
}

// Resolve maps a topic0 selector to its kind. Unknown selectors report false.
func (d *Decoder) Resolve(topic0 common.Hash) (Kind, bool) {
	kind, ok := d.topicToKind[topic0]
	return kind, ok
}

// Topic returns the selector for a kind.
func (d *Decoder) Topic(kind Kind) common.Hash {
	return d.kindToEvent[kind].ID
}

// Topics returns all selectors, useful for log filters.
func (d *Decoder) Topics() []common.Hash {
	out := make([]common.Hash, 0, len(d.kindToEvent))
	for kind := KindInitialized; kind <= KindJobEvent; kind++ {
		out = append(out, d.kindToEvent[kind].ID)
	}
	return out
}

// Decode converts a LogRecord into a typed Event.
func (d *Decoder) Decode(log model.LogRecord) (Event, error) {
	if len(log.Topics) == 0 {
		return nil, decodeErr("log", "missing topics")
	}
	kind, ok := d.Resolve(log.Topics[0])
	if !ok {
		return nil, decodeErr("log", "unsupported topic0: %s", log.Topics[0].Hex())
	}
	event := d.kindToEvent[kind]

	switch kind {
	case KindInitialized:
		values, err := unpackNonIndexed(event, log.Data, 1)
		if err != nil {
			return nil, err
		}
		version, err := asBigInt(values[0])
		if err != nil {
			return nil, wrapDecodeErr(event.Name, err)
		}
		return Initialized{Version: version.Uint64()}, nil
	case KindMarketplaceDataAddressChanged:
		addr, err := d.singleAddress(event, log)
		if err != nil {
			return nil, err
		}
		return MarketplaceDataAddressChanged{MarketplaceData: addr}, nil
	case KindTreasuryAddressChanged:
		addr, err := d.singleAddress(event, log)
		if err != nil {
			return nil, err
		}
		return TreasuryAddressChanged{Treasury: addr}, nil
	case KindUnicrowAddressesChanged:
		values, err := unpackNonIndexed(event, log.Data, 3)
		if err != nil {
			return nil, err
		}
		addrs, err := asAddresses(values)
		if err != nil {
			return nil, wrapDecodeErr(event.Name, err)
		}
		return UnicrowAddressesChanged{Unicrow: addrs[0], UnicrowDispute: addrs[1], UnicrowArbitrator: addrs[2]}, nil
	case KindUnicrowMarketplaceFeeChanged:
		values, err := unpackNonIndexed(event, log.Data, 1)
		if err != nil {
			return nil, err
		}
		fee, ok := values[0].(uint16)
		if !ok {
			return nil, decodeErr(event.Name, "unexpected fee type %T", values[0])
		}
		return UnicrowMarketplaceFeeChanged{Fee: fee}, nil
	case KindVersionChanged:
		values, err := unpackNonIndexed(event, log.Data, 1)
		if err != nil {
			return nil, err
		}
		version, err := asBigInt(values[0])
		if err != nil {
			return nil, wrapDecodeErr(event.Name, err)
		}
		if !version.IsUint64() {
			return nil, decodeErr(event.Name, "version overflows uint64: %s", version)
		}
		return VersionChanged{Version: version.Uint64()}, nil
	case KindPaused:
		addr, err := d.singleAddress(event, log)
		if err != nil {
			return nil, err
		}
		return Paused{Account: addr}, nil
	case KindUnpaused:
		addr, err := d.singleAddress(event, log)
		if err != nil {
			return nil, err
		}
		return Unpaused{Account: addr}, nil
	case KindOwnershipTransferred:
		var indexed struct {
			PreviousOwner common.Address
			NewOwner      common.Address
		}
		if err := parseIndexed(event, log.Topics, &indexed); err != nil {
			return nil, err
		}
		return OwnershipTransferred{PreviousOwner: indexed.PreviousOwner, NewOwner: indexed.NewOwner}, nil
	case KindUserRegistered:
		return d.decodeUserRegistered(event, log)
	case KindUserUpdated:
		addr, profile, err := d.decodeProfileUpdate(event, log)
		if err != nil {
			return nil, err
		}
		return UserUpdated{Addr: addr, Name: profile[0], Bio: profile[1], Avatar: profile[2]}, nil
	case KindArbitratorRegistered:
		return d.decodeArbitratorRegistered(event, log)
	case KindArbitratorUpdated:
		addr, profile, err := d.decodeProfileUpdate(event, log)
		if err != nil {
			return nil, err
		}
		return ArbitratorUpdated{Addr: addr, Name: profile[0], Bio: profile[1], Avatar: profile[2]}, nil
	case KindJobEvent:
		return d.decodeJobEvent(event, log)
	default:
		return nil, decodeErr("log", "unsupported event kind: %s", kind)
	}
}

func (d *Decoder) singleAddress(event abi.Event, log model.LogRecord) (common.Address, error) {
	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, wrapDecodeErr(event.Name, err)
	}
	return addr, nil
}

func (d *Decoder) decodeUserRegistered(event abi.Event, log model.LogRecord) (Event, error) {
	var indexed struct {
		Addr common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return nil, err
	}
	values, err := unpackNonIndexed(event, log.Data, 4)
	if err != nil {
		return nil, err
	}
	pubkey, ok := values[0].([]byte)
	if !ok {
		return nil, decodeErr(event.Name, "unexpected pubkey type %T", values[0])
	}
	profile, err := asStrings(values[1:])
	if err != nil {
		return nil, wrapDecodeErr(event.Name, err)
	}
	return UserRegistered{Addr: indexed.Addr, Pubkey: pubkey, Name: profile[0], Bio: profile[1], Avatar: profile[2]}, nil
}

func (d *Decoder) decodeArbitratorRegistered(event abi.Event, log model.LogRecord) (Event, error) {
	var indexed struct {
		Addr common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return nil, err
	}
	values, err := unpackNonIndexed(event, log.Data, 5)
	if err != nil {
		return nil, err
	}
	pubkey, ok := values[0].([]byte)
	if !ok {
		return nil, decodeErr(event.Name, "unexpected pubkey type %T", values[0])
	}
	profile, err := asStrings(values[1:4])
	if err != nil {
		return nil, wrapDecodeErr(event.Name, err)
	}
	fee, ok := values[4].(uint16)
	if !ok {
		return nil, decodeErr(event.Name, "unexpected fee type %T", values[4])
	}
	return ArbitratorRegistered{
		Addr:   indexed.Addr,
		Pubkey: pubkey,
		Name:   profile[0],
		Bio:    profile[1],
		Avatar: profile[2],
		Fee:    fee,
	}, nil
}

func (d *Decoder) decodeProfileUpdate(event abi.Event, log model.LogRecord) (common.Address, []string, error) {
	var indexed struct {
		Addr common.Address
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return common.Address{}, nil, err
	}
	values, err := unpackNonIndexed(event, log.Data, 3)
	if err != nil {
		return common.Address{}, nil, err
	}
	profile, err := asStrings(values)
	if err != nil {
		return common.Address{}, nil, wrapDecodeErr(event.Name, err)
	}
	return indexed.Addr, profile, nil
}

type jobEventData struct {
	Type      uint8  `abi:"type_"`
	Address   []byte `abi:"address_"`
	Data      []byte `abi:"data_"`
	Timestamp uint32 `abi:"timestamp_"`
}

func (d *Decoder) decodeJobEvent(event abi.Event, log model.LogRecord) (Event, error) {
	var indexed struct {
		JobId *big.Int
	}
	if err := parseIndexed(event, log.Topics, &indexed); err != nil {
		return nil, err
	}
	if indexed.JobId == nil || !indexed.JobId.IsUint64() {
		return nil, decodeErr(event.Name, "job id out of range: %v", indexed.JobId)
	}

	values, err := unpackNonIndexed(event, log.Data, 1)
	if err != nil {
		return nil, err
	}
	data, err := convertJobEventData(values[0])
	if err != nil {
		return nil, wrapDecodeErr(event.Name, err)
	}
	if len(data.Address) > common.HashLength {
		return nil, decodeErr(event.Name, "address_ too long: %d bytes", len(data.Address))
	}

	return JobEventLog{
		JobID:     indexed.JobId.Uint64(),
		Type:      model.JobEventType(data.Type),
		Address:   common.BytesToAddress(data.Address),
		Data:      data.Data,
		Timestamp: uint64(data.Timestamp),
	}, nil
}

func convertJobEventData(value interface{}) (out *jobEventData, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("convert event data: %v", r)
		}
	}()
	converted, ok := abi.ConvertType(value, new(jobEventData)).(*jobEventData)
	if !ok {
		return nil, fmt.Errorf("unexpected event data type %T", value)
	}
	return converted, nil
}

func parseIndexed(event abi.Event, topics []common.Hash, out interface{}) error {
	indexedArgs := indexedArguments(event.Inputs)
	if len(topics) != len(indexedArgs)+1 {
		return decodeErr(event.Name, "expected %d topics, got %d", len(indexedArgs)+1, len(topics))
	}
	if err := abi.ParseTopics(out, indexedArgs, topics[1:]); err != nil {
		return decodeErr(event.Name, "parse topics: %w", err)
	}
	return nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, data []byte, want int) ([]interface{}, error) {
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, decodeErr(event.Name, "unpack: %w", err)
	}
	if len(values) != want {
		return nil, decodeErr(event.Name, "unexpected values: %d", len(values))
	}
	return values, nil
}
