package codec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"jobScope/internal/model"
)

// Kind identifies a decodable log event.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInitialized
	KindMarketplaceDataAddressChanged
	KindTreasuryAddressChanged
	KindUnicrowAddressesChanged
	KindUnicrowMarketplaceFeeChanged
	KindVersionChanged
	KindPaused
	KindUnpaused
	KindOwnershipTransferred
	KindUserRegistered
	KindUserUpdated
	KindArbitratorRegistered
	KindArbitratorUpdated
	KindJobEvent
)

// Domain is the contract a log kind belongs to.
type Domain uint8

const (
	DomainNone Domain = iota
	DomainMarketplace
	DomainMarketplaceData
)

var kindNames = [...]string{
	KindUnknown:                       "Unknown",
	KindInitialized:                   "Initialized",
	KindMarketplaceDataAddressChanged: "MarketplaceDataAddressChanged",
	KindTreasuryAddressChanged:        "TreasuryAddressChanged",
	KindUnicrowAddressesChanged:       "UnicrowAddressesChanged",
	KindUnicrowMarketplaceFeeChanged:  "UnicrowMarketplaceFeeChanged",
	KindVersionChanged:                "VersionChanged",
	KindPaused:                        "Paused",
	KindUnpaused:                      "Unpaused",
	KindOwnershipTransferred:          "OwnershipTransferred",
	KindUserRegistered:                "UserRegistered",
	KindUserUpdated:                   "UserUpdated",
	KindArbitratorRegistered:          "ArbitratorRegistered",
	KindArbitratorUpdated:             "ArbitratorUpdated",
	KindJobEvent:                      "JobEvent",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindUnknown]
}

// Domain reports which contract emits this kind.
func (k Kind) Domain() Domain {
	switch {
	case k >= KindInitialized && k <= KindOwnershipTransferred:
		return DomainMarketplace
	case k >= KindUserRegistered && k <= KindJobEvent:
		return DomainMarketplaceData
	default:
		return DomainNone
	}
}

// Event is a decoded log. Concrete types are listed below, one per Kind.
type Event interface {
	Kind() Kind
}

type Initialized struct {
	Version uint64
}

type MarketplaceDataAddressChanged struct {
	MarketplaceData common.Address
}

type TreasuryAddressChanged struct {
	Treasury common.Address
}

type UnicrowAddressesChanged struct {
	Unicrow           common.Address
	UnicrowDispute    common.Address
	UnicrowArbitrator common.Address
}

type UnicrowMarketplaceFeeChanged struct {
	Fee uint16
}

type VersionChanged struct {
	Version uint64
}

type Paused struct {
	Account common.Address
}

type Unpaused struct {
	Account common.Address
}

type OwnershipTransferred struct {
	PreviousOwner common.Address
	NewOwner      common.Address
}

type UserRegistered struct {
	Addr   common.Address
	Pubkey []byte
	Name   string
	Bio    string
	Avatar string
}

type UserUpdated struct {
	Addr   common.Address
	Name   string
	Bio    string
	Avatar string
}

type ArbitratorRegistered struct {
	Addr   common.Address
	Pubkey []byte
	Name   string
	Bio    string
	Avatar string
	Fee    uint16
}

type ArbitratorUpdated struct {
	Addr   common.Address
	Name   string
	Bio    string
	Avatar string
}

// JobEventLog is the outer envelope of a job-domain log. Data is still the
// raw inner payload; see DecodeJobPayload.
type JobEventLog struct {
	JobID     uint64
	Type      model.JobEventType
	Address   common.Address
	Data      []byte
	Timestamp uint64
}

func (Initialized) Kind() Kind                   { return KindInitialized }
func (MarketplaceDataAddressChanged) Kind() Kind { return KindMarketplaceDataAddressChanged }
func (TreasuryAddressChanged) Kind() Kind        { return KindTreasuryAddressChanged }
func (UnicrowAddressesChanged) Kind() Kind       { return KindUnicrowAddressesChanged }
func (UnicrowMarketplaceFeeChanged) Kind() Kind  { return KindUnicrowMarketplaceFeeChanged }
func (VersionChanged) Kind() Kind                { return KindVersionChanged }
func (Paused) Kind() Kind                        { return KindPaused }
func (Unpaused) Kind() Kind                      { return KindUnpaused }
func (OwnershipTransferred) Kind() Kind          { return KindOwnershipTransferred }
func (UserRegistered) Kind() Kind                { return KindUserRegistered }
func (UserUpdated) Kind() Kind                   { return KindUserUpdated }
func (ArbitratorRegistered) Kind() Kind          { return KindArbitratorRegistered }
func (ArbitratorUpdated) Kind() Kind             { return KindArbitratorUpdated }
func (JobEventLog) Kind() Kind                   { return KindJobEvent }

// JobPayload is the decoded inner payload of a job event. Details is set for
// the kinds that carry structured data; EscrowID and ResultHash are set for
// Taken/Paid and Delivered respectively.
type JobPayload struct {
	Details    model.EventDetails
	EscrowID   *big.Int
	ResultHash common.Hash
}
