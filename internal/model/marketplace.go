package model

import "github.com/ethereum/go-ethereum/common"

// Marketplace is the singleton configuration record of a deployed marketplace contract.
type Marketplace struct {
	ID                       common.Address `json:"id"`
	MarketplaceData          common.Address `json:"marketplace_data"`
	Version                  uint64         `json:"version"`
	UnicrowAddress           common.Address `json:"unicrow_address"`
	UnicrowDisputeAddress    common.Address `json:"unicrow_dispute_address"`
	UnicrowArbitratorAddress common.Address `json:"unicrow_arbitrator_address"`
	TreasuryAddress          common.Address `json:"treasury_address"`
	UnicrowMarketplaceFee    uint16         `json:"unicrow_marketplace_fee"`
	Paused                   bool           `json:"paused"`
	Owner                    common.Address `json:"owner"`
}
