package codec

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const marketplaceABIJSON = `[
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "uint64", "name": "version", "type": "uint64"}], "name": "Initialized", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "address", "name": "marketplaceDataAddress", "type": "address"}], "name": "MarketplaceDataAddressChanged", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "address", "name": "treasuryAddress", "type": "address"}], "name": "TreasuryAddressChanged", "type": "event"},
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "unicrowAddress", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "unicrowDisputeAddress", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "unicrowArbitratorAddress", "type": "address"}
    ],
    "name": "UnicrowAddressesChanged",
    "type": "event"
  },
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "uint16", "name": "unicrowMarketplaceFee", "type": "uint16"}], "name": "UnicrowMarketplaceFeeChanged", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "uint256", "name": "version", "type": "uint256"}], "name": "VersionChanged", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "address", "name": "account", "type": "address"}], "name": "Paused", "type": "event"},
  {"anonymous": false, "inputs": [{"indexed": false, "internalType": "address", "name": "account", "type": "address"}], "name": "Unpaused", "type": "event"},
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "previousOwner", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "newOwner", "type": "address"}
    ],
    "name": "OwnershipTransferred",
    "type": "event"
  }
]`

const marketplaceDataABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "addr", "type": "address"},
      {"indexed": false, "internalType": "bytes", "name": "pubkey", "type": "bytes"},
      {"indexed": false, "internalType": "string", "name": "name", "type": "string"},
      {"indexed": false, "internalType": "string", "name": "bio", "type": "string"},
      {"indexed": false, "internalType": "string", "name": "avatar", "type": "string"}
    ],
    "name": "UserRegistered",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "addr", "type": "address"},
      {"indexed": false, "internalType": "string", "name": "name", "type": "string"},
      {"indexed": false, "internalType": "string", "name": "bio", "type": "string"},
      {"indexed": false, "internalType": "string", "name": "avatar", "type": "string"}
    ],
    "name": "UserUpdated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "addr", "type": "address"},
      {"indexed": false, "internalType": "bytes", "name": "pubkey", "type": "bytes"},
      {"indexed": false, "internalType": "string", "name": "name", "type": "string"},
      {"indexed": false, "internalType": "string", "name": "bio", "type": "string"},
      {"indexed": false, "internalType": "string", "name": "avatar", "type": "string"},
      {"indexed": false, "internalType": "uint16", "name": "fee", "type": "uint16"}
    ],
    "name": "ArbitratorRegistered",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "addr", "type": "address"},
      {"indexed": false, "internalType": "string", "name": "name", "type": "string"},
      {"indexed": false, "internalType": "string", "name": "bio", "type": "string"},
      {"indexed": false, "internalType": "string", "name": "avatar", "type": "string"}
    ],
    "name": "ArbitratorUpdated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "jobId", "type": "uint256"},
      {
        "components": [
          {"internalType": "uint8", "name": "type_", "type": "uint8"},
          {"internalType": "bytes", "name": "address_", "type": "bytes"},
          {"internalType": "bytes", "name": "data_", "type": "bytes"},
          {"internalType": "uint32", "name": "timestamp_", "type": "uint32"}
        ],
        "indexed": false,
        "internalType": "struct JobEventData",
        "name": "eventData",
        "type": "tuple"
      }
    ],
    "name": "JobEvent",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "address", "name": "", "type": "address"}],
    "name": "publicKeys",
    "outputs": [{"internalType": "bytes", "name": "", "type": "bytes"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "", "type": "address"}],
    "name": "arbitrators",
    "outputs": [
      {"internalType": "bytes", "name": "publicKey", "type": "bytes"},
      {"internalType": "string", "name": "name", "type": "string"},
      {"internalType": "uint16", "name": "fee", "type": "uint16"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	marketplaceABI     abi.ABI
	marketplaceABIOnce sync.Once
	marketplaceABIErr  error

	marketplaceDataABI     abi.ABI
	marketplaceDataABIOnce sync.Once
	marketplaceDataABIErr  error
)

// MarketplaceABI returns the parsed Marketplace contract event ABI.
func MarketplaceABI() (abi.ABI, error) {
	marketplaceABIOnce.Do(func() {
		marketplaceABI, marketplaceABIErr = abi.JSON(strings.NewReader(marketplaceABIJSON))
	})
	return marketplaceABI, marketplaceABIErr
}

// MarketplaceDataABI returns the parsed MarketplaceData contract ABI.
func MarketplaceDataABI() (abi.ABI, error) {
	marketplaceDataABIOnce.Do(func() {
		marketplaceDataABI, marketplaceDataABIErr = abi.JSON(strings.NewReader(marketplaceDataABIJSON))
	})
	return marketplaceDataABI, marketplaceDataABIErr
}
