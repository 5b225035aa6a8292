// Package chain is the RPC access used by the log runner and the public key
// resolver.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// maxCachedTimestamps bounds the header timestamp cache of a long-running
// follower.
const maxCachedTimestamps = 8192

// Client wraps an ethclient with a chain id and block timestamp cache.
type Client struct {
	rpcClient *rpc.Client
	eth       *ethclient.Client

	mu         sync.Mutex
	chainID    *big.Int
	timestamps map[uint64]uint64
}

// NewClient dials rpcURL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return &Client{
		rpcClient:  rpcClient,
		eth:        ethclient.NewClient(rpcClient),
		timestamps: make(map[uint64]uint64),
	}, nil
}

func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain id, asking the node only once.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	cached := c.chainID
	c.mu.Unlock()
	if cached != nil {
		return new(big.Int).Set(cached), nil
	}

	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.chainID = new(big.Int).Set(id)
	c.mu.Unlock()
	return id, nil
}

func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// BlockTimestamp returns the header time of a block. Consecutive logs mostly
// share blocks, so results are cached; the cache is dropped when it fills.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.Lock()
	ts, ok := c.timestamps[number]
	c.mu.Unlock()
	if ok {
		return ts, nil
	}

	header, err := c.eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	if len(c.timestamps) >= maxCachedTimestamps {
		clear(c.timestamps)
	}
	c.timestamps[number] = header.Time
	c.mu.Unlock()
	return header.Time, nil
}

// FilterLogs returns the logs emitted by addresses in [fromBlock, toBlock].
// An empty topic0 list matches every event.
func (c *Client) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.eth.FilterLogs(ctx, query)
}

// Call performs a read-only eth_call against the latest block.
func (c *Client) Call(ctx context.Context, to common.Address, input []byte) ([]byte, error) {
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
}
