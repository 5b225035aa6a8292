package ingest

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"jobScope/internal/codec"
	"jobScope/internal/model"
)

var (
	marketplaceAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	dataAddr        = common.HexToAddress("0x2222222222222222222222222222222222222222")
	creatorAddr     = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	workerAddr      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	arbitratorAddr  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

const t0 uint64 = 1_700_000_000

// chainFixture accumulates logs one block at a time.
type chainFixture struct {
	t       *testing.T
	decoder *codec.Decoder
	block   uint64
	index   uint64
	logs    []model.LogRecord
}

func newChainFixture(t *testing.T) *chainFixture {
	decoder, err := codec.NewDecoder()
	require.NoError(t, err)
	return &chainFixture{t: t, decoder: decoder, block: 100}
}

func (f *chainFixture) nextBlock() {
	f.block++
	f.index = 0
}

func (f *chainFixture) add(log model.LogRecord) {
	log.BlockNumber = f.block
	log.LogIndex = f.index
	f.index++
	f.logs = append(f.logs, log)
}

func (f *chainFixture) registerUser(addr common.Address) {
	topics, data, err := f.decoder.EncodeUserRegistered(codec.UserRegistered{Addr: addr, Pubkey: []byte{0x02}, Name: "user"})
	require.NoError(f.t, err)
	f.add(model.LogRecord{Address: dataAddr, Topics: topics, Data: data})
}

func (f *chainFixture) registerArbitrator(addr common.Address, fee uint16) {
	topics, data, err := f.decoder.EncodeArbitratorRegistered(codec.ArbitratorRegistered{Addr: addr, Pubkey: []byte{0x03}, Name: "arb", Fee: fee})
	require.NoError(f.t, err)
	f.add(model.LogRecord{Address: dataAddr, Topics: topics, Data: data})
}

func (f *chainFixture) job(id uint64, eventType model.JobEventType, from common.Address, ts uint64, data []byte) {
	log, err := f.decoder.JobLog(dataAddr, f.block, f.index, codec.JobEventLog{
		JobID: id, Type: eventType, Address: from, Data: data, Timestamp: ts,
	})
	require.NoError(f.t, err)
	f.add(log)
}

func (f *chainFixture) created(id uint64, amount int64, ts uint64) {
	data, err := codec.EncodeCreated(model.JobCreatedDetails{
		Title:      "job",
		Tags:       []string{"go"},
		Amount:     big.NewInt(amount),
		MaxTime:    3600,
		Arbitrator: arbitratorAddr,
	})
	require.NoError(f.t, err)
	f.job(id, model.JobEventCreated, creatorAddr, ts, data)
}

func (f *chainFixture) marketplace(kind codec.Kind, topics []common.Hash, args ...interface{}) {
	abiDef, err := codec.MarketplaceABI()
	require.NoError(f.t, err)
	event := abiDef.Events[kind.String()]
	data, err := event.Inputs.NonIndexed().Pack(args...)
	require.NoError(f.t, err)
	f.add(model.LogRecord{Address: marketplaceAddr, Topics: append([]common.Hash{event.ID}, topics...), Data: data})
}

func (f *chainFixture) blocks() []model.Block {
	return model.GroupByBlock(f.logs)
}
