package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"jobScope/internal/model"
	"jobScope/internal/storage"
)

// batch is the write-back cache of one ingestion pass. Every entity read
// through it is owned by the pass until the final commit.
type batch struct {
	store storage.Gateway

	marketplace *model.Marketplace
	jobs        map[uint64]*model.Job
	users       map[common.Address]*model.User
	arbitrators map[common.Address]*model.Arbitrator
	events      []model.JobEvent
	reviews     []model.Review
}

func newBatch(store storage.Gateway) *batch {
	return &batch{
		store:       store,
		jobs:        make(map[uint64]*model.Job),
		users:       make(map[common.Address]*model.User),
		arbitrators: make(map[common.Address]*model.Arbitrator),
	}
}

// loadMarketplace returns the marketplace singleton, creating it lazily.
func (b *batch) loadMarketplace(ctx context.Context, id, data common.Address) (*model.Marketplace, error) {
	if b.marketplace != nil {
		return b.marketplace, nil
	}
	m, err := b.store.FindMarketplace(ctx, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		m = &model.Marketplace{ID: id, MarketplaceData: data}
	case err != nil:
		return nil, fmt.Errorf("find marketplace %s: %w", id.Hex(), err)
	}
	b.marketplace = m
	return m, nil
}

// job returns the cached job or nil when it does not exist yet.
func (b *batch) job(ctx context.Context, id uint64) (*model.Job, error) {
	if job, ok := b.jobs[id]; ok {
		return job, nil
	}
	job, err := b.store.FindJob(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find job %d: %w", id, err)
	}
	b.jobs[id] = job
	return job, nil
}

func (b *batch) user(ctx context.Context, addr common.Address) (*model.User, error) {
	if u, ok := b.users[addr]; ok {
		return u, nil
	}
	u, err := b.store.FindUser(ctx, addr)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", addr.Hex(), err)
	}
	b.users[addr] = u
	return u, nil
}

func (b *batch) arbitrator(ctx context.Context, addr common.Address) (*model.Arbitrator, error) {
	if a, ok := b.arbitrators[addr]; ok {
		return a, nil
	}
	a, err := b.store.FindArbitrator(ctx, addr)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find arbitrator %s: %w", addr.Hex(), err)
	}
	b.arbitrators[addr] = a
	return a, nil
}

// writeSet flattens the cache into a deterministic WriteSet.
func (b *batch) writeSet() storage.WriteSet {
	var set storage.WriteSet
	if b.marketplace != nil {
		set.Marketplaces = []model.Marketplace{*b.marketplace}
	}

	jobIDs := make([]uint64, 0, len(b.jobs))
	for id := range b.jobs {
		jobIDs = append(jobIDs, id)
	}
	sort.Slice(jobIDs, func(i, j int) bool { return jobIDs[i] < jobIDs[j] })
	for _, id := range jobIDs {
		set.Jobs = append(set.Jobs, *b.jobs[id])
	}

	for _, addr := range sortedAddresses(b.users) {
		set.Users = append(set.Users, *b.users[addr])
	}
	for _, addr := range sortedAddresses(b.arbitrators) {
		set.Arbitrators = append(set.Arbitrators, *b.arbitrators[addr])
	}
	set.JobEvents = b.events
	set.Reviews = b.reviews
	return set
}

func sortedAddresses[V any](m map[common.Address]V) []common.Address {
	out := make([]common.Address, 0, len(m))
	for addr := range m {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}
