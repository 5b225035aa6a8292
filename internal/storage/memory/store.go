// Package memory is an in-process Gateway used by tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"jobScope/internal/model"
	"jobScope/internal/storage"
)

// Store keeps every entity in maps guarded by a single mutex.
type Store struct {
	mu           sync.RWMutex
	marketplaces map[common.Address]model.Marketplace
	jobs         map[uint64]*model.Job
	users        map[common.Address]model.User
	arbitrators  map[common.Address]model.Arbitrator
	events       map[string]model.JobEvent
	reviews      map[string]model.Review
	cursors      map[string]string
	commits      int
}

var _ storage.Gateway = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		marketplaces: make(map[common.Address]model.Marketplace),
		jobs:         make(map[uint64]*model.Job),
		users:        make(map[common.Address]model.User),
		arbitrators:  make(map[common.Address]model.Arbitrator),
		events:       make(map[string]model.JobEvent),
		reviews:      make(map[string]model.Review),
		cursors:      make(map[string]string),
	}
}

func (s *Store) FindMarketplace(_ context.Context, id common.Address) (*model.Marketplace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.marketplaces[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &m, nil
}

func (s *Store) FindJob(_ context.Context, id uint64) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return job.Clone(), nil
}

func (s *Store) FindUser(_ context.Context, addr common.Address) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[addr]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (s *Store) FindArbitrator(_ context.Context, addr common.Address) (*model.Arbitrator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.arbitrators[addr]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &a, nil
}

func (s *Store) JobEvents(_ context.Context, jobID uint64) ([]model.JobEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.JobEvent
	for _, ev := range s.events {
		if ev.JobID == jobID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Reviews(_ context.Context, user common.Address) ([]model.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Review
	for _, r := range s.reviews {
		if r.User == user {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) LoadCursor(_ context.Context, stream string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursors[stream], nil
}

// Commit applies the set atomically. Job events must reference a job that
// exists after the set is applied, mirroring the relational foreign key.
func (s *Store) Commit(_ context.Context, set storage.WriteSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make(map[uint64]bool, len(set.Jobs))
	for _, job := range set.Jobs {
		jobs[job.ID] = true
	}
	for _, ev := range set.JobEvents {
		if _, ok := s.jobs[ev.JobID]; !ok && !jobs[ev.JobID] {
			return fmt.Errorf("job event %s: job %d: %w", ev.ID, ev.JobID, storage.ErrNotFound)
		}
	}

	for _, m := range set.Marketplaces {
		s.marketplaces[m.ID] = m
	}
	for _, u := range set.Users {
		s.users[u.Address] = u
	}
	for _, a := range set.Arbitrators {
		s.arbitrators[a.Address] = a
	}
	for i := range set.Jobs {
		s.jobs[set.Jobs[i].ID] = set.Jobs[i].Clone()
	}
	for _, ev := range set.JobEvents {
		s.events[ev.ID] = ev
	}
	for _, r := range set.Reviews {
		s.reviews[r.ID] = r
	}
	if set.Cursor != nil {
		s.cursors[set.Cursor.Stream] = set.Cursor.LogID
	}
	s.commits++
	return nil
}

// Commits reports how many sets have been applied.
func (s *Store) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

// Counts reports the number of stored jobs, events and reviews.
func (s *Store) Counts() (jobs, events, reviews int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs), len(s.events), len(s.reviews)
}
