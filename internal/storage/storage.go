package storage

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"jobScope/internal/model"
)

// ErrNotFound is returned by Find* when no entity has the requested id.
var ErrNotFound = errors.New("not found")

// LogSink persists raw log records.
type LogSink interface {
	PutLogBatch(logs []model.LogRecord) error
}

// Gateway is keyed find/upsert access to the derived entities. Upserts are
// idempotent and last-writer-wins per id.
type Gateway interface {
	FindMarketplace(ctx context.Context, id common.Address) (*model.Marketplace, error)
	FindJob(ctx context.Context, id uint64) (*model.Job, error)
	FindUser(ctx context.Context, addr common.Address) (*model.User, error)
	FindArbitrator(ctx context.Context, addr common.Address) (*model.Arbitrator, error)

	// JobEvents returns the events of one job ordered by id.
	JobEvents(ctx context.Context, jobID uint64) ([]model.JobEvent, error)
	// Reviews returns the reviews received by a user ordered by id.
	Reviews(ctx context.Context, user common.Address) ([]model.Review, error)

	// LoadCursor returns the id of the last committed log for a stream, or ""
	// when nothing has been committed yet.
	LoadCursor(ctx context.Context, stream string) (string, error)

	// Commit upserts every entity in the set, one pass per entity kind, and
	// advances the stream cursor in the same transaction.
	Commit(ctx context.Context, set WriteSet) error
}

// Cursor marks the last log folded into the derived state of a stream.
type Cursor struct {
	Stream string
	LogID  string
}

// WriteSet is the output of one ingestion batch.
type WriteSet struct {
	Marketplaces []model.Marketplace
	Users        []model.User
	Arbitrators  []model.Arbitrator
	Jobs         []model.Job
	JobEvents    []model.JobEvent
	Reviews      []model.Review
	Cursor       *Cursor
}

// Empty reports whether the set carries no writes.
func (w WriteSet) Empty() bool {
	return w.Cursor == nil && len(w.Marketplaces) == 0 && len(w.Users) == 0 && len(w.Arbitrators) == 0 &&
		len(w.Jobs) == 0 && len(w.JobEvents) == 0 && len(w.Reviews) == 0
}

// Size is the total number of rows in the set.
func (w WriteSet) Size() int {
	return len(w.Marketplaces) + len(w.Users) + len(w.Arbitrators) +
		len(w.Jobs) + len(w.JobEvents) + len(w.Reviews)
}
