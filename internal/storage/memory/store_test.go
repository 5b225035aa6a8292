package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobScope/internal/model"
	"jobScope/internal/storage"
)

func TestCommitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	worker := common.HexToAddress("0x01")

	set := storage.WriteSet{
		Jobs: []model.Job{{ID: 1, Amount: big.NewInt(10)}},
		JobEvents: []model.JobEvent{
			{ID: model.LogID(5, 1), JobID: 1, Type: model.JobEventTaken},
			{ID: model.LogID(5, 0), JobID: 1, Type: model.JobEventCreated},
		},
		Users:   []model.User{{Address: worker, Name: "w"}},
		Reviews: []model.Review{{ID: model.LogID(5, 2), User: worker, JobID: 1, Rating: 5}},
	}
	require.NoError(t, store.Commit(ctx, set))
	require.NoError(t, store.Commit(ctx, set))

	jobs, events, reviews := store.Counts()
	assert.Equal(t, 1, jobs)
	assert.Equal(t, 2, events)
	assert.Equal(t, 1, reviews)

	ordered, err := store.JobEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, model.JobEventCreated, ordered[0].Type)

	got, err := store.Reviews(ctx, worker)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFindReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Commit(ctx, storage.WriteSet{Jobs: []model.Job{{ID: 3, Amount: big.NewInt(10)}}}))

	job, err := store.FindJob(ctx, 3)
	require.NoError(t, err)
	job.Amount.SetInt64(99)

	again, err := store.FindJob(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(10), again.Amount.Int64())
}

func TestCommitRejectsOrphanEvents(t *testing.T) {
	store := NewStore()
	err := store.Commit(context.Background(), storage.WriteSet{
		JobEvents: []model.JobEvent{{ID: model.LogID(1, 0), JobID: 404}},
	})
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.Equal(t, 0, store.Commits())

	_, err = store.FindUser(context.Background(), common.HexToAddress("0x02"))
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestCursorAdvancesWithCommit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	cursor, err := store.LoadCursor(ctx, "main")
	require.NoError(t, err)
	assert.Empty(t, cursor)

	require.NoError(t, store.Commit(ctx, storage.WriteSet{Cursor: &storage.Cursor{Stream: "main", LogID: model.LogID(9, 1)}}))
	cursor, err = store.LoadCursor(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, model.LogID(9, 1), cursor)
}
