package timeline

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobScope/internal/codec"
	"jobScope/internal/model"
)

var (
	creator    = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	worker     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	arbitrator = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

const baseTime uint64 = 1_700_000_000

func event(t *testing.T, block uint64, eventType model.JobEventType, from common.Address, data []byte) model.JobEvent {
	t.Helper()
	return model.JobEvent{
		ID:          model.LogID(block, 0),
		JobID:       7,
		Type:        eventType,
		Address:     from,
		Data:        data,
		Timestamp:   baseTime + block,
		BlockNumber: block,
	}
}

func ratedScenario(t *testing.T) []model.JobEvent {
	t.Helper()
	created, err := codec.EncodeCreated(model.JobCreatedDetails{
		Title:      "logo",
		Tags:       []string{"design", "svg"},
		Amount:     big.NewInt(1000),
		MaxTime:    3600,
		Arbitrator: arbitrator,
	})
	require.NoError(t, err)
	return []model.JobEvent{
		event(t, 1, model.JobEventCreated, creator, created),
		event(t, 2, model.JobEventTaken, worker, big.NewInt(42).Bytes()),
		event(t, 3, model.JobEventDelivered, worker, common.HexToHash("0xfeed").Bytes()),
		event(t, 4, model.JobEventCompleted, creator, nil),
		event(t, 5, model.JobEventRated, creator, codec.EncodeRated(5, "great")),
	}
}

func fieldsOf(diffs []FieldDiff) map[string]FieldDiff {
	out := make(map[string]FieldDiff, len(diffs))
	for _, d := range diffs {
		out[d.Field] = d
	}
	return out
}

func TestComputeDiffsScenario(t *testing.T) {
	diffs, err := Collect(ComputeDiffs(ratedScenario(t)))
	require.NoError(t, err)
	require.Len(t, diffs, 5)

	first := fieldsOf(diffs[0].Changes)
	assert.Equal(t, FieldDiff{Field: "title", Change: Modified, Old: "", New: "logo"}, first["title"])
	assert.Equal(t, FieldDiff{Field: "tags[0]", Change: Added, New: "design"}, first["tags[0]"])
	assert.Equal(t, FieldDiff{Field: "tags[1]", Change: Added, New: "svg"}, first["tags[1]"])
	assert.Equal(t, "1000", first["amount"].New)
	assert.NotContains(t, first, "collateral_owed")
	assert.Equal(t, creator.Hex(), first["roles.creator"].New)

	taken := fieldsOf(diffs[1].Changes)
	assert.Equal(t, "taken", taken["state"].New)
	assert.Equal(t, worker.Hex(), taken["roles.worker"].New)
	assert.Equal(t, "42", taken["escrow_id"].New)

	delivered := diffs[2].Changes
	require.Len(t, delivered, 1)
	assert.Equal(t, "result_hash", delivered[0].Field)

	closed := fieldsOf(diffs[3].Changes)
	assert.Equal(t, FieldDiff{Field: "state", Change: Modified, Old: "taken", New: "closed"}, closed["state"])

	rated := diffs[4].Changes
	require.Len(t, rated, 1)
	assert.Equal(t, FieldDiff{Field: "rating", Change: Modified, Old: "0", New: "5"}, rated[0])

	assert.Equal(t, model.JobStateClosed, diffs[4].Job.State)
	assert.Equal(t, uint16(5), diffs[4].Job.Rating)
}

func TestComputeDiffsDeterministic(t *testing.T) {
	events := ratedScenario(t)
	seq := ComputeDiffs(events)

	first, err := Collect(seq)
	require.NoError(t, err)
	second, err := Collect(seq)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestComputeDiffsSortsByID(t *testing.T) {
	events := ratedScenario(t)
	shuffled := []model.JobEvent{events[3], events[0], events[4], events[2], events[1]}

	want, err := Collect(ComputeDiffs(events))
	require.NoError(t, err)
	got, err := Collect(ComputeDiffs(shuffled))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, model.JobEventTaken, shuffled[4].Type, "input slice must not be reordered")
}

func TestComputeDiffsEarlyStop(t *testing.T) {
	seen := 0
	for diff, err := range ComputeDiffs(ratedScenario(t)) {
		require.NoError(t, err)
		seen++
		if diff.Event.Type == model.JobEventTaken {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestComputeDiffsWhitelistRemoval(t *testing.T) {
	events := ratedScenario(t)[:1]
	events = append(events,
		event(t, 2, model.JobEventWhitelistedWorkerAdded, worker, nil),
		event(t, 3, model.JobEventWhitelistedWorkerRemoved, worker, nil),
	)

	diffs, err := Collect(ComputeDiffs(events))
	require.NoError(t, err)
	require.Len(t, diffs, 3)
	assert.Equal(t, []FieldDiff{{Field: "allowed_workers[0]", Change: Added, New: worker.Hex()}}, diffs[1].Changes)
	assert.Equal(t, []FieldDiff{{Field: "allowed_workers[0]", Change: Removed, Old: worker.Hex()}}, diffs[2].Changes)
}

func TestComputeDiffsErrors(t *testing.T) {
	events := ratedScenario(t)

	t.Run("missing created", func(t *testing.T) {
		_, err := Collect(ComputeDiffs(events[1:]))
		require.Error(t, err)
	})

	t.Run("mixed jobs", func(t *testing.T) {
		mixed := append([]model.JobEvent(nil), events...)
		mixed[2].JobID = 8
		diffs, err := Collect(ComputeDiffs(mixed))
		require.Error(t, err)
		assert.Len(t, diffs, 2)
	})

	t.Run("empty", func(t *testing.T) {
		diffs, err := Collect(ComputeDiffs(nil))
		require.NoError(t, err)
		assert.Empty(t, diffs)
	})
}
