package jobstate

import (
	"errors"
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

func created(amount int64, ts uint64) (codec.JobEventLog, codec.JobPayload) {
	return codec.JobEventLog{JobID: 7, Type: model.JobEventCreated, Address: creator, Timestamp: ts},
		codec.JobPayload{Details: model.JobCreatedDetails{
			Title:      "write tests",
			Tags:       []string{"go"},
			Amount:     big.NewInt(amount),
			MaxTime:    3600,
			Arbitrator: arbitrator,
		}}
}

func updated(amount int64, ts uint64) (codec.JobEventLog, codec.JobPayload) {
	return codec.JobEventLog{JobID: 7, Type: model.JobEventUpdated, Address: creator, Timestamp: ts},
		codec.JobPayload{Details: model.JobUpdatedDetails{
			Title:      "write more tests",
			Tags:       []string{"go", "tests"},
			Amount:     big.NewInt(amount),
			MaxTime:    7200,
			Arbitrator: arbitrator,
		}}
}

func simple(eventType model.JobEventType, addr common.Address, ts uint64) (codec.JobEventLog, codec.JobPayload) {
	return codec.JobEventLog{JobID: 7, Type: eventType, Address: addr, Timestamp: ts}, codec.JobPayload{}
}

// mustApply returns a function so that event constructors can be passed directly.
func mustApply(t *testing.T, job *model.Job) func(codec.JobEventLog, codec.JobPayload) (*model.Job, []Effect) {
	return func(ev codec.JobEventLog, payload codec.JobPayload) (*model.Job, []Effect) {
		t.Helper()
		next, effects, err := Apply(job, ev, payload)
		require.NoError(t, err)
		return next, effects
	}
}

func TestApplyCreatedInitializesJob(t *testing.T) {
	job, effects := mustApply(t, nil)(created(100, baseTime))
	assert.Empty(t, effects)
	assert.Equal(t, model.JobStateOpen, job.State)
	assert.Equal(t, creator, job.Roles.Creator)
	assert.Equal(t, common.Address{}, job.Roles.Worker)
	assert.Equal(t, arbitrator, job.Roles.Arbitrator)
	assert.Equal(t, int64(100), job.Amount.Int64())
	assert.Zero(t, job.CollateralOwed.Sign())
	assert.Zero(t, job.EscrowID.Sign())
	assert.Equal(t, baseTime, job.Timestamp)
}

func TestApplyCreatedOnExistingJobKeepsState(t *testing.T) {
	job, _ := mustApply(t, nil)(created(100, baseTime))
	job.State = model.JobStateTaken

	again, _ := mustApply(t, job)(created(500, baseTime+10))
	assert.Equal(t, model.JobStateTaken, again.State)
	assert.Equal(t, int64(100), again.Amount.Int64())
}

func TestApplyRequiresCreated(t *testing.T) {
	ev, payload := simple(model.JobEventCompleted, creator, baseTime)
	_, _, err := Apply(nil, ev, payload)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	job, _ := mustApply(t, nil)(created(100, baseTime))
	before := job.Clone()

	_, _ = mustApply(t, job)(updated(40, baseTime+10))
	_, _ = mustApply(t, job)(simple(model.JobEventWhitelistedWorkerAdded, worker, baseTime+20))
	_, _ = mustApply(t, job)(simple(model.JobEventClosed, creator, baseTime+30))

	assert.Equal(t, before, job)
}

func TestDeliveredAndRatedScenario(t *testing.T) {
	job, _ := mustApply(t, nil)(created(100, baseTime))

	takenEv, _ := simple(model.JobEventTaken, worker, baseTime+60)
	job, _ = mustApply(t, job)(takenEv, codec.JobPayload{EscrowID: big.NewInt(5)})
	assert.Equal(t, int64(5), job.EscrowID.Int64())
	assert.Equal(t, worker, job.Roles.Worker)

	result := common.HexToHash("0x0abc")
	deliveredEv, _ := simple(model.JobEventDelivered, worker, baseTime+120)
	job, effects := mustApply(t, job)(deliveredEv, codec.JobPayload{ResultHash: result})
	assert.Equal(t, result, job.ResultHash)
	require.Len(t, effects, 1)
	assert.Equal(t, Effect{Kind: EffectReputationUp, Target: worker}, effects[0])

	ratedEv, _ := simple(model.JobEventRated, creator, baseTime+180)
	job, effects = mustApply(t, job)(ratedEv, codec.JobPayload{Details: model.JobRatedDetails{Rating: 4, Review: "good"}})
	assert.Equal(t, model.JobStateTaken, job.State)
	assert.Equal(t, uint16(4), job.Rating)
	require.Len(t, effects, 1)
	assert.Equal(t, Effect{Kind: EffectRating, Target: worker, Reviewer: creator, Rating: 4, Review: "good"}, effects[0])
}

func TestUpdateThenCloseMeasuresFromOriginalTimestamp(t *testing.T) {
	job, _ := mustApply(t, nil)(created(100, baseTime))

	job, _ = mustApply(t, job)(updated(40, baseTime+10*3600))
	assert.Equal(t, int64(60), job.CollateralOwed.Int64())
	assert.Equal(t, int64(40), job.Amount.Int64())
	assert.Equal(t, baseTime, job.Timestamp)

	job, _ = mustApply(t, job)(simple(model.JobEventClosed, creator, baseTime+30*3600))
	assert.Equal(t, model.JobStateClosed, job.State)
	assert.Zero(t, job.CollateralOwed.Sign())
}

func TestUpdateWithSameAmountKeepsCollateral(t *testing.T) {
	job, _ := mustApply(t, nil)(created(100, baseTime))
	job.CollateralOwed = big.NewInt(25)

	job, _ = mustApply(t, job)(updated(100, baseTime+10))
	assert.Equal(t, int64(25), job.CollateralOwed.Int64())
	assert.Equal(t, "write more tests", job.Title)
}

func TestReopenedReducesCollateral(t *testing.T) {
	job, _ := mustApply(t, nil)(created(100, baseTime))
	job, _ = mustApply(t, job)(simple(model.JobEventClosed, creator, baseTime+60))
	job.CollateralOwed = big.NewInt(150)

	job, _ = mustApply(t, job)(simple(model.JobEventReopened, creator, baseTime+120))
	assert.Equal(t, model.JobStateOpen, job.State)
	assert.Equal(t, int64(50), job.CollateralOwed.Int64())
	assert.Equal(t, baseTime+120, job.Timestamp)

	job, _ = mustApply(t, job)(simple(model.JobEventReopened, creator, baseTime+180))
	assert.Zero(t, job.CollateralOwed.Sign())
}

func TestRefundedByWorker(t *testing.T) {
	job, _ := mustApply(t, nil)(created(100, baseTime))
	job, _ = mustApply(t, job)(simple(model.JobEventWhitelistedWorkerAdded, worker, baseTime+1))
	job, _ = mustApply(t, job)(simple(model.JobEventWhitelistedWorkerAdded, worker, baseTime+2))
	require.Len(t, job.AllowedWorkers, 1)

	takenEv, _ := simple(model.JobEventTaken, worker, baseTime+3)
	job, _ = mustApply(t, job)(takenEv, codec.JobPayload{EscrowID: big.NewInt(9)})

	job, effects := mustApply(t, job)(simple(model.JobEventRefunded, worker, baseTime+4))
	assert.Equal(t, model.JobStateOpen, job.State)
	assert.Equal(t, common.Address{}, job.Roles.Worker)
	assert.Zero(t, job.EscrowID.Sign())
	assert.Empty(t, job.AllowedWorkers)
	require.Len(t, effects, 1)
	assert.Equal(t, EffectReputationDown, effects[0].Kind)
	assert.Equal(t, worker, effects[0].Target)
}

func TestRefundedByCreatorHasNoReputationEffect(t *testing.T) {
	job, _ := mustApply(t, nil)(created(100, baseTime))
	takenEv, _ := simple(model.JobEventTaken, worker, baseTime+3)
	job, _ = mustApply(t, job)(takenEv, codec.JobPayload{EscrowID: big.NewInt(9)})

	job, effects := mustApply(t, job)(simple(model.JobEventRefunded, creator, baseTime+4))
	assert.Empty(t, effects)
	assert.Equal(t, common.Address{}, job.Roles.Worker)
}

func TestArbitration(t *testing.T) {
	job, _ := mustApply(t, nil)(created(100, baseTime))
	job, _ = mustApply(t, job)(simple(model.JobEventDisputed, creator, baseTime+5))
	assert.True(t, job.Disputed)

	arbitratedEv, _ := simple(model.JobEventArbitrated, arbitrator, baseTime+10)
	settled, effects := mustApply(t, job)(arbitratedEv, codec.JobPayload{Details: model.JobArbitratedDetails{
		CreatorAmount: big.NewInt(30),
		WorkerAmount:  big.NewInt(70),
	}})
	assert.Equal(t, model.JobStateClosed, settled.State)
	assert.Equal(t, int64(30), settled.CollateralOwed.Int64())
	assert.Equal(t, []Effect{{Kind: EffectArbitrationSettled, Target: arbitrator}}, effects)

	refused, effects := mustApply(t, job)(simple(model.JobEventArbitrationRefused, arbitrator, baseTime+10))
	assert.Equal(t, common.Address{}, refused.Roles.Arbitrator)
	assert.Equal(t, []Effect{{Kind: EffectArbitrationRefused, Target: common.Address{}}}, effects)
	assert.True(t, effects[0].TargetsArbitrator())
}

func TestWhitelistRemovalFiltersAllEntries(t *testing.T) {
	job, _ := mustApply(t, nil)(created(100, baseTime))
	job.AllowedWorkers = []common.Address{worker, creator, worker}

	job, _ = mustApply(t, job)(simple(model.JobEventWhitelistedWorkerRemoved, worker, baseTime+1))
	assert.Equal(t, []common.Address{creator}, job.AllowedWorkers)
}

func TestCollateralWithdrawn(t *testing.T) {
	job, _ := mustApply(t, nil)(created(100, baseTime))
	job.CollateralOwed = big.NewInt(80)

	job, _ = mustApply(t, job)(simple(model.JobEventCollateralWithdrawn, creator, baseTime+1))
	assert.Zero(t, job.CollateralOwed.Sign())
}

func TestMissingDetailsIsAnError(t *testing.T) {
	job, _ := mustApply(t, nil)(created(100, baseTime))
	for _, eventType := range []model.JobEventType{model.JobEventUpdated, model.JobEventRated, model.JobEventArbitrated} {
		ev, payload := simple(eventType, creator, baseTime+1)
		_, _, err := Apply(job, ev, payload)
		assert.Error(t, err, eventType.String())
	}
	ev, payload := simple(model.JobEventCreated, creator, baseTime)
	_, _, err := Apply(nil, ev, payload)
	assert.Error(t, err)
}
