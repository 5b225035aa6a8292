package jobstate

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"jobScope/internal/codec"
	"jobScope/internal/model"
)

// GracePeriod is the collateral window in seconds, measured from job.Timestamp.
const GracePeriod uint64 = 24 * 60 * 60

// ErrJobNotFound is returned for any non-Created event on a job that has no
// prior Created event.
var ErrJobNotFound = errors.New("job not found")

// Apply computes the next state of job for one event. job may be nil only for
// Created. The input job is never mutated; the returned job is a fresh copy.
// Effects describe the changes to users and arbitrators implied by the event.
func Apply(job *model.Job, ev codec.JobEventLog, payload codec.JobPayload) (*model.Job, []Effect, error) {
	if ev.Type == model.JobEventCreated {
		if job != nil {
			return job.Clone(), nil, nil
		}
		created, ok := payload.Details.(model.JobCreatedDetails)
		if !ok {
			return nil, nil, fmt.Errorf("job %d: created event without created details", ev.JobID)
		}
		return newJob(ev, created), nil, nil
	}
	if job == nil {
		return nil, nil, fmt.Errorf("job %d: %s: %w", ev.JobID, ev.Type, ErrJobNotFound)
	}

	next := job.Clone()
	var effects []Effect

	switch ev.Type {
	case model.JobEventTaken, model.JobEventPaid:
		next.Roles.Worker = ev.Address
		next.State = model.JobStateTaken
		next.EscrowID = valueOrZero(payload.EscrowID)
	case model.JobEventUpdated:
		updated, ok := payload.Details.(model.JobUpdatedDetails)
		if !ok {
			return nil, nil, fmt.Errorf("job %d: updated event without updated details", ev.JobID)
		}
		applyUpdate(next, updated, ev.Timestamp)
	case model.JobEventCompleted:
		next.State = model.JobStateClosed
	case model.JobEventDelivered:
		next.ResultHash = payload.ResultHash
		effects = append(effects, Effect{Kind: EffectReputationUp, Target: next.Roles.Worker})
	case model.JobEventClosed:
		next.State = model.JobStateClosed
		if PastGracePeriod(next, ev.Timestamp) {
			next.CollateralOwed = new(big.Int)
		} else {
			next.CollateralOwed.Add(next.CollateralOwed, next.Amount)
		}
	case model.JobEventReopened:
		next.State = model.JobStateOpen
		next.ResultHash = common.Hash{}
		next.Timestamp = ev.Timestamp
		if next.CollateralOwed.Cmp(next.Amount) < 0 {
			next.CollateralOwed = new(big.Int)
		} else {
			next.CollateralOwed.Sub(next.CollateralOwed, next.Amount)
		}
	case model.JobEventRated:
		rated, ok := payload.Details.(model.JobRatedDetails)
		if !ok {
			return nil, nil, fmt.Errorf("job %d: rated event without rated details", ev.JobID)
		}
		next.Rating = rated.Rating
		effects = append(effects, Effect{
			Kind:     EffectRating,
			Target:   next.Roles.Worker,
			Reviewer: next.Roles.Creator,
			Rating:   rated.Rating,
			Review:   rated.Review,
		})
	case model.JobEventRefunded:
		if ev.Address == next.Roles.Worker {
			next.AllowedWorkers = without(next.AllowedWorkers, next.Roles.Worker)
			effects = append(effects, Effect{Kind: EffectReputationDown, Target: next.Roles.Worker})
		}
		next.Roles.Worker = common.Address{}
		next.State = model.JobStateOpen
		next.EscrowID = new(big.Int)
	case model.JobEventDisputed:
		next.Disputed = true
	case model.JobEventArbitrated:
		arbitrated, ok := payload.Details.(model.JobArbitratedDetails)
		if !ok {
			return nil, nil, fmt.Errorf("job %d: arbitrated event without arbitrated details", ev.JobID)
		}
		next.State = model.JobStateClosed
		next.CollateralOwed.Add(next.CollateralOwed, valueOrZero(arbitrated.CreatorAmount))
		effects = append(effects, Effect{Kind: EffectArbitrationSettled, Target: next.Roles.Arbitrator})
	case model.JobEventArbitrationRefused:
		// The counter lands on the cleared arbitrator slot, not the refusing arbitrator.
		next.Roles.Arbitrator = common.Address{}
		effects = append(effects, Effect{Kind: EffectArbitrationRefused, Target: next.Roles.Arbitrator})
	case model.JobEventWhitelistedWorkerAdded:
		if !contains(next.AllowedWorkers, ev.Address) {
			next.AllowedWorkers = append(next.AllowedWorkers, ev.Address)
		}
	case model.JobEventWhitelistedWorkerRemoved:
		next.AllowedWorkers = without(next.AllowedWorkers, ev.Address)
	case model.JobEventCollateralWithdrawn:
		next.CollateralOwed = new(big.Int)
	case model.JobEventSigned, model.JobEventOwnerMessage, model.JobEventWorkerMessage, model.JobEventArbitratorChanged:
		// recorded only
	default:
		// unknown types are recorded without effect
	}

	return next, effects, nil
}

// PastGracePeriod reports whether ts is at least GracePeriod after the job's timestamp.
func PastGracePeriod(job *model.Job, ts uint64) bool {
	return ts >= job.Timestamp+GracePeriod
}

func newJob(ev codec.JobEventLog, created model.JobCreatedDetails) *model.Job {
	return &model.Job{
		ID:                 ev.JobID,
		State:              model.JobStateOpen,
		Roles:              model.JobRoles{Creator: ev.Address, Arbitrator: created.Arbitrator},
		Title:              created.Title,
		ContentHash:        created.ContentHash,
		MultipleApplicants: created.MultipleApplicants,
		Tags:               append([]string(nil), created.Tags...),
		Token:              created.Token,
		Amount:             valueOrZero(created.Amount),
		MaxTime:            created.MaxTime,
		DeliveryMethod:     created.DeliveryMethod,
		CollateralOwed:     new(big.Int),
		EscrowID:           new(big.Int),
		WhitelistWorkers:   created.WhitelistWorkers,
		Timestamp:          ev.Timestamp,
	}
}

func applyUpdate(job *model.Job, updated model.JobUpdatedDetails, ts uint64) {
	job.Title = updated.Title
	job.ContentHash = updated.ContentHash
	job.Tags = append([]string(nil), updated.Tags...)
	job.MaxTime = updated.MaxTime
	job.Roles.Arbitrator = updated.Arbitrator
	job.WhitelistWorkers = updated.WhitelistWorkers

	amount := valueOrZero(updated.Amount)
	switch amount.Cmp(job.Amount) {
	case 1:
		job.CollateralOwed = new(big.Int)
	case -1:
		if PastGracePeriod(job, ts) {
			job.CollateralOwed = new(big.Int)
		} else {
			job.CollateralOwed.Add(job.CollateralOwed, new(big.Int).Sub(job.Amount, amount))
		}
	default:
		return
	}
	job.Amount = amount
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

func contains(list []common.Address, addr common.Address) bool {
	for _, item := range list {
		if item == addr {
			return true
		}
	}
	return false
}

func without(list []common.Address, addr common.Address) []common.Address {
	out := make([]common.Address, 0, len(list))
	for _, item := range list {
		if item != addr {
			out = append(out, item)
		}
	}
	return out
}
