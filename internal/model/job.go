package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// JobState is the lifecycle state of a job.
type JobState uint8

const (
	JobStateOpen JobState = iota
	JobStateTaken
	JobStateClosed
)

func (s JobState) String() string {
	switch s {
	case JobStateOpen:
		return "open"
	case JobStateTaken:
		return "taken"
	case JobStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// JobRoles holds the participant addresses of a job.
type JobRoles struct {
	Creator    common.Address `json:"creator"`
	Worker     common.Address `json:"worker"`
	Arbitrator common.Address `json:"arbitrator"`
}

// Job is the derived state of one marketplace job.
type Job struct {
	ID                 uint64           `json:"id"`
	State              JobState         `json:"state"`
	Roles              JobRoles         `json:"roles"`
	Title              string           `json:"title"`
	ContentHash        common.Hash      `json:"content_hash"`
	MultipleApplicants bool             `json:"multiple_applicants"`
	Tags               []string         `json:"tags"`
	Token              common.Address   `json:"token"`
	Amount             *big.Int         `json:"amount"`
	MaxTime            uint32           `json:"max_time"`
	DeliveryMethod     string           `json:"delivery_method"`
	CollateralOwed     *big.Int         `json:"collateral_owed"`
	EscrowID           *big.Int         `json:"escrow_id"`
	ResultHash         common.Hash      `json:"result_hash"`
	Rating             uint16           `json:"rating"`
	Disputed           bool             `json:"disputed"`
	WhitelistWorkers   bool             `json:"whitelist_workers"`
	AllowedWorkers     []common.Address `json:"allowed_workers"`
	Timestamp          uint64           `json:"timestamp"`
}

// Clone returns a deep copy so that callers can mutate the result freely.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	out.Tags = append([]string(nil), j.Tags...)
	out.AllowedWorkers = append([]common.Address(nil), j.AllowedWorkers...)
	out.Amount = cloneBig(j.Amount)
	out.CollateralOwed = cloneBig(j.CollateralOwed)
	out.EscrowID = cloneBig(j.EscrowID)
	return &out
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
