package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// User is a registered marketplace participant.
type User struct {
	Address         common.Address `json:"address"`
	PublicKey       hexutil.Bytes  `json:"public_key"`
	Name            string         `json:"name"`
	Bio             string         `json:"bio"`
	Avatar          string         `json:"avatar"`
	ReputationUp    uint32         `json:"reputation_up"`
	ReputationDown  uint32         `json:"reputation_down"`
	AverageRating   uint32         `json:"average_rating"`
	NumberOfReviews uint32         `json:"number_of_reviews"`
	RatingTotal     uint64         `json:"rating_total"`
}

// AddRating folds one rating into the running average. The average is kept
// as rating*10000 over the exact running total so that truncation never
// accumulates across reviews.
func (u *User) AddRating(rating uint16) {
	u.RatingTotal += uint64(rating)
	u.NumberOfReviews++
	u.AverageRating = uint32(u.RatingTotal * 10000 / uint64(u.NumberOfReviews))
}

// Arbitrator is a registered dispute arbitrator.
type Arbitrator struct {
	Address      common.Address `json:"address"`
	PublicKey    hexutil.Bytes  `json:"public_key"`
	Name         string         `json:"name"`
	Bio          string         `json:"bio"`
	Avatar       string         `json:"avatar"`
	Fee          uint16         `json:"fee"`
	SettledCount uint32         `json:"settled_count"`
	RefusedCount uint32         `json:"refused_count"`
}

// Review is created once per Rated event and never modified.
type Review struct {
	ID        string         `json:"id"`
	User      common.Address `json:"user"`
	Reviewer  common.Address `json:"reviewer"`
	JobID     uint64         `json:"job_id"`
	Rating    uint16         `json:"rating"`
	Text      string         `json:"text"`
	Timestamp uint64         `json:"timestamp"`
}
