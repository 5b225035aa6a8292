package jobstate

import "github.com/ethereum/go-ethereum/common"

// EffectKind names a side effect on an entity other than the job itself.
type EffectKind uint8

const (
	// EffectReputationUp increments a user's reputationUp counter.
	EffectReputationUp EffectKind = iota + 1
	// EffectReputationDown increments a user's reputationDown counter.
	EffectReputationDown
	// EffectRating folds a rating into the target user's average and creates a Review.
	EffectRating
	// EffectArbitrationSettled increments an arbitrator's settled count.
	EffectArbitrationSettled
	// EffectArbitrationRefused increments an arbitrator's refused count.
	EffectArbitrationRefused
)

func (k EffectKind) String() string {
	switch k {
	case EffectReputationUp:
		return "reputation_up"
	case EffectReputationDown:
		return "reputation_down"
	case EffectRating:
		return "rating"
	case EffectArbitrationSettled:
		return "arbitration_settled"
	case EffectArbitrationRefused:
		return "arbitration_refused"
	default:
		return "unknown"
	}
}

// Effect is a side effect produced by a transition. Target is the user or
// arbitrator address the effect applies to.
type Effect struct {
	Kind     EffectKind
	Target   common.Address
	Reviewer common.Address
	Rating   uint16
	Review   string
}

// TargetsArbitrator reports whether the effect applies to an Arbitrator
// rather than a User.
func (e Effect) TargetsArbitrator() bool {
	return e.Kind == EffectArbitrationSettled || e.Kind == EffectArbitrationRefused
}
