package model

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EventDetails is the decoded payload attached to a JobEvent. The set of
// implementations is closed: Created, Updated, Signed, Rated, Disputed,
// Arbitrated and Message.
type EventDetails interface {
	DetailsKind() string
}

// JobCreatedDetails is the decoded Created payload.
type JobCreatedDetails struct {
	Title              string         `json:"title"`
	ContentHash        common.Hash    `json:"content_hash"`
	MultipleApplicants bool           `json:"multiple_applicants"`
	Tags               []string       `json:"tags"`
	Token              common.Address `json:"token"`
	Amount             *big.Int       `json:"amount"`
	MaxTime            uint32         `json:"max_time"`
	DeliveryMethod     string         `json:"delivery_method"`
	Arbitrator         common.Address `json:"arbitrator"`
	WhitelistWorkers   bool           `json:"whitelist_workers"`
}

// JobUpdatedDetails is the decoded Updated payload.
type JobUpdatedDetails struct {
	Title            string         `json:"title"`
	ContentHash      common.Hash    `json:"content_hash"`
	Tags             []string       `json:"tags"`
	Amount           *big.Int       `json:"amount"`
	MaxTime          uint32         `json:"max_time"`
	Arbitrator       common.Address `json:"arbitrator"`
	WhitelistWorkers bool           `json:"whitelist_workers"`
}

// JobSignedDetails is the decoded Signed payload.
type JobSignedDetails struct {
	Revision  uint16        `json:"revision"`
	Signature hexutil.Bytes `json:"signature"`
}

// JobRatedDetails is the decoded Rated payload.
type JobRatedDetails struct {
	Rating uint16 `json:"rating"`
	Review string `json:"review"`
}

// JobDisputedDetails is the decoded Disputed payload. SealedSessionKey is the
// creator/worker session key sealed with the initiator/arbitrator key.
type JobDisputedDetails struct {
	SealedSessionKey hexutil.Bytes `json:"sealed_session_key"`
	ContentHash      common.Hash   `json:"content_hash"`
}

// JobArbitratedDetails is the decoded Arbitrated payload.
type JobArbitratedDetails struct {
	CreatorShare  uint16         `json:"creator_share"`
	CreatorAmount *big.Int       `json:"creator_amount"`
	WorkerShare   uint16         `json:"worker_share"`
	WorkerAmount  *big.Int       `json:"worker_amount"`
	ReasonHash    common.Hash    `json:"reason_hash"`
	WorkerAddress common.Address `json:"worker_address"`
}

// JobMessageDetails is the decoded Owner/WorkerMessage payload.
type JobMessageDetails struct {
	ContentHash common.Hash    `json:"content_hash"`
	Recipient   common.Address `json:"recipient"`
}

func (JobCreatedDetails) DetailsKind() string    { return "created" }
func (JobUpdatedDetails) DetailsKind() string    { return "updated" }
func (JobSignedDetails) DetailsKind() string     { return "signed" }
func (JobRatedDetails) DetailsKind() string      { return "rated" }
func (JobDisputedDetails) DetailsKind() string   { return "disputed" }
func (JobArbitratedDetails) DetailsKind() string { return "arbitrated" }
func (JobMessageDetails) DetailsKind() string    { return "message" }

type detailsEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalDetails encodes details as a tagged JSON document, or nil when absent.
func MarshalDetails(details EventDetails) ([]byte, error) {
	if details == nil {
		return nil, nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal %s details: %w", details.DetailsKind(), err)
	}
	return json.Marshal(detailsEnvelope{Kind: details.DetailsKind(), Data: data})
}

// UnmarshalDetails decodes a document produced by MarshalDetails.
func UnmarshalDetails(raw []byte) (EventDetails, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env detailsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse details: %w", err)
	}

	var (
		details EventDetails
		err     error
	)
	switch env.Kind {
	case "created":
		var d JobCreatedDetails
		err = json.Unmarshal(env.Data, &d)
		details = d
	case "updated":
		var d JobUpdatedDetails
		err = json.Unmarshal(env.Data, &d)
		details = d
	case "signed":
		var d JobSignedDetails
		err = json.Unmarshal(env.Data, &d)
		details = d
	case "rated":
		var d JobRatedDetails
		err = json.Unmarshal(env.Data, &d)
		details = d
	case "disputed":
		var d JobDisputedDetails
		err = json.Unmarshal(env.Data, &d)
		details = d
	case "arbitrated":
		var d JobArbitratedDetails
		err = json.Unmarshal(env.Data, &d)
		details = d
	case "message":
		var d JobMessageDetails
		err = json.Unmarshal(env.Data, &d)
		details = d
	default:
		return nil, fmt.Errorf("unknown details kind: %q", env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s details: %w", env.Kind, err)
	}
	return details, nil
}

// MarshalJSON includes the tagged details document.
func (e JobEvent) MarshalJSON() ([]byte, error) {
	type Alias JobEvent
	details, err := MarshalDetails(e.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Alias
		Details json.RawMessage `json:"details,omitempty"`
	}{Alias: Alias(e), Details: details})
}

// UnmarshalJSON restores the typed details variant.
func (e *JobEvent) UnmarshalJSON(data []byte) error {
	type Alias JobEvent
	var aux struct {
		Alias
		Details json.RawMessage `json:"details"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	details, err := UnmarshalDetails(aux.Details)
	if err != nil {
		return err
	}
	*e = JobEvent(aux.Alias)
	e.Details = details
	return nil
}
