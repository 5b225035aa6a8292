package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// JobEventType is the on-chain job event discriminator.
type JobEventType uint8

const (
	JobEventCreated                  JobEventType = 1
	JobEventTaken                    JobEventType = 2
	JobEventPaid                     JobEventType = 3
	JobEventUpdated                  JobEventType = 4
	JobEventSigned                   JobEventType = 5
	JobEventCompleted                JobEventType = 6
	JobEventDelivered                JobEventType = 7
	JobEventClosed                   JobEventType = 8
	JobEventReopened                 JobEventType = 9
	JobEventRated                    JobEventType = 10
	JobEventRefunded                 JobEventType = 11
	JobEventDisputed                 JobEventType = 12
	JobEventArbitrated               JobEventType = 13
	JobEventArbitratorChanged        JobEventType = 14
	JobEventArbitrationRefused       JobEventType = 15
	JobEventWhitelistedWorkerAdded   JobEventType = 16
	JobEventWhitelistedWorkerRemoved JobEventType = 17
	JobEventCollateralWithdrawn      JobEventType = 18
	JobEventWorkerMessage            JobEventType = 21
	JobEventOwnerMessage             JobEventType = 22
)

var jobEventNames = map[JobEventType]string{
	JobEventCreated:                  "Created",
	JobEventTaken:                    "Taken",
	JobEventPaid:                     "Paid",
	JobEventUpdated:                  "Updated",
	JobEventSigned:                   "Signed",
	JobEventCompleted:                "Completed",
	JobEventDelivered:                "Delivered",
	JobEventClosed:                   "Closed",
	JobEventReopened:                 "Reopened",
	JobEventRated:                    "Rated",
	JobEventRefunded:                 "Refunded",
	JobEventDisputed:                 "Disputed",
	JobEventArbitrated:               "Arbitrated",
	JobEventArbitratorChanged:        "ArbitratorChanged",
	JobEventArbitrationRefused:       "ArbitrationRefused",
	JobEventWhitelistedWorkerAdded:   "WhitelistedWorkerAdded",
	JobEventWhitelistedWorkerRemoved: "WhitelistedWorkerRemoved",
	JobEventCollateralWithdrawn:      "CollateralWithdrawn",
	JobEventWorkerMessage:            "WorkerMessage",
	JobEventOwnerMessage:             "OwnerMessage",
}

func (t JobEventType) String() string {
	if name, ok := jobEventNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(t))
}

// Known reports whether the type belongs to the event catalog.
func (t JobEventType) Known() bool {
	_, ok := jobEventNames[t]
	return ok
}

// JobEvent is an immutable ledger entry for one job-domain log.
type JobEvent struct {
	ID          string         `json:"id"`
	JobID       uint64         `json:"job_id"`
	Type        JobEventType   `json:"type"`
	Address     common.Address `json:"address"`
	Data        hexutil.Bytes  `json:"data"`
	Timestamp   uint64         `json:"timestamp"`
	BlockNumber uint64         `json:"block_number"`
	LogIndex    uint64         `json:"log_index"`
	Details     EventDetails   `json:"-"`
}
