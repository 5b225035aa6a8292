// Package timeline replays the stored events of one job and reports, per
// event, which job fields changed.
package timeline

import (
	"fmt"
	"iter"
	"sort"

	"jobScope/internal/codec"
	"jobScope/internal/jobstate"
	"jobScope/internal/model"
)

// Change classifies a field difference.
type Change string

const (
	Added    Change = "added"
	Removed  Change = "removed"
	Modified Change = "modified"
)

// FieldDiff is one changed field.
type FieldDiff struct {
	Field  string `json:"field"`
	Change Change `json:"change"`
	Old    string `json:"old,omitempty"`
	New    string `json:"new,omitempty"`
}

// EventDiff pairs an event with the job snapshot after it and the fields it changed.
type EventDiff struct {
	Event   model.JobEvent `json:"event"`
	Job     *model.Job     `json:"job"`
	Changes []FieldDiff    `json:"changes"`
}

// ComputeDiffs replays events against a local snapshot that starts from an
// empty job. The events must all belong to one job; they are replayed in id
// order. The sequence is lazy and can be ranged over any number of times
// with identical results. A replay error is yielded once and ends the
// sequence.
func ComputeDiffs(events []model.JobEvent) iter.Seq2[EventDiff, error] {
	ordered := append([]model.JobEvent(nil), events...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	return func(yield func(EventDiff, error) bool) {
		var (
			job    *model.Job
			before = flatten(&model.Job{})
		)
		for i, ev := range ordered {
			if i > 0 && ev.JobID != ordered[0].JobID {
				yield(EventDiff{Event: ev}, fmt.Errorf("event %s belongs to job %d, not %d", ev.ID, ev.JobID, ordered[0].JobID))
				return
			}
			next, err := replay(job, ev)
			if err != nil {
				yield(EventDiff{Event: ev}, err)
				return
			}
			after := flatten(next)
			if !yield(EventDiff{Event: ev, Job: next.Clone(), Changes: compare(before, after)}, nil) {
				return
			}
			job, before = next, after
		}
	}
}

// Collect drains a diff sequence, stopping at the first error.
func Collect(seq iter.Seq2[EventDiff, error]) ([]EventDiff, error) {
	var out []EventDiff
	for diff, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, diff)
	}
	return out, nil
}

func replay(job *model.Job, ev model.JobEvent) (*model.Job, error) {
	payload, err := codec.DecodeJobPayload(ev.Type, ev.Data)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	if ev.Details != nil {
		payload.Details = ev.Details
	}
	next, _, err := jobstate.Apply(job, codec.JobEventLog{
		JobID:     ev.JobID,
		Type:      ev.Type,
		Address:   ev.Address,
		Data:      ev.Data,
		Timestamp: ev.Timestamp,
	}, payload)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	return next, nil
}
