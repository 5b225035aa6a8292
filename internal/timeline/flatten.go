package timeline

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"

	"jobScope/internal/model"
)

// flatten renders a job as a map from field path to its canonical string.
// Nested fields use dots and list elements use [i].
func flatten(job *model.Job) map[string]string {
	fields := map[string]string{
		"id":                  strconv.FormatUint(job.ID, 10),
		"state":               job.State.String(),
		"roles.creator":       job.Roles.Creator.Hex(),
		"roles.worker":        job.Roles.Worker.Hex(),
		"roles.arbitrator":    job.Roles.Arbitrator.Hex(),
		"title":               job.Title,
		"content_hash":        job.ContentHash.Hex(),
		"multiple_applicants": strconv.FormatBool(job.MultipleApplicants),
		"token":               job.Token.Hex(),
		"amount":              bigString(job.Amount),
		"max_time":            strconv.FormatUint(uint64(job.MaxTime), 10),
		"delivery_method":     job.DeliveryMethod,
		"collateral_owed":     bigString(job.CollateralOwed),
		"escrow_id":           bigString(job.EscrowID),
		"result_hash":         job.ResultHash.Hex(),
		"rating":              strconv.FormatUint(uint64(job.Rating), 10),
		"disputed":            strconv.FormatBool(job.Disputed),
		"whitelist_workers":   strconv.FormatBool(job.WhitelistWorkers),
		"timestamp":           strconv.FormatUint(job.Timestamp, 10),
	}
	for i, tag := range job.Tags {
		fields[fmt.Sprintf("tags[%d]", i)] = tag
	}
	for i, addr := range job.AllowedWorkers {
		fields[fmt.Sprintf("allowed_workers[%d]", i)] = addr.Hex()
	}
	return fields
}

// compare returns the changed paths between two flattened snapshots in
// lexical path order.
func compare(before, after map[string]string) []FieldDiff {
	paths := make([]string, 0, len(after))
	for path := range after {
		paths = append(paths, path)
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	var diffs []FieldDiff
	for _, path := range paths {
		old, hadOld := before[path]
		next, hasNew := after[path]
		switch {
		case hadOld && hasNew && old != next:
			diffs = append(diffs, FieldDiff{Field: path, Change: Modified, Old: old, New: next})
		case !hadOld && hasNew:
			diffs = append(diffs, FieldDiff{Field: path, Change: Added, New: next})
		case hadOld && !hasNew:
			diffs = append(diffs, FieldDiff{Field: path, Change: Removed, Old: old})
		}
	}
	return diffs
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
