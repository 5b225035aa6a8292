package indexer

import "fmt"

// BlockRange is an inclusive range of block numbers.
type BlockRange struct {
	From uint64
	To   uint64
}

// Len is the number of blocks in the range.
func (r BlockRange) Len() uint64 {
	return r.To - r.From + 1
}

// SplitRange cuts [from, to] into consecutive ranges of at most batchSize
// blocks.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("invalid range: to %d is before from %d", to, from)
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; start += batchSize {
		if to-start < batchSize {
			return append(ranges, BlockRange{From: start, To: to}), nil
		}
		ranges = append(ranges, BlockRange{From: start, To: start + batchSize - 1})
	}
}

// SafeHead is the highest block considered final given a confirmation depth.
// It reports false while the chain is shorter than the depth.
func SafeHead(head, confirmations uint64) (uint64, bool) {
	if head < confirmations {
		return 0, false
	}
	return head - confirmations, true
}
