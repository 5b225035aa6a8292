package model

// Block is one delivered block with its logs in emission order.
type Block struct {
	Number    uint64      `json:"number"`
	Timestamp uint64      `json:"timestamp"`
	Logs      []LogRecord `json:"logs"`
}

// GroupByBlock groups logs that are already ordered by (block, log index) into blocks.
func GroupByBlock(logs []LogRecord) []Block {
	blocks := make([]Block, 0)
	for _, log := range logs {
		n := len(blocks)
		if n == 0 || blocks[n-1].Number != log.BlockNumber {
			blocks = append(blocks, Block{Number: log.BlockNumber, Timestamp: log.Timestamp})
			n++
		}
		blocks[n-1].Logs = append(blocks[n-1].Logs, log)
	}
	return blocks
}
