package ingest

import "fmt"

// MissingEntityError reports an event whose counterpart user or arbitrator was
// never registered. It aborts the batch.
type MissingEntityError struct {
	Entity string
	ID     string
	LogID  string
}

func (e *MissingEntityError) Error() string {
	return fmt.Sprintf("log %s: %s %s not found", e.LogID, e.Entity, e.ID)
}
