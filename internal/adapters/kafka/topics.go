package kafka

// Topic definitions for the reconciliation event stream
const (
	// A materialized row was inserted or updated
	TopicRowUpdated = "features.row_updated"

	// The gap scanner found backfillable cells
	TopicGapFound = "features.gap_found"

	// A reconciliation batch finished (carries the run report)
	TopicRunCompleted = "features.run_completed"
)
