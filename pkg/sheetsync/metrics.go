package sheetsync

import "time"

// Metrics defines the interface for tracking upserts and table performance.
type Metrics interface {
	// RecordUpsert records the outcome of an upsert ("created", "updated" or "error").
	RecordUpsert(action string)

	// RecordStoreOperation records the duration and status of a table operation
	// ("find", "write_cell", "append_row").
	RecordStoreOperation(operation string, duration time.Duration, err error)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordUpsert(action string)                                               {}
func (n *NoopMetrics) RecordStoreOperation(operation string, duration time.Duration, err error) {}
