package sheetsync

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config holds upsert engine configuration
type Config struct {
	// Metrics is used for tracking upserts and table latency (default: NoopMetrics)
	Metrics Metrics

	// Logger is used for structured logging (default: NoopLogger)
	Logger Logger
}

// Engine reconciles customer records into a Table.
//
// The engine keeps no state of its own. Repeated upserts for the same customer
// converge to one row carrying the most recently processed status: ordering is
// the order in which calls reach the engine, not the provider's event order, so
// a late redelivery can move a status backwards. Lookup is a linear scan of the
// identifier column, sized for hundreds to low thousands of rows.
type Engine struct {
	table   Table
	metrics Metrics
	logger  Logger
}

// NewEngine creates an upsert engine over table.
func NewEngine(table Table, config Config) (*Engine, error) {
	if table == nil {
		return nil, fmt.Errorf("table is required")
	}

	if config.Metrics == nil {
		config.Metrics = &NoopMetrics{}
	}
	if config.Logger == nil {
		config.Logger = &NoopLogger{}
	}

	return &Engine{
		table:   table,
		metrics: config.Metrics,
		logger:  config.Logger,
	}, nil
}

// FindCustomerRow returns the row holding customerID, if any.
func (e *Engine) FindCustomerRow(ctx context.Context, customerID string) (int, bool, error) {
	start := time.Now()
	row, ok, err := e.table.Find(ctx, ColumnCustomerID, customerID)
	e.metrics.RecordStoreOperation("find", time.Since(start), err)
	if err != nil {
		e.logger.Error("failed to find customer row",
			Field{"customer_id", customerID},
			Field{"error", err.Error()},
		)
		return 0, false, fmt.Errorf("%w: find customer %s: %w", ErrStoreFault, customerID, err)
	}
	return row, ok, nil
}

// UpsertCustomer updates the status and last-updated cells of the customer's
// existing row, or appends a complete new row when none exists.
func (e *Engine) UpsertCustomer(ctx context.Context, rec CustomerRecord) (Action, error) {
	if strings.TrimSpace(rec.CustomerID) == "" {
		return "", fmt.Errorf("%w: customer ID is required", ErrInvalidRecord)
	}

	row, ok, err := e.FindCustomerRow(ctx, rec.CustomerID)
	if err != nil {
		e.metrics.RecordUpsert("error")
		return "", err
	}

	var action Action
	if ok {
		action, err = e.updateExisting(ctx, row, rec)
	} else {
		action, err = e.appendNew(ctx, rec)
	}
	if err != nil {
		e.metrics.RecordUpsert("error")
		return "", err
	}

	e.metrics.RecordUpsert(string(action))
	return action, nil
}

func (e *Engine) updateExisting(ctx context.Context, row int, rec CustomerRecord) (Action, error) {
	cells := []struct {
		column int
		value  string
	}{
		{ColumnStatus, rec.Status},
		{ColumnLastUpdated, rec.FormattedTimestamp()},
	}

	for _, c := range cells {
		start := time.Now()
		err := e.table.WriteCell(ctx, row, c.column, c.value)
		e.metrics.RecordStoreOperation("write_cell", time.Since(start), err)
		if err != nil {
			e.logger.Error("failed to update customer",
				Field{"customer_id", rec.CustomerID},
				Field{"row", row},
				Field{"column", c.column},
				Field{"error", err.Error()},
			)
			return "", fmt.Errorf("%w: update customer %s at row %d: %w", ErrStoreFault, rec.CustomerID, row, err)
		}
	}

	e.logger.Info("updated existing customer",
		Field{"customer_id", rec.CustomerID},
		Field{"row", row},
		Field{"status", rec.Status},
	)
	return ActionUpdated, nil
}

func (e *Engine) appendNew(ctx context.Context, rec CustomerRecord) (Action, error) {
	start := time.Now()
	err := e.table.AppendRow(ctx, NewRow(rec))
	e.metrics.RecordStoreOperation("append_row", time.Since(start), err)
	if err != nil {
		e.logger.Error("failed to append customer",
			Field{"customer_id", rec.CustomerID},
			Field{"error", err.Error()},
		)
		return "", fmt.Errorf("%w: append customer %s: %w", ErrStoreFault, rec.CustomerID, err)
	}

	e.logger.Info("appended new customer",
		Field{"customer_id", rec.CustomerID},
		Field{"status", rec.Status},
	)
	return ActionCreated, nil
}
