// Package sheetsync reconciles customer lifecycle records into a row-oriented
// table, keeping exactly one row per customer identifier.
package sheetsync

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the format written to the last-updated column.
const TimestampLayout = "2006-01-02 15:04:05"

// Action reports what an upsert did to the table.
type Action string

const (
	// ActionCreated means a new row was appended
	ActionCreated Action = "created"
	// ActionUpdated means the status and last-updated cells of an existing row were overwritten
	ActionUpdated Action = "updated"
	// ActionIgnored is reported by callers for events that never reach the table
	ActionIgnored Action = "ignored"
)

// Table columns, 1-based in sheet order (A..J).
const (
	ColumnCustomerID = iota + 1
	ColumnCompanyName
	ColumnContactName
	ColumnEmail
	ColumnStatus
	ColumnAmount
	ColumnSetupCompleted
	ColumnLastUpdated
	ColumnCurrency
	ColumnCountry

	// ColumnCount is the width of a customer row
	ColumnCount = ColumnCountry
)

// SetupCompletedDefault is written to new rows. Nothing in this module sets it afterwards.
const SetupCompletedDefault = "FALSE"

// CustomerRecord is the normalized view of a single lifecycle event.
// It is built per event and never stored as is.
type CustomerRecord struct {
	CustomerID     string
	CompanyName    string
	Email          string
	SubscriptionID string
	Status         string

	// Amount is in major currency units (minor units already divided by 100)
	Amount   decimal.Decimal
	Currency string

	// Timestamp is the processing time, not the provider's event time
	Timestamp time.Time
	Country   string
}

// FormattedTimestamp returns the record timestamp in UTC using TimestampLayout.
func (r CustomerRecord) FormattedTimestamp() string {
	return r.Timestamp.UTC().Format(TimestampLayout)
}
