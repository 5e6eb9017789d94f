package sheetsync

import "context"

// Table is a row-addressable key/value table, the shape of a single worksheet.
// Rows and columns are 1-based. Implementations must be safe for concurrent use,
// but no cross-call atomicity is required: Find followed by AppendRow is not a
// transaction.
type Table interface {
	// Find returns the first row whose cell in column matches value.
	// Matching is case-insensitive and ignores surrounding whitespace in the stored cell.
	// ok is false when no row matches.
	Find(ctx context.Context, column int, value string) (row int, ok bool, err error)

	// ReadCell returns the value stored at (row, column).
	ReadCell(ctx context.Context, row, column int) (string, error)

	// WriteCell overwrites the value stored at (row, column).
	WriteCell(ctx context.Context, row, column int, value string) error

	// AppendRow adds a row after the last populated row.
	AppendRow(ctx context.Context, values []string) error
}
