package sheetsync

import "errors"

var (
	// ErrStoreFault wraps any read or write failure against the underlying table
	ErrStoreFault = errors.New("record store fault")

	// ErrInvalidRecord is returned when a record cannot be written (e.g. empty customer ID)
	ErrInvalidRecord = errors.New("invalid customer record")

	// ErrCellOutOfRange is returned by tables when a row or column does not exist
	ErrCellOutOfRange = errors.New("cell out of range")
)
