package table

import "errors"

var (
	// ErrDuplicateKey is returned when an insert violates primary-key uniqueness
	ErrDuplicateKey = errors.New("duplicate primary key")
	// ErrNotFound is returned for operations on an absent or deleted key
	ErrNotFound = errors.New("record not found")
	// ErrInvalidUpdate is returned when an update tries to set the key column
	ErrInvalidUpdate = errors.New("invalid update: key column cannot be changed")
	// ErrSchemaMismatch is returned when a value list does not match the table width
	ErrSchemaMismatch = errors.New("value count does not match table columns")
	// ErrBrokenChain is returned when an indirection walk fails to terminate
	ErrBrokenChain = errors.New("indirection chain does not terminate at base record")
)
