package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")

	// Scheduler errors
	ErrJobUnknown = errors.New("job is not registered")
	ErrJobBusy    = errors.New("job already has a run in flight")

	// Subscription errors
	ErrDestinationRequired = errors.New("destination address is required for this channel")
)
