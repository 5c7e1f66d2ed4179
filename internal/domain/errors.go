package domain

import (
	"errors"
	"fmt"
)

// Local validation errors. None of these are ever sent to the backend.
var (
	ErrNoSelection             = errors.New("no task selected")
	ErrTaskNotFound            = errors.New("task not found in worksheet")
	ErrTaskAlreadyDone         = errors.New("task is already done")
	ErrTaskNotDone             = errors.New("task is not done")
	ErrInvalidStatusTransition = errors.New("invalid task status transition")
	ErrInvalidUndoTarget       = errors.New("undo target must be PENDING or EXECUTING")
	ErrAllocationRequired      = errors.New("task requires an inventory allocation before execution")
	ErrNoInventoryRequired     = errors.New("task does not require inventory allocation")
	ErrAlreadyAllocated        = errors.New("task already holds an inventory allocation")
	ErrUndoNotConfirmed        = errors.New("undo was not confirmed")

	ErrInvalidQuantity          = errors.New("quantity must not be negative")
	ErrQuantityExceedsAvailable = errors.New("quantity exceeds available quantity")
	ErrQuantityExceedsRequired  = errors.New("selected total exceeds required quantity")
	ErrInsufficientAllocation   = errors.New("selected total is less than required quantity")
	ErrExcessAllocation         = errors.New("selected total is greater than required quantity")
	ErrCandidateNotFound        = errors.New("inventory candidate not found")
	ErrNoAllocationSession      = errors.New("no allocation in progress")

	ErrIncompleteOrder       = errors.New("order has incomplete sets")
	ErrOrderAlreadyCompleted = errors.New("order is already completed")

	ErrGuideIncomplete     = errors.New("guided operation is not finished")
	ErrInvalidGuidePayload = errors.New("invalid operation guide payload")
	ErrUnknownGuide        = errors.New("unknown operation guide")
)

// ErrRefreshFailed means the backend accepted a change but the worksheet could
// not be re-read. The session is stale until the next successful refresh.
var ErrRefreshFailed = errors.New("change accepted but worksheet refresh failed")

// RemoteError is a non-success response from the worksheet backend.
// Message is the server's message, kept verbatim for the operator.
type RemoteError struct {
	Operation string
	Message   string
	Err       error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError wraps a transport or server failure of operation
func NewRemoteError(operation string, err error) *RemoteError {
	return &RemoteError{Operation: operation, Message: err.Error(), Err: err}
}

// IsRemote reports whether err came from the backend
func IsRemote(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote)
}
