package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when sender lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidState is returned when vault is in a state that doesn't allow the operation.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidArgument is returned for zero amounts, bad addresses and bound violations.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when vault doesn't exist.
	ErrNotFound = fmt.Errorf("%w: vault not found", ErrInvalidArgument)
	// ErrNoProgress is returned when withdraw is called before a cycle completed.
	ErrNoProgress = errors.New("no progress")
	// ErrOverflow is returned when amount or balance computation would overflow.
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrTransferFailed is returned when funds couldn't be transferred to the recipient.
	ErrTransferFailed = errors.New("transfer failed")
)

// Category returns the name of the error category, or "internal" for errors outside categories.
func Category(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrNoProgress):
		return "no_progress"
	case errors.Is(err, ErrOverflow):
		return "overflow"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	}
	return "internal"
}
