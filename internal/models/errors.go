package models

import "errors"

// Ledger error taxonomy. Validation errors are returned before any lock is taken;
// business-rule errors are recorded as FAILED transactions; ErrLockTimeout and
// ErrStorageFailure are infrastructure faults a caller may retry.
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrSelfTransfer      = errors.New("sender and receiver are the same account")
	ErrAccountNotFound   = errors.New("account not found")
	ErrReceiverNotFound  = errors.New("receiver account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrLockTimeout       = errors.New("timed out waiting for account lock")
	ErrStorageFailure    = errors.New("storage failure")
)

// IsRetryable reports whether err is an infrastructure fault worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrStorageFailure)
}
