package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/sbilibin2017/gw-ledger/internal/models"
)

// Exit codes for CLI commands.
const (
	ExitSuccess  = 0  // Successful execution
	ExitFailure  = 1  // The ledger rejected the operation
	ExitUsage    = 2  // Bad arguments, flags or configuration
	ExitTempFail = 75 // Lock timeout or storage failure; retrying may succeed
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Ledger errors that are
// worth retrying map to ExitTempFail.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if models.IsRetryable(err) {
		return ExitTempFail
	}
	return ExitFailure
}

// ledgerError wraps an error returned by the engine or the account service.
func ledgerError(message string, err error) error {
	if errors.Is(err, models.ErrInvalidAmount) || errors.Is(err, models.ErrSelfTransfer) {
		return WrapExitError(ExitUsage, message, err)
	}
	return fmt.Errorf("%s: %w", message, err)
}

// printer writes either one JSON document or human-readable text.
type printer struct {
	format string
	w      io.Writer
}

func (p printer) print(data any, text func(w io.Writer)) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	text(p.w)
	return nil
}
