package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sbilibin2017/gw-ledger/internal/logger"
	"github.com/sbilibin2017/gw-ledger/internal/models"
)

// RetryAfterSeconds is advertised on responses for retryable failures.
const RetryAfterSeconds = 1

// ErrorResponse is the body of every non-2xx ledger response
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// default: insufficient funds
	Error string `json:"error"`
}

// errorKinds lists the ledger errors a client may see, with their statuses.
// Order matters: when several kinds are joined the first match wins.
var errorKinds = []struct {
	err    error
	status int
}{
	{models.ErrInvalidAmount, http.StatusBadRequest},
	{models.ErrSelfTransfer, http.StatusBadRequest},
	{models.ErrAccountNotFound, http.StatusNotFound},
	{models.ErrReceiverNotFound, http.StatusNotFound},
	{models.ErrInsufficientFunds, http.StatusConflict},
	{models.ErrLockTimeout, http.StatusServiceUnavailable},
	{models.ErrStorageFailure, http.StatusServiceUnavailable},
	{context.Canceled, 499},
}

// classifyError returns the ledger error kind err matches and its HTTP status.
// Unknown errors map to 500 and a nil kind.
func classifyError(err error) (error, int) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.err, k.status
		}
	}
	return nil, http.StatusInternalServerError
}

// writeError writes the ledger error with its mapped status. The body carries
// only the text of the matched error kind; details stay in the log.
// Infrastructure faults carry a Retry-After header.
func writeError(w http.ResponseWriter, err error) {
	kind, status := classifyError(err)

	msg := "Internal server error"
	if kind != nil {
		msg = kind.Error()
	}

	switch {
	case status == http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
		logger.Log.Warnw("retryable ledger failure", "error", err)
	case status >= http.StatusInternalServerError:
		logger.Log.Errorw("unexpected ledger failure", "error", err)
	default:
		logger.Log.Debugw("ledger operation rejected", "status", status, "error", err)
	}

	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.Errorw("failed to encode response", "error", err)
	}
}

// accountIDFromRequest reads the accountID URL parameter.
func accountIDFromRequest(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeBadAccountID(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid account id"})
}
