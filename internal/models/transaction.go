package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the type of balance-affecting operation a record describes.
type Kind string

// Supported operation kinds
const (
	KindDeposit    Kind = "DEPOSIT"
	KindWithdrawal Kind = "WITHDRAWAL"
	KindTransfer   Kind = "TRANSFER"
)

// Outcome is the terminal state of an attempted operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailed  Outcome = "FAILED"
)

// Direction of a record relative to the account whose history is queried.
type Direction string

const (
	DirectionSent     Direction = "SENT"
	DirectionReceived Direction = "RECEIVED"
)

// Transaction is an immutable log entry for one attempted operation.
// ID is assigned by the transaction log at append time and grows monotonically.
type Transaction struct {
	ID            int64           `json:"transaction_id" db:"txn_id"`                       // Assigned on append
	SenderID      *int64          `json:"sender_account,omitempty" db:"sender_account"`     // Nil for deposits
	ReceiverID    *int64          `json:"receiver_account,omitempty" db:"receiver_account"` // Nil for withdrawals
	Amount        decimal.Decimal `json:"amount" db:"amount"`                               // Always positive
	Kind          Kind            `json:"kind" db:"kind"`                                   // DEPOSIT, WITHDRAWAL or TRANSFER
	Outcome       Outcome         `json:"outcome" db:"outcome"`                             // SUCCESS or FAILED
	FailureReason *string         `json:"failure_reason,omitempty" db:"failure_reason"`     // Set only for FAILED records
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`                       // Time of the attempt
}

// References reports whether the record names accountID as sender or receiver.
func (t Transaction) References(accountID int64) bool {
	return (t.SenderID != nil && *t.SenderID == accountID) ||
		(t.ReceiverID != nil && *t.ReceiverID == accountID)
}

// DirectionFor returns SENT when accountID is the sender, RECEIVED otherwise.
func (t Transaction) DirectionFor(accountID int64) Direction {
	if t.SenderID != nil && *t.SenderID == accountID {
		return DirectionSent
	}
	return DirectionReceived
}

// OperationRequest describes an intended mutation. It is never persisted.
type OperationRequest struct {
	Kind       Kind
	SenderID   *int64
	ReceiverID *int64
	Amount     decimal.Decimal
}

// Record builds the log entry for the request with the given outcome.
// A non-nil reason is stored only when the outcome is FAILED.
func (r OperationRequest) Record(outcome Outcome, reason error, now time.Time) Transaction {
	txn := Transaction{
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Amount:     r.Amount,
		Kind:       r.Kind,
		Outcome:    outcome,
		CreatedAt:  now,
	}
	if outcome == OutcomeFailed && reason != nil {
		msg := reason.Error()
		txn.FailureReason = &msg
	}
	return txn
}

// Result is returned by every successful ledger mutation.
type Result struct {
	Balance     decimal.Decimal // New balance of the debited or credited account
	Transaction Transaction     // The SUCCESS record appended for the operation
}
