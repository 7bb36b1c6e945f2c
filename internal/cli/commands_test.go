package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/gw-ledger/internal/app"
	"github.com/sbilibin2017/gw-ledger/internal/config"
	"github.com/sbilibin2017/gw-ledger/internal/models"
)

// ledgerctl runs commands against one in-memory ledger shared across invocations.
type ledgerctl struct {
	t     *testing.T
	app   *app.App
	opens int
}

func newLedgerctl(t *testing.T) *ledgerctl {
	t.Helper()
	t.Setenv("APP_STORAGE", config.StorageMemory)
	t.Setenv("APP_LOG_LEVEL", "error")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	return &ledgerctl{t: t, app: a}
}

func (l *ledgerctl) run(args ...string) (string, error) {
	l.t.Helper()
	cmd := newRootCommand(func(ctx context.Context, cfg config.Config) (*app.App, error) {
		l.opens++
		return l.app, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"-c", filepath.Join(l.t.TempDir(), "missing.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (l *ledgerctl) runJSON(v any, args ...string) {
	l.t.Helper()
	out, err := l.run(append([]string{"--format", "json"}, args...)...)
	require.NoError(l.t, err, out)
	require.NoError(l.t, json.Unmarshal([]byte(out), v), out)
}

func (l *ledgerctl) createAccount(initial string) int64 {
	l.t.Helper()
	var acc AccountOutput
	l.runJSON(&acc, "account", "create", "--user", "7", "--initial", initial)
	return acc.AccountID
}

func TestAccountCommands(t *testing.T) {
	l := newLedgerctl(t)

	out, err := l.run("account", "create", "--user", "7", "--initial", "100.5")
	require.NoError(t, err)
	assert.Equal(t, "Created account 1 for user 7 with balance 100.50\n", out)

	out, err = l.run("account", "balance", "1")
	require.NoError(t, err)
	assert.Equal(t, "Account 1 balance: 100.50\n", out)

	var acc AccountOutput
	l.runJSON(&acc, "account", "balance", "1")
	assert.Equal(t, AccountOutput{AccountID: 1, Balance: "100.50"}, acc)

	_, err = l.run("account", "balance", "42")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestAccountCreateValidation(t *testing.T) {
	l := newLedgerctl(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing user", []string{"account", "create"}},
		{"zero user", []string{"account", "create", "--user", "0"}},
		{"negative initial", []string{"account", "create", "--user", "1", "--initial", "-1"}},
		{"too precise initial", []string{"account", "create", "--user", "1", "--initial", "1.005"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.run(tt.args...)
			require.Error(t, err)
		})
	}
	assert.Zero(t, l.opens, "invalid input must not open the ledger")
}

func TestOperationCommands(t *testing.T) {
	l := newLedgerctl(t)
	a := l.createAccount("100")
	b := l.createAccount("50")

	var op OperationOutput
	l.runJSON(&op, "deposit", "1", "25")
	assert.Equal(t, models.KindDeposit, op.Kind)
	assert.Equal(t, a, op.AccountID)
	assert.Equal(t, "125.00", op.Balance)
	assert.Equal(t, "25.00", op.Amount)

	l.runJSON(&op, "withdraw", "1", "5.50")
	assert.Equal(t, models.KindWithdrawal, op.Kind)
	assert.Equal(t, "119.50", op.Balance)

	out, err := l.run("transfer", "1", "2", "19.50")
	require.NoError(t, err)
	assert.Contains(t, out, "TRANSFER")
	assert.Contains(t, out, "account 1 balance: 100.00")

	var acc AccountOutput
	l.runJSON(&acc, "account", "balance", "2")
	assert.Equal(t, b, acc.AccountID)
	assert.Equal(t, "69.50", acc.Balance)
}

func TestOperationErrors(t *testing.T) {
	l := newLedgerctl(t)
	l.createAccount("10")
	l.createAccount("0")

	tests := []struct {
		name     string
		args     []string
		wantErr  error
		wantCode int
	}{
		{"insufficient funds", []string{"withdraw", "1", "20"}, models.ErrInsufficientFunds, ExitFailure},
		{"self transfer", []string{"transfer", "1", "1", "5"}, models.ErrSelfTransfer, ExitUsage},
		{"missing receiver", []string{"transfer", "1", "9", "5"}, models.ErrReceiverNotFound, ExitFailure},
		{"missing sender", []string{"transfer", "9", "1", "5"}, models.ErrAccountNotFound, ExitFailure},
		{"invalid amount", []string{"deposit", "1", "0"}, models.ErrInvalidAmount, ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.run(tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
		})
	}

	var acc AccountOutput
	l.runJSON(&acc, "account", "balance", "1")
	assert.Equal(t, "10.00", acc.Balance)
}

func TestArgumentValidation(t *testing.T) {
	l := newLedgerctl(t)

	for _, args := range [][]string{
		{"deposit", "abc", "10"},
		{"deposit", "-1", "10"},
		{"withdraw", "1"},
		{"transfer", "1", "2"},
		{"history", "1", "--limit", "-1"},
	} {
		_, err := l.run(args...)
		require.Error(t, err, "%v", args)
	}
	assert.Zero(t, l.opens)
}

func TestHistoryCommand(t *testing.T) {
	l := newLedgerctl(t)
	a := l.createAccount("100")
	l.createAccount("0")

	_, err := l.run("transfer", "1", "2", "30")
	require.NoError(t, err)
	_, err = l.run("withdraw", "1", "500")
	require.Error(t, err)
	_, err = l.run("deposit", "2", "5")
	require.NoError(t, err)

	var hist HistoryOutput
	l.runJSON(&hist, "history", "1")
	assert.Equal(t, a, hist.AccountID)
	require.Len(t, hist.Transactions, 2)

	failed := hist.Transactions[0]
	assert.Equal(t, models.KindWithdrawal, failed.Kind)
	assert.Equal(t, models.OutcomeFailed, failed.Outcome)
	require.NotNil(t, failed.FailureReason)
	assert.Contains(t, *failed.FailureReason, "insufficient")

	sent := hist.Transactions[1]
	assert.Equal(t, models.KindTransfer, sent.Kind)
	assert.Equal(t, models.DirectionSent, sent.Direction)
	require.NotNil(t, sent.Counterparty)
	assert.Equal(t, int64(2), *sent.Counterparty)
	assert.Greater(t, failed.TransactionID, sent.TransactionID)

	l.runJSON(&hist, "history", "2", "--limit", "1")
	require.Len(t, hist.Transactions, 1)
	assert.Equal(t, models.KindDeposit, hist.Transactions[0].Kind)
	assert.Equal(t, models.DirectionReceived, hist.Transactions[0].Direction)

	out, err := l.run("history", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "WITHDRAWAL")
	assert.Contains(t, out, "SENT")

	out, err = l.run("history", "9")
	require.NoError(t, err)
	assert.Equal(t, "No transactions for account 9\n", out)
}

func TestTokenCommand(t *testing.T) {
	l := newLedgerctl(t)

	var tok TokenOutput
	l.runJSON(&tok, "token", "--user", "7")
	assert.Equal(t, int64(7), tok.UserID)

	claims, err := l.app.Tokens.GetClaims(context.Background(), tok.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)

	_, err = l.run("token", "--user", "0")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))
}

func TestOpenFailure(t *testing.T) {
	t.Setenv("APP_STORAGE", config.StorageMemory)
	cmd := newRootCommand(func(ctx context.Context, cfg config.Config) (*app.App, error) {
		return nil, errors.New("connection refused")
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"-c", filepath.Join(t.TempDir(), "missing.env"), "deposit", "1", "10"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitTempFail, GetExitCode(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("APP_STORAGE", "sqlite")
	cmd := newRootCommand(func(ctx context.Context, cfg config.Config) (*app.App, error) {
		t.Fatal("ledger must not be opened with invalid config")
		return nil, nil
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"-c", filepath.Join(t.TempDir(), "missing.env"), "account", "balance", "1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))
}
