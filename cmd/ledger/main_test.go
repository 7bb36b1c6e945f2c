package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sbilibin2017/gw-ledger/internal/app"
	"github.com/sbilibin2017/gw-ledger/internal/config"
	"github.com/sbilibin2017/gw-ledger/internal/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags resets the global flag.CommandLine to avoid "flag redefined" panic
func resetFlags() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
}

func TestParseFlags_Default(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd"}
	assert.Equal(t, "config.env", parseFlags())
}

func TestParseFlags_Custom(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd", "-c", "myconfig.env"}
	assert.Equal(t, "myconfig.env", parseFlags())
}

func TestPrintBuildInfo_Output(t *testing.T) {
	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	buildVersion = "v1.0.0"
	buildCommit = "abcd1234"
	buildDate = "2025-09-26"

	printBuildInfo()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	output := buf.String()
	assert.Contains(t, output, "Build version: v1.0.0")
	assert.Contains(t, output, "Build commit: abcd1234")
	assert.Contains(t, output, "Build date: 2025-09-26")
}

// ------------------ HTTP flow over the in-memory backend ------------------

type apiClient struct {
	t      *testing.T
	srv    *httptest.Server
	tokens *jwt.JWT
}

func newTestAPI(t *testing.T) *apiClient {
	cfg := config.Config{
		AppHost:      "localhost",
		AppPort:      "8080",
		Storage:      config.StorageMemory,
		LockTimeout:  time.Second,
		JWTSecretKey: "testsecret",
	}
	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(newRouter(cfg, a.Engine, a.Accounts, a.Tokens, a.Ready))
	t.Cleanup(srv.Close)
	return &apiClient{t: t, srv: srv, tokens: a.Tokens}
}

func (c *apiClient) do(userID int64, method, path, body string, out any) int {
	c.t.Helper()

	req, err := http.NewRequest(method, c.srv.URL+path, strings.NewReader(body))
	require.NoError(c.t, err)
	if userID != 0 {
		token, err := c.tokens.Generate(context.Background(), userID)
		require.NoError(c.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *apiClient) createAccount(userID int64, initial string) int64 {
	c.t.Helper()
	var resp struct {
		AccountID int64 `json:"account_id"`
	}
	code := c.do(userID, http.MethodPost, "/api/v1/accounts", fmt.Sprintf(`{"initial_balance": %q}`, initial), &resp)
	require.Equal(c.t, http.StatusCreated, code)
	return resp.AccountID
}

func (c *apiClient) balance(userID, accountID int64) string {
	c.t.Helper()
	var resp struct {
		Balance string `json:"balance"`
	}
	code := c.do(userID, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d/balance", accountID), "", &resp)
	require.Equal(c.t, http.StatusOK, code)
	return resp.Balance
}

func TestRouter_LedgerFlow(t *testing.T) {
	api := newTestAPI(t)
	const alice, bob = int64(1), int64(2)

	a := api.createAccount(alice, "100")
	b := api.createAccount(bob, "50")

	// transfer 40 from A to B
	var op struct {
		Balance       string `json:"balance"`
		TransactionID int64  `json:"transaction_id"`
	}
	code := api.do(alice, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%d/transfer", a),
		fmt.Sprintf(`{"to_account_id": %d, "amount": "40"}`, b), &op)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "60.00", op.Balance)
	assert.Equal(t, "60.00", api.balance(alice, a))
	assert.Equal(t, "90.00", api.balance(bob, b))

	// overdraw is rejected and recorded
	code = api.do(alice, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%d/withdraw", a), `{"amount": "150"}`, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "60.00", api.balance(alice, a))

	// self transfer
	code = api.do(alice, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%d/transfer", a),
		fmt.Sprintf(`{"to_account_id": %d, "amount": "1"}`, a), nil)
	assert.Equal(t, http.StatusBadRequest, code)

	// deposit with too many fractional digits
	code = api.do(alice, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%d/deposit", a), `{"amount": "1.001"}`, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var history struct {
		Transactions []struct {
			Kind      string `json:"kind"`
			Outcome   string `json:"outcome"`
			Direction string `json:"direction"`
		} `json:"transactions"`
	}
	code = api.do(alice, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d/transactions", a), "", &history)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, history.Transactions, 2)
	assert.Equal(t, "FAILED", history.Transactions[0].Outcome)
	assert.Equal(t, "TRANSFER", history.Transactions[1].Kind)
	assert.Equal(t, "SENT", history.Transactions[1].Direction)
}

func TestRouter_AccessControl(t *testing.T) {
	api := newTestAPI(t)
	a := api.createAccount(1, "10")

	assert.Equal(t, http.StatusUnauthorized, api.do(0, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d/balance", a), "", nil))
	assert.Equal(t, http.StatusForbidden, api.do(2, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d/balance", a), "", nil))
	assert.Equal(t, http.StatusNotFound, api.do(1, http.MethodPost, "/api/v1/accounts/999/deposit", `{"amount": "1"}`, nil))
	assert.Equal(t, http.StatusOK, api.do(0, http.MethodGet, "/health", "", nil))
}

func TestRouter_ConcurrentTransfers(t *testing.T) {
	api := newTestAPI(t)
	a := api.createAccount(1, "1000")
	b := api.createAccount(2, "1000")

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, from, to := int64(1), a, b
			if i%2 == 1 {
				user, from, to = 2, b, a
			}
			code := api.do(user, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%d/transfer", from),
				fmt.Sprintf(`{"to_account_id": %d, "amount": "5"}`, to), nil)
			assert.Equal(t, http.StatusOK, code)
		}()
	}
	wg.Wait()

	assert.Equal(t, "1000.00", api.balance(1, a))
	assert.Equal(t, "1000.00", api.balance(2, b))
}

func TestRun_MemoryStorageStopsOnContextDone(t *testing.T) {
	cfg := config.Config{
		AppHost:     "127.0.0.1",
		AppPort:     "18086",
		LogLevel:    "debug",
		Storage:     config.StorageMemory,
		LockTimeout: time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, cfg) }()

	select {
	case <-time.After(15 * time.Second):
		t.Fatal("run did not stop")
	case err := <-errCh:
		assert.NoError(t, err)
	}
}

func TestRun_InvalidLogLevel(t *testing.T) {
	cfg := config.Config{LogLevel: "loud", Storage: config.StorageMemory}
	assert.Error(t, run(context.Background(), cfg))
}
