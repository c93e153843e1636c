package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/auth"
	"github.com/rogerio-castellano/pos-terminal/internal/localstore"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
	"github.com/rogerio-castellano/pos-terminal/internal/pos"
	"github.com/rogerio-castellano/pos-terminal/internal/repo"
	"github.com/rogerio-castellano/pos-terminal/internal/syncer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "pos-terminal", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{{"serve"}, {"sync"}, {"queue", "list"}, {"queue", "clear"}, {"status"}, {"token"}}

	for _, path := range commands {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

// terminal is a config file plus a flat file store the commands share.
type terminal struct {
	configPath string
	storePath  string
	synced     atomic.Int32
}

func newTerminal(t *testing.T) *terminal {
	t.Helper()
	term := &terminal{}
	remoteSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/transactions" {
			term.synced.Add(1)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"data":{"id":"T-%s","status":"completed"}}`, r.Header.Get("Idempotency-Key"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(remoteSrv.Close)

	dir := t.TempDir()
	term.storePath = filepath.Join(dir, "offline.json")
	term.configPath = filepath.Join(dir, "pos-terminal.yaml")
	cfg := fmt.Sprintf(`
auth:
  jwt_secret: cli-secret
remote:
  base_url: %s
  request_timeout: 2s
store:
  prefer: flat
  flat_kind: file
  flat_path: %s
  key_prefix: cli_
log:
  mode: development
  level: error
terminal:
  outlet_id: O1
`, remoteSrv.URL, term.storePath)
	require.NoError(t, os.WriteFile(term.configPath, []byte(cfg), 0o600))
	return term
}

func (term *terminal) seedOfflineSale(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	st := localstore.NewFlatStore(localstore.NewFileKV(term.storePath), "cli_", nil)
	require.NoError(t, st.Init(ctx))
	defer st.Close()

	req := models.TransactionRequest{
		OutletID:       "O1",
		CashierID:      "C1",
		Items:          []models.TransactionItem{{ProductID: "P1", Quantity: 2, UnitPrice: models.Price(decimal.NewFromInt(250))}},
		PaymentMethod:  "cash",
		AmountTendered: decimal.NewFromInt(500),
	}
	req.ComputeLineTotals()
	id, err := repo.NewOfflineQueue(st, nil).Enqueue(ctx, req)
	require.NoError(t, err)
	return id
}

func (term *terminal) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", term.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQueueListSyncStatus(t *testing.T) {
	term := newTerminal(t)
	id := term.seedOfflineSale(t)

	out, err := term.run(t, "queue", "list", "--format", "json")
	require.NoError(t, err)
	var txs []models.OfflineTransaction
	require.NoError(t, json.Unmarshal([]byte(out), &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, id, txs[0].OfflineID)

	out, err = term.run(t, "sync", "--format", "json")
	require.NoError(t, err)
	var res syncer.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Synced)
	assert.Equal(t, int32(1), term.synced.Load())

	out, err = term.run(t, "status", "--format", "json")
	require.NoError(t, err)
	var st pos.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "flat:file", st.Backend)
	assert.Zero(t, st.OfflineTransactions)
	assert.Equal(t, 1, st.LastSyncCount)
	assert.NotNil(t, st.LastSyncAt)

	out, err = term.run(t, "queue", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "offline queue is empty")
}

func TestQueueClear(t *testing.T) {
	term := newTerminal(t)
	term.seedOfflineSale(t)

	_, err := term.run(t, "queue", "clear")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := term.run(t, "queue", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared 1 sale(s)")

	out, err = term.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "offline sales:        0")
}

func TestSyncExitCodeWhenRecordsFail(t *testing.T) {
	term := newTerminal(t)
	term.seedOfflineSale(t)
	cfg, err := os.ReadFile(term.configPath)
	require.NoError(t, err)
	broken := strings.Replace(string(cfg), "base_url: http://", "base_url: http://127.0.0.1:1/unreachable-", 1)
	require.NoError(t, os.WriteFile(term.configPath, []byte(broken), 0o600))

	out, err := term.run(t, "sync")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "synced 0 sale(s), 1 failed")
}

func TestInvalidFormat(t *testing.T) {
	term := newTerminal(t)
	_, err := term.run(t, "status", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTokenCommand(t *testing.T) {
	term := newTerminal(t)
	out, err := term.run(t, "token", "--cashier", "C7", "--role", auth.RoleAdmin, "--ttl", time.Hour.String())
	require.NoError(t, err)

	cashier, err := auth.ParseToken([]byte("cli-secret"), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "C7", cashier.ID)
	assert.Equal(t, auth.RoleAdmin, cashier.Role)

	_, err = term.run(t, "token")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOpenAppWithoutLocalStoreRunsOnlineOnly(t *testing.T) {
	term := newTerminal(t)
	missing := filepath.Join(t.TempDir(), "missing", "dir")
	cfg, err := os.ReadFile(term.configPath)
	require.NoError(t, err)
	broken := strings.Replace(string(cfg), "flat_path: "+term.storePath, fmt.Sprintf(
		"flat_path: %s\n  driver: sqlite3\n  dsn: %s", filepath.Join(missing, "offline.json"), filepath.Join(missing, "pos.db")), 1)
	require.NoError(t, os.WriteFile(term.configPath, []byte(broken), 0o600))

	a, err := openApp(context.Background(), &RootOptions{ConfigPath: term.configPath, Format: "text"})
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, a.pos.OnlineOnly())

	out, err := term.run(t, "status", "--format", "json")
	require.NoError(t, err)
	var st pos.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.OnlineOnly)
	assert.Equal(t, localstore.BackendNone, st.Backend)
}
