package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vswallet/vswallet/internal/chain"
	"github.com/vswallet/vswallet/internal/host"
	"github.com/vswallet/vswallet/internal/monitor"
	"github.com/vswallet/vswallet/internal/oracle"
	"github.com/vswallet/vswallet/internal/registry"
	"github.com/vswallet/vswallet/internal/secrets"
	"github.com/vswallet/vswallet/internal/session"
	"github.com/vswallet/vswallet/internal/store"
)

// newLoopRouter builds a router over in-memory state. The endpoint is
// never dialed because the exercised commands are local.
func newLoopRouter(t *testing.T) *host.Router {
	t.Helper()

	provider, err := chain.NewClient("https://rpc.invalid", &chain.ClientOptions{
		ChainID:    big.NewInt(11155111),
		RPCTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(provider.Close)

	records := store.NewMemStore()
	sess := session.NewManager(provider)
	reg := registry.New(records, secrets.NewMemStore(), sess)
	history := monitor.NewHistory(records)
	mon := monitor.New(provider, history, &monitor.Options{PollInterval: time.Hour, MaxAttempts: 1})
	t.Cleanup(mon.Close)

	svc := host.NewService(reg, sess, provider, oracle.New(provider, "0x0"), history, mon, nil)
	return host.NewRouter(svc)
}

func TestServeLoop(t *testing.T) {
	router := newLoopRouter(t)

	in := strings.NewReader(strings.Join([]string{
		`{"id":"1","command":"getWallets"}`,
		``,
		`{"id":"2","command":"walletCreate","params":{"name":"main"}}`,
		`not json`,
		`{"id":"3","command":"noSuchCommand"}`,
	}, "\n"))
	out := &bytes.Buffer{}

	require.NoError(t, serveLoop(context.Background(), router, in, out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)

	var resp host.Response

	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "1", resp.ID)

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "2", resp.ID)

	require.NoError(t, json.Unmarshal([]byte(lines[2]), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "malformed request")

	require.NoError(t, json.Unmarshal([]byte(lines[3]), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "noSuchCommand")
}

func TestServeLoop_CancelledContext(t *testing.T) {
	router := newLoopRouter(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := strings.NewReader(`{"id":"1","command":"getWallets"}` + "\n")
	out := &bytes.Buffer{}

	require.NoError(t, serveLoop(ctx, router, in, out))
	assert.Empty(t, out.String())
}

func TestVersionCommand(t *testing.T) {
	out := &bytes.Buffer{}
	versionCmd.SetOut(out)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "vswallet")
	assert.Contains(t, out.String(), Version)
}
