package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vswallet/vswallet/internal/chain"
	"github.com/vswallet/vswallet/internal/config"
	"github.com/vswallet/vswallet/internal/host"
	"github.com/vswallet/vswallet/internal/monitor"
	"github.com/vswallet/vswallet/internal/oracle"
	"github.com/vswallet/vswallet/internal/registry"
	"github.com/vswallet/vswallet/internal/secrets"
	"github.com/vswallet/vswallet/internal/session"
	"github.com/vswallet/vswallet/internal/store"
)

var serveOnce bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve wallet commands over stdin/stdout",
	Long: `Reads JSON request lines from stdin and writes one JSON response line
per request to stdout. Log output goes to the configured log file, never
to stdout.

Request shape:  {"id": "1", "command": "getWallets", "params": {...}}
Response shape: {"id": "1", "success": true, "data": ...}`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, closeSvc, err := buildService()
	if err != nil {
		return err
	}
	defer closeSvc()

	ctx := cmd.Context()
	if err := svc.Initialize(ctx); err != nil {
		// Local commands still work; network commands will surface errors
		logger.Error("network initialization failed: %v", err)
	}

	router := host.NewRouter(svc)
	return serveLoop(ctx, router, cmd.InOrStdin(), cmd.OutOrStdout())
}

// serveLoop reads request lines until EOF, context cancellation, or the
// first request when --once is set.
func serveLoop(ctx context.Context, router *host.Router, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req host.Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			if encodeErr := encoder.Encode(host.Response{Error: "malformed request: " + err.Error()}); encodeErr != nil {
				return encodeErr
			}
			continue
		}

		resp := router.Dispatch(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}

		if serveOnce {
			return nil
		}
	}
	return scanner.Err()
}

// buildService wires the full command surface from the configuration.
func buildService() (*host.Service, func(), error) {
	provider, err := chain.NewClient(cfg.Network.RPC, &chain.ClientOptions{
		ChainID:    big.NewInt(cfg.Network.ChainID),
		RPCTimeout: cfg.RPCTimeout(),
	})
	if err != nil {
		return nil, nil, err
	}

	passphrase, err := secretPassphrase(cfg)
	if err != nil {
		provider.Close()
		return nil, nil, err
	}

	records := store.NewFileStore(cfg.DataDir())
	secretStore := secrets.NewEncryptedStore(store.NewFileStore(cfg.SecretsDir()), passphrase)

	sess := session.NewManager(provider)
	reg := registry.New(records, secretStore, sess)
	history := monitor.NewHistory(records)
	mon := monitor.New(provider, history, &monitor.Options{
		PollInterval: cfg.PollInterval(),
		MaxAttempts:  cfg.Monitor.MaxAttempts,
		Logger:       logger,
	})

	priceOracle := oracle.New(provider, cfg.PriceFeed.Address)
	svc := host.NewService(reg, sess, provider, priceOracle, history, mon, logger)

	closeSvc := func() {
		svc.Close()
		provider.Close()
	}
	return svc, closeSvc, nil
}

// secretPassphrase resolves the secret store passphrase from the
// configured environment variable, prompting when absent and stdin is a
// terminal.
func secretPassphrase(cfg *config.Config) (string, error) {
	if v := os.Getenv(cfg.Secrets.PassphraseEnv); v != "" {
		return v, nil
	}

	passphrase, err := promptPassword(fmt.Sprintf("Enter secret store passphrase (or set %s): ", cfg.Secrets.PassphraseEnv))
	if err != nil {
		return "", err
	}
	return string(passphrase), nil
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	serveCmd.Flags().BoolVar(&serveOnce, "once", false, "handle a single request and exit")
	rootCmd.AddCommand(serveCmd)
}
