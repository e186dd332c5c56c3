package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vswallet/vswallet/internal/chain"
)

// Default polling cadence for receipt watches. Sixty attempts at five
// seconds covers five minutes, past which a transfer is either stuck in
// the mempool or dropped.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 60
)

// Logger is the subset of logging the monitor needs.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Options tunes a Monitor. Zero values fall back to the defaults.
type Options struct {
	PollInterval time.Duration
	MaxAttempts  int
	Logger       Logger
}

// Monitor polls the network for receipts of recorded transactions and
// resolves their history entries. Each watched transaction gets one
// goroutine; a (wallet, hash) pair is watched at most once at a time.
type Monitor struct {
	provider chain.Provider
	history  *History
	interval time.Duration
	attempts int
	log      Logger

	mu      sync.Mutex
	watches map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a monitor over the provider and history store.
func New(provider chain.Provider, history *History, opts *Options) *Monitor {
	m := &Monitor{
		provider: provider,
		history:  history,
		interval: DefaultPollInterval,
		attempts: DefaultMaxAttempts,
		log:      nopLogger{},
		watches:  make(map[string]context.CancelFunc),
	}
	if opts != nil {
		if opts.PollInterval > 0 {
			m.interval = opts.PollInterval
		}
		if opts.MaxAttempts > 0 {
			m.attempts = opts.MaxAttempts
		}
		if opts.Logger != nil {
			m.log = opts.Logger
		}
	}
	return m
}

func watchKey(walletID, hash string) string {
	return walletID + "/" + hash
}

// Watch starts following a transaction until it resolves, the attempt
// budget runs out, or the watch is cancelled. Watching an already-watched
// pair is a no-op.
func (m *Monitor) Watch(walletID, hash string) {
	key := watchKey(walletID, hash)

	m.mu.Lock()
	if _, exists := m.watches[key]; exists {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.watches[key] = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.watches, key)
			m.mu.Unlock()
			cancel()
		}()
		m.poll(ctx, walletID, hash)
	}()
}

// poll drives one watch to completion.
func (m *Monitor) poll(ctx context.Context, walletID, hash string) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= m.attempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		receipt, err := m.provider.Receipt(ctx, hash)
		if err != nil {
			// Transient lookup failures do not end the watch
			m.log.Error("receipt lookup for %s failed: %v", hash, err)
			continue
		}
		if receipt == nil {
			m.log.Debug("tx %s not mined yet (attempt %d/%d)", hash, attempt, m.attempts)
			continue
		}

		m.resolve(walletID, hash, receipt)
		return
	}

	// The record stays pending; a later recheck can still resolve it
	m.log.Error("gave up watching %s after %d attempts", hash, m.attempts)
}

func (m *Monitor) resolve(walletID, hash string, receipt *types.Receipt) {
	status := StatusConfirmed
	if receipt.Status != types.ReceiptStatusSuccessful {
		status = StatusFailed
	}

	changed, err := m.history.Resolve(walletID, hash, status, receipt.GasUsed)
	if err != nil {
		m.log.Error("recording resolution of %s: %v", hash, err)
		return
	}
	if changed {
		m.log.Debug("tx %s resolved as %s (gas used %d)", hash, status, receipt.GasUsed)
	}
}

// Recheck performs a single receipt lookup for a recorded transaction,
// resolving it when mined. It returns the record's current status.
func (m *Monitor) Recheck(ctx context.Context, walletID, hash string) (Status, error) {
	receipt, err := m.provider.Receipt(ctx, hash)
	if err != nil {
		return "", err
	}
	if receipt == nil {
		return StatusPending, nil
	}

	status := StatusConfirmed
	if receipt.Status != types.ReceiptStatusSuccessful {
		status = StatusFailed
	}
	if _, err = m.history.Resolve(walletID, hash, status, receipt.GasUsed); err != nil {
		return "", err
	}
	return status, nil
}

// CancelWallet stops every active watch for a wallet.
func (m *Monitor) CancelWallet(walletID string) {
	prefix := walletID + "/"

	m.mu.Lock()
	for key, cancel := range m.watches {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			cancel()
		}
	}
	m.mu.Unlock()
}

// Close cancels all watches and waits for their goroutines to exit.
func (m *Monitor) Close() {
	m.mu.Lock()
	for _, cancel := range m.watches {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
