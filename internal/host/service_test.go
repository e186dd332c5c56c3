package host

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vswallet/vswallet/internal/chain"
	"github.com/vswallet/vswallet/internal/monitor"
	"github.com/vswallet/vswallet/internal/oracle"
	"github.com/vswallet/vswallet/internal/registry"
	"github.com/vswallet/vswallet/internal/secrets"
	"github.com/vswallet/vswallet/internal/session"
	"github.com/vswallet/vswallet/internal/store"
	walleterr "github.com/vswallet/vswallet/pkg/errors"
)

const (
	knownPhrase  = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	knownAddress = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	recipient    = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	testFeed     = "0x694AA1769357215DE4FAC081bf1f309aDC325306"
)

// fakeProvider is a scriptable provider covering every network call the
// service makes.
type fakeProvider struct {
	mu sync.Mutex

	initialized bool
	balances    map[string]string
	feeData     *chain.FeeData
	feeErr      error
	gas         uint64
	gasErr      error
	receipts    map[string]*types.Receipt
	callData    []byte
	callErr     error

	sent []*types.Transaction
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		initialized: true,
		balances:    make(map[string]string),
		feeData: &chain.FeeData{
			MaxFeePerGas:         big.NewInt(20_000_000_000),
			MaxPriorityFeePerGas: big.NewInt(1_000_000_000),
		},
		gas:      chain.BaseTransferGas,
		receipts: make(map[string]*types.Receipt),
		callData: priceRoundData(300000000000), // $3000.00
	}
}

// priceRoundData builds a latestRoundData payload for an 8-decimal answer.
func priceRoundData(answer int64) []byte {
	data := make([]byte, 160)
	new(big.Int).SetInt64(answer).FillBytes(data[32:64])
	return data
}

func (f *fakeProvider) Initialize(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = true
	return nil
}

func (f *fakeProvider) Initialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized
}

func (f *fakeProvider) ChainID() *big.Int { return big.NewInt(11155111) }

func (f *fakeProvider) Balance(_ context.Context, address string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.balances[address]; ok {
		return b, nil
	}
	return "0", nil
}

func (f *fakeProvider) FeeData(_ context.Context) (*chain.FeeData, error) {
	if f.feeErr != nil {
		return nil, f.feeErr
	}
	return f.feeData, nil
}

func (f *fakeProvider) EstimateGas(_ context.Context, _, _ string, _ *big.Int) (uint64, error) {
	if f.gasErr != nil {
		return 0, f.gasErr
	}
	return f.gas, nil
}

func (f *fakeProvider) Nonce(_ context.Context, _ string) (uint64, error) {
	return 1, nil
}

func (f *fakeProvider) Broadcast(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeProvider) Receipt(_ context.Context, hash string) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipts[hash], nil
}

func (f *fakeProvider) Call(_ context.Context, _ string, _ []byte) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.callData, nil
}

func newTestService(t *testing.T) (*Service, *fakeProvider) {
	t.Helper()

	provider := newFakeProvider()
	sess := session.NewManager(provider)
	records := store.NewMemStore()
	reg := registry.New(records, secrets.NewMemStore(), sess)
	history := monitor.NewHistory(records)
	mon := monitor.New(provider, history, &monitor.Options{
		PollInterval: time.Hour, // background watches never fire during a test
		MaxAttempts:  1,
	})
	t.Cleanup(mon.Close)

	svc := NewService(reg, sess, provider, oracle.New(provider, testFeed), history, mon, nil)
	return svc, provider
}

func TestWalletCreate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	created, err := svc.WalletCreate("")
	require.NoError(t, err)
	require.NoError(t, session.ValidateMnemonic(created.Phrase))
	assert.True(t, strings.HasPrefix(created.Address, "0x"))
	assert.True(t, strings.HasPrefix(created.PrivateKey, "0x"))

	wallets, err := svc.Wallets()
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, "Wallet 1", wallets[0].Name)
	assert.True(t, wallets[0].IsActive)
	assert.Equal(t, created.Address, wallets[0].Address)

	// the session is bound to the new wallet
	walletID, address, ok := activeSession(svc)
	require.True(t, ok)
	assert.Equal(t, created.WalletID, walletID)
	assert.Equal(t, created.Address, address)
}

func activeSession(svc *Service) (string, string, bool) {
	return svc.session.Active()
}

func TestWalletConnect(t *testing.T) {
	t.Parallel()

	t.Run("known phrase yields known address", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		address, err := svc.WalletConnect(knownPhrase, "imported")
		require.NoError(t, err)
		assert.Equal(t, knownAddress, address)
	})

	t.Run("duplicate import adds a second record", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		_, err := svc.WalletConnect(knownPhrase, "first")
		require.NoError(t, err)
		_, err = svc.WalletConnect(knownPhrase, "second")
		require.NoError(t, err)

		wallets, err := svc.Wallets()
		require.NoError(t, err)
		assert.Len(t, wallets, 2)
	})

	t.Run("invalid phrase rejected", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		_, err := svc.WalletConnect("twelve bogus words that do not form a valid phrase at all", "")
		require.ErrorIs(t, err, walleterr.ErrInvalidMnemonic)

		wallets, err := svc.Wallets()
		require.NoError(t, err)
		assert.Empty(t, wallets)
	})
}

func TestSetActiveWallet(t *testing.T) {
	t.Parallel()

	t.Run("one active wallet after every call", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		first, err := svc.WalletCreate("one")
		require.NoError(t, err)
		second, err := svc.WalletCreate("two")
		require.NoError(t, err)

		for _, id := range []string{first.WalletID, second.WalletID, first.WalletID} {
			ok, err := svc.SetActiveWallet(id)
			require.NoError(t, err)
			assert.True(t, ok)

			wallets, err := svc.Wallets()
			require.NoError(t, err)
			actives := 0
			for _, w := range wallets {
				if w.IsActive {
					actives++
					assert.Equal(t, id, w.ID)
				}
			}
			assert.Equal(t, 1, actives)
		}
	})

	t.Run("unknown id reports false and changes nothing", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		created, err := svc.WalletCreate("one")
		require.NoError(t, err)

		ok, err := svc.SetActiveWallet("w-missing")
		require.NoError(t, err)
		assert.False(t, ok)

		active, err := svc.ActiveWallet()
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, created.WalletID, active.ID)
	})
}

func TestActiveWallet_NoneIsNil(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	active, err := svc.ActiveWallet()
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestDisconnect(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.WalletCreate("")
	require.NoError(t, err)

	svc.Disconnect()
	_, _, ok := activeSession(svc)
	assert.False(t, ok)

	// the registry record survives
	wallets, err := svc.Wallets()
	require.NoError(t, err)
	assert.Len(t, wallets, 1)
}

func TestWalletBalance(t *testing.T) {
	t.Parallel()

	svc, provider := newTestService(t)
	provider.balances[recipient] = "1.5"

	balance, err := svc.WalletBalance(context.Background(), recipient)
	require.NoError(t, err)
	assert.Equal(t, "1.5", balance)

	_, err = svc.WalletBalance(context.Background(), "0xnope")
	require.ErrorIs(t, err, walleterr.ErrInvalidAddress)
}

func TestWalletUsdBalance(t *testing.T) {
	t.Parallel()

	svc, provider := newTestService(t)
	provider.balances[recipient] = "2"

	balance, err := svc.WalletUsdBalance(context.Background(), recipient)
	require.NoError(t, err)
	assert.Equal(t, "2", balance.Eth)
	assert.Equal(t, "6000.00", balance.Usd)
}

func TestTransactionSend(t *testing.T) {
	t.Parallel()

	t.Run("records pending and returns the hash", func(t *testing.T) {
		t.Parallel()

		svc, provider := newTestService(t)
		created, err := svc.WalletCreate("")
		require.NoError(t, err)

		hash, err := svc.TransactionSend(context.Background(), recipient, "0.01", "rent")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "0x"))
		require.Len(t, provider.sent, 1)

		list, err := svc.TransactionHistory()
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, hash, list[0].Hash)
		assert.Equal(t, created.Address, list[0].From)
		assert.Equal(t, recipient, list[0].To)
		assert.Equal(t, "10000000000000000", list[0].Value)
		assert.Equal(t, monitor.StatusPending, list[0].Status)
		assert.Equal(t, "rent", list[0].Note)
	})

	t.Run("gas estimate failure falls back to base cost", func(t *testing.T) {
		t.Parallel()

		svc, provider := newTestService(t)
		_, err := svc.WalletCreate("")
		require.NoError(t, err)
		provider.gasErr = errors.New("estimation unavailable")

		_, err = svc.TransactionSend(context.Background(), recipient, "0.01", "")
		require.NoError(t, err)
		require.Len(t, provider.sent, 1)
		assert.Equal(t, chain.BaseTransferGas, provider.sent[0].Gas())
	})

	t.Run("no active wallet", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		_, err := svc.TransactionSend(context.Background(), recipient, "0.01", "")
		require.ErrorIs(t, err, walleterr.ErrNoActiveWallet)
	})

	t.Run("invalid amount mutates nothing", func(t *testing.T) {
		t.Parallel()

		svc, provider := newTestService(t)
		_, err := svc.WalletCreate("")
		require.NoError(t, err)

		_, err = svc.TransactionSend(context.Background(), recipient, "-1", "")
		require.ErrorIs(t, err, walleterr.ErrInvalidAmount)
		assert.Empty(t, provider.sent)

		list, err := svc.TransactionHistory()
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestEstimateGasFee(t *testing.T) {
	t.Parallel()

	t.Run("fee in eth and usd", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)

		// 20 gwei * 21000 gas = 0.00042 ether; at $3000 that is $1.26
		estimate, err := svc.EstimateGasFee(context.Background(), recipient, "0.01")
		require.NoError(t, err)
		assert.Equal(t, "0.00042", estimate.Eth)
		assert.Equal(t, "1.26", estimate.Usd)
	})

	t.Run("estimation failure assumes base gas", func(t *testing.T) {
		t.Parallel()

		svc, provider := newTestService(t)
		provider.gasErr = errors.New("estimation unavailable")

		estimate, err := svc.EstimateGasFee(context.Background(), recipient, "0.01")
		require.NoError(t, err)
		assert.Equal(t, "0.00042", estimate.Eth)
	})

	t.Run("fee data failure propagates", func(t *testing.T) {
		t.Parallel()

		svc, provider := newTestService(t)
		provider.feeErr = walleterr.ErrFeeUnavailable

		_, err := svc.EstimateGasFee(context.Background(), recipient, "0.01")
		require.ErrorIs(t, err, walleterr.ErrFeeUnavailable)
	})
}

func TestCurrentPrice(t *testing.T) {
	t.Parallel()

	t.Run("scaled feed answer", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		price, err := svc.CurrentPrice(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 3000.0, price, 1e-9)
	})

	t.Run("uninitialized provider", func(t *testing.T) {
		t.Parallel()

		svc, provider := newTestService(t)
		provider.initialized = false

		_, err := svc.CurrentPrice(context.Background())
		require.ErrorIs(t, err, walleterr.ErrProviderNotInitialized)
	})
}

func TestRecheckTransaction(t *testing.T) {
	t.Parallel()

	t.Run("failed receipt marks the record failed", func(t *testing.T) {
		t.Parallel()

		svc, provider := newTestService(t)
		_, err := svc.WalletCreate("")
		require.NoError(t, err)

		hash, err := svc.TransactionSend(context.Background(), recipient, "0.01", "")
		require.NoError(t, err)

		provider.mu.Lock()
		provider.receipts[hash] = &types.Receipt{
			Status:  types.ReceiptStatusFailed,
			GasUsed: 21000,
		}
		provider.mu.Unlock()

		record, err := svc.RecheckTransaction(context.Background(), hash)
		require.NoError(t, err)
		assert.Equal(t, monitor.StatusFailed, record.Status)
		assert.Equal(t, uint64(21000), record.GasUsed)

		// a second recheck cannot flip the terminal state
		provider.mu.Lock()
		provider.receipts[hash].Status = types.ReceiptStatusSuccessful
		provider.mu.Unlock()

		record, err = svc.RecheckTransaction(context.Background(), hash)
		require.NoError(t, err)
		assert.Equal(t, monitor.StatusFailed, record.Status)
	})

	t.Run("still pending", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		_, err := svc.WalletCreate("")
		require.NoError(t, err)

		hash, err := svc.TransactionSend(context.Background(), recipient, "0.01", "")
		require.NoError(t, err)

		record, err := svc.RecheckTransaction(context.Background(), hash)
		require.NoError(t, err)
		assert.Equal(t, monitor.StatusPending, record.Status)
	})

	t.Run("unknown hash", func(t *testing.T) {
		t.Parallel()

		svc, _ := newTestService(t)
		_, err := svc.WalletCreate("")
		require.NoError(t, err)

		_, err = svc.RecheckTransaction(context.Background(), "0xdeadbeef")
		require.ErrorIs(t, err, walleterr.ErrTransactionNotFound)
	})
}

func TestClearAllData(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.WalletCreate("")
	require.NoError(t, err)
	_, err = svc.TransactionSend(context.Background(), recipient, "0.01", "")
	require.NoError(t, err)

	require.NoError(t, svc.ClearAllData())

	wallets, err := svc.Wallets()
	require.NoError(t, err)
	assert.Empty(t, wallets)

	_, _, ok := activeSession(svc)
	assert.False(t, ok)

	_, err = svc.TransactionHistory()
	require.ErrorIs(t, err, walleterr.ErrNoActiveWallet)
}
