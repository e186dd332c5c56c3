// Package host implements the wallet command surface: one service
// owning the registry, signing session, monitor, and price oracle, and a
// router dispatching named commands to it.
package host

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/vswallet/vswallet/internal/chain"
	"github.com/vswallet/vswallet/internal/monitor"
	"github.com/vswallet/vswallet/internal/oracle"
	"github.com/vswallet/vswallet/internal/registry"
	"github.com/vswallet/vswallet/internal/session"
	walleterr "github.com/vswallet/vswallet/pkg/errors"
)

// Logger is the subset of logging the service needs.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// Service owns the wallet state and implements every command. Command
// failures leave persisted state untouched.
type Service struct {
	registry *registry.Registry
	session  *session.Manager
	provider chain.Provider
	oracle   *oracle.Oracle
	history  *monitor.History
	monitor  *monitor.Monitor
	log      Logger
}

// NewService wires a service from its collaborators.
func NewService(
	reg *registry.Registry,
	sess *session.Manager,
	provider chain.Provider,
	priceOracle *oracle.Oracle,
	history *monitor.History,
	mon *monitor.Monitor,
	log Logger,
) *Service {
	if log == nil {
		log = nopLogger{}
	}
	return &Service{
		registry: reg,
		session:  sess,
		provider: provider,
		oracle:   priceOracle,
		history:  history,
		monitor:  mon,
		log:      log,
	}
}

// Initialize establishes network connectivity. Commands that only touch
// local state work without it.
func (s *Service) Initialize(ctx context.Context) error {
	return s.provider.Initialize(ctx)
}

// Close stops background monitoring.
func (s *Service) Close() {
	s.monitor.Close()
}

// CreatedWallet is the walletCreate response. Phrase and PrivateKey are
// returned here and never retrievable again.
type CreatedWallet struct {
	WalletID   string `json:"walletId"`
	Address    string `json:"address"`
	Phrase     string `json:"phrase"`
	PrivateKey string `json:"privKey"`
}

// WalletCreate generates a new wallet, stores it, and makes it active.
func (s *Service) WalletCreate(name string) (*CreatedWallet, error) {
	material, err := s.session.CreateRandom()
	if err != nil {
		return nil, err
	}

	if name == "" {
		name, err = s.defaultWalletName()
		if err != nil {
			return nil, err
		}
	}

	wallet, err := s.registry.Add(name, material.Address, material.Phrase, true)
	if err != nil {
		return nil, err
	}

	s.log.Debug("created wallet %s (%s)", wallet.ID, wallet.Address)
	return &CreatedWallet{
		WalletID:   wallet.ID,
		Address:    material.Address,
		Phrase:     material.Phrase,
		PrivateKey: material.PrivateKey,
	}, nil
}

// WalletConnect imports an existing phrase as a new active wallet and
// returns its address. Importing the same phrase twice adds two records.
func (s *Service) WalletConnect(phrase, name string) (string, error) {
	if err := session.ValidateMnemonic(phrase); err != nil {
		return "", err
	}

	key, err := session.DeriveKey(phrase)
	if err != nil {
		return "", err
	}
	address := session.AddressOf(key)

	if name == "" {
		if name, err = s.defaultWalletName(); err != nil {
			return "", err
		}
	}

	wallet, err := s.registry.Add(name, address, session.NormalizeMnemonic(phrase), true)
	if err != nil {
		return "", err
	}

	s.log.Debug("imported wallet %s (%s)", wallet.ID, address)
	return address, nil
}

func (s *Service) defaultWalletName() (string, error) {
	wallets, err := s.registry.List()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Wallet %d", len(wallets)+1), nil
}

// Wallets lists all stored wallet records.
func (s *Service) Wallets() ([]registry.Wallet, error) {
	wallets, err := s.registry.List()
	if err != nil {
		return nil, err
	}
	if wallets == nil {
		wallets = []registry.Wallet{}
	}
	return wallets, nil
}

// SetActiveWallet activates the given wallet and rebinds the signing
// session. An unknown id changes nothing and reports success false.
func (s *Service) SetActiveWallet(walletID string) (bool, error) {
	if _, err := s.registry.Get(walletID); err != nil {
		if walleterr.Is(err, walleterr.ErrWalletNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.registry.SetActive(walletID); err != nil {
		return false, err
	}
	return true, nil
}

// ActiveWallet returns the active wallet record, or nil when none is set.
func (s *Service) ActiveWallet() (*registry.Wallet, error) {
	wallet, err := s.registry.Active()
	if err != nil {
		if walleterr.Is(err, walleterr.ErrNoActiveWallet) {
			return nil, nil
		}
		return nil, err
	}
	return wallet, nil
}

// Disconnect drops the signing session without touching stored wallets.
func (s *Service) Disconnect() {
	s.session.Disconnect()
}

// WalletBalance returns an address balance formatted in ether.
func (s *Service) WalletBalance(ctx context.Context, address string) (string, error) {
	if err := chain.ValidateChecksumAddress(address); err != nil {
		return "", err
	}
	return s.provider.Balance(ctx, address)
}

// UsdBalance is the getWalletUsdBalance response.
type UsdBalance struct {
	Eth string `json:"eth"`
	Usd string `json:"usd"`
}

// WalletUsdBalance returns an address balance in ether and its USD value
// at the current feed price.
func (s *Service) WalletUsdBalance(ctx context.Context, address string) (*UsdBalance, error) {
	eth, err := s.WalletBalance(ctx, address)
	if err != nil {
		return nil, err
	}

	price, err := s.oracle.CurrentPrice(ctx)
	if err != nil {
		return nil, err
	}

	amount, err := strconv.ParseFloat(eth, 64)
	if err != nil {
		return nil, walleterr.Wrap(err, "parsing balance")
	}

	return &UsdBalance{
		Eth: eth,
		Usd: strconv.FormatFloat(amount*price, 'f', 2, 64),
	}, nil
}

// TransactionSend signs and broadcasts a transfer from the active wallet,
// records it as pending, and starts a receipt watch. amount is in ether.
func (s *Service) TransactionSend(ctx context.Context, to, amount, note string) (string, error) {
	active, err := s.registry.Active()
	if err != nil {
		return "", err
	}

	if err = chain.ValidateChecksumAddress(to); err != nil {
		return "", err
	}

	valueWei, err := chain.ParseEther(amount)
	if err != nil {
		return "", err
	}

	hash, err := s.session.SignAndSend(ctx, active.ID, to, valueWei)
	if err != nil {
		return "", err
	}

	record := monitor.Record{
		Hash:   hash,
		From:   active.Address,
		To:     to,
		Value:  valueWei.String(),
		Time:   time.Now().UnixMilli(),
		Status: monitor.StatusPending,
		Note:   note,
	}
	if err = s.history.Append(active.ID, record); err != nil {
		// The transfer is on the wire; a bookkeeping failure must not
		// mask the hash
		s.log.Error("recording sent tx %s: %v", hash, err)
	}

	s.monitor.Watch(active.ID, hash)
	s.log.Debug("sent %s wei to %s as %s", valueWei, to, hash)
	return hash, nil
}

// GasEstimate is the estimateGasFee response: the worst-case fee for a
// transfer, in ether and USD.
type GasEstimate struct {
	Eth string `json:"eth"`
	Usd string `json:"usd"`
}

// EstimateGasFee estimates the fee for a transfer of amount ether to the
// given address. When the network refuses to estimate, the base transfer
// cost is assumed.
func (s *Service) EstimateGasFee(ctx context.Context, to, amount string) (*GasEstimate, error) {
	if err := chain.ValidateChecksumAddress(to); err != nil {
		return nil, err
	}

	valueWei, err := chain.ParseEther(amount)
	if err != nil {
		return nil, err
	}

	feeData, err := s.provider.FeeData(ctx)
	if err != nil {
		return nil, err
	}

	from := ""
	if _, address, ok := s.session.Active(); ok {
		from = address
	}

	gas, err := s.provider.EstimateGas(ctx, from, to, valueWei)
	if err != nil {
		gas = chain.BaseTransferGas
	}

	feeWei := new(big.Int).Mul(feeData.MaxFeePerGas, new(big.Int).SetUint64(gas))
	feeEth := chain.FormatEther(feeWei)

	price, err := s.oracle.CurrentPrice(ctx)
	if err != nil {
		return nil, err
	}

	feeFloat, err := strconv.ParseFloat(feeEth, 64)
	if err != nil {
		return nil, walleterr.Wrap(err, "parsing fee")
	}

	return &GasEstimate{
		Eth: feeEth,
		Usd: strconv.FormatFloat(feeFloat*price, 'f', 2, 64),
	}, nil
}

// CurrentPrice returns the feed's latest ETH/USD price.
func (s *Service) CurrentPrice(ctx context.Context) (float64, error) {
	return s.oracle.CurrentPrice(ctx)
}

// PriceChange returns the percent price change over a window in days.
func (s *Service) PriceChange(ctx context.Context, windowDays int) (float64, error) {
	return s.oracle.PriceChange(ctx, windowDays)
}

// TransactionHistory returns the active wallet's history, newest first.
func (s *Service) TransactionHistory() ([]monitor.Record, error) {
	active, err := s.registry.Active()
	if err != nil {
		return nil, err
	}

	list, err := s.history.List(active.ID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []monitor.Record{}
	}
	return list, nil
}

// RecheckTransaction performs one receipt lookup for a recorded pending
// transaction and returns its record afterwards.
func (s *Service) RecheckTransaction(ctx context.Context, hash string) (*monitor.Record, error) {
	active, err := s.registry.Active()
	if err != nil {
		return nil, err
	}

	list, err := s.history.List(active.ID)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range list {
		if list[i].Hash == hash {
			found = true
			break
		}
	}
	if !found {
		return nil, walleterr.WithDetails(walleterr.ErrTransactionNotFound, map[string]string{
			"hash": hash,
		})
	}

	if _, err = s.monitor.Recheck(ctx, active.ID, hash); err != nil {
		return nil, err
	}

	list, err = s.history.List(active.ID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Hash == hash {
			return &list[i], nil
		}
	}
	return nil, walleterr.ErrTransactionNotFound
}

// ClearAllData removes every wallet, secret, and history entry, and drops
// the signing session. Confirmation is the caller's responsibility.
func (s *Service) ClearAllData() error {
	wallets, err := s.registry.List()
	if err != nil {
		return err
	}
	for _, w := range wallets {
		s.monitor.CancelWallet(w.ID)
	}

	if err = s.registry.ClearAll(); err != nil {
		return err
	}

	s.log.Debug("cleared all wallet data")
	return nil
}
