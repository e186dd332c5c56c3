// Package registry persists wallet records and owns the active-wallet
// marker. Records carry only public metadata; the mnemonic phrase lives in
// the secret store under a per-wallet key.
package registry

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/vswallet/vswallet/internal/secrets"
	"github.com/vswallet/vswallet/internal/store"
	walleterr "github.com/vswallet/vswallet/pkg/errors"
)

// walletsKey is the persisted-store key holding the wallet record list.
const walletsKey = "wallets"

// txListPrefix prefixes per-wallet transaction history keys, so ClearAll
// can sweep them without knowing wallet ids that no longer exist.
const txListPrefix = "wallet_transactions_"

// SeedKey returns the secret-store key holding a wallet's phrase.
func SeedKey(walletID string) string {
	return "wallet_seed_" + walletID
}

// Wallet is the persisted public record of a stored wallet.
type Wallet struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	IsActive bool   `json:"isActive"`
}

// Binder is the session side of wallet activation. SetActive rebinds the
// signing session through it so activation and key material never drift.
type Binder interface {
	Connect(walletID, phrase string) (string, error)
	Disconnect()
}

// Registry stores wallet records in a key-value store and phrases in a
// secret store. All mutation goes through one mutex, so the record list
// never holds two active wallets.
type Registry struct {
	mu      sync.Mutex
	records store.Store
	secrets secrets.Store
	binder  Binder
}

// New creates a registry over the given stores and session binder.
func New(records store.Store, secretStore secrets.Store, binder Binder) *Registry {
	return &Registry{
		records: records,
		secrets: secretStore,
		binder:  binder,
	}
}

// load reads the persisted wallet list. A missing key is an empty list.
func (r *Registry) load() ([]Wallet, error) {
	data, ok, err := r.records.Get(walletsKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var wallets []Wallet
	if err = json.Unmarshal(data, &wallets); err != nil {
		return nil, fmt.Errorf("decoding wallet records: %w", err)
	}
	return wallets, nil
}

// save writes the wallet list back to the persisted store.
func (r *Registry) save(wallets []Wallet) error {
	data, err := json.Marshal(wallets)
	if err != nil {
		return fmt.Errorf("encoding wallet records: %w", err)
	}
	return r.records.Set(walletsKey, data)
}

// Add stores a new wallet record with its phrase and returns the record.
// When makeActive is set the new wallet becomes the single active wallet
// and the session is bound to it.
func (r *Registry) Add(name, address, phrase string, makeActive bool) (*Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallets, err := r.load()
	if err != nil {
		return nil, err
	}

	wallet := Wallet{
		ID:       newWalletID(),
		Name:     name,
		Address:  address,
		IsActive: makeActive,
	}

	if makeActive {
		for i := range wallets {
			wallets[i].IsActive = false
		}
	}
	wallets = append(wallets, wallet)

	// Phrase first: a record without a seed is unusable, a seed without a
	// record is merely orphaned and swept by ClearAll
	if err = r.secrets.Set(SeedKey(wallet.ID), phrase); err != nil {
		return nil, err
	}
	if err = r.save(wallets); err != nil {
		return nil, err
	}

	if makeActive {
		if _, err = r.binder.Connect(wallet.ID, phrase); err != nil {
			return nil, err
		}
	}

	return &wallet, nil
}

// List returns all wallet records in insertion order.
func (r *Registry) List() ([]Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Get returns the record for a wallet id, or ErrWalletNotFound.
func (r *Registry) Get(walletID string) (*Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallets, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range wallets {
		if wallets[i].ID == walletID {
			return &wallets[i], nil
		}
	}
	return nil, walleterr.WithDetails(walleterr.ErrWalletNotFound, map[string]string{
		"walletId": walletID,
	})
}

// Active returns the active wallet record, or ErrNoActiveWallet.
func (r *Registry) Active() (*Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallets, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range wallets {
		if wallets[i].IsActive {
			return &wallets[i], nil
		}
	}
	return nil, walleterr.ErrNoActiveWallet
}

// SetActive marks walletID as the single active wallet, loads its phrase
// from the secret store, and rebinds the session. An unknown id leaves
// the registry unchanged and returns no error.
func (r *Registry) SetActive(walletID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallets, err := r.load()
	if err != nil {
		return err
	}

	found := false
	for i := range wallets {
		if wallets[i].ID == walletID {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	phrase, ok, err := r.secrets.Get(SeedKey(walletID))
	if err != nil {
		return err
	}
	if !ok {
		return walleterr.WithDetails(walleterr.ErrSecretMissing, map[string]string{
			"walletId": walletID,
		})
	}

	for i := range wallets {
		wallets[i].IsActive = wallets[i].ID == walletID
	}
	if err = r.save(wallets); err != nil {
		return err
	}

	_, err = r.binder.Connect(walletID, phrase)
	return err
}

// ClearAll removes every wallet record, every stored phrase, every
// per-wallet transaction history, and drops the bound session.
func (r *Registry) ClearAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wallets, err := r.load()
	if err != nil {
		return err
	}

	for _, w := range wallets {
		if err = r.secrets.Delete(SeedKey(w.ID)); err != nil {
			return err
		}
	}

	txKeys, err := r.records.Keys(txListPrefix)
	if err != nil {
		return err
	}
	for _, key := range txKeys {
		if err = r.records.Delete(key); err != nil {
			return err
		}
	}

	if err = r.records.Delete(walletsKey); err != nil {
		return err
	}

	r.binder.Disconnect()
	return nil
}

// newWalletID builds a unique wallet id from the creation time and a
// short random suffix.
func newWalletID() string {
	suffix := make([]byte, 2)
	_, _ = rand.Read(suffix)
	return "w-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + hex.EncodeToString(suffix)
}
