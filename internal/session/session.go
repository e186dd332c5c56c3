package session

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vswallet/vswallet/internal/chain"
	walleterr "github.com/vswallet/vswallet/pkg/errors"
)

// Material is the secret key material returned to the caller exactly once
// at creation time. The session never persists any of it.
type Material struct {
	Address    string `json:"address"`
	Phrase     string `json:"phrase"`
	PrivateKey string `json:"privKey"`
}

// Manager holds zero or one decrypted signing key, bound to a wallet id.
// Rebinding and signing are serialized on one mutex: a Connect cannot
// interleave with an in-flight SignAndSend on the old key.
type Manager struct {
	provider chain.Provider

	mu       sync.Mutex
	walletID string
	address  string
	key      *ecdsa.PrivateKey
}

// NewManager creates a session manager bound to the provider facade.
func NewManager(provider chain.Provider) *Manager {
	return &Manager{provider: provider}
}

// CreateRandom generates a fresh key and returns its secret material.
// The session slot is not changed: the caller persists the wallet first
// and then binds via Connect, keeping binding a single code path.
func (m *Manager) CreateRandom() (*Material, error) {
	phrase, err := GenerateMnemonic(12)
	if err != nil {
		return nil, err
	}

	key, err := DeriveKey(phrase)
	if err != nil {
		return nil, err
	}

	return &Material{
		Address:    AddressOf(key),
		Phrase:     phrase,
		PrivateKey: "0x" + hex.EncodeToString(crypto.FromECDSA(key)),
	}, nil
}

// Connect derives the key for the phrase and makes it the held session,
// bound to walletID. Any previously held key is discarded.
func (m *Manager) Connect(walletID, phrase string) (string, error) {
	key, err := DeriveKey(phrase)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.walletID = walletID
	m.address = AddressOf(key)
	m.key = key

	return m.address, nil
}

// Disconnect clears the held session. Persisted state is untouched.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.walletID = ""
	m.address = ""
	m.key = nil
}

// Active returns the bound wallet id and address, if a session is held.
func (m *Manager) Active() (walletID, address string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.walletID, m.address, m.key != nil
}

// SignAndSend builds, signs, and broadcasts a value transfer, returning
// the transaction hash as soon as the network accepts it. It does not
// wait for confirmation. walletID must match the bound session, so a
// stale caller can never sign with a rebound key.
func (m *Manager) SignAndSend(ctx context.Context, walletID, to string, valueWei *big.Int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.key == nil || !m.provider.Initialized() {
		return "", walleterr.ErrSessionNotReady
	}
	if walletID != m.walletID {
		return "", walleterr.WithDetails(walleterr.ErrSessionMismatch, map[string]string{
			"requested": walletID,
			"bound":     m.walletID,
		})
	}
	if err := chain.ValidateChecksumAddress(to); err != nil {
		return "", err
	}

	nonce, err := m.provider.Nonce(ctx, m.address)
	if err != nil {
		return "", err
	}

	feeData, err := m.provider.FeeData(ctx)
	if err != nil {
		return "", err
	}

	gas, err := m.provider.EstimateGas(ctx, m.address, to, valueWei)
	if err != nil {
		// Estimation can fail for targets the node cannot simulate; a
		// plain transfer still costs the base amount
		gas = chain.BaseTransferGas
	}

	toAddr := common.HexToAddress(to)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   m.provider.ChainID(),
		Nonce:     nonce,
		GasTipCap: feeData.MaxPriorityFeePerGas,
		GasFeeCap: feeData.MaxFeePerGas,
		Gas:       gas,
		To:        &toAddr,
		Value:     valueWei,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(m.provider.ChainID()), m.key)
	if err != nil {
		return "", walleterr.Wrap(err, "signing transaction")
	}

	if err = m.provider.Broadcast(ctx, signed); err != nil {
		return "", err
	}

	return signed.Hash().Hex(), nil
}
