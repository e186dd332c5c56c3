// Package monitor records sent transactions and follows them until the
// network reports a receipt.
package monitor

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/vswallet/vswallet/internal/store"
)

// Status is the lifecycle state of a recorded transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Record is one persisted transaction history entry. Value is the
// transferred amount as a decimal wei string, Time is epoch milliseconds
// at submission.
type Record struct {
	Hash    string `json:"hash"`
	From    string `json:"from"`
	To      string `json:"to"`
	Value   string `json:"value"`
	Time    int64  `json:"time"`
	Status  Status `json:"status"`
	GasUsed uint64 `json:"gasUsed,omitempty"`
	Note    string `json:"note,omitempty"`
}

// historyKey returns the persisted-store key for a wallet's history.
func historyKey(walletID string) string {
	return "wallet_transactions_" + walletID
}

// History persists per-wallet transaction lists, newest first. Updates
// are read-modify-write cycles guarded by a per-wallet lock, so two
// resolutions for the same wallet cannot lose each other's writes.
type History struct {
	records store.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewHistory creates a history over the given persisted store.
func NewHistory(records store.Store) *History {
	return &History{
		records: records,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (h *History) walletLock(walletID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()

	lock, ok := h.locks[walletID]
	if !ok {
		lock = &sync.Mutex{}
		h.locks[walletID] = lock
	}
	return lock
}

func (h *History) load(walletID string) ([]Record, error) {
	data, ok, err := h.records.Get(historyKey(walletID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var list []Record
	if err = json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decoding transaction history: %w", err)
	}
	return list, nil
}

func (h *History) save(walletID string, list []Record) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding transaction history: %w", err)
	}
	return h.records.Set(historyKey(walletID), data)
}

// Append prepends a record to a wallet's history.
func (h *History) Append(walletID string, record Record) error {
	lock := h.walletLock(walletID)
	lock.Lock()
	defer lock.Unlock()

	list, err := h.load(walletID)
	if err != nil {
		return err
	}
	list = append([]Record{record}, list...)
	return h.save(walletID, list)
}

// List returns a wallet's history, newest first. An unknown wallet has
// an empty history.
func (h *History) List(walletID string) ([]Record, error) {
	lock := h.walletLock(walletID)
	lock.Lock()
	defer lock.Unlock()
	return h.load(walletID)
}

// Resolve moves a pending record to a terminal status and stores the gas
// used. It reports whether the record transitioned; a record that is
// already terminal, or unknown, stays untouched.
func (h *History) Resolve(walletID, hash string, status Status, gasUsed uint64) (bool, error) {
	lock := h.walletLock(walletID)
	lock.Lock()
	defer lock.Unlock()

	list, err := h.load(walletID)
	if err != nil {
		return false, err
	}

	for i := range list {
		if list[i].Hash != hash {
			continue
		}
		if list[i].Status != StatusPending {
			return false, nil
		}
		list[i].Status = status
		list[i].GasUsed = gasUsed
		return true, h.save(walletID, list)
	}
	return false, nil
}
