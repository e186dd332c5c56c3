package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

// BaseTransferGas is the fixed gas cost of a plain value transfer. Callers
// fall back to it when the network refuses to estimate gas for a transfer.
const BaseTransferGas uint64 = 21000

// FeeData holds the network's current gas pricing.
type FeeData struct {
	// MaxFeePerGas is the EIP-1559 fee ceiling in wei per gas unit.
	MaxFeePerGas *big.Int

	// MaxPriorityFeePerGas is the suggested miner tip in wei per gas unit.
	MaxPriorityFeePerGas *big.Int
}

// Provider is the facade over the configured network endpoint. The nil
// receipt convention matters: Receipt returns (nil, nil) for a transaction
// the network has accepted but not yet mined.
type Provider interface {
	// Initialize establishes connectivity. It is idempotent; subsequent
	// calls are no-ops once a connection exists.
	Initialize(ctx context.Context) error

	// Initialized reports whether connectivity has been established.
	Initialized() bool

	// ChainID returns the connected network's chain ID.
	ChainID() *big.Int

	// Balance returns the address balance formatted in ether.
	Balance(ctx context.Context, address string) (string, error)

	// FeeData returns current gas pricing, or ErrFeeUnavailable when the
	// network does not report a fee per gas.
	FeeData(ctx context.Context) (*FeeData, error)

	// EstimateGas estimates gas for a value transfer. Estimation failures
	// propagate; callers decide whether to fall back to BaseTransferGas.
	EstimateGas(ctx context.Context, from, to string, value *big.Int) (uint64, error)

	// Nonce returns the next nonce for the address, including pending txs.
	Nonce(ctx context.Context, address string) (uint64, error)

	// Broadcast submits a signed transaction to the network.
	Broadcast(ctx context.Context, tx *types.Transaction) error

	// Receipt looks up the mined receipt for a transaction hash.
	// A nil receipt with nil error means "not yet mined".
	Receipt(ctx context.Context, hash string) (*types.Receipt, error)

	// Call executes a read-only contract call against the latest block.
	Call(ctx context.Context, to string, data []byte) ([]byte, error)
}
