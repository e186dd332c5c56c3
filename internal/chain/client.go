package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	walleterr "github.com/vswallet/vswallet/pkg/errors"
)

// DefaultRPCTimeout bounds every individual RPC call. A hung endpoint
// surfaces as ErrProviderTimeout instead of blocking the command forever.
const DefaultRPCTimeout = 15 * time.Second

// ErrRPCURLRequired indicates the RPC URL was not provided.
var ErrRPCURLRequired = &walleterr.WalletError{
	Code:     "RPC_URL_REQUIRED",
	Message:  "RPC URL is required",
	ExitCode: walleterr.ExitInput,
}

// ClientOptions contains optional configuration for the client.
type ClientOptions struct {
	// ChainID overrides chain ID detection at connect time.
	ChainID *big.Int

	// RPCTimeout overrides DefaultRPCTimeout.
	RPCTimeout time.Duration

	// Limiter overrides the default per-method rate limiter.
	Limiter *RateLimiter
}

// Compile-time interface check
var _ Provider = (*Client)(nil)

// Client implements Provider on top of go-ethereum's ethclient.
// The connection is established lazily: operations connect on first use,
// and Initialize may be called explicitly ahead of time.
type Client struct {
	rpcURL  string
	timeout time.Duration
	limiter *RateLimiter

	mu      sync.Mutex
	eth     *ethclient.Client
	chainID *big.Int
}

// NewClient creates a client for the configured network endpoint.
// No connection is attempted until Initialize or the first operation.
func NewClient(rpcURL string, opts *ClientOptions) (*Client, error) {
	if rpcURL == "" {
		return nil, ErrRPCURLRequired
	}

	c := &Client{
		rpcURL:  rpcURL,
		timeout: DefaultRPCTimeout,
		limiter: DefaultRateLimiter(),
	}

	if opts != nil {
		if opts.ChainID != nil {
			c.chainID = opts.ChainID
		}
		if opts.RPCTimeout > 0 {
			c.timeout = opts.RPCTimeout
		}
		if opts.Limiter != nil {
			c.limiter = opts.Limiter
		}
	}

	return c, nil
}

// Initialize establishes connectivity to the endpoint. Idempotent.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

// Initialized reports whether the client has connected.
func (c *Client) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eth != nil
}

// ChainID returns the connected network's chain ID, or nil before connect.
func (c *Client) ChainID() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainID == nil {
		return nil
	}
	return new(big.Int).Set(c.chainID)
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
	}
}

// connectLocked dials the endpoint and resolves the chain ID.
// Callers must hold c.mu.
func (c *Client) connectLocked(ctx context.Context) error {
	if c.eth != nil {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	eth, err := ethclient.DialContext(callCtx, c.rpcURL)
	if err != nil {
		return wrapRPCError(callCtx, fmt.Errorf("dialing %s: %w", c.rpcURL, err))
	}

	if c.chainID == nil {
		chainID, idErr := eth.ChainID(callCtx)
		if idErr != nil {
			eth.Close()
			return wrapRPCError(callCtx, fmt.Errorf("resolving chain ID: %w", idErr))
		}
		c.chainID = chainID
	}

	c.eth = eth
	return nil
}

// ensure connects lazily and returns the underlying client.
func (c *Client) ensure(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}
	return c.eth, nil
}

// Balance returns the address balance formatted in ether.
func (c *Client) Balance(ctx context.Context, address string) (string, error) {
	if !IsValidAddress(address) {
		return "", walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{
			"address": address,
		})
	}

	eth, err := c.ensure(ctx)
	if err != nil {
		return "", err
	}

	if err = c.limiter.Wait(ctx, "eth_getBalance"); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	wei, err := eth.BalanceAt(callCtx, common.HexToAddress(address), nil)
	if err != nil {
		return "", wrapRPCError(callCtx, fmt.Errorf("getting balance: %w", err))
	}

	return FormatEther(wei), nil
}

// FeeData returns current gas pricing derived from the head block's base
// fee and the suggested tip. Networks without a base fee report
// ErrFeeUnavailable; the caller must not assume EIP-1559 pricing exists.
func (c *Client) FeeData(ctx context.Context) (*FeeData, error) {
	eth, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}

	if err = c.limiter.Wait(ctx, "eth_feeData"); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	head, err := eth.HeaderByNumber(callCtx, nil)
	if err != nil {
		return nil, wrapRPCError(callCtx, fmt.Errorf("getting head block: %w", err))
	}
	if head.BaseFee == nil {
		return nil, walleterr.ErrFeeUnavailable
	}

	tip, err := eth.SuggestGasTipCap(callCtx)
	if err != nil {
		return nil, wrapRPCError(callCtx, fmt.Errorf("getting gas tip: %w", err))
	}

	// maxFeePerGas = 2*baseFee + tip, the conventional ceiling leaving
	// headroom for base fee growth across a few blocks
	maxFee := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
	maxFee.Add(maxFee, tip)

	return &FeeData{
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: tip,
	}, nil
}

// EstimateGas estimates gas for a plain value transfer.
func (c *Client) EstimateGas(ctx context.Context, from, to string, value *big.Int) (uint64, error) {
	eth, err := c.ensure(ctx)
	if err != nil {
		return 0, err
	}

	if err = c.limiter.Wait(ctx, "eth_estimateGas"); err != nil {
		return 0, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	toAddr := common.HexToAddress(to)
	gas, err := eth.EstimateGas(callCtx, ethereum.CallMsg{
		From:  common.HexToAddress(from),
		To:    &toAddr,
		Value: value,
	})
	if err != nil {
		return 0, wrapRPCError(callCtx, fmt.Errorf("estimating gas: %w", err))
	}

	return gas, nil
}

// Nonce returns the next nonce for the address, including pending txs.
func (c *Client) Nonce(ctx context.Context, address string) (uint64, error) {
	eth, err := c.ensure(ctx)
	if err != nil {
		return 0, err
	}

	if err = c.limiter.Wait(ctx, "eth_getTransactionCount"); err != nil {
		return 0, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	nonce, err := eth.PendingNonceAt(callCtx, common.HexToAddress(address))
	if err != nil {
		return 0, wrapRPCError(callCtx, fmt.Errorf("getting nonce: %w", err))
	}

	return nonce, nil
}

// Broadcast submits a signed transaction to the network.
func (c *Client) Broadcast(ctx context.Context, tx *types.Transaction) error {
	eth, err := c.ensure(ctx)
	if err != nil {
		return err
	}

	if err = c.limiter.Wait(ctx, "eth_sendRawTransaction"); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err = eth.SendTransaction(callCtx, tx); err != nil {
		if ctxErr := callCtx.Err(); ctxErr != nil {
			return wrapRPCError(callCtx, ctxErr)
		}
		return walleterr.WithDetails(walleterr.ErrTxRejected, map[string]string{
			"reason": err.Error(),
		})
	}

	return nil
}

// Receipt looks up the mined receipt for a transaction hash.
// A nil receipt with nil error means the transaction is not yet mined.
func (c *Client) Receipt(ctx context.Context, hash string) (*types.Receipt, error) {
	eth, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}

	if err = c.limiter.Wait(ctx, "eth_getTransactionReceipt"); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	receipt, err := eth.TransactionReceipt(callCtx, common.HexToHash(hash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, wrapRPCError(callCtx, fmt.Errorf("getting receipt: %w", err))
	}

	return receipt, nil
}

// Call executes a read-only contract call against the latest block.
func (c *Client) Call(ctx context.Context, to string, data []byte) ([]byte, error) {
	eth, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}

	if err = c.limiter.Wait(ctx, "eth_call"); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	toAddr := common.HexToAddress(to)
	out, err := eth.CallContract(callCtx, ethereum.CallMsg{
		To:   &toAddr,
		Data: data,
	}, nil)
	if err != nil {
		return nil, wrapRPCError(callCtx, fmt.Errorf("calling contract: %w", err))
	}

	return out, nil
}

// WaitMined polls for the receipt of a broadcast transaction until it is
// mined or the context expires. For callers that explicitly want one
// confirmation at the point of submission instead of a background watch.
func WaitMined(ctx context.Context, p Provider, hash string, interval time.Duration) (*types.Receipt, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := p.Receipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, wrapRPCError(ctx, ctx.Err())
		case <-ticker.C:
		}
	}
}

// wrapRPCError maps context deadline expiry onto ErrProviderTimeout and
// everything else onto a network error carrying the cause.
func wrapRPCError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return walleterr.Wrap(walleterr.ErrProviderTimeout, "rpc call")
	}
	var we *walleterr.WalletError
	if errors.As(err, &we) {
		return err
	}
	return &walleterr.WalletError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		Cause:    err,
		ExitCode: walleterr.ExitGeneral,
	}
}
