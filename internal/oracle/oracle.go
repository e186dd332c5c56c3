// Package oracle reads a fixed-address on-chain price feed and tracks
// price change over caller-chosen windows.
package oracle

import (
	"context"
	"math/big"

	"github.com/vswallet/vswallet/internal/chain"
	walleterr "github.com/vswallet/vswallet/pkg/errors"
)

// latestRoundDataSelector is the 4-byte selector of the aggregator's
// latestRoundData() method.
var latestRoundDataSelector = []byte{0xfe, 0xaf, 0x96, 0x8c}

// answerDecimals is the feed's fixed-point exponent. USD feeds report
// eight decimals.
const answerDecimals = 8

// answerScale is 10^answerDecimals.
var answerScale = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(answerDecimals), nil))

// Oracle reads the latest price from one aggregator contract.
type Oracle struct {
	provider    chain.Provider
	feedAddress string
	cache       *ChangeCache
}

// New creates an oracle over the provider for one feed contract.
func New(provider chain.Provider, feedAddress string) *Oracle {
	return &Oracle{
		provider:    provider,
		feedAddress: feedAddress,
		cache:       NewChangeCache(),
	}
}

// CurrentPrice returns the feed's latest answer scaled to a float. It
// refuses to touch the network before the provider is initialized.
func (o *Oracle) CurrentPrice(ctx context.Context) (float64, error) {
	if !o.provider.Initialized() {
		return 0, walleterr.ErrProviderNotInitialized
	}

	data, err := o.provider.Call(ctx, o.feedAddress, latestRoundDataSelector)
	if err != nil {
		return 0, err
	}

	// latestRoundData returns five words; the answer is the second
	if len(data) < 64 {
		return 0, walleterr.WithDetails(walleterr.ErrNetworkError, map[string]string{
			"reason": "short price feed response",
		})
	}

	answer := new(big.Int).SetBytes(data[32:64])
	// int256 two's complement
	if data[32]&0x80 != 0 {
		answer.Sub(answer, new(big.Int).Lsh(big.NewInt(1), 256))
	}

	price, _ := new(big.Float).Quo(new(big.Float).SetInt(answer), answerScale).Float64()
	return price, nil
}

// PriceChange returns the percent change of the current price against the
// cached baseline for the given window in days. A freshly created or
// rebased baseline yields zero for that call.
func (o *Oracle) PriceChange(ctx context.Context, windowDays int) (float64, error) {
	if windowDays <= 0 {
		return 0, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "window must be at least one day")
	}

	current, err := o.CurrentPrice(ctx)
	if err != nil {
		return 0, err
	}

	return o.cache.Change(windowDays, current), nil
}
