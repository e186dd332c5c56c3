// Package chain provides the facade over the configured Ethereum network
// endpoint plus common amount and address utilities.
package chain

import (
	"math/big"
	"strings"

	walleterr "github.com/vswallet/vswallet/pkg/errors"
)

// WeiDecimals is the number of decimals in the network's base unit.
const WeiDecimals = 18

// ParseEther parses a decimal ether amount string to wei.
// For example, "1.5" returns 1500000000000000000.
//
//nolint:gocognit,gocyclo // Decimal parsing requires sequential validation steps
func ParseEther(amount string) (*big.Int, error) {
	if amount == "" {
		return nil, walleterr.ErrInvalidAmount
	}

	// Negative amounts are never valid for transfers
	if strings.HasPrefix(amount, "-") {
		return nil, walleterr.ErrInvalidAmount
	}

	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return nil, walleterr.ErrInvalidAmount
	}

	intPart := parts[0]
	decPart := ""
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if intPart == "" {
		intPart = "0"
	}
	for _, c := range intPart {
		if c < '0' || c > '9' {
			return nil, walleterr.ErrInvalidAmount
		}
	}
	intVal, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, walleterr.ErrInvalidAmount
	}

	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(WeiDecimals), nil)
	result := new(big.Int).Mul(intVal, multiplier)

	if decPart != "" {
		for _, c := range decPart {
			if c < '0' || c > '9' {
				return nil, walleterr.ErrInvalidAmount
			}
		}

		// Pad or truncate the fractional part to 18 digits
		for len(decPart) < WeiDecimals {
			decPart += "0"
		}
		decPart = decPart[:WeiDecimals]

		decVal, ok := new(big.Int).SetString(decPart, 10)
		if !ok {
			return nil, walleterr.ErrInvalidAmount
		}

		result = result.Add(result, decVal)
	}

	return result, nil
}

// FormatEther converts a wei amount to a human-readable ether string.
// Trailing zeros after the decimal point are removed.
// For example, 1500000000000000000 returns "1.5".
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	neg := wei.Sign() < 0
	str := new(big.Int).Abs(wei).String()

	// Pad with leading zeros so there is always an integer digit
	for len(str) <= WeiDecimals {
		str = "0" + str
	}

	intPart := str[:len(str)-WeiDecimals]
	decPart := strings.TrimRight(str[len(str)-WeiDecimals:], "0")

	out := intPart
	if decPart != "" {
		out += "." + decPart
	}
	if neg {
		out = "-" + out
	}
	return out
}
