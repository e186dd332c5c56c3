package session

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// Derivation path components for m/44'/60'/0'/0/0, the conventional first
// external Ethereum account. Phrases imported from other wallets resolve
// to the same address they show there.
const (
	purposeIndex = bip32.FirstHardenedChild + 44
	coinIndex    = bip32.FirstHardenedChild + 60
	accountIndex = bip32.FirstHardenedChild + 0
	changeIndex  = 0
	addressIndex = 0
)

// DeriveKey derives the secp256k1 signing key for a mnemonic phrase.
func DeriveKey(phrase string) (*ecdsa.PrivateKey, error) {
	if err := ValidateMnemonic(phrase); err != nil {
		return nil, err
	}

	seed := bip39.NewSeed(NormalizeMnemonic(phrase), "")

	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("deriving master key: %w", err)
	}

	child := master
	for _, index := range []uint32{purposeIndex, coinIndex, accountIndex, changeIndex, addressIndex} {
		if child, err = child.NewChildKey(index); err != nil {
			return nil, fmt.Errorf("deriving child key %d: %w", index, err)
		}
	}

	key, err := crypto.ToECDSA(child.Key)
	if err != nil {
		return nil, fmt.Errorf("parsing derived key: %w", err)
	}

	return key, nil
}

// AddressOf returns the EIP-55 checksummed address for a signing key.
func AddressOf(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}
