// Package session holds the in-memory signing session: at most one
// decrypted key at a time, derived from a BIP39 phrase and bound to a
// single wallet.
package session

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	walleterr "github.com/vswallet/vswallet/pkg/errors"
)

// whitespaceRegex matches one or more whitespace characters.
var whitespaceRegex = regexp.MustCompile(`\s+`)

// maxSuggestionDistance bounds how different a word may be from a wordlist
// entry before suggesting it would be noise.
const maxSuggestionDistance = 2

// GenerateMnemonic creates a new BIP39 mnemonic phrase.
// wordCount must be 12 (128 bits entropy) or 24 (256 bits entropy).
func GenerateMnemonic(wordCount int) (string, error) {
	var bitSize int
	switch wordCount {
	case 12:
		bitSize = 128
	case 24:
		bitSize = 256
	default:
		return "", walleterr.WithSuggestion(walleterr.ErrInvalidInput, "word count must be 12 or 24")
	}

	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", err
	}

	return bip39.NewMnemonic(entropy)
}

// NormalizeMnemonic lowercases a phrase and collapses all whitespace to
// single spaces, tolerating pasted input with line breaks or padding.
func NormalizeMnemonic(phrase string) string {
	phrase = strings.TrimSpace(strings.ToLower(phrase))
	return whitespaceRegex.ReplaceAllString(phrase, " ")
}

// ValidateMnemonic checks a phrase against BIP39 word count, wordlist, and
// checksum. For an unknown word it suggests the closest wordlist entry.
func ValidateMnemonic(phrase string) error {
	normalized := NormalizeMnemonic(phrase)
	if normalized == "" {
		return walleterr.ErrInvalidMnemonic
	}

	words := strings.Split(normalized, " ")
	switch len(words) {
	case 12, 15, 18, 21, 24:
	default:
		return walleterr.WithDetails(walleterr.ErrInvalidMnemonic, map[string]string{
			"reason": "word count must be 12, 15, 18, 21, or 24",
		})
	}

	if bip39.IsMnemonicValid(normalized) {
		return nil
	}

	// Point at the first unknown word, with a closest-match suggestion
	wordSet := make(map[string]struct{}, 2048)
	for _, w := range bip39.GetWordList() {
		wordSet[w] = struct{}{}
	}
	for i, word := range words {
		if _, ok := wordSet[word]; ok {
			continue
		}
		err := walleterr.WithDetails(walleterr.ErrInvalidMnemonic, map[string]string{
			"word":     word,
			"position": strconv.Itoa(i + 1),
		})
		if suggestion := closestWord(word); suggestion != "" {
			err = walleterr.WithSuggestion(err, "did you mean \""+suggestion+"\"?")
		}
		return err
	}

	// Every word is valid, so the checksum is wrong
	return walleterr.WithDetails(walleterr.ErrInvalidMnemonic, map[string]string{
		"reason": "checksum mismatch",
	})
}

// closestWord returns the wordlist entry nearest to word, or "" when
// nothing is close enough to be a plausible typo.
func closestWord(word string) string {
	best := ""
	bestDistance := maxSuggestionDistance + 1
	for _, candidate := range bip39.GetWordList() {
		distance := levenshtein.ComputeDistance(word, candidate)
		if distance < bestDistance {
			best = candidate
			bestDistance = distance
		}
	}
	return best
}
