package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/vswallet/vswallet/pkg/errors"
)

func TestGenerateMnemonic(t *testing.T) {
	t.Parallel()

	t.Run("twelve words", func(t *testing.T) {
		t.Parallel()

		phrase, err := GenerateMnemonic(12)
		require.NoError(t, err)
		assert.Len(t, strings.Fields(phrase), 12)
		require.NoError(t, ValidateMnemonic(phrase))
	})

	t.Run("twenty four words", func(t *testing.T) {
		t.Parallel()

		phrase, err := GenerateMnemonic(24)
		require.NoError(t, err)
		assert.Len(t, strings.Fields(phrase), 24)
		require.NoError(t, ValidateMnemonic(phrase))
	})

	t.Run("unsupported count", func(t *testing.T) {
		t.Parallel()

		_, err := GenerateMnemonic(13)
		require.Error(t, err)
	})

	t.Run("distinct phrases", func(t *testing.T) {
		t.Parallel()

		first, err := GenerateMnemonic(12)
		require.NoError(t, err)
		second, err := GenerateMnemonic(12)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}

func TestNormalizeMnemonic(t *testing.T) {
	t.Parallel()

	got := NormalizeMnemonic("  Legal   WINNER\tthank year\n wave  ")
	assert.Equal(t, "legal winner thank year wave", got)
}

func TestValidateMnemonic(t *testing.T) {
	t.Parallel()

	const valid = "legal winner thank year wave sausage worth useful legal winner thank yellow"

	t.Run("valid phrase", func(t *testing.T) {
		t.Parallel()

		require.NoError(t, ValidateMnemonic(valid))
	})

	t.Run("valid with messy whitespace", func(t *testing.T) {
		t.Parallel()

		messy := "  Legal winner THANK year wave sausage worth useful legal winner thank  yellow "
		require.NoError(t, ValidateMnemonic(messy))
	})

	t.Run("wrong word count", func(t *testing.T) {
		t.Parallel()

		err := ValidateMnemonic("legal winner thank")
		require.ErrorIs(t, err, walleterr.ErrInvalidMnemonic)
	})

	t.Run("unknown word suggests closest", func(t *testing.T) {
		t.Parallel()

		misspelled := strings.Replace(valid, "sausage", "sausege", 1)
		err := ValidateMnemonic(misspelled)
		require.ErrorIs(t, err, walleterr.ErrInvalidMnemonic)

		var we *walleterr.WalletError
		require.ErrorAs(t, err, &we)
		assert.Contains(t, we.Suggestion, "sausage")
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		t.Parallel()

		// every word valid, checksum not
		bad := strings.TrimSpace(strings.Repeat("abandon ", 12))
		err := ValidateMnemonic(bad)
		require.ErrorIs(t, err, walleterr.ErrInvalidMnemonic)
	})
}
