package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories returns each Store implementation under a fresh root.
func storeFactories(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"mem":  NewMemStore(),
		"file": NewFileStore(t.TempDir()),
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	t.Parallel()
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get("wallets")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set("wallets", []byte(`[{"id":"w-1"}]`)))

			data, ok, err := s.Get("wallets")
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `[{"id":"w-1"}]`, string(data))

			// Overwrite replaces the previous value
			require.NoError(t, s.Set("wallets", []byte(`[]`)))
			data, ok, err = s.Get("wallets")
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `[]`, string(data))

			require.NoError(t, s.Delete("wallets"))
			_, ok, err = s.Get("wallets")
			require.NoError(t, err)
			assert.False(t, ok)

			// Deleting a missing key is a no-op
			require.NoError(t, s.Delete("wallets"))
		})
	}
}

func TestStore_KeysByPrefix(t *testing.T) {
	t.Parallel()
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set("wallets", []byte(`[]`)))
			require.NoError(t, s.Set("wallet_transactions_w-2", []byte(`[]`)))
			require.NoError(t, s.Set("wallet_transactions_w-1", []byte(`[]`)))

			keys, err := s.Keys("wallet_transactions_")
			require.NoError(t, err)
			assert.Equal(t, []string{"wallet_transactions_w-1", "wallet_transactions_w-2"}, keys)

			all, err := s.Keys("")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestStore_RejectsInvalidKeys(t *testing.T) {
	t.Parallel()
	for name, s := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			require.Error(t, s.Set("../escape", []byte("x")))
			require.Error(t, s.Set("", []byte("x")))
			_, _, err := s.Get("bad/key")
			require.Error(t, err)
		})
	}
}

func TestMemStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()
	s := NewMemStore()
	require.NoError(t, s.Set("k", []byte("abc")))

	data, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)

	data[0] = 'z'

	again, _, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
