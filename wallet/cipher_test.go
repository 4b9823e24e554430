package wallet

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("wallet-secret")
	require.NoError(t, err)

	m := Material{WalletID: "w-1", Seed: "deadbeef", NetworkID: "base-sepolia"}
	blob, err := c.Seal(m)
	require.NoError(t, err)
	assert.NotContains(t, blob, "deadbeef")

	opened, err := c.Open(blob)
	require.NoError(t, err)
	assert.Equal(t, m, opened)
}

func TestCipherOpenFailures(t *testing.T) {
	c, err := NewCipher("wallet-secret")
	require.NoError(t, err)
	other, err := NewCipher("another-secret")
	require.NoError(t, err)

	sealed, err := other.Seal(Material{WalletID: "w-1", Seed: "s"})
	require.NoError(t, err)
	noSeed, err := c.Seal(Material{WalletID: "w-1"})
	require.NoError(t, err)

	tests := []struct {
		name string
		blob string
	}{
		{name: "wrong key", blob: sealed},
		{name: "not base64", blob: "%%%"},
		{name: "too short", blob: base64.StdEncoding.EncodeToString([]byte("abc"))},
		{name: "incomplete material", blob: noSeed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Open(tt.blob)
			var decErr *DecryptionError
			assert.ErrorAs(t, err, &decErr)
		})
	}
}

func TestNewCipherRequiresKey(t *testing.T) {
	_, err := NewCipher("")
	assert.Error(t, err)
}

func TestMaterialStringHidesSeed(t *testing.T) {
	m := Material{WalletID: "w-1", Seed: "top-secret"}
	assert.Equal(t, "wallet(w-1)", m.String())
}
