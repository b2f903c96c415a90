package postgres

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSealer_RejectsShortKey(t *testing.T) {
	_, err := NewSealer([]byte("too short"))
	assert.ErrorIs(t, err, ErrInvalidSealerKey)
}

func TestSealer_RoundTrip(t *testing.T) {
	sealer, err := NewSealer(bytes.Repeat([]byte{0x42}, SealerKeySize))
	require.NoError(t, err)

	sealed, err := sealer.Seal("app-specific-password")
	require.NoError(t, err)
	assert.NotEqual(t, "app-specific-password", sealed)

	opened, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "app-specific-password", opened)
}

func TestSealer_EmptyPlaintextStaysEmpty(t *testing.T) {
	sealer, err := NewSealer(bytes.Repeat([]byte{0x42}, SealerKeySize))
	require.NoError(t, err)

	sealed, err := sealer.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	opened, err := sealer.Open("")
	require.NoError(t, err)
	assert.Empty(t, opened)
}

func TestSealer_WrongKeyFailsToOpen(t *testing.T) {
	alice, err := NewSealer(bytes.Repeat([]byte{0x01}, SealerKeySize))
	require.NoError(t, err)
	bob, err := NewSealer(bytes.Repeat([]byte{0x02}, SealerKeySize))
	require.NoError(t, err)

	sealed, err := alice.Seal("secret")
	require.NoError(t, err)

	_, err = bob.Open(sealed)
	assert.ErrorIs(t, err, ErrSealedValueCorrupt)
}

func TestSealer_GarbageValueFailsToOpen(t *testing.T) {
	sealer, err := NewSealer(bytes.Repeat([]byte{0x42}, SealerKeySize))
	require.NoError(t, err)

	_, err = sealer.Open("not base64 at all!!!")
	assert.ErrorIs(t, err, ErrSealedValueCorrupt)

	_, err = sealer.Open("QUJD") // valid base64, too short for a nonce
	assert.ErrorIs(t, err, ErrSealedValueCorrupt)
}
