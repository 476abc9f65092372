package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
)

func TestBadgerPersistence_SaveAndLoadToken(t *testing.T) {
	bp, err := NewBadgerPersistence(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = bp.Close() }()

	token := types.NewAuthToken("0.0.1", []byte{0x01, 0x02}, []byte{0x03}, []byte{0x04})
	require.NoError(t, bp.SaveToken(token))

	loaded, err := bp.LoadToken(token.ClientPublicKey())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, token.Equal(loaded))
}

func TestBadgerPersistence_LoadToken_NotFound(t *testing.T) {
	bp, err := NewBadgerPersistence(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = bp.Close() }()

	loaded, err := bp.LoadToken([]byte{0xff})
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestBadgerPersistence_ListAndDelete(t *testing.T) {
	bp, err := NewBadgerPersistence(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = bp.Close() }()

	for _, b := range []byte{3, 1, 2} {
		require.NoError(t, bp.SaveToken(types.NewAuthToken("0.0.1", []byte{b}, []byte{0xaa}, []byte{0xbb})))
	}

	tokens, err := bp.ListTokens()
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, []byte{1}, tokens[0].ClientPublicKey())
	assert.Equal(t, []byte{3}, tokens[2].ClientPublicKey())

	require.NoError(t, bp.DeleteToken([]byte{2}))
	require.NoError(t, bp.DeleteToken([]byte{2}))

	tokens, err = bp.ListTokens()
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}

func TestBadgerPersistence_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	logger := zaptest.NewLogger(t)
	token := types.NewAuthToken("0.0.1", []byte{0x0a}, []byte{0x0b}, []byte{0x0c})

	bp, err := NewBadgerPersistence(dir, logger)
	require.NoError(t, err)
	require.NoError(t, bp.SaveToken(token))
	require.NoError(t, bp.Close())

	bp, err = NewBadgerPersistence(dir, logger)
	require.NoError(t, err)
	defer func() { _ = bp.Close() }()

	require.NoError(t, bp.HealthCheck())
	loaded, err := bp.LoadToken(token.ClientPublicKey())
	require.NoError(t, err)
	assert.True(t, token.Equal(loaded))
}

func TestBadgerPersistence_Closed(t *testing.T) {
	bp, err := NewBadgerPersistence(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, bp.Close())
	require.NoError(t, bp.Close())

	require.Error(t, bp.HealthCheck())
	require.Error(t, bp.SaveToken(types.NewAuthToken("0.0.1", []byte{1}, []byte{2}, []byte{3})))
}
