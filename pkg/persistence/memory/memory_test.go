package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
)

func testToken(b byte) *types.AuthToken {
	return types.NewAuthToken("0.0.1", []byte{b, b}, []byte{0xaa}, []byte{0xbb})
}

func TestMemoryPersistence_SaveLoadDelete(t *testing.T) {
	mp := NewMemoryPersistence()
	defer func() { _ = mp.Close() }()

	token := testToken(1)
	require.NoError(t, mp.SaveToken(token))

	loaded, err := mp.LoadToken(token.ClientPublicKey())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, token.Equal(loaded))

	require.NoError(t, mp.DeleteToken(token.ClientPublicKey()))
	loaded, err = mp.LoadToken(token.ClientPublicKey())
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Idempotent delete
	require.NoError(t, mp.DeleteToken(token.ClientPublicKey()))
}

func TestMemoryPersistence_ListSorted(t *testing.T) {
	mp := NewMemoryPersistence()
	require.NoError(t, mp.SaveToken(testToken(3)))
	require.NoError(t, mp.SaveToken(testToken(1)))
	require.NoError(t, mp.SaveToken(testToken(2)))

	tokens, err := mp.ListTokens()
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	for i, tok := range tokens {
		assert.Equal(t, []byte{byte(i + 1), byte(i + 1)}, tok.ClientPublicKey())
	}
}

func TestMemoryPersistence_Closed(t *testing.T) {
	mp := NewMemoryPersistence()
	require.NoError(t, mp.HealthCheck())
	require.NoError(t, mp.Close())
	require.NoError(t, mp.Close())

	require.Error(t, mp.HealthCheck())
	require.Error(t, mp.SaveToken(testToken(1)))
	_, err := mp.LoadToken([]byte{1})
	require.Error(t, err)
	_, err = mp.ListTokens()
	require.Error(t, err)
}

func TestMemoryPersistence_ConcurrentAccess(t *testing.T) {
	mp := NewMemoryPersistence()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok := testToken(byte(i))
			if err := mp.SaveToken(tok); err != nil {
				t.Errorf("save %d: %v", i, err)
				return
			}
			loaded, err := mp.LoadToken(tok.ClientPublicKey())
			if err != nil || loaded == nil {
				t.Errorf("load %d: %v", i, fmt.Sprint(err))
			}
		}(i)
	}
	wg.Wait()

	tokens, err := mp.ListTokens()
	require.NoError(t, err)
	assert.Len(t, tokens, 50)
}
