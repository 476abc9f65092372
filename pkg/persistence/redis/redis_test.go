package redis

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
)

// getTestRedisAddress returns the Redis address for testing.
// Uses REDIS_TEST_ADDRESS env var if set, otherwise defaults to localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis skips the test when Redis is not reachable. Every test uses a
// unique key prefix so runs never see each other's tokens.
func requireRedis(t *testing.T) *RedisPersistence {
	t.Helper()

	cfg := &RedisConfig{
		Address:   getTestRedisAddress(),
		DB:        15,
		KeyPrefix: "test-" + uuid.NewString() + ":",
	}

	rp, err := NewRedisPersistence(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
	}
	t.Cleanup(func() { _ = rp.Close() })
	return rp
}

func TestNewRedisPersistence_ConfigValidation(t *testing.T) {
	_, err := NewRedisPersistence(nil, zaptest.NewLogger(t))
	require.Error(t, err)

	_, err = NewRedisPersistence(&RedisConfig{}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address cannot be empty")
}

func TestRedisPersistence_SaveLoadListDelete(t *testing.T) {
	rp := requireRedis(t)

	tokenA := types.NewAuthToken("0.0.1", []byte{0x0a}, []byte{0xaa}, []byte{0xbb})
	tokenB := types.NewAuthToken("0.0.1", []byte{0x0b}, []byte{0xaa}, []byte{0xbb})
	require.NoError(t, rp.SaveToken(tokenB))
	require.NoError(t, rp.SaveToken(tokenA))

	loaded, err := rp.LoadToken(tokenA.ClientPublicKey())
	require.NoError(t, err)
	assert.True(t, tokenA.Equal(loaded))

	tokens, err := rp.ListTokens()
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.True(t, tokenA.Equal(tokens[0]))

	require.NoError(t, rp.DeleteToken(tokenA.ClientPublicKey()))
	loaded, err = rp.LoadToken(tokenA.ClientPublicKey())
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, rp.HealthCheck())
}
