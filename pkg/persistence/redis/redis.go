package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/persistence"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
)

const (
	keyPrefixToken       = "relay:aat:"
	keySetTokens         = "relay:aat:index"
	keySchemaVersion     = "relay:metadata:schema_version"
	currentSchemaVersion = "v1"

	connectTimeout   = 5 * time.Second
	operationTimeout = 5 * time.Second
)

// RedisPersistence stores tokens in Redis so several relay clients can share them.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.ITokenPersistence = (*RedisPersistence)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address  string
	Password string
	DB       int
	// KeyPrefix is prepended to every key, e.g. "myapp:" yields "myapp:relay:aat:<client>".
	KeyPrefix string
}

func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to connect to Redis at %s", cfg.Address)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}

	logger.Sugar().Infow("Redis token store initialized",
		"address", cfg.Address,
		"db", cfg.DB,
		"key_prefix", cfg.KeyPrefix,
	)

	return rp, nil
}

func (r *RedisPersistence) prefixKey(key string) string {
	return r.keyPrefix + key
}

func (r *RedisPersistence) tokenKey(clientPublicKey []byte) string {
	return r.prefixKey(keyPrefixToken + persistence.TokenKey(clientPublicKey))
}

func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return errors.Wrap(err, "failed to read schema version")
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}
	return nil
}

func (r *RedisPersistence) SaveToken(token *types.AuthToken) error {
	if token == nil {
		return fmt.Errorf("cannot save nil AuthToken")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	data, err := persistence.MarshalToken(token)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.tokenKey(token.ClientPublicKey()), data, 0)
	pipe.SAdd(ctx, r.prefixKey(keySetTokens), persistence.TokenKey(token.ClientPublicKey()))
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to save token")
	}
	return nil
}

func (r *RedisPersistence) LoadToken(clientPublicKey []byte) (*types.AuthToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.tokenKey(clientPublicKey)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load token")
	}
	return persistence.UnmarshalToken(data)
}

func (r *RedisPersistence) ListTokens() ([]*types.AuthToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	members, err := r.client.SMembers(ctx, r.prefixKey(keySetTokens)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read token index")
	}
	sort.Strings(members)

	tokens := make([]*types.AuthToken, 0, len(members))
	for _, member := range members {
		data, err := r.client.Get(ctx, r.prefixKey(keyPrefixToken+member)).Bytes()
		if err == redis.Nil {
			// Index entry without a value; DeleteToken removes both, so this is a torn write.
			r.logger.Sugar().Warnw("Token index references missing token", "client_pub_key", member)
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load token %s", member)
		}
		token, err := persistence.UnmarshalToken(data)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

func (r *RedisPersistence) DeleteToken(clientPublicKey []byte) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.tokenKey(clientPublicKey))
	pipe.SRem(ctx, r.prefixKey(keySetTokens), persistence.TokenKey(clientPublicKey))
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to delete token")
	}
	return nil
}

func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return errors.Wrap(err, "failed to close redis client")
	}
	r.logger.Sugar().Info("Redis token store closed")
	return nil
}

func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	return r.client.Ping(ctx).Err()
}
