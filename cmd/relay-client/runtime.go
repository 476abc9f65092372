package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	awsConfig "github.com/Layr-Labs/pocket-relay-provider-go/internal/aws"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/aat"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/chainclient"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/config"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/keySource"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/keySource/awsKmsKeySource"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/keySource/localKeySource"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/logger"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/persistence"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/persistence/badger"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/persistence/memory"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/persistence/redis"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/provider"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/relaySigner"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/relaySigner/inMemoryRelaySigner"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/transport"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/util"
)

// runtime holds everything a command needs, built once from flags and config
type runtime struct {
	logger  *zap.Logger
	cfg     *config.RelayProviderConfig
	manager *aat.Manager
	store   persistence.ITokenPersistence
	signer  relaySigner.IRelaySigner
}

func parseConfig(c *cli.Context) (*config.RelayProviderConfig, error) {
	cfg := config.NewDefaultRelayProviderConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("nodes") {
		cfg.Nodes = c.StringSlice("nodes")
	}
	setString(c, "chain-id", &cfg.ChainID)
	setString(c, "path-prefix", &cfg.PathPrefix)
	setString(c, "aat-version", &cfg.AAT.Version)
	setString(c, "aat-scheme", &cfg.AAT.Scheme)
	setString(c, "client-public-key", &cfg.AAT.ClientPublicKey)
	setString(c, "app-public-key", &cfg.AAT.AppPublicKey)
	if c.IsSet("key-source") {
		cfg.KeySource.Type = config.KeySourceType(c.String("key-source"))
	}
	setString(c, "app-private-key", &cfg.KeySource.Value)
	setString(c, "app-private-key-file", &cfg.KeySource.Path)
	setString(c, "kms-ciphertext", &cfg.KeySource.CiphertextB64)
	setString(c, "kms-key-id", &cfg.KeySource.KMSKeyID)
	setString(c, "aws-region", &cfg.KeySource.Region)
	setString(c, "client-private-key", &cfg.ClientPrivateKey)
	if c.IsSet("max-attempts") {
		cfg.Retry.MaxAttempts = c.Int("max-attempts")
	}
	if c.IsSet("request-timeout") {
		cfg.Retry.RequestTimeout = c.Duration("request-timeout")
	}
	if c.IsSet("overall-timeout") {
		cfg.Retry.OverallTimeout = c.Duration("overall-timeout")
	}
	if c.IsSet("rate-limit") {
		cfg.RateLimit.RelaysPerSecond = c.Float64("rate-limit")
	}
	if c.IsSet("token-store") {
		cfg.TokenStore.Type = config.TokenStoreType(c.String("token-store"))
	}
	setString(c, "token-store-path", &cfg.TokenStore.Path)
	setString(c, "token-store-redis-address", &cfg.TokenStore.RedisAddress)
	if c.IsSet("verbose") {
		cfg.Debug = c.Bool("verbose")
	}
	return cfg, nil
}

func setString(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg, err := parseConfig(c)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := newTokenStore(&cfg.TokenStore, l)
	if err != nil {
		return nil, err
	}

	scheme, err := aat.ParseScheme(cfg.AAT.Scheme)
	if err != nil {
		return nil, err
	}
	manager, err := aat.NewManager(&aat.ManagerConfig{Scheme: scheme, Store: store, Logger: l})
	if err != nil {
		return nil, fmt.Errorf("failed to create AAT manager: %w", err)
	}

	rt := &runtime{logger: l, cfg: cfg, manager: manager, store: store}

	if cfg.ClientPrivateKey != "" {
		pk, err := util.DecodeHex(cfg.ClientPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode client private key: %w", err)
		}
		rt.signer, err = inMemoryRelaySigner.NewInMemoryRelaySigner(pk, l)
		if err != nil {
			return nil, fmt.Errorf("failed to create relay signer: %w", err)
		}
	}
	return rt, nil
}

func (r *runtime) Close() {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Sugar().Warnw("Failed to close token store", "error", err)
		}
	}
	_ = r.logger.Sync()
}

func newTokenStore(cfg *config.TokenStoreConfig, l *zap.Logger) (persistence.ITokenPersistence, error) {
	switch cfg.Type {
	case config.TokenStoreTypeNone:
		return nil, nil
	case config.TokenStoreTypeMemory:
		return memory.NewMemoryPersistence(), nil
	case config.TokenStoreTypeBadger:
		store, err := badger.NewBadgerPersistence(cfg.Path, l)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger token store: %w", err)
		}
		return store, nil
	case config.TokenStoreTypeRedis:
		store, err := redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.RedisAddress,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		}, l)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis token store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported token store type %q", cfg.Type)
	}
}

func (r *runtime) newKeySource(ctx context.Context) (keySource.IKeySource, error) {
	ks := r.cfg.KeySource
	switch ks.Type {
	case config.KeySourceTypeHex:
		return localKeySource.NewHexKeySource(ks.Value)
	case config.KeySourceTypeFile:
		return localKeySource.NewFileKeySource(ks.Path, r.logger)
	case config.KeySourceTypeAWSKMS:
		awsCfg, err := awsConfig.LoadAWSConfig(ctx, ks.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		if arn, err := awsConfig.CallerARN(ctx, awsCfg); err != nil {
			r.logger.Sugar().Warnw("Failed to resolve AWS caller identity", "error", err)
		} else {
			r.logger.Sugar().Infow("Using AWS identity", "arn", arn, "region", awsCfg.Region)
		}
		return awsKmsKeySource.NewAWSKMSKeySource(awsCfg, ks.CiphertextB64, ks.KMSKeyID, r.logger)
	default:
		return nil, fmt.Errorf("unsupported key source %q", ks.Type)
	}
}

// clientPublicKey is the configured key, else the relay signer's, else the application's own key
func (r *runtime) clientPublicKey(appPublicKey []byte) ([]byte, error) {
	if r.cfg.AAT.ClientPublicKey != "" {
		return util.DecodeHex(r.cfg.AAT.ClientPublicKey)
	}
	if r.signer != nil {
		return r.signer.PublicKey(), nil
	}
	return appPublicKey, nil
}

// issueToken signs a fresh AAT with the application key from the key source
func (r *runtime) issueToken(ctx context.Context) (*types.AuthToken, error) {
	src, err := r.newKeySource(ctx)
	if err != nil {
		return nil, err
	}
	appPriv, err := src.PrivateKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load application key from %s: %w", src.Describe(), err)
	}

	var appPub []byte
	if r.cfg.AAT.AppPublicKey != "" {
		appPub, err = util.DecodeHex(r.cfg.AAT.AppPublicKey)
	} else {
		appPub, err = aat.PublicKey(r.manager.Scheme(), appPriv)
	}
	if err != nil {
		return nil, err
	}

	clientPub, err := r.clientPublicKey(appPub)
	if err != nil {
		return nil, fmt.Errorf("failed to decode client public key: %w", err)
	}
	return r.manager.Issue(r.cfg.AAT.Version, clientPub, appPub, appPriv)
}

// authToken returns the stored AAT for this client when there is one, else issues and stores a new one
func (r *runtime) authToken(ctx context.Context) (*types.AuthToken, error) {
	if r.store != nil && r.cfg.AAT.ClientPublicKey != "" {
		clientPub, err := util.DecodeHex(r.cfg.AAT.ClientPublicKey)
		if err != nil {
			return nil, err
		}
		token, err := r.manager.Load(clientPub)
		if err == nil && token.Version() == r.cfg.AAT.Version {
			r.logger.Sugar().Debugw("Using stored AAT", "client_pub_key", util.EncodeHex(clientPub))
			return token, nil
		}
		if err != nil {
			r.logger.Sugar().Debugw("No usable stored AAT", "error", err)
		}
	}

	token, err := r.issueToken(ctx)
	if err != nil {
		return nil, err
	}
	if r.store != nil {
		if err := r.manager.Save(token); err != nil {
			return nil, fmt.Errorf("failed to store AAT: %w", err)
		}
	}
	return token, nil
}

func (r *runtime) newChainClient(ctx context.Context) (*chainclient.Client, error) {
	token, err := r.authToken(ctx)
	if err != nil {
		return nil, err
	}

	nodes, err := types.NewRelayNodes(r.cfg.Nodes)
	if err != nil {
		return nil, err
	}

	tc, err := transport.NewClient(&transport.ClientConfig{
		Retry: transport.RetryConfig{
			MaxAttempts:     r.cfg.Retry.MaxAttempts,
			RequestTimeout:  r.cfg.Retry.RequestTimeout,
			OverallTimeout:  r.cfg.Retry.OverallTimeout,
			InitialBackoff:  r.cfg.Retry.InitialBackoff,
			MaxBackoff:      r.cfg.Retry.MaxBackoff,
			BackoffMultiple: r.cfg.Retry.BackoffMultiple,
		},
		RateLimit: transport.RateLimitConfig{
			RelaysPerSecond: r.cfg.RateLimit.RelaysPerSecond,
			Burst:           r.cfg.RateLimit.Burst,
		},
		Signer: r.signer,
		Logger: r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create relay transport: %w", err)
	}

	p, err := provider.New(&provider.Config{
		Nodes:               nodes,
		ChainID:             r.cfg.ChainID,
		PathPrefix:          r.cfg.PathPrefix,
		AuthToken:           token,
		Transport:           tc,
		NonRetryableMethods: r.cfg.NonRetryableMethods,
		Logger:              r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create relay provider: %w", err)
	}

	return chainclient.NewClient(p, r.logger)
}
