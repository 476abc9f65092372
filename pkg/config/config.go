package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/util"
)

// Environment variable names for relay client configuration
const (
	EnvConfigFile          = "RELAY_CONFIG_FILE"
	EnvRelayNodes          = "RELAY_NODES"
	EnvRelayChainID        = "RELAY_CHAIN_ID"
	EnvRelayPathPrefix     = "RELAY_PATH_PREFIX"
	EnvAATVersion          = "RELAY_AAT_VERSION"
	EnvAATScheme           = "RELAY_AAT_SCHEME"
	EnvAATClientPublicKey  = "RELAY_AAT_CLIENT_PUBLIC_KEY"
	EnvAATAppPublicKey     = "RELAY_AAT_APP_PUBLIC_KEY"
	EnvKeySourceType       = "RELAY_KEY_SOURCE"
	EnvAppPrivateKey       = "RELAY_APP_PRIVATE_KEY"
	EnvAppPrivateKeyFile   = "RELAY_APP_PRIVATE_KEY_FILE"
	EnvKMSCiphertext       = "RELAY_KMS_CIPHERTEXT"
	EnvKMSKeyID            = "RELAY_KMS_KEY_ID"
	EnvAWSRegion           = "RELAY_AWS_REGION"
	EnvClientPrivateKey    = "RELAY_CLIENT_PRIVATE_KEY"
	EnvMaxAttempts         = "RELAY_MAX_ATTEMPTS"
	EnvRequestTimeout      = "RELAY_REQUEST_TIMEOUT"
	EnvOverallTimeout      = "RELAY_OVERALL_TIMEOUT"
	EnvRelaysPerSecond     = "RELAY_RATE_LIMIT"
	EnvTokenStoreType      = "RELAY_TOKEN_STORE"
	EnvTokenStorePath      = "RELAY_TOKEN_STORE_PATH"
	EnvTokenStoreRedisAddr = "RELAY_TOKEN_STORE_REDIS_ADDRESS"
	EnvDebug               = "RELAY_DEBUG"
)

const (
	// DemoChainID is the ICON relay chain identifier on the Pocket network
	DemoChainID = "d9d77bce50d80e70026bd240fb0759f08aab7aee63d0a6d98c545f2b5ae0a0b8"
	// DemoNetworkID is the ICON testnet network id used when building transfers
	DemoNetworkID = 80

	DefaultPathPrefix = "/api/v3"
	DefaultAATVersion = "0.0.1"
	DefaultRelayNode  = "http://0.0.0.0:8081"
)

type KeySourceType string

const (
	KeySourceTypeHex    KeySourceType = "hex"
	KeySourceTypeFile   KeySourceType = "file"
	KeySourceTypeAWSKMS KeySourceType = "aws-kms"
)

type TokenStoreType string

const (
	TokenStoreTypeNone   TokenStoreType = ""
	TokenStoreTypeMemory TokenStoreType = "memory"
	TokenStoreTypeBadger TokenStoreType = "badger"
	TokenStoreTypeRedis  TokenStoreType = "redis"
)

type AATConfig struct {
	Version         string `json:"version" yaml:"version"`
	Scheme          string `json:"scheme" yaml:"scheme"`
	ClientPublicKey string `json:"clientPublicKey" yaml:"clientPublicKey"`
	AppPublicKey    string `json:"appPublicKey" yaml:"appPublicKey"`
}

type RetryConfig struct {
	MaxAttempts     int           `json:"maxAttempts" yaml:"maxAttempts"`
	RequestTimeout  time.Duration `json:"requestTimeout" yaml:"requestTimeout"`
	OverallTimeout  time.Duration `json:"overallTimeout" yaml:"overallTimeout"`
	InitialBackoff  time.Duration `json:"initialBackoff" yaml:"initialBackoff"`
	MaxBackoff      time.Duration `json:"maxBackoff" yaml:"maxBackoff"`
	BackoffMultiple float64       `json:"backoffMultiple" yaml:"backoffMultiple"`
}

type RateLimitConfig struct {
	RelaysPerSecond float64 `json:"relaysPerSecond" yaml:"relaysPerSecond"`
	Burst           int     `json:"burst" yaml:"burst"`
}

// KeySourceConfig says where the application private key comes from
type KeySourceConfig struct {
	Type          KeySourceType `json:"type" yaml:"type"`
	Value         string        `json:"value,omitempty" yaml:"value,omitempty"`
	Path          string        `json:"path,omitempty" yaml:"path,omitempty"`
	CiphertextB64 string        `json:"ciphertextB64,omitempty" yaml:"ciphertextB64,omitempty"`
	KMSKeyID      string        `json:"kmsKeyId,omitempty" yaml:"kmsKeyId,omitempty"`
	Region        string        `json:"region,omitempty" yaml:"region,omitempty"`
}

type TokenStoreConfig struct {
	Type          TokenStoreType `json:"type" yaml:"type"`
	Path          string         `json:"path,omitempty" yaml:"path,omitempty"`
	RedisAddress  string         `json:"redisAddress,omitempty" yaml:"redisAddress,omitempty"`
	RedisPassword string         `json:"redisPassword,omitempty" yaml:"redisPassword,omitempty"`
	RedisDB       int            `json:"redisDb,omitempty" yaml:"redisDb,omitempty"`
	KeyPrefix     string         `json:"keyPrefix,omitempty" yaml:"keyPrefix,omitempty"`
}

// RelayProviderConfig is the complete configuration of a relay client
type RelayProviderConfig struct {
	Nodes      []string `json:"nodes" yaml:"nodes"`
	ChainID    string   `json:"chainId" yaml:"chainId"`
	PathPrefix string   `json:"pathPrefix" yaml:"pathPrefix"`

	AAT       AATConfig       `json:"aat" yaml:"aat"`
	KeySource KeySourceConfig `json:"keySource" yaml:"keySource"`
	// ClientPrivateKey signs relay request hashes; optional
	ClientPrivateKey string `json:"clientPrivateKey,omitempty" yaml:"clientPrivateKey,omitempty"`

	Retry               RetryConfig      `json:"retry" yaml:"retry"`
	RateLimit           RateLimitConfig  `json:"rateLimit" yaml:"rateLimit"`
	NonRetryableMethods []string         `json:"nonRetryableMethods,omitempty" yaml:"nonRetryableMethods,omitempty"`
	TokenStore          TokenStoreConfig `json:"tokenStore" yaml:"tokenStore"`

	Debug bool `json:"debug" yaml:"debug"`
}

// NewDefaultRelayProviderConfig returns the configuration used when nothing is overridden
func NewDefaultRelayProviderConfig() *RelayProviderConfig {
	return &RelayProviderConfig{
		Nodes:      []string{DefaultRelayNode},
		ChainID:    DemoChainID,
		PathPrefix: DefaultPathPrefix,
		AAT: AATConfig{
			Version: DefaultAATVersion,
			Scheme:  "ed25519",
		},
		KeySource: KeySourceConfig{Type: KeySourceTypeHex},
		Retry: RetryConfig{
			MaxAttempts:     5,
			RequestTimeout:  100000 * time.Millisecond,
			OverallTimeout:  10000000 * time.Millisecond,
			InitialBackoff:  100 * time.Millisecond,
			MaxBackoff:      5 * time.Second,
			BackoffMultiple: 2,
		},
	}
}

// LoadFromFile overlays a YAML (or JSON) config file on the defaults
func LoadFromFile(path string) (*RelayProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg := NewDefaultRelayProviderConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every configuration problem at once
func (c *RelayProviderConfig) Validate() error {
	var allErrors field.ErrorList

	nodesPath := field.NewPath("nodes")
	if len(c.Nodes) == 0 {
		allErrors = append(allErrors, field.Required(nodesPath, "at least one relay node is required"))
	}
	for i, n := range c.Nodes {
		if !strings.HasPrefix(n, "http://") && !strings.HasPrefix(n, "https://") {
			allErrors = append(allErrors, field.Invalid(nodesPath.Index(i), n, "must be an http or https url"))
		}
	}
	if c.ChainID == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("chainId"), "chainId is required"))
	}
	if c.PathPrefix != "" && !strings.HasPrefix(c.PathPrefix, "/") {
		allErrors = append(allErrors, field.Invalid(field.NewPath("pathPrefix"), c.PathPrefix, "must start with /"))
	}

	allErrors = append(allErrors, c.AAT.validate(field.NewPath("aat"))...)
	allErrors = append(allErrors, c.KeySource.validate(field.NewPath("keySource"))...)
	allErrors = append(allErrors, c.Retry.validate(field.NewPath("retry"))...)
	allErrors = append(allErrors, c.TokenStore.validate(field.NewPath("tokenStore"))...)

	if c.ClientPrivateKey != "" {
		if _, err := util.DecodeHex(c.ClientPrivateKey); err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("clientPrivateKey"), "<redacted>", "must be hex"))
		}
	}
	if c.RateLimit.RelaysPerSecond < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateLimit", "relaysPerSecond"), c.RateLimit.RelaysPerSecond, "cannot be negative"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (a *AATConfig) validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if a.Version == "" {
		errs = append(errs, field.Required(path.Child("version"), "version is required"))
	}
	switch a.Scheme {
	case "", "ed25519", "secp256k1":
	default:
		errs = append(errs, field.NotSupported(path.Child("scheme"), a.Scheme, []string{"ed25519", "secp256k1"}))
	}
	for name, value := range map[string]string{"clientPublicKey": a.ClientPublicKey, "appPublicKey": a.AppPublicKey} {
		if value == "" {
			continue
		}
		if _, err := util.DecodeHex(value); err != nil {
			errs = append(errs, field.Invalid(path.Child(name), value, "must be hex"))
		}
	}
	return errs
}

func (k *KeySourceConfig) validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	switch k.Type {
	case KeySourceTypeHex:
		if k.Value == "" {
			errs = append(errs, field.Required(path.Child("value"), "value is required for hex key source"))
		}
	case KeySourceTypeFile:
		if k.Path == "" {
			errs = append(errs, field.Required(path.Child("path"), "path is required for file key source"))
		}
	case KeySourceTypeAWSKMS:
		if k.CiphertextB64 == "" {
			errs = append(errs, field.Required(path.Child("ciphertextB64"), "ciphertextB64 is required for aws-kms key source"))
		}
	default:
		errs = append(errs, field.NotSupported(path.Child("type"), k.Type, []string{
			string(KeySourceTypeHex), string(KeySourceTypeFile), string(KeySourceTypeAWSKMS),
		}))
	}
	return errs
}

func (r *RetryConfig) validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if r.MaxAttempts < 1 {
		errs = append(errs, field.Invalid(path.Child("maxAttempts"), r.MaxAttempts, "must be at least 1"))
	}
	if r.RequestTimeout <= 0 {
		errs = append(errs, field.Invalid(path.Child("requestTimeout"), r.RequestTimeout.String(), "must be positive"))
	}
	if r.OverallTimeout < 0 {
		errs = append(errs, field.Invalid(path.Child("overallTimeout"), r.OverallTimeout.String(), "cannot be negative"))
	}
	if r.BackoffMultiple < 1 {
		errs = append(errs, field.Invalid(path.Child("backoffMultiple"), r.BackoffMultiple, "must be at least 1"))
	}
	return errs
}

func (s *TokenStoreConfig) validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	switch s.Type {
	case TokenStoreTypeNone, TokenStoreTypeMemory:
	case TokenStoreTypeBadger:
		if s.Path == "" {
			errs = append(errs, field.Required(path.Child("path"), "path is required for badger token store"))
		}
	case TokenStoreTypeRedis:
		if s.RedisAddress == "" {
			errs = append(errs, field.Required(path.Child("redisAddress"), "redisAddress is required for redis token store"))
		}
	default:
		errs = append(errs, field.NotSupported(path.Child("type"), s.Type, []string{
			string(TokenStoreTypeMemory), string(TokenStoreTypeBadger), string(TokenStoreTypeRedis),
		}))
	}
	return errs
}
