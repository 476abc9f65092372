package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *RelayProviderConfig {
	cfg := NewDefaultRelayProviderConfig()
	cfg.KeySource.Value = "0x0102"
	return cfg
}

func TestRelayProviderConfig_DefaultsValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Second, cfg.Retry.RequestTimeout)
	assert.Equal(t, DemoChainID, cfg.ChainID)
	assert.Equal(t, "/api/v3", cfg.PathPrefix)
}

func TestRelayProviderConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *RelayProviderConfig)
		expectedErr string
	}{
		{"no nodes", func(c *RelayProviderConfig) { c.Nodes = nil }, "nodes: Required value"},
		{"bad node", func(c *RelayProviderConfig) { c.Nodes = []string{"ftp://x"} }, "nodes[0]: Invalid value"},
		{"no chain", func(c *RelayProviderConfig) { c.ChainID = "" }, "chainId: Required value"},
		{"bad path", func(c *RelayProviderConfig) { c.PathPrefix = "api" }, "pathPrefix: Invalid value"},
		{"no version", func(c *RelayProviderConfig) { c.AAT.Version = "" }, "aat.version: Required value"},
		{"bad scheme", func(c *RelayProviderConfig) { c.AAT.Scheme = "rsa" }, "aat.scheme: Unsupported value"},
		{"bad app key", func(c *RelayProviderConfig) { c.AAT.AppPublicKey = "zz" }, "aat.appPublicKey: Invalid value"},
		{"hex without value", func(c *RelayProviderConfig) { c.KeySource.Value = "" }, "keySource.value: Required value"},
		{"file without path", func(c *RelayProviderConfig) { c.KeySource.Type = KeySourceTypeFile }, "keySource.path: Required value"},
		{"kms without ciphertext", func(c *RelayProviderConfig) { c.KeySource.Type = KeySourceTypeAWSKMS }, "keySource.ciphertextB64: Required value"},
		{"unknown key source", func(c *RelayProviderConfig) { c.KeySource.Type = "vault" }, "keySource.type: Unsupported value"},
		{"zero attempts", func(c *RelayProviderConfig) { c.Retry.MaxAttempts = 0 }, "retry.maxAttempts: Invalid value"},
		{"zero timeout", func(c *RelayProviderConfig) { c.Retry.RequestTimeout = 0 }, "retry.requestTimeout: Invalid value"},
		{"badger without path", func(c *RelayProviderConfig) { c.TokenStore.Type = TokenStoreTypeBadger }, "tokenStore.path: Required value"},
		{"redis without address", func(c *RelayProviderConfig) { c.TokenStore.Type = TokenStoreTypeRedis }, "tokenStore.redisAddress: Required value"},
		{"negative rate", func(c *RelayProviderConfig) { c.RateLimit.RelaysPerSecond = -1 }, "rateLimit.relaysPerSecond: Invalid value"},
		{"bad client key", func(c *RelayProviderConfig) { c.ClientPrivateKey = "nothex" }, "clientPrivateKey: Invalid value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestRelayProviderConfig_ValidateAggregates(t *testing.T) {
	cfg := validConfig()
	cfg.Nodes = nil
	cfg.ChainID = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nodes")
	assert.Contains(t, err.Error(), "chainId")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.yaml")
	contents := `
nodes:
  - https://node-1.example.com
  - https://node-2.example.com
chainId: "0001"
keySource:
  type: file
  path: /etc/relay/app.key
retry:
  maxAttempts: 3
  requestTimeout: 2s
tokenStore:
  type: badger
  path: /var/lib/relay
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"https://node-1.example.com", "https://node-2.example.com"}, cfg.Nodes)
	assert.Equal(t, "0001", cfg.ChainID)
	assert.Equal(t, KeySourceTypeFile, cfg.KeySource.Type)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.Retry.MaxBackoff)
	assert.Equal(t, DefaultPathPrefix, cfg.PathPrefix)
	assert.Equal(t, TokenStoreTypeBadger, cfg.TokenStore.Type)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodes: [unterminated"), 0o600))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}
