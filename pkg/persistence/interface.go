package persistence

import "github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"

// ITokenPersistence stores issued Application Authentication Tokens.
// All implementations must be thread-safe as providers load tokens concurrently.
//
// Tokens are keyed by their client public key: a client relays with exactly one
// token at a time. Only public token material is stored, never private keys.
type ITokenPersistence interface {
	// SaveToken persists a token, replacing any token stored for the same client key.
	SaveToken(token *types.AuthToken) error

	// LoadToken retrieves the token for a client public key.
	// Returns nil if no token exists, error only on storage failure.
	LoadToken(clientPublicKey []byte) (*types.AuthToken, error)

	// ListTokens returns all stored tokens sorted by client public key.
	// Returns empty slice if none exist, error only on storage failure.
	ListTokens() ([]*types.AuthToken, error)

	// DeleteToken removes the token for a client public key.
	// Idempotent - returns nil if no token exists.
	DeleteToken(clientPublicKey []byte) error

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	HealthCheck() error
}
