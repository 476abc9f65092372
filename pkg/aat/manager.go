package aat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/persistence"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/util"
)

// ManagerConfig configures a Manager
type ManagerConfig struct {
	Scheme Scheme
	// Store is optional; without it Save and Load are unavailable.
	Store  persistence.ITokenPersistence
	Logger *zap.Logger
}

// Manager issues, verifies and keeps AATs for a single signature scheme
type Manager struct {
	scheme Scheme
	store  persistence.ITokenPersistence
	logger *zap.Logger
}

func NewManager(config *ManagerConfig) (*Manager, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	scheme, err := ParseScheme(string(config.Scheme))
	if err != nil {
		return nil, err
	}
	return &Manager{
		scheme: scheme,
		store:  config.Store,
		logger: config.Logger,
	}, nil
}

func (m *Manager) Scheme() Scheme {
	return m.scheme
}

// Issue signs a new token with the manager's scheme
func (m *Manager) Issue(version string, clientPublicKey, applicationPublicKey, applicationPrivateKey []byte) (*types.AuthToken, error) {
	token, err := IssueWithScheme(m.scheme, version, clientPublicKey, applicationPublicKey, applicationPrivateKey)
	if err != nil {
		m.logger.Sugar().Errorw("Failed to issue AAT",
			"scheme", m.scheme,
			"version", version,
			"error", err,
		)
		return nil, err
	}
	m.logger.Sugar().Infow("Issued AAT",
		"scheme", m.scheme,
		"version", version,
		"client_pub_key", util.EncodeHex(clientPublicKey),
		"app_pub_key", util.EncodeHex(applicationPublicKey),
	)
	return token, nil
}

func (m *Manager) Verify(token *types.AuthToken) bool {
	return Verify(token)
}

// Save stores a verified token, keyed by its client public key
func (m *Manager) Save(token *types.AuthToken) error {
	if m.store == nil {
		return fmt.Errorf("no token store configured")
	}
	if !Verify(token) {
		return types.NewSigningError("refusing to store a token that does not verify", nil)
	}
	if err := m.store.SaveToken(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Load returns the stored token for clientPublicKey after verifying it.
// A missing token is an error because no relay can be sent without one.
func (m *Manager) Load(clientPublicKey []byte) (*types.AuthToken, error) {
	if m.store == nil {
		return nil, fmt.Errorf("no token store configured")
	}
	token, err := m.store.LoadToken(clientPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if token == nil {
		return nil, fmt.Errorf("no token stored for client %s", util.EncodeHex(clientPublicKey))
	}
	if !Verify(token) {
		m.logger.Sugar().Warnw("Stored AAT does not verify", "client_pub_key", util.EncodeHex(clientPublicKey))
		return nil, types.NewSigningError("stored token does not verify", nil)
	}
	return token, nil
}
