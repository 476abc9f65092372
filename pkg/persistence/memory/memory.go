package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/persistence"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
)

// MemoryPersistence is an in-memory implementation of ITokenPersistence.
//
// All data is stored in memory and will be lost when the process exits.
// Tokens are immutable, so no copying is needed on the way in or out.
type MemoryPersistence struct {
	mu     sync.RWMutex
	tokens map[string]*types.AuthToken
	closed bool
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		tokens: make(map[string]*types.AuthToken),
	}
}

var _ persistence.ITokenPersistence = (*MemoryPersistence)(nil)

func (m *MemoryPersistence) SaveToken(token *types.AuthToken) error {
	if token == nil {
		return fmt.Errorf("cannot save nil AuthToken")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	m.tokens[persistence.TokenKey(token.ClientPublicKey())] = token
	return nil
}

func (m *MemoryPersistence) LoadToken(clientPublicKey []byte) (*types.AuthToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	return m.tokens[persistence.TokenKey(clientPublicKey)], nil
}

func (m *MemoryPersistence) ListTokens() ([]*types.AuthToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	keys := make([]string, 0, len(m.tokens))
	for k := range m.tokens {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tokens := make([]*types.AuthToken, 0, len(keys))
	for _, k := range keys {
		tokens = append(tokens, m.tokens[k])
	}
	return tokens, nil
}

func (m *MemoryPersistence) DeleteToken(clientPublicKey []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	delete(m.tokens, persistence.TokenKey(clientPublicKey))
	return nil
}

func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}
