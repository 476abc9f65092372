package inMemoryRelaySigner

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"go.uber.org/zap"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/aat"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/relaySigner"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/util"
)

// InMemoryRelaySigner holds an ed25519 client key in process memory
type InMemoryRelaySigner struct {
	logger     *zap.Logger
	privateKey ed25519.PrivateKey
}

var _ relaySigner.IRelaySigner = (*InMemoryRelaySigner)(nil)

// NewInMemoryRelaySigner accepts a 32 byte seed or a 64 byte expanded ed25519 key
func NewInMemoryRelaySigner(privateKey []byte, logger *zap.Logger) (*InMemoryRelaySigner, error) {
	key, err := aat.ParseED25519PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("error loading client private key: %w", err)
	}
	s := &InMemoryRelaySigner{
		logger:     logger,
		privateKey: key,
	}
	logger.Sugar().Debugw("Loaded in-memory relay signer", "client_pub_key", util.EncodeHex(s.PublicKey()))
	return s, nil
}

func (s *InMemoryRelaySigner) SignRelay(requestHash []byte) ([]byte, error) {
	if len(requestHash) == 0 {
		return nil, fmt.Errorf("request hash is empty")
	}
	return ed25519.Sign(s.privateKey, requestHash), nil
}

func (s *InMemoryRelaySigner) PublicKey() []byte {
	return bytes.Clone(s.privateKey.Public().(ed25519.PublicKey))
}

// VerifyRelaySignature checks a relay signature against a client public key
func VerifyRelaySignature(clientPublicKey, requestHash, signature []byte) bool {
	if len(clientPublicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(clientPublicKey), requestHash, signature)
}
