package testutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/aat"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
)

// TestKeys is an application and client ed25519 key pair
type TestKeys struct {
	AppPublicKey     ed25519.PublicKey
	AppPrivateKey    ed25519.PrivateKey
	ClientPublicKey  ed25519.PublicKey
	ClientPrivateKey ed25519.PrivateKey
}

func NewTestKeys(t *testing.T) *TestKeys {
	t.Helper()
	appPub, appPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate app key: %v", err)
	}
	clientPub, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate client key: %v", err)
	}
	return &TestKeys{
		AppPublicKey:     appPub,
		AppPrivateKey:    appPriv,
		ClientPublicKey:  clientPub,
		ClientPrivateKey: clientPriv,
	}
}

// NewTestToken issues a verified AAT with fresh keys
func NewTestToken(t *testing.T) (*types.AuthToken, *TestKeys) {
	t.Helper()
	keys := NewTestKeys(t)
	token, err := aat.Issue(aat.DefaultVersion, keys.ClientPublicKey, keys.AppPublicKey, keys.AppPrivateKey)
	if err != nil {
		t.Fatalf("failed to issue test token: %v", err)
	}
	return token, keys
}
