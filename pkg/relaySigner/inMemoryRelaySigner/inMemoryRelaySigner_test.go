package inMemoryRelaySigner

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/sha3"
)

func TestInMemoryRelaySigner_SignAndVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := NewInMemoryRelaySigner(priv, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []byte(pub), signer.PublicKey())

	hash := sha3.Sum256([]byte(`{"data":"{}"}`))
	sig, err := signer.SignRelay(hash[:])
	require.NoError(t, err)
	assert.True(t, VerifyRelaySignature(pub, hash[:], sig))

	other := sha3.Sum256([]byte("other"))
	assert.False(t, VerifyRelaySignature(pub, other[:], sig))
	assert.False(t, VerifyRelaySignature(pub[:10], hash[:], sig))
}

func TestInMemoryRelaySigner_FromSeed(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := NewInMemoryRelaySigner(priv.Seed(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []byte(pub), signer.PublicKey())
}

func TestInMemoryRelaySigner_Errors(t *testing.T) {
	_, err := NewInMemoryRelaySigner([]byte{1, 2, 3}, zaptest.NewLogger(t))
	require.Error(t, err)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := NewInMemoryRelaySigner(priv, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = signer.SignRelay(nil)
	require.Error(t, err)
}
