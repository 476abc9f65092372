package aat

/*
Application Authentication Token (AAT)

An AAT authorises a client key to spend an application's relay bandwidth. It is
produced once by the holder of the application private key and then shared by
every provider that relays on the application's behalf.

Signed message:
  sha3_256(json({"app_pub_key": hex, "client_pub_key": hex, "signature": "", "version": v}))

The JSON object has its keys in lexical order and an empty signature, so the same
token always hashes to the same digest whether it is being issued or verified.

Schemes:
  - ed25519 (default): Pocket application keys. Public keys are 32 bytes, private keys
    are either the 64 byte expanded form (seed || public key) or the 32 byte seed.
    Signing is deterministic.
  - secp256k1: 32 byte private keys, 33 byte compressed or 65 byte uncompressed public
    keys. Signatures are 65 byte [R || S || V] with RFC6979 nonces, so also deterministic.

The scheme used to verify a token is derived from the application public key length.
*/

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/util"
)

const (
	// DefaultVersion is the AAT version the relay network currently accepts
	DefaultVersion = "0.0.1"

	secp256k1CompressedPubKeyLen   = 33
	secp256k1UncompressedPubKeyLen = 65
	secp256k1SignatureLen          = 65
)

type Scheme string

const (
	SchemeED25519   Scheme = "ed25519"
	SchemeSecp256k1 Scheme = "secp256k1"
)

func (s Scheme) String() string {
	return string(s)
}

func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemeED25519, "":
		return SchemeED25519, nil
	case SchemeSecp256k1:
		return SchemeSecp256k1, nil
	default:
		return "", fmt.Errorf("unsupported aat signature scheme: %q", s)
	}
}

// hashPayload mirrors the wire token with the signature blanked out.
// Field order is the lexical key order.
type hashPayload struct {
	AppPubKey    string `json:"app_pub_key"`
	ClientPubKey string `json:"client_pub_key"`
	Signature    string `json:"signature"`
	Version      string `json:"version"`
}

// Digest returns the message an application key signs for a token with the given fields
func Digest(version string, clientPublicKey, applicationPublicKey []byte) ([32]byte, error) {
	data, err := json.Marshal(hashPayload{
		AppPubKey:    util.EncodeHex(applicationPublicKey),
		ClientPubKey: util.EncodeHex(clientPublicKey),
		Signature:    "",
		Version:      version,
	})
	if err != nil {
		return [32]byte{}, fmt.Errorf("failed to marshal aat hash payload: %w", err)
	}
	return sha3.Sum256(data), nil
}

// Issue signs a new token with an ed25519 application key
func Issue(version string, clientPublicKey, applicationPublicKey, applicationPrivateKey []byte) (*types.AuthToken, error) {
	return IssueWithScheme(SchemeED25519, version, clientPublicKey, applicationPublicKey, applicationPrivateKey)
}

// IssueWithScheme signs a new token. Every failure is a *types.SigningError and no token is returned.
func IssueWithScheme(scheme Scheme, version string, clientPublicKey, applicationPublicKey, applicationPrivateKey []byte) (*types.AuthToken, error) {
	if version == "" {
		return nil, types.NewSigningError("aat version is required", nil)
	}
	if len(clientPublicKey) == 0 {
		return nil, types.NewSigningError("client public key is required", nil)
	}
	if len(applicationPublicKey) == 0 {
		return nil, types.NewSigningError("application public key is required", nil)
	}

	digest, err := Digest(version, clientPublicKey, applicationPublicKey)
	if err != nil {
		return nil, types.NewSigningError("failed to hash token", err)
	}

	var sig []byte
	switch scheme {
	case SchemeED25519:
		sig, err = signED25519(applicationPrivateKey, applicationPublicKey, digest)
	case SchemeSecp256k1:
		sig, err = signSecp256k1(applicationPrivateKey, applicationPublicKey, digest)
	default:
		err = fmt.Errorf("unsupported scheme %q", scheme)
	}
	if err != nil {
		return nil, types.NewSigningError("failed to sign token", err)
	}

	return types.NewAuthToken(version, clientPublicKey, applicationPublicKey, sig), nil
}

// Verify reports whether the token's signature verifies against its application public key.
// It never panics and returns false for nil or malformed tokens.
func Verify(token *types.AuthToken) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if token == nil || token.Version() == "" || len(token.ClientPublicKey()) == 0 {
		return false
	}

	appPub := token.ApplicationPublicKey()
	sig := token.ApplicationSignature()
	digest, err := Digest(token.Version(), token.ClientPublicKey(), appPub)
	if err != nil {
		return false
	}

	switch len(appPub) {
	case ed25519.PublicKeySize:
		if len(sig) != ed25519.SignatureSize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(appPub), digest[:], sig)
	case secp256k1CompressedPubKeyLen, secp256k1UncompressedPubKeyLen:
		if len(sig) != secp256k1SignatureLen {
			return false
		}
		return crypto.VerifySignature(appPub, digest[:], sig[:64])
	default:
		return false
	}
}

// ParseED25519PrivateKey accepts a 32 byte seed or a 64 byte expanded key.
// An expanded key whose public half does not match its seed is rejected.
func ParseED25519PrivateKey(raw []byte) (ed25519.PrivateKey, error) {
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !bytes.Equal(derived[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
			return nil, fmt.Errorf("ed25519 private key public half does not match its seed")
		}
		return derived, nil
	default:
		return nil, fmt.Errorf("ed25519 private key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
}

func signED25519(rawPriv, appPub []byte, digest [32]byte) ([]byte, error) {
	priv, err := ParseED25519PrivateKey(rawPriv)
	if err != nil {
		return nil, err
	}
	pub := priv.Public().(ed25519.PublicKey)
	if !bytes.Equal(pub, appPub) {
		return nil, fmt.Errorf("application public key does not match private key")
	}
	return ed25519.Sign(priv, digest[:]), nil
}

func signSecp256k1(rawPriv, appPub []byte, digest [32]byte) ([]byte, error) {
	priv, err := crypto.ToECDSA(rawPriv)
	if err != nil {
		return nil, fmt.Errorf("invalid secp256k1 private key: %w", err)
	}

	var derived []byte
	switch len(appPub) {
	case secp256k1CompressedPubKeyLen:
		derived = crypto.CompressPubkey(&priv.PublicKey)
	case secp256k1UncompressedPubKeyLen:
		derived = crypto.FromECDSAPub(&priv.PublicKey)
	default:
		return nil, fmt.Errorf("secp256k1 public key must be %d or %d bytes, got %d",
			secp256k1CompressedPubKeyLen, secp256k1UncompressedPubKeyLen, len(appPub))
	}
	if !bytes.Equal(derived, appPub) {
		return nil, fmt.Errorf("application public key does not match private key")
	}

	return crypto.Sign(digest[:], priv)
}

// PublicKey derives the application public key for privateKey under scheme.
// secp256k1 keys are returned compressed.
func PublicKey(scheme Scheme, privateKey []byte) ([]byte, error) {
	switch scheme {
	case SchemeED25519:
		priv, err := ParseED25519PrivateKey(privateKey)
		if err != nil {
			return nil, types.NewSigningError("invalid application private key", err)
		}
		return bytes.Clone(priv.Public().(ed25519.PublicKey)), nil
	case SchemeSecp256k1:
		priv, err := crypto.ToECDSA(privateKey)
		if err != nil {
			return nil, types.NewSigningError("invalid application private key", err)
		}
		return crypto.CompressPubkey(&priv.PublicKey), nil
	default:
		return nil, types.NewSigningError(fmt.Sprintf("unsupported scheme %q", scheme), nil)
	}
}
