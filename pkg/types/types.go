package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/util"
)

// AuthToken is an Application Authentication Token (AAT).
//
// An AuthToken is immutable once constructed: the fields are unexported and every
// accessor returns a copy, so a single token can be shared read-only by any number
// of providers and in-flight relays.
type AuthToken struct {
	version              string
	clientPublicKey      []byte
	applicationPublicKey []byte
	applicationSignature []byte
}

// NewAuthToken builds an AuthToken from its parts. The byte slices are copied.
// It performs no signature check; use the aat package to issue or verify tokens.
func NewAuthToken(version string, clientPublicKey, applicationPublicKey, applicationSignature []byte) *AuthToken {
	return &AuthToken{
		version:              version,
		clientPublicKey:      bytes.Clone(clientPublicKey),
		applicationPublicKey: bytes.Clone(applicationPublicKey),
		applicationSignature: bytes.Clone(applicationSignature),
	}
}

func (t *AuthToken) Version() string { return t.version }

func (t *AuthToken) ClientPublicKey() []byte { return bytes.Clone(t.clientPublicKey) }

func (t *AuthToken) ApplicationPublicKey() []byte { return bytes.Clone(t.applicationPublicKey) }

func (t *AuthToken) ApplicationSignature() []byte { return bytes.Clone(t.applicationSignature) }

// Equal reports whether two tokens carry identical fields
func (t *AuthToken) Equal(other *AuthToken) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.version == other.version &&
		bytes.Equal(t.clientPublicKey, other.clientPublicKey) &&
		bytes.Equal(t.applicationPublicKey, other.applicationPublicKey) &&
		bytes.Equal(t.applicationSignature, other.applicationSignature)
}

// AuthTokenJSON is the wire representation of an AuthToken. Keys are bare hex.
type AuthTokenJSON struct {
	Version      string `json:"version"`
	AppPubKey    string `json:"app_pub_key"`
	ClientPubKey string `json:"client_pub_key"`
	Signature    string `json:"signature"`
}

// ToJSON returns the wire representation of the token
func (t *AuthToken) ToJSON() AuthTokenJSON {
	return AuthTokenJSON{
		Version:      t.version,
		AppPubKey:    util.EncodeHex(t.applicationPublicKey),
		ClientPubKey: util.EncodeHex(t.clientPublicKey),
		Signature:    util.EncodeHex(t.applicationSignature),
	}
}

// AuthTokenFromJSON decodes the wire representation into an AuthToken
func AuthTokenFromJSON(j AuthTokenJSON) (*AuthToken, error) {
	clientPub, err := util.DecodeHex(j.ClientPubKey)
	if err != nil {
		return nil, fmt.Errorf("invalid client_pub_key: %w", err)
	}
	appPub, err := util.DecodeHex(j.AppPubKey)
	if err != nil {
		return nil, fmt.Errorf("invalid app_pub_key: %w", err)
	}
	sig, err := util.DecodeHex(j.Signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}
	return NewAuthToken(j.Version, clientPub, appPub, sig), nil
}

func (t *AuthToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ToJSON())
}

// UnmarshalJSON is only meant for decoding into a fresh token; a token that is
// already shared must never be decoded into.
func (t *AuthToken) UnmarshalJSON(data []byte) error {
	var j AuthTokenJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	decoded, err := AuthTokenFromJSON(j)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}

// RelayNode is a relay network entry point
type RelayNode struct {
	Endpoint *url.URL
}

// NewRelayNode parses an endpoint URL. Only http and https endpoints are accepted.
func NewRelayNode(endpoint string) (*RelayNode, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, fmt.Errorf("invalid relay node url %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("relay node url %q must use http or https", endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("relay node url %q has no host", endpoint)
	}
	return &RelayNode{Endpoint: u}, nil
}

// NewRelayNodes parses a non-empty list of endpoints
func NewRelayNodes(endpoints []string) ([]*RelayNode, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("at least one relay node is required")
	}
	nodes := make([]*RelayNode, 0, len(endpoints))
	for _, e := range endpoints {
		n, err := NewRelayNode(e)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (n *RelayNode) String() string {
	return n.Endpoint.String()
}

// GetURI joins path onto the node endpoint
func (n *RelayNode) GetURI(path string) string {
	return strings.TrimSuffix(n.Endpoint.String(), "/") + "/" + strings.TrimPrefix(path, "/")
}

type HTTPMethod string

const (
	HTTPMethodGET  HTTPMethod = "GET"
	HTTPMethodPOST HTTPMethod = "POST"
)

func (m HTTPMethod) String() string {
	return string(m)
}

func (m HTTPMethod) Validate() error {
	switch m {
	case HTTPMethodGET, HTTPMethodPOST:
		return nil
	default:
		return fmt.Errorf("unsupported http method: %q", string(m))
	}
}

// RelayRequest is a single call to be relayed. It is built per call and discarded after use.
type RelayRequest struct {
	// ID correlates log lines for a single relay; it is never sent to the chain.
	ID        string
	Payload   []byte
	ChainID   string
	AuthToken *AuthToken
	Method    HTTPMethod
	Path      string
	// Retryable is false for state-changing calls such as transaction submission.
	Retryable bool
}

// RelayResponse is the success side of a relay result
type RelayResponse struct {
	Payload  []byte
	Node     string
	Attempts int
}
