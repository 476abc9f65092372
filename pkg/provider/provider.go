// Package provider adapts the relay transport to the request capability a
// chain client expects. Every call becomes one relay: the body is forwarded
// verbatim to the target chain, the returned payload is checked to be JSON and
// handed back, and every failure comes back as one of the typed errors in
// pkg/types with no value alongside it.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/aat"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/chainclient"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
)

// DefaultPathPrefix is the ICON JSON-RPC endpoint path
const DefaultPathPrefix = "/api/v3"

// DefaultNonRetryableMethods are the JSON-RPC methods that change chain state
var DefaultNonRetryableMethods = []string{
	"icx_sendTransaction",
	"icx_sendTransactionAndWait",
	"eth_sendRawTransaction",
	"eth_sendTransaction",
	"sendrawtransaction",
}

// Transport dispatches a relay request to the relay network
type Transport interface {
	Send(ctx context.Context, nodes []*types.RelayNode, req *types.RelayRequest) (*types.RelayResponse, error)
}

type Config struct {
	Nodes   []*types.RelayNode
	ChainID string
	// PathPrefix defaults to DefaultPathPrefix
	PathPrefix string
	AuthToken  *types.AuthToken
	Transport  Transport
	// NonRetryableMethods defaults to DefaultNonRetryableMethods
	NonRetryableMethods []string
	Logger              *zap.Logger
}

// Provider turns chain client requests into relays. It is safe for concurrent use.
type Provider struct {
	nodes        []*types.RelayNode
	chainID      string
	pathPrefix   string
	authToken    *types.AuthToken
	transport    Transport
	nonRetryable map[string]struct{}
	logger       *zap.Logger
}

var _ chainclient.RequestCapability = (*Provider)(nil)

func New(cfg *Config) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if len(cfg.Nodes) == 0 {
		return nil, fmt.Errorf("at least one relay node is required")
	}
	if cfg.ChainID == "" {
		return nil, fmt.Errorf("chain id is required")
	}
	if cfg.AuthToken == nil {
		return nil, types.NewSigningError("auth token is required", nil)
	}
	if !aat.Verify(cfg.AuthToken) {
		return nil, types.NewSigningError("auth token signature does not verify", nil)
	}

	prefix := cfg.PathPrefix
	if prefix == "" {
		prefix = DefaultPathPrefix
	}
	methods := cfg.NonRetryableMethods
	if methods == nil {
		methods = DefaultNonRetryableMethods
	}
	nonRetryable := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		nonRetryable[m] = struct{}{}
	}

	nodes := make([]*types.RelayNode, len(cfg.Nodes))
	copy(nodes, cfg.Nodes)

	return &Provider{
		nodes:        nodes,
		chainID:      cfg.ChainID,
		pathPrefix:   prefix,
		authToken:    cfg.AuthToken,
		transport:    cfg.Transport,
		nonRetryable: nonRetryable,
		logger:       cfg.Logger,
	}, nil
}

// Request relays body to url on the target chain and returns the chain's JSON response
func (p *Provider) Request(ctx context.Context, url string, body []byte, method types.HTTPMethod) (json.RawMessage, error) {
	if method == "" {
		method = types.HTTPMethodPOST
	}
	req := &types.RelayRequest{
		Payload:   body,
		ChainID:   p.chainID,
		AuthToken: p.authToken,
		Method:    method,
		Path:      p.resolvePath(url),
		Retryable: p.isRetryable(method, body),
	}

	resp, err := p.transport.Send(ctx, p.nodes, req)
	if err != nil {
		p.logger.Sugar().Debugw("Relay failed",
			"relay_id", req.ID,
			"path", req.Path,
			"kind", types.KindOf(err),
			"error", err,
		)
		return nil, err
	}

	if !json.Valid(resp.Payload) {
		return nil, &types.DecodeError{
			Payload: resp.Payload,
			Err:     fmt.Errorf("relay response is not valid JSON"),
		}
	}
	return json.RawMessage(resp.Payload), nil
}

func (p *Provider) resolvePath(url string) string {
	if url == "" {
		return p.pathPrefix
	}
	if strings.HasPrefix(url, p.pathPrefix) {
		return url
	}
	return strings.TrimSuffix(p.pathPrefix, "/") + "/" + strings.TrimPrefix(url, "/")
}

type rpcMethod struct {
	Method string `json:"method"`
}

// isRetryable reports whether a relay may be dispatched more than once.
// A body that cannot be parsed is treated as retryable; the chain will reject it either way.
func (p *Provider) isRetryable(method types.HTTPMethod, body []byte) bool {
	if method == types.HTTPMethodGET {
		return true
	}

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var batch []rpcMethod
		if err := json.Unmarshal(body, &batch); err != nil {
			return true
		}
		for _, call := range batch {
			if _, ok := p.nonRetryable[call.Method]; ok {
				return false
			}
		}
		return true
	}

	var call rpcMethod
	if err := json.Unmarshal(body, &call); err != nil {
		return true
	}
	_, ok := p.nonRetryable[call.Method]
	return !ok
}
