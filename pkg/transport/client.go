package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/aat"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/relaySigner"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/util"
)

// maxResponseBytes bounds how much of a relay response is read
const maxResponseBytes = 16 << 20

// RetryConfig configures retry behavior
type RetryConfig struct {
	// MaxAttempts is the total number of attempts for a retryable relay, including the first
	MaxAttempts int
	// RequestTimeout bounds a single attempt
	RequestTimeout time.Duration
	// OverallTimeout bounds a whole Send call including backoff; 0 leaves only the caller's context
	OverallTimeout  time.Duration
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     5,
	RequestTimeout:  100000 * time.Millisecond,
	OverallTimeout:  10000000 * time.Millisecond,
	InitialBackoff:  100 * time.Millisecond,
	MaxBackoff:      5 * time.Second,
	BackoffMultiple: 2.0,
}

// RateLimitConfig throttles relays sent by one client. A zero RelaysPerSecond disables it.
type RateLimitConfig struct {
	RelaysPerSecond float64
	Burst           int
}

// ClientConfig holds the configuration for the relay transport
type ClientConfig struct {
	Retry     RetryConfig
	RateLimit RateLimitConfig
	// HTTPClient is optional; connections are pooled across calls
	HTTPClient *http.Client
	// Signer is optional; without it relays carry an empty client signature
	Signer relaySigner.IRelaySigner
	Logger *zap.Logger
}

// Client dispatches relays to relay nodes
type Client struct {
	retryConfig RetryConfig
	httpClient  *http.Client
	signer      relaySigner.IRelaySigner
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a new relay transport client
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if config.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1, got %d", config.Retry.MaxAttempts)
	}
	if config.Retry.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request timeout must be positive")
	}
	if config.Retry.OverallTimeout < 0 {
		return nil, fmt.Errorf("overall timeout cannot be negative")
	}
	if config.Retry.BackoffMultiple < 1 {
		return nil, fmt.Errorf("backoff multiple must be at least 1, got %v", config.Retry.BackoffMultiple)
	}
	if config.RateLimit.RelaysPerSecond < 0 {
		return nil, fmt.Errorf("relays per second cannot be negative")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	var limiter *rate.Limiter
	if config.RateLimit.RelaysPerSecond > 0 {
		burst := config.RateLimit.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit.RelaysPerSecond), burst)
	}

	return &Client{
		retryConfig: config.Retry,
		httpClient:  httpClient,
		signer:      config.Signer,
		limiter:     limiter,
		logger:      config.Logger,
	}, nil
}

// Send dispatches req to one of nodes and returns the relayed payload.
//
// Transport failures are retried against the next node up to MaxAttempts; a
// non-retryable request gets exactly one attempt. A rejection from the relay
// network is returned immediately as *types.RelayRejection. Once attempts are
// exhausted, or ctx is done, the error is a *types.TransportError.
func (c *Client) Send(ctx context.Context, nodes []*types.RelayNode, req *types.RelayRequest) (*types.RelayResponse, error) {
	if err := validateRequest(nodes, req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	body, err := c.buildRelayBody(req)
	if err != nil {
		return nil, err
	}

	if c.retryConfig.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.retryConfig.OverallTimeout)
		defer cancel()
	}

	maxAttempts := c.retryConfig.MaxAttempts
	if !req.Retryable {
		maxAttempts = 1
	}

	sugar := c.logger.Sugar()
	start := rand.IntN(len(nodes))
	backoff := c.retryConfig.InitialBackoff

	var lastErr error
	var lastNode string
	attempts := 0
	for attempts < maxAttempts {
		node := nodes[(start+attempts)%len(nodes)]
		lastNode = node.String()

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}

		attempts++
		sugar.Debugw("Dispatching relay",
			"relay_id", req.ID,
			"node", lastNode,
			"chain_id", req.ChainID,
			"path", req.Path,
			"attempt", attempts,
			"max_attempts", maxAttempts,
		)

		payload, err := c.sendOnce(ctx, node, body)
		if err == nil {
			sugar.Debugw("Relay succeeded", "relay_id", req.ID, "node", lastNode, "attempt", attempts)
			return &types.RelayResponse{Payload: payload, Node: lastNode, Attempts: attempts}, nil
		}

		var rejection *types.RelayRejection
		if errors.As(err, &rejection) {
			sugar.Infow("Relay rejected",
				"relay_id", req.ID,
				"node", lastNode,
				"code", rejection.Code,
				"message", rejection.Message,
			)
			return nil, rejection
		}

		lastErr = err
		sugar.Warnw("Relay attempt failed",
			"relay_id", req.ID,
			"node", lastNode,
			"attempt", attempts,
			"retryable", req.Retryable,
			"error", err,
		)

		if ctx.Err() != nil || attempts >= maxAttempts {
			break
		}
		if !sleepContext(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff, c.retryConfig)
	}

	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(lastErr, ctxErr) {
		lastErr = fmt.Errorf("%w (last error: %v)", ctxErr, lastErr)
	}
	return nil, &types.TransportError{Node: lastNode, Attempts: attempts, Err: lastErr}
}

func validateRequest(nodes []*types.RelayNode, req *types.RelayRequest) error {
	if len(nodes) == 0 {
		return fmt.Errorf("at least one relay node is required")
	}
	if req == nil {
		return fmt.Errorf("relay request cannot be nil")
	}
	if req.ChainID == "" {
		return fmt.Errorf("relay request chain id is required")
	}
	if err := req.Method.Validate(); err != nil {
		return err
	}
	if req.AuthToken == nil {
		return types.NewSigningError("relay request has no auth token", nil)
	}
	if !aat.Verify(req.AuthToken) {
		return types.NewSigningError("auth token signature does not verify", nil)
	}
	return nil
}

func (c *Client) buildRelayBody(req *types.RelayRequest) ([]byte, error) {
	payload := newRelayPayload(req)
	meta := RelayMeta{}

	hash, err := RequestHash(payload, meta)
	if err != nil {
		return nil, err
	}

	var sig []byte
	if c.signer != nil {
		sig, err = c.signer.SignRelay(hash)
		if err != nil {
			return nil, types.NewSigningError("failed to sign relay request", err)
		}
	}

	body, err := json.Marshal(RelayBody{
		Payload: payload,
		Meta:    meta,
		Proof: RelayProof{
			RequestHash: util.EncodeHex(hash),
			Blockchain:  req.ChainID,
			AAT:         req.AuthToken.ToJSON(),
			Signature:   hexOrEmpty(sig),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relay body: %w", err)
	}
	return body, nil
}

// sendOnce performs exactly one HTTP round trip to node
func (c *Client) sendOnce(ctx context.Context, node *types.RelayNode, body []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.retryConfig.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, node.GetURI(RelayPath), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build relay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read relay response: %w", err)
	}

	var envelope RelayResponseEnvelope
	decodeErr := json.Unmarshal(raw, &envelope)
	if decodeErr == nil {
		if rej := envelope.rejection(); rej != nil {
			return nil, &types.RelayRejection{
				Code:      rej.Code,
				Codespace: rej.Codespace,
				Message:   rej.Message,
				Node:      node.String(),
			}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("relay node returned status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("malformed relay envelope: %w", decodeErr)
	}
	if envelope.Response == nil {
		return nil, fmt.Errorf("malformed relay envelope: missing response")
	}
	return []byte(*envelope.Response), nil
}

func nextBackoff(current time.Duration, cfg RetryConfig) time.Duration {
	next := time.Duration(float64(current) * cfg.BackoffMultiple)
	if cfg.MaxBackoff > 0 && next > cfg.MaxBackoff {
		next = cfg.MaxBackoff
	}
	return next
}

// sleepContext waits for d or until ctx is done; it reports whether the full wait elapsed
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
