package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/transport"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
)

// StubResponse is what a StubRelay writes back for one relay
type StubResponse struct {
	Status int
	Body   string
	// Hang blocks the handler until the client gives up
	Hang bool
}

// RelayHandler decides the response for a relay. attempt is 1-based across the stub's lifetime.
type RelayHandler func(relay *transport.RelayBody, attempt int) StubResponse

// StubRelay is an httptest relay node that records every relay it receives
type StubRelay struct {
	Server *httptest.Server

	mu       sync.Mutex
	relays   []*transport.RelayBody
	handler  RelayHandler
	released chan struct{}
}

// NewStubRelay starts a stub relay node that is closed when the test ends
func NewStubRelay(t *testing.T, handler RelayHandler) *StubRelay {
	t.Helper()

	s := &StubRelay{handler: handler, released: make(chan struct{})}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(func() {
		close(s.released)
		s.Server.Close()
	})
	return s
}

func (s *StubRelay) URL() string {
	return s.Server.URL
}

// Attempts returns how many relays reached the stub
func (s *StubRelay) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.relays)
}

// Relays returns the decoded relays received so far
func (s *StubRelay) Relays() []*transport.RelayBody {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*transport.RelayBody, len(s.relays))
	copy(out, s.relays)
	return out
}

func (s *StubRelay) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != transport.RelayPath || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var relay transport.RelayBody
	if err := json.Unmarshal(raw, &relay); err != nil {
		writeJSON(w, http.StatusBadRequest, RejectionBody(400, "malformed relay body"))
		return
	}

	s.mu.Lock()
	s.relays = append(s.relays, &relay)
	attempt := len(s.relays)
	s.mu.Unlock()

	resp := s.handler(&relay, attempt)
	if resp.Hang {
		select {
		case <-r.Context().Done():
		case <-s.released:
		}
		return
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// Success wraps a chain response body in a relay envelope
func Success(payload string) StubResponse {
	return StubResponse{Status: http.StatusOK, Body: SuccessBody(payload)}
}

func SuccessBody(payload string) string {
	b, _ := json.Marshal(transport.RelayResponseEnvelope{Response: &payload, Signature: "00"})
	return string(b)
}

// Rejection answers with a structured relay error
func Rejection(code int, message string) StubResponse {
	return StubResponse{Status: http.StatusBadRequest, Body: RejectionBody(code, message)}
}

func RejectionBody(code int, message string) string {
	b, _ := json.Marshal(transport.RelayErrorObject{Code: code, Message: message})
	return string(b)
}

// Unavailable is a transport-level failure: a 503 without a structured error
func Unavailable() StubResponse {
	return StubResponse{Status: http.StatusServiceUnavailable, Body: "service unavailable"}
}

// FailThenSucceed fails the first n relays with Unavailable and then answers payload
func FailThenSucceed(n int, payload string) RelayHandler {
	return func(_ *transport.RelayBody, attempt int) StubResponse {
		if attempt <= n {
			return Unavailable()
		}
		return Success(payload)
	}
}

// DeadNodeURL returns the URL of a server that is no longer listening
func DeadNodeURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

// RelayNodes parses urls into relay nodes or fails the test
func RelayNodes(t *testing.T, urls ...string) []*types.RelayNode {
	t.Helper()
	nodes, err := types.NewRelayNodes(urls)
	if err != nil {
		t.Fatalf("invalid relay node urls %v: %v", urls, err)
	}
	return nodes
}

// MustJSON marshals v or panics; for building fixtures
func MustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal fixture: %v", err))
	}
	return string(b)
}
