package transport

import (
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/util"
)

// RelayPath is the dispatch endpoint every relay node exposes
const RelayPath = "/v1/client/relay"

// RelayPayload is the call forwarded to the target chain node
type RelayPayload struct {
	Data    string            `json:"data"`
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers,omitempty"`
}

type RelayMeta struct {
	BlockHeight int64 `json:"block_height"`
}

// RelayProof carries the AAT and the client's signature over the request hash
type RelayProof struct {
	RequestHash string              `json:"request_hash"`
	Blockchain  string              `json:"blockchain"`
	AAT         types.AuthTokenJSON `json:"aat"`
	Signature   string              `json:"signature"`
}

// RelayBody is the JSON document POSTed to RelayPath
type RelayBody struct {
	Payload RelayPayload `json:"payload"`
	Meta    RelayMeta    `json:"meta"`
	Proof   RelayProof   `json:"proof"`
}

// RelayErrorObject is the structured rejection a relay node returns
type RelayErrorObject struct {
	Code      int    `json:"code"`
	Codespace string `json:"codespace,omitempty"`
	Message   string `json:"message"`
}

// RelayResponseEnvelope covers both a successful relay and a rejection.
// Rejections come either top-level ({"code","message"}) or under "error".
type RelayResponseEnvelope struct {
	Response  *string           `json:"response,omitempty"`
	Signature string            `json:"signature,omitempty"`
	Code      *int              `json:"code,omitempty"`
	Codespace string            `json:"codespace,omitempty"`
	Message   string            `json:"message,omitempty"`
	Error     *RelayErrorObject `json:"error,omitempty"`
}

// rejection returns the structured rejection carried by the envelope, if any
func (e *RelayResponseEnvelope) rejection() *RelayErrorObject {
	if e.Error != nil {
		return e.Error
	}
	if e.Code != nil && e.Response == nil {
		return &RelayErrorObject{Code: *e.Code, Codespace: e.Codespace, Message: e.Message}
	}
	return nil
}

// RequestHash returns sha3_256(json({payload, meta})), the value the client signs
func RequestHash(payload RelayPayload, meta RelayMeta) ([]byte, error) {
	data, err := json.Marshal(struct {
		Payload RelayPayload `json:"payload"`
		Meta    RelayMeta    `json:"meta"`
	}{payload, meta})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relay request for hashing: %w", err)
	}
	h := sha3.Sum256(data)
	return h[:], nil
}

func newRelayPayload(req *types.RelayRequest) RelayPayload {
	p := RelayPayload{
		Data:   string(req.Payload),
		Method: req.Method.String(),
		Path:   req.Path,
	}
	if req.Method == types.HTTPMethodPOST {
		p.Headers = map[string]string{"Content-Type": "application/json"}
	}
	return p
}

// hexOrEmpty keeps unsigned proofs readable on the wire
func hexOrEmpty(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return util.EncodeHex(b)
}
