package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/types"
	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/util"
)

// TokenKey returns the storage key suffix for a client public key
func TokenKey(clientPublicKey []byte) string {
	return util.EncodeHex(clientPublicKey)
}

// MarshalToken serializes a token to its wire JSON form.
func MarshalToken(token *types.AuthToken) ([]byte, error) {
	if token == nil {
		return nil, fmt.Errorf("cannot marshal nil AuthToken")
	}

	data, err := json.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal AuthToken to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalToken deserializes a token from its wire JSON form.
func UnmarshalToken(data []byte) (*types.AuthToken, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var token types.AuthToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to AuthToken: %w", err)
	}

	return &token, nil
}
