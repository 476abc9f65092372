package util

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DecodeHex decodes a hex string with or without the 0x prefix.
// Pocket tooling emits bare hex while Ethereum tooling emits 0x-prefixed hex; both are accepted.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty hex string")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hexutil.Decode("0x" + s[2:])
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	return b, nil
}

// EncodeHex encodes bytes as bare lowercase hex, the format used on the relay wire.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}
