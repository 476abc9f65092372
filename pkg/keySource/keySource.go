package keySource

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/util"
)

type KeySourceType string

const (
	KeySourceTypeHex    KeySourceType = "hex"
	KeySourceTypeFile   KeySourceType = "file"
	KeySourceTypeAWSKMS KeySourceType = "aws-kms"
)

// IKeySource provisions the application private key used to sign AATs.
// Keys never come from source code.
type IKeySource interface {
	PrivateKey(ctx context.Context) ([]byte, error)
	// Describe names the source without revealing the key
	Describe() string
}

// DecodeKeyMaterial accepts hex text (with or without 0x) and returns the raw key bytes
func DecodeKeyMaterial(material []byte) ([]byte, error) {
	text := strings.TrimSpace(string(material))
	if text == "" {
		return nil, errors.New("key material is empty")
	}
	key, err := util.DecodeHex(text)
	if err != nil {
		return nil, errors.Wrap(err, "key material is not valid hex")
	}
	return key, nil
}
