package localKeySource

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/keySource"
)

// HexKeySource serves a key passed in directly, typically from an environment variable
type HexKeySource struct {
	key []byte
}

var _ keySource.IKeySource = (*HexKeySource)(nil)

func NewHexKeySource(hexKey string) (*HexKeySource, error) {
	key, err := keySource.DecodeKeyMaterial([]byte(hexKey))
	if err != nil {
		return nil, err
	}
	return &HexKeySource{key: key}, nil
}

func (h *HexKeySource) PrivateKey(_ context.Context) ([]byte, error) {
	out := make([]byte, len(h.key))
	copy(out, h.key)
	return out, nil
}

func (h *HexKeySource) Describe() string {
	return "hex"
}

// FileKeySource reads a hex encoded key from disk on every call
type FileKeySource struct {
	path   string
	logger *zap.Logger
}

var _ keySource.IKeySource = (*FileKeySource)(nil)

func NewFileKeySource(path string, logger *zap.Logger) (*FileKeySource, error) {
	if path == "" {
		return nil, fmt.Errorf("key file path is required")
	}
	return &FileKeySource{path: path, logger: logger}, nil
}

func (f *FileKeySource) PrivateKey(_ context.Context) ([]byte, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat key file %s", f.path)
	}
	if info.Mode().Perm()&0o077 != 0 {
		f.logger.Sugar().Warnw("Key file is readable by other users", "path", f.path, "mode", info.Mode().Perm().String())
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read key file %s", f.path)
	}
	key, err := keySource.DecodeKeyMaterial(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode key file %s", f.path)
	}
	return key, nil
}

func (f *FileKeySource) Describe() string {
	return "file:" + f.path
}
