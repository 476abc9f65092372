package localKeySource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const testKey = "22c6cf663e9932bb691b1432c9d8dae906d2609ff85e08792fceb10b2a0e9fef"

func Test_HexKeySource(t *testing.T) {
	src, err := NewHexKeySource("0x" + testKey)
	require.NoError(t, err)
	assert.Equal(t, "hex", src.Describe())

	key, err := src.PrivateKey(context.Background())
	require.NoError(t, err)
	assert.Len(t, key, 32)

	key[0] ^= 0xff
	again, err := src.PrivateKey(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, key, again)

	_, err = NewHexKeySource("")
	assert.Error(t, err)
}

func Test_FileKeySource(t *testing.T) {
	dir := t.TempDir()

	t.Run("Should read a hex key file", func(t *testing.T) {
		path := filepath.Join(dir, "app.key")
		require.NoError(t, os.WriteFile(path, []byte(testKey+"\n"), 0o600))

		src, err := NewFileKeySource(path, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.Equal(t, "file:"+path, src.Describe())

		key, err := src.PrivateKey(context.Background())
		require.NoError(t, err)
		assert.Len(t, key, 32)
	})

	t.Run("Should warn on a world readable key file", func(t *testing.T) {
		path := filepath.Join(dir, "open.key")
		require.NoError(t, os.WriteFile(path, []byte(testKey), 0o644))
		require.NoError(t, os.Chmod(path, 0o644))

		core, logs := observer.New(zap.WarnLevel)
		src, err := NewFileKeySource(path, zap.New(core))
		require.NoError(t, err)

		_, err = src.PrivateKey(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, logs.FilterMessage("Key file is readable by other users").Len())
	})

	t.Run("Should fail on a missing file", func(t *testing.T) {
		src, err := NewFileKeySource(filepath.Join(dir, "missing.key"), zaptest.NewLogger(t))
		require.NoError(t, err)

		_, err = src.PrivateKey(context.Background())
		assert.ErrorContains(t, err, "failed to stat key file")
	})

	t.Run("Should fail on malformed contents", func(t *testing.T) {
		path := filepath.Join(dir, "bad.key")
		require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

		src, err := NewFileKeySource(path, zaptest.NewLogger(t))
		require.NoError(t, err)

		_, err = src.PrivateKey(context.Background())
		assert.ErrorContains(t, err, "failed to decode key file")
	})

	t.Run("Should require a path", func(t *testing.T) {
		_, err := NewFileKeySource("", zaptest.NewLogger(t))
		assert.Error(t, err)
	})
}
