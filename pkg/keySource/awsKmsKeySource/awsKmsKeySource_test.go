package awsKmsKeySource

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeKMS struct {
	plaintext []byte
	err       error
	lastInput *kms.DecryptInput
}

func (f *fakeKMS) Decrypt(_ context.Context, params *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &kms.DecryptOutput{Plaintext: f.plaintext, KeyId: aws.String("arn:aws:kms:us-east-1:000000000000:key/test")}, nil
}

var ciphertext = base64.StdEncoding.EncodeToString([]byte("opaque-ciphertext"))

func Test_AWSKMSKeySource(t *testing.T) {
	t.Run("Should decrypt a hex key", func(t *testing.T) {
		fake := &fakeKMS{plaintext: []byte("0a0b0c\n")}
		src, err := NewAWSKMSKeySourceWithClient(fake, "us-east-1", ciphertext, "alias/relay", zaptest.NewLogger(t))
		require.NoError(t, err)

		key, err := src.PrivateKey(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []byte{0x0a, 0x0b, 0x0c}, key)
		assert.Equal(t, []byte("opaque-ciphertext"), fake.lastInput.CiphertextBlob)
		assert.Equal(t, "alias/relay", aws.ToString(fake.lastInput.KeyId))
		assert.Equal(t, "aws-kms:us-east-1:alias/relay", src.Describe())
	})

	t.Run("Should omit the key id when not set", func(t *testing.T) {
		fake := &fakeKMS{plaintext: []byte("0a")}
		src, err := NewAWSKMSKeySourceWithClient(fake, "us-east-1", ciphertext, "", zaptest.NewLogger(t))
		require.NoError(t, err)

		_, err = src.PrivateKey(context.Background())
		require.NoError(t, err)
		assert.Nil(t, fake.lastInput.KeyId)
		assert.Equal(t, "aws-kms:us-east-1", src.Describe())
	})

	t.Run("Should wrap decrypt failures", func(t *testing.T) {
		fake := &fakeKMS{err: fmt.Errorf("AccessDeniedException")}
		src, err := NewAWSKMSKeySourceWithClient(fake, "us-east-1", ciphertext, "", zaptest.NewLogger(t))
		require.NoError(t, err)

		_, err = src.PrivateKey(context.Background())
		assert.ErrorContains(t, err, "failed to decrypt application key in region us-east-1")
		assert.ErrorContains(t, err, "AccessDeniedException")
	})

	t.Run("Should reject malformed plaintext", func(t *testing.T) {
		fake := &fakeKMS{plaintext: []byte{0xff, 0x00}}
		src, err := NewAWSKMSKeySourceWithClient(fake, "us-east-1", ciphertext, "", zaptest.NewLogger(t))
		require.NoError(t, err)

		_, err = src.PrivateKey(context.Background())
		assert.ErrorContains(t, err, "malformed")
	})

	t.Run("Should validate construction", func(t *testing.T) {
		logger := zaptest.NewLogger(t)
		_, err := NewAWSKMSKeySourceWithClient(nil, "us-east-1", ciphertext, "", logger)
		assert.ErrorContains(t, err, "kms client is required")

		_, err = NewAWSKMSKeySourceWithClient(&fakeKMS{}, "us-east-1", "!!!", "", logger)
		assert.ErrorContains(t, err, "base64")

		_, err = NewAWSKMSKeySourceWithClient(&fakeKMS{}, "us-east-1", "", "", logger)
		assert.ErrorContains(t, err, "ciphertext is required")

		_, err = NewAWSKMSKeySourceWithClient(&fakeKMS{}, "us-east-1", ciphertext, "", nil)
		assert.ErrorContains(t, err, "logger is required")
	})
}
