package awsKmsKeySource

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/pocket-relay-provider-go/pkg/keySource"
)

// KMSDecryptAPI is the slice of the KMS client this source uses
type KMSDecryptAPI interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// AWSKMSKeySource decrypts a KMS encrypted key on demand. The plaintext is hex text.
type AWSKMSKeySource struct {
	logger     *zap.Logger
	kmsClient  KMSDecryptAPI
	ciphertext []byte
	keyId      string
	awsRegion  string
}

var _ keySource.IKeySource = (*AWSKMSKeySource)(nil)

func NewAWSKMSKeySource(awsCfg aws.Config, ciphertextB64 string, keyId string, logger *zap.Logger) (*AWSKMSKeySource, error) {
	return NewAWSKMSKeySourceWithClient(kms.NewFromConfig(awsCfg), awsCfg.Region, ciphertextB64, keyId, logger)
}

// NewAWSKMSKeySourceWithClient accepts any Decrypt implementation; keyId may be empty for symmetric keys
func NewAWSKMSKeySourceWithClient(client KMSDecryptAPI, awsRegion string, ciphertextB64 string, keyId string, logger *zap.Logger) (*AWSKMSKeySource, error) {
	if client == nil {
		return nil, fmt.Errorf("kms client is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return nil, errors.Wrap(err, "ciphertext is not valid base64")
	}
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("ciphertext is required")
	}
	return &AWSKMSKeySource{
		logger:     logger,
		kmsClient:  client,
		ciphertext: ciphertext,
		keyId:      keyId,
		awsRegion:  awsRegion,
	}, nil
}

func (a *AWSKMSKeySource) PrivateKey(ctx context.Context) ([]byte, error) {
	input := &kms.DecryptInput{CiphertextBlob: a.ciphertext}
	if a.keyId != "" {
		input.KeyId = aws.String(a.keyId)
	}

	out, err := a.kmsClient.Decrypt(ctx, input)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decrypt application key in region %s", a.awsRegion)
	}
	a.logger.Sugar().Debugw("Decrypted application key", "key_id", aws.ToString(out.KeyId), "region", a.awsRegion)

	key, err := keySource.DecodeKeyMaterial(out.Plaintext)
	if err != nil {
		return nil, errors.Wrap(err, "decrypted application key is malformed")
	}
	return key, nil
}

func (a *AWSKMSKeySource) Describe() string {
	if a.keyId != "" {
		return fmt.Sprintf("aws-kms:%s:%s", a.awsRegion, a.keyId)
	}
	return "aws-kms:" + a.awsRegion
}
