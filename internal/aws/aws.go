package aws

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const serviceAccountTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"

// LoadAWSConfig loads the default credential chain, using the shared profile outside Kubernetes
func LoadAWSConfig(ctx context.Context, regionOverride string) (aws.Config, error) {
	var options []func(*config.LoadOptions) error

	if !isInKubernetes() {
		options = append(options, config.WithSharedConfigProfile(getProfile()))
	}

	if regionOverride != "" {
		options = append(options, config.WithRegion(regionOverride))
	}

	return config.LoadDefaultConfig(ctx, options...)
}

func isInKubernetes() bool {
	_, err := os.Stat(serviceAccountTokenPath)
	return err == nil
}

func getProfile() string {
	if profile := os.Getenv("AWS_PROFILE"); profile != "" {
		return profile
	}
	return "default"
}

// CallerARN returns the ARN the loaded credentials resolve to
func CallerARN(ctx context.Context, cfg aws.Config) (string, error) {
	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Arn), nil
}
