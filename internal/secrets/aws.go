package secrets

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// secretsManagerClient is the subset of the Secrets Manager SDK client used by
// AWSStore. This interface enables testing with a mock client.
type secretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
}

// AWSStore implements Store and Describer on top of AWS Secrets Manager.
//
// Each GetSecret call performs exactly one GetSecretValue request: the client
// is built with a no-op retryer and no timeout of its own, so cancellation and
// deadlines come only from the caller's context.
type AWSStore struct {
	client secretsManagerClient
}

// NewAWSStore creates an AWSStore from a loaded AWS config.
func NewAWSStore(cfg aws.Config) *AWSStore {
	return &AWSStore{
		client: secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
			o.Retryer = aws.NopRetryer{}
		}),
	}
}

// newAWSStoreWithClient creates an AWSStore with an injected client for tests.
func newAWSStoreWithClient(client secretsManagerClient) *AWSStore {
	return &AWSStore{client: client}
}

// GetSecret fetches the current version of the named secret.
func (s *AWSStore) GetSecret(ctx context.Context, name string) (Payload, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return Payload{}, Classify(name, err)
	}
	if out == nil {
		return Payload{}, &RetrievalError{
			Kind: KindMalformed,
			Name: name,
			Err:  errors.New("empty GetSecretValue response"),
		}
	}
	return Payload{String: out.SecretString, Binary: out.SecretBinary}, nil
}

// DescribeSecret checks that the secret exists and is readable by the caller
// without fetching its value.
func (s *AWSStore) DescribeSecret(ctx context.Context, name string) error {
	if _, err := s.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(name),
	}); err != nil {
		return Classify(name, err)
	}
	return nil
}
