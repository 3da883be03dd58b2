package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// SecretsClient is the subset of the Secrets Manager API used for seeding.
type SecretsClient interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
}

// seedOutcome describes what happened to the secret.
type seedOutcome string

const (
	seedCreated     seedOutcome = "created"
	seedSkipped     seedOutcome = "skipped"
	seedOverwritten seedOutcome = "overwritten"
)

// secretsOperationTimeout bounds the create/update pair.
const secretsOperationTimeout = 15 * time.Second

const secretDescription = "Demo secret rendered masked by the DevOps demo service"

// SecretSeeder creates the demo secret in Secrets Manager.
type SecretSeeder struct {
	client SecretsClient
	logger *slog.Logger
}

// NewSecretSeeder creates a SecretSeeder from the BootstrapContext.
func NewSecretSeeder(bctx *BootstrapContext) *SecretSeeder {
	return NewSecretSeederWithClient(secretsmanager.NewFromConfig(bctx.AWSConfig), bctx.Logger)
}

// NewSecretSeederWithClient creates a SecretSeeder with an injected client.
func NewSecretSeederWithClient(client SecretsClient, logger *slog.Logger) *SecretSeeder {
	return &SecretSeeder{client: client, logger: logger}
}

// Seed stores payload under name. An existing secret is left alone unless
// overwrite is set, in which case a new version is written.
func (s *SecretSeeder) Seed(ctx context.Context, name, payload string, overwrite bool) (seedOutcome, error) {
	if name == "" {
		return "", fmt.Errorf("secret name must not be empty")
	}
	if payload == "" {
		return "", fmt.Errorf("secret payload must not be empty for %q", name)
	}

	opCtx, cancel := context.WithTimeout(ctx, secretsOperationTimeout)
	defer cancel()

	_, err := s.client.CreateSecret(opCtx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		Description:  aws.String(secretDescription),
		SecretString: aws.String(payload),
	})
	if err == nil {
		s.logger.Info("secret created", "name", name, "value_length", len(payload))
		return seedCreated, nil
	}

	var exists *smtypes.ResourceExistsException
	if !errors.As(err, &exists) {
		return "", fmt.Errorf("creating secret %q: %w", name, err)
	}

	if !overwrite {
		s.logger.Warn("secret already exists (use --overwrite to replace)", "name", name)
		return seedSkipped, nil
	}

	_, err = s.client.PutSecretValue(opCtx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(name),
		SecretString: aws.String(payload),
	})
	if err != nil {
		return "", fmt.Errorf("updating secret %q: %w", name, err)
	}

	s.logger.Info("secret value replaced", "name", name, "value_length", len(payload))
	return seedOverwritten, nil
}
