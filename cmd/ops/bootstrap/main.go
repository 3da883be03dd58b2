// Package main implements the bootstrap CLI for the demo service.
//
// It seeds the demo secret in AWS Secrets Manager and publishes its name as
// an SSM parameter so deployed environments can resolve APP_SECRET_NAME via
// APP_SECRET_NAME_SSM_PARAM.
//
// Usage:
//
//	go run ./cmd/ops/bootstrap --env=dev
//	go run ./cmd/ops/bootstrap --env=dev --value-stdin < secret.txt
//	go run ./cmd/ops/bootstrap --env=prod --profile=demo-prod --overwrite
//	go run ./cmd/ops/bootstrap --env=dev --endpoint-url=http://localhost:4566
//
// The tool performs the following:
//  1. Initializes the AWS SDK v2 session with the specified profile/region.
//  2. Calls STS GetCallerIdentity to verify the active AWS identity.
//  3. If --env=prod, requires explicit interactive confirmation ("yes").
//  4. Creates (or, with --overwrite, updates) the secret.
//  5. Writes the secret name to /{env}/devops-demo/secret-name.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Supported environments for the bootstrap tool.
var validEnvironments = map[string]bool{
	"dev":     true,
	"staging": true,
	"prod":    true,
}

const defaultSecretName = "devops-demo/app-secret"

// BootstrapContext holds the session-wide context established during
// initialization.
type BootstrapContext struct {
	Environment string
	AWSProfile  string
	AWSRegion   string

	// AccountID and CallerARN are resolved via STS GetCallerIdentity.
	AccountID string
	CallerARN string

	AWSConfig aws.Config
	Logger    *slog.Logger
}

func main() {
	envFlag := flag.String("env", "", "Target environment (dev/staging/prod) [required]")
	profileFlag := flag.String("profile", "", "AWS CLI profile (default: uses default credential chain)")
	regionFlag := flag.String("region", "us-east-1", "AWS region")
	endpointFlag := flag.String("endpoint-url", "", "Override the AWS endpoint (LocalStack)")
	secretNameFlag := flag.String("secret-name", defaultSecretName, "Secrets Manager secret name")
	valueStdinFlag := flag.Bool("value-stdin", false, "Read the secret value from stdin instead of generating one")
	overwriteFlag := flag.Bool("overwrite", false, "Replace existing values")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "DevOps Demo Bootstrap Tool\n\n")
		fmt.Fprintf(os.Stderr, "Seeds the demo secret and its SSM pointer.\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  bootstrap --env=dev [--profile=NAME] [--region=REGION] [--value-stdin] [--overwrite]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *envFlag == "" {
		fmt.Fprintf(os.Stderr, "error: --env is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if !validEnvironments[*envFlag] {
		fmt.Fprintf(os.Stderr, "error: invalid environment %q (must be dev, staging, or prod)\n", *envFlag)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bctx, err := initializeSession(ctx, *envFlag, *profileFlag, *regionFlag, *endpointFlag, logger)
	if err != nil {
		logger.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	stdin := bufio.NewReader(os.Stdin)

	if bctx.Environment == "prod" {
		if !confirmProduction(stdin, os.Stderr, bctx) {
			fmt.Fprintln(os.Stderr, "Aborted. No changes were made.")
			os.Exit(0)
		}
	}

	printBanner(os.Stderr, bctx, *secretNameFlag)

	value, source, err := resolveSecretValue(stdin, *valueStdinFlag)
	if err != nil {
		logger.Error("obtaining secret value", "error", err)
		os.Exit(1)
	}

	runner := NewBootstrapRunner(bctx)
	runner.SecretName = *secretNameFlag
	runner.Overwrite = *overwriteFlag
	if err := runner.Run(ctx, value, source); err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	logger.Info("bootstrap completed successfully",
		"env", bctx.Environment,
		"account", bctx.AccountID,
		"region", bctx.AWSRegion,
	)
}

// initializeSession configures the AWS SDK session and calls STS
// GetCallerIdentity to confirm the active identity.
func initializeSession(ctx context.Context, env, profile, region, endpoint string, logger *slog.Logger) (*BootstrapContext, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}

	stsClient := sts.NewFromConfig(cfg)

	// Fail fast on bad credentials.
	identityCtx, identityCancel := context.WithTimeout(ctx, 10*time.Second)
	defer identityCancel()

	identity, err := stsClient.GetCallerIdentity(identityCtx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("verifying AWS identity (STS GetCallerIdentity): %w\n"+
			"  Check that your AWS credentials are configured correctly.\n"+
			"  Profile: %q, Region: %q", err, profile, region)
	}

	accountID := aws.ToString(identity.Account)
	callerARN := aws.ToString(identity.Arn)

	logger.Info("AWS identity verified",
		"account_id", accountID,
		"arn", callerARN,
		"region", region,
	)

	return &BootstrapContext{
		Environment: env,
		AWSProfile:  profile,
		AWSRegion:   region,
		AccountID:   accountID,
		CallerARN:   callerARN,
		AWSConfig:   cfg,
		Logger:      logger,
	}, nil
}

// confirmProduction prompts the operator for explicit confirmation when
// targeting the production environment.
//
// Returns true if the operator types "yes" (case-insensitive), false otherwise.
func confirmProduction(in *bufio.Reader, out io.Writer, bctx *BootstrapContext) bool {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "============================================================")
	fmt.Fprintln(out, "  WARNING: You are targeting the PRODUCTION environment")
	fmt.Fprintln(out, "============================================================")
	fmt.Fprintf(out, "  Account: %s\n", bctx.AccountID)
	fmt.Fprintf(out, "  Region:  %s\n", bctx.AWSRegion)
	fmt.Fprintf(out, "  ARN:     %s\n", bctx.CallerARN)
	fmt.Fprintln(out, "============================================================")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type 'yes' to continue: ")

	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}

// resolveSecretValue returns the value to store and how it was obtained.
// The value is never echoed.
func resolveSecretValue(in *bufio.Reader, fromStdin bool) (string, valueSource, error) {
	if !fromStdin {
		token, err := GenerateSecureToken()
		if err != nil {
			return "", "", err
		}
		return token, sourceGenerated, nil
	}

	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", "", fmt.Errorf("reading secret value from stdin: %w", err)
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return "", "", fmt.Errorf("secret value from stdin must not be empty")
	}
	return value, sourceProvided, nil
}

// printBanner displays a summary of the bootstrap session configuration.
func printBanner(out io.Writer, bctx *BootstrapContext, secretName string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "------------------------------------------------------------")
	fmt.Fprintln(out, "  DevOps Demo Bootstrap")
	fmt.Fprintln(out, "------------------------------------------------------------")
	fmt.Fprintf(out, "  Environment:  %s\n", bctx.Environment)
	fmt.Fprintf(out, "  AWS Account:  %s\n", bctx.AccountID)
	fmt.Fprintf(out, "  AWS Region:   %s\n", bctx.AWSRegion)
	fmt.Fprintf(out, "  Identity:     %s\n", bctx.CallerARN)
	if bctx.AWSProfile != "" {
		fmt.Fprintf(out, "  Profile:      %s\n", bctx.AWSProfile)
	}
	fmt.Fprintf(out, "  Secret:       %s\n", secretName)
	fmt.Fprintf(out, "  SSM Prefix:   /%s/devops-demo/\n", bctx.Environment)
	fmt.Fprintln(out, "------------------------------------------------------------")
	fmt.Fprintln(out)
}
