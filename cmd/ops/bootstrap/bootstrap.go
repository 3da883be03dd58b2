package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

// secretNameKey is the SSM key holding the secret identifier. Deployed
// services point APP_SECRET_NAME_SSM_PARAM at it.
const secretNameKey = "secret-name"

// valueSource records where the secret value came from.
type valueSource string

const (
	sourceGenerated valueSource = "generated"
	sourceProvided  valueSource = "provided"
)

// BootstrapRunner seeds the secret and its SSM pointer. It is separated from
// main() to allow testing with injected dependencies.
type BootstrapRunner struct {
	SSM     *SSMManager
	Secrets *SecretSeeder
	Stderr  io.Writer

	SecretName string
	Overwrite  bool
}

// NewBootstrapRunner creates a BootstrapRunner with production dependencies.
func NewBootstrapRunner(bctx *BootstrapContext) *BootstrapRunner {
	return &BootstrapRunner{
		SSM:        NewSSMManager(bctx),
		Secrets:    NewSecretSeeder(bctx),
		Stderr:     os.Stderr,
		SecretName: defaultSecretName,
	}
}

// stepResult records the outcome of a single bootstrap step.
type stepResult struct {
	Label  string
	Action string
	Target string
}

// Run stores value in Secrets Manager and then publishes the secret name to
// SSM. The pointer is only written once the secret exists.
func (r *BootstrapRunner) Run(ctx context.Context, value string, source valueSource) error {
	payload, err := SecretPayload(value)
	if err != nil {
		return err
	}

	var results []stepResult

	fmt.Fprintf(r.Stderr, "\n[1/2] Demo secret (%s value)\n", source)
	outcome, err := r.Secrets.Seed(ctx, r.SecretName, payload, r.Overwrite)
	if err != nil {
		return fmt.Errorf("step %q failed: %w", "demo secret", err)
	}
	action := string(outcome)
	if outcome == seedCreated && source == sourceGenerated {
		action = string(sourceGenerated)
	}
	results = append(results, stepResult{Label: "Demo secret", Action: action, Target: r.SecretName})

	path := r.SSM.SSMPath(secretNameKey)
	fmt.Fprintf(r.Stderr, "\n[2/2] Secret name pointer\n")
	pointer, err := r.writePointer(ctx, path)
	if err != nil {
		return fmt.Errorf("step %q failed: %w", "secret name pointer", err)
	}
	results = append(results, stepResult{Label: "Secret name pointer", Action: pointer, Target: path})

	r.printSummary(results, path)
	return nil
}

func (r *BootstrapRunner) writePointer(ctx context.Context, path string) (string, error) {
	exists, err := r.SSM.ParameterExists(ctx, path)
	if err != nil {
		return "", err
	}
	if exists && !r.Overwrite {
		fmt.Fprintf(r.Stderr, "  Parameter %s already exists, skipping.\n", path)
		return "skipped", nil
	}
	if err := r.SSM.PutString(ctx, path, r.SecretName); err != nil {
		return "", err
	}
	if exists {
		return "overwritten", nil
	}
	return "written", nil
}

// printSummary displays a table of all actions taken during the run.
func (r *BootstrapRunner) printSummary(results []stepResult, pointerPath string) {
	fmt.Fprintf(r.Stderr, "\n")
	fmt.Fprintf(r.Stderr, "============================================================\n")
	fmt.Fprintf(r.Stderr, "  Bootstrap Summary\n")
	fmt.Fprintf(r.Stderr, "============================================================\n")

	for _, res := range results {
		var status string
		switch res.Action {
		case "created", "written":
			status = "[WRITTEN]"
		case "generated":
			status = "[GENERATED]"
		case "overwritten":
			status = "[OVERWRITTEN]"
		case "skipped":
			status = "[SKIPPED]"
		}
		fmt.Fprintf(r.Stderr, "  %-14s %s (%s)\n", status, res.Label, res.Target)
	}

	fmt.Fprintf(r.Stderr, "------------------------------------------------------------\n")
	fmt.Fprintf(r.Stderr, "  Next step: deploy with\n")
	fmt.Fprintf(r.Stderr, "    APP_SECRET_NAME_SSM_PARAM=%s\n", pointerPath)
	fmt.Fprintf(r.Stderr, "============================================================\n")
	fmt.Fprintf(r.Stderr, "\n")
}
