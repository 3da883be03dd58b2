package secrets

import "context"

// StoreProbe is a readiness probe that checks the configured secret is
// reachable. It never reads the secret value.
type StoreProbe struct {
	describer Describer
	name      string
}

// NewStoreProbe creates a probe for the named secret.
func NewStoreProbe(d Describer, name string) *StoreProbe {
	return &StoreProbe{describer: d, name: name}
}

// Name identifies the probe in readiness responses.
func (p *StoreProbe) Name() string { return "secret_store" }

// Check calls DescribeSecret on the store.
func (p *StoreProbe) Check(ctx context.Context) error {
	return p.describer.DescribeSecret(ctx, p.name)
}
