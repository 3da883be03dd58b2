package secrets

import "context"

// Payload is the raw response of a secret store lookup. At most one of String
// and Binary is expected to be set; both nil means the secret has no value.
type Payload struct {
	String *string
	Binary []byte
}

// Store fetches secret payloads by name. Implementations must be safe for
// concurrent use and must not cache.
type Store interface {
	GetSecret(ctx context.Context, name string) (Payload, error)
}

// Describer reports whether a secret is reachable without reading its value.
// It backs the readiness probe.
type Describer interface {
	DescribeSecret(ctx context.Context, name string) error
}
