package config

import "context"

// ParameterProvider resolves configuration values stored outside the process
// environment. Keys are provider-specific identifiers (SSM parameter paths);
// the result maps each resolved key to its plaintext value. Keys that do not
// resolve are omitted from the map.
type ParameterProvider interface {
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
