package types

import "log/slog"

// redactedPlaceholder replaces secret values in logs and serialization.
const redactedPlaceholder = "[REDACTED]"

var redactedJSON = []byte(`"[REDACTED]"`)

// SecretString holds a plaintext secret in memory while refusing to print it.
// String, MarshalJSON and LogValue all return a fixed placeholder, so a secret
// passed to fmt, encoding/json or slog by mistake never reaches the output.
//
// Use Unmask when the raw value is genuinely needed (masking it for display).
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// GoString keeps %#v from printing the raw value.
func (s SecretString) GoString() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// LogValue implements slog.LogValuer.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redactedPlaceholder)
}

// Unmask returns the raw plaintext value of the secret.
func (s SecretString) Unmask() string {
	return string(s)
}
