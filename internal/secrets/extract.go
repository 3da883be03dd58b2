package secrets

import (
	"bytes"
	"encoding/json"

	"golang.org/x/text/encoding/unicode"

	"devopsdemo/internal/types"
)

// structuredFields are the keys looked up, in order, when a string payload is
// a JSON object.
var structuredFields = []string{"password", "secret"}

// ExtractValue turns a store payload into the plaintext secret.
//
// A string payload that is a JSON object yields its "password" field, else its
// "secret" field, else the raw string. A field present as null yields the empty
// value; a non-string field yields its raw JSON text. Any other string payload
// is returned as-is. A binary payload is decoded as UTF-8 with ill-formed
// sequences replaced by U+FFFD.
func ExtractValue(p Payload) types.SecretString {
	switch {
	case p.String != nil:
		return types.SecretString(fromString(*p.String))
	case p.Binary != nil:
		return types.SecretString(decodeBinary(p.Binary))
	default:
		return ""
	}
}

func fromString(raw string) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		// Not a JSON object (plain text, array, scalar, invalid, or null).
		return raw
	}
	for _, key := range structuredFields {
		field, ok := fields[key]
		if !ok {
			continue
		}
		return fieldText(field)
	}
	return raw
}

func fieldText(field json.RawMessage) string {
	trimmed := bytes.TrimSpace(field)
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

func decodeBinary(b []byte) string {
	// The UTF-8 decoder replaces ill-formed input instead of failing, so the
	// error is always nil here.
	decoded, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return string(bytes.ToValidUTF8(b, []byte("\uFFFD")))
	}
	return string(decoded)
}
