// Package secrets retrieves a single named secret from a secret store and
// produces a display-safe masked rendition of it.
//
// The plaintext value lives only for the duration of one request: it is fetched
// fresh on every call, held as a types.SecretString, masked, and discarded.
// Nothing is cached.
package secrets

import "strings"

const (
	// Placeholder is returned for empty, short, or redacted values. It carries
	// no length information beyond "short or absent".
	Placeholder = "****"

	// visibleSuffix is the number of trailing characters left readable.
	visibleSuffix = 4

	maskRune = "*"
)

// Mask hides all but the last four characters of value. Values shorter than
// four characters (including the empty string) collapse to Placeholder.
//
// Characters are Unicode code points, so a multi-byte character counts once.
// Mask is total: invalid UTF-8 is treated as U+FFFD per bad byte.
func Mask(value string) string {
	runes := []rune(value)
	if len(runes) < visibleSuffix {
		return Placeholder
	}
	hidden := len(runes) - visibleSuffix
	return strings.Repeat(maskRune, hidden) + string(runes[hidden:])
}
