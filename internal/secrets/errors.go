package secrets

import (
	"context"
	"errors"
	"fmt"
	"net"

	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
)

// Kind is the closed set of reasons a retrieval can fail.
type Kind string

const (
	// KindNotFound: the secret does not exist or is scheduled for deletion.
	KindNotFound Kind = "NotFound"
	// KindAccessDenied: credentials are missing, invalid, or lack permission
	// (including KMS decrypt permission).
	KindAccessDenied Kind = "AccessDenied"
	// KindUnavailable: the store could not be reached or failed internally.
	KindUnavailable Kind = "Unavailable"
	// KindTimeout: the call did not complete before its deadline.
	KindTimeout Kind = "Timeout"
	// KindMalformed: the request or the response did not have the expected shape.
	KindMalformed Kind = "Malformed"
)

// TypeName is the name embedded in the user-visible failure placeholder,
// e.g. "TimeoutError".
func (k Kind) TypeName() string {
	return string(k) + "Error"
}

// RetrievalError is returned when a secret lookup fails. Every failure from
// the store is collapsed into exactly one Kind; the original cause is kept for
// logs and errors.Is/As but never rendered to clients.
type RetrievalError struct {
	Kind Kind
	Name string
	Err  error
}

// Error implements the error interface.
func (e *RetrievalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("retrieve secret %q: %s: %v", e.Name, e.Kind, e.Err)
	}
	return fmt.Sprintf("retrieve secret %q: %s", e.Name, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// accessDeniedCodes are smithy error codes that Secrets Manager (or the AWS
// request signer in front of it) returns for authentication/authorization
// failures that have no modeled error type.
var accessDeniedCodes = map[string]struct{}{
	"AccessDeniedException":       {},
	"UnrecognizedClientException": {},
	"InvalidSignatureException":   {},
	"ExpiredTokenException":       {},
	"IncompleteSignature":         {},
	"MissingAuthenticationToken":  {},
}

// Classify maps an arbitrary store error to a RetrievalError. An error that is
// already a RetrievalError is returned unchanged. Unknown errors are
// KindUnavailable.
func Classify(name string, err error) *RetrievalError {
	var existing *RetrievalError
	if errors.As(err, &existing) {
		return existing
	}
	return &RetrievalError{Kind: classifyKind(err), Name: name, Err: err}
}

func classifyKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var notFound *smtypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return KindNotFound
	}
	// Secrets Manager reports a secret pending deletion as InvalidRequestException.
	var invalidRequest *smtypes.InvalidRequestException
	if errors.As(err, &invalidRequest) {
		return KindNotFound
	}
	var decryption *smtypes.DecryptionFailure
	if errors.As(err, &decryption) {
		return KindAccessDenied
	}
	var invalidParam *smtypes.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return KindMalformed
	}
	// The SDK could not decode the response body.
	var deserialization *smithy.DeserializationError
	if errors.As(err, &deserialization) {
		return KindMalformed
	}
	var internal *smtypes.InternalServiceError
	if errors.As(err, &internal) {
		return KindUnavailable
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := accessDeniedCodes[apiErr.ErrorCode()]; ok {
			return KindAccessDenied
		}
	}

	return KindUnavailable
}
