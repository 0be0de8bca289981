// Package common defines shared constants and sentinel errors used across
// dsqlctl layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Credential errors: ambient identity missing or the issuer rejected the request.
	ErrorCredential = errors.New("credential error")

	// Encoding errors: input that cannot be safely embedded in a connection string.
	ErrorEncoding = errors.New("encoding error")

	// Store errors.
	ErrorTransient        = errors.New("transient store error")
	ErrorConflict         = errors.New("already exists")
	ErrorRetriesExhausted = errors.New("retries exhausted")

	// Destructive operations require explicit confirmation.
	ErrorNotConfirmed = errors.New("operation not confirmed")
)
