// Package errors provides error types and handling for DRACOON API operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a DRACOON client error with context about the operation
// that failed. It wraps the underlying error so callers can use errors.Is
// and errors.As against sentinel errors and response types.
type Error struct {
	// Op is the operation that failed (e.g., "download", "resolve download url")
	Op string

	// Path is the API path or download URL involved (if applicable)
	Path string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("dracoon.%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("dracoon.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithPath adds API path context to an existing error.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// Sentinel errors for common client failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrMissingArgument indicates a required argument was not provided,
	// e.g. no password for a protected or encrypted share.
	ErrMissingArgument = errors.New("dracoon: missing required argument")

	// ErrMissingEncryptionSecret indicates an encrypted share is missing the
	// password, the file key, or the private key container.
	ErrMissingEncryptionSecret = errors.New("dracoon: missing encryption secret")

	// ErrWrongPassword indicates the encryption password could not unlock the
	// private key container.
	ErrWrongPassword = errors.New("dracoon: wrong encryption password or corrupted key container")

	// ErrBadCiphertext indicates stream authentication failed on finalize,
	// i.e. the downloaded ciphertext was tampered with or corrupted.
	ErrBadCiphertext = errors.New("dracoon: ciphertext authentication failed")

	// ErrUnexpectedData indicates the server returned more bytes than the
	// declared resource size.
	ErrUnexpectedData = errors.New("dracoon: response contained bytes beyond the declared size")

	// ErrMissingBaseURL indicates the client was built without a base URL.
	ErrMissingBaseURL = errors.New("dracoon: base url required")

	// ErrInvalidBaseURL indicates the configured base URL could not be parsed.
	ErrInvalidBaseURL = errors.New("dracoon: invalid base url")

	// ErrUploadFailed indicates the backend reported a failed upload while
	// polling the upload status.
	ErrUploadFailed = errors.New("dracoon: upload failed")
)

// IsMissingArgument checks if an error indicates a missing required argument.
func IsMissingArgument(err error) bool {
	return errors.Is(err, ErrMissingArgument)
}

// IsMissingEncryptionSecret checks if an error indicates a missing encryption secret.
func IsMissingEncryptionSecret(err error) bool {
	return errors.Is(err, ErrMissingEncryptionSecret)
}

// IsCryptoError checks if an error originated in the crypto layer, i.e. a
// wrong password or a failed ciphertext authentication.
func IsCryptoError(err error) bool {
	return errors.Is(err, ErrWrongPassword) || errors.Is(err, ErrBadCiphertext)
}

// AsAPIError extracts a structured DRACOON API error from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// AsS3Error extracts a structured storage-backend error from an error chain.
func AsS3Error(err error) (*S3Error, bool) {
	var s3Err *S3Error
	if errors.As(err, &s3Err) {
		return s3Err, true
	}
	return nil, false
}
