package errors

import (
	"fmt"
	"net/http"
)

// APIError is the structured error body returned by the DRACOON REST API.
type APIError struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	DebugInfo string `json:"debugInfo,omitempty"`
	ErrorCode int    `json:"errorCode,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.DebugInfo != "" {
		return fmt.Sprintf("dracoon api error %d: %s (%s)", e.Code, e.Message, e.DebugInfo)
	}
	return fmt.Sprintf("dracoon api error %d: %s", e.Code, e.Message)
}

// IsUnauthorized reports whether the API rejected the request with 401.
func (e *APIError) IsUnauthorized() bool {
	return e.Code == http.StatusUnauthorized
}

// IsPaymentRequired reports whether the API rejected the request with 402.
func (e *APIError) IsPaymentRequired() bool {
	return e.Code == http.StatusPaymentRequired
}

// IsForbidden reports whether the API rejected the request with 403.
func (e *APIError) IsForbidden() bool {
	return e.Code == http.StatusForbidden
}

// IsNotFound reports whether the requested resource does not exist.
func (e *APIError) IsNotFound() bool {
	return e.Code == http.StatusNotFound
}

// IsConflict reports whether the request conflicted with the current state.
func (e *APIError) IsConflict() bool {
	return e.Code == http.StatusConflict
}

// IsTooManyRequests reports whether the API rate limit was hit.
func (e *APIError) IsTooManyRequests() bool {
	return e.Code == http.StatusTooManyRequests
}

// IsServerError reports whether the API failed with a 5xx status.
func (e *APIError) IsServerError() bool {
	return e.Code >= http.StatusInternalServerError
}

// NewAPIError builds a fallback APIError for responses whose error body
// could not be decoded.
func NewAPIError(status int, message string) *APIError {
	return &APIError{
		Code:    status,
		Message: message,
	}
}

// S3Error is the structured error returned by the storage backend on a
// failed ranged download or part upload. The backend answers with an S3
// style XML error document.
type S3Error struct {
	// Status is the HTTP status of the failed storage request
	Status int `xml:"-"`

	Code      string `xml:"Code"`
	Message   string `xml:"Message"`
	RequestID string `xml:"RequestId"`
	HostID    string `xml:"HostId"`
}

// Error implements the error interface.
func (e *S3Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown storage error"
	}
	return fmt.Sprintf("storage error: %s (%d)", msg, e.Status)
}
