// Package httputil provides response decoding and error mapping shared by
// the API operations. Success bodies decode into typed structures, error
// bodies into the structured API or storage error shapes.
package httputil

import (
	"encoding/xml"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/unbekanntes-pferd/dco3-go/errors"
)

// Doer sends a single HTTP request. The root client implements it by
// attaching authentication and tracing headers before dispatch.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DecodeJSON reads and closes the response body. On a success status it
// decodes the body into T; otherwise it decodes the DRACOON error body and
// returns it as an *errors.APIError.
func DecodeJSON[T any](res *http.Response) (*T, error) {
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.NewError("read response body", err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return nil, APIErrorFromBody(res.StatusCode, body)
	}

	var v T
	if err := sonic.Unmarshal(body, &v); err != nil {
		return nil, errors.NewError("decode response body", err)
	}
	return &v, nil
}

// DrainAndClose consumes the rest of a response body so the connection can
// be reused, then closes it.
func DrainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// APIErrorFromBody decodes a DRACOON JSON error body. If the body cannot be
// decoded, a fallback error carrying the HTTP status is returned.
func APIErrorFromBody(status int, body []byte) error {
	var apiErr errors.APIError
	if err := sonic.Unmarshal(body, &apiErr); err != nil || apiErr.Code == 0 {
		return errors.NewAPIError(status, http.StatusText(status))
	}
	return &apiErr
}

// S3ErrorFromResponse reads and closes a failed storage-backend response and
// decodes its XML error document. Storage errors are surfaced as a distinct
// kind so callers can tell them apart from API failures.
func S3ErrorFromResponse(res *http.Response) error {
	defer res.Body.Close()

	s3Err := &errors.S3Error{Status: res.StatusCode}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return s3Err
	}
	// a failed decode still yields a status-only storage error
	_ = xml.Unmarshal(body, s3Err)
	return s3Err
}

// MarshalJSON encodes a request body.
func MarshalJSON(v any) ([]byte, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, errors.NewError("encode request body", err)
	}
	return data, nil
}
