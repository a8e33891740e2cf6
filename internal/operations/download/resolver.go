package download

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/unbekanntes-pferd/dco3-go/dracoontypes"
	"github.com/unbekanntes-pferd/dco3-go/errors"
	"github.com/unbekanntes-pferd/dco3-go/internal/httputil"
)

// Resolver exchanges a share access key (plus an optional password) for a
// single-use download URL. Issued URLs expire quickly, so the pipelines
// call Resolve before every chunk fetch rather than caching a URL.
type Resolver struct {
	http    httputil.Doer
	baseURL string
	logger  *log.Logger
}

// NewResolver creates a Resolver against the given API base URL.
func NewResolver(client httputil.Doer, baseURL string, logger *log.Logger) *Resolver {
	return &Resolver{
		http:    client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Resolve requests a fresh download URL for the share identified by the
// access key. When no password is supplied the request is sent bodyless and
// the server applies its default handling.
func (r *Resolver) Resolve(ctx context.Context, accessKey, password string) (string, error) {
	path := fmt.Sprintf("%s/%s/public/shares/downloads/%s", r.baseURL, dracoontypes.APIPrefix, accessKey)

	var req *http.Request
	var err error
	if password == "" {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, path, nil)
	} else {
		var body []byte
		body, err = httputil.MarshalJSON(dracoontypes.PublicDownloadTokenGenerateRequest{Password: password})
		if err != nil {
			return "", err
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(body))
	}
	if err != nil {
		return "", errors.NewError("resolve download url", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.http.Do(req)
	if err != nil {
		r.logger.Error("download url request failed", "access_key", accessKey, "err", err)
		return "", errors.NewError("resolve download url", err).WithPath(path)
	}

	token, err := httputil.DecodeJSON[dracoontypes.PublicDownloadTokenGenerateResponse](res)
	if err != nil {
		return "", err
	}
	return token.DownloadURL, nil
}
