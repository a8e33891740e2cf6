package download

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/unbekanntes-pferd/dco3-go/errors"
	"github.com/unbekanntes-pferd/dco3-go/internal/httputil"
)

// Fetcher issues ranged GET requests against resolved download URLs and
// exposes the response body as a byte stream. A stream is not restartable;
// re-reading a range requires a new request against a fresh URL.
type Fetcher struct {
	http   httputil.Doer
	logger *log.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(client httputil.Doer, logger *log.Logger) *Fetcher {
	return &Fetcher{http: client, logger: logger}
}

// Fetch requests the inclusive byte range [start, end] of the resource
// behind url. Non-success statuses decode as storage-backend errors so
// callers can distinguish them from API failures.
func (f *Fetcher) Fetch(ctx context.Context, url string, start, end int64) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewError("fetch chunk", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	res, err := f.http.Do(req)
	if err != nil {
		f.logger.Error("chunk request failed", "range_start", start, "range_end", end, "err", err)
		return nil, errors.NewError("fetch chunk", err).WithPath(url)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return nil, httputil.S3ErrorFromResponse(res)
	}
	return res.Body, nil
}
