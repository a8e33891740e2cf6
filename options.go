// Functional options for configuring client behavior.
package dracoon

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"

	"github.com/unbekanntes-pferd/dco3-go/dracoontypes"
)

// WithBaseURL sets the DRACOON instance URL, e.g. "https://dracoon.team".
// Required.
func WithBaseURL(baseURL string) dracoontypes.Option {
	return func(c *dracoontypes.ClientConfig) {
		c.BaseURL = baseURL
	}
}

// WithAccessToken authenticates requests with a fixed access token. For
// token refresh, provide an AccessTokenProvider via WithTokenProvider.
func WithAccessToken(token string) dracoontypes.Option {
	return func(c *dracoontypes.ClientConfig) {
		c.TokenProvider = dracoontypes.StaticTokenProvider(token)
	}
}

// WithTokenProvider sets the access token source for authenticated requests.
// Public share operations work without one.
func WithTokenProvider(provider dracoontypes.AccessTokenProvider) dracoontypes.Option {
	return func(c *dracoontypes.ClientConfig) {
		c.TokenProvider = provider
	}
}

// WithChunkSize sets the byte-range granularity used per request during
// chunked transfers. Default is 32 MB.
func WithChunkSize(chunkSize int64) dracoontypes.Option {
	return func(c *dracoontypes.ClientConfig) {
		if chunkSize > 0 {
			c.ChunkSize = chunkSize
		}
	}
}

// WithConcurrency sets the maximum number of upload parts transferred in
// parallel. Default is 5.
func WithConcurrency(concurrency int) dracoontypes.Option {
	return func(c *dracoontypes.ClientConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(userAgent string) dracoontypes.Option {
	return func(c *dracoontypes.ClientConfig) {
		c.UserAgent = userAgent
	}
}

// WithHTTPClient allows providing a custom HTTP client, giving full control
// over timeouts, proxies, and transport behavior.
func WithHTTPClient(client *http.Client) dracoontypes.Option {
	return func(c *dracoontypes.ClientConfig) {
		c.HTTPClient = client
	}
}

// WithLogger sets the logger used for error and debug output.
func WithLogger(logger *log.Logger) dracoontypes.Option {
	return func(c *dracoontypes.ClientConfig) {
		c.Logger = logger
	}
}

// WithFilesystem sets the filesystem used by file-based convenience
// operations. Defaults to the OS filesystem.
func WithFilesystem(filesystem billy.Filesystem) dracoontypes.Option {
	return func(c *dracoontypes.ClientConfig) {
		c.Filesystem = filesystem
	}
}
