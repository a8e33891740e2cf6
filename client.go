package dracoon

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"

	"github.com/unbekanntes-pferd/dco3-go/dracoontypes"
	"github.com/unbekanntes-pferd/dco3-go/errors"
	"github.com/unbekanntes-pferd/dco3-go/internal/operations/download"
	"github.com/unbekanntes-pferd/dco3-go/internal/operations/upload"
)

// Client is a DRACOON API client. It attaches authentication and tracing
// headers to every request and exposes the public share operations. A
// Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	tokens     dracoontypes.AccessTokenProvider
	chunkSize  int64
	logger     *log.Logger
	fs         billy.Filesystem

	downloader *download.Downloader
	uploader   *upload.Uploader
}

// New creates a Client with the provided options. A base URL is required.
//
// Example:
//
//	client, err := dracoon.New(
//	    dracoon.WithBaseURL("https://dracoon.team"),
//	    dracoon.WithAccessToken("token"),
//	)
func New(opts ...dracoontypes.Option) (*Client, error) {
	cfg := &dracoontypes.ClientConfig{
		UserAgent:   dracoontypes.DefaultUserAgent,
		ChunkSize:   dracoontypes.DefaultChunkSize,
		Concurrency: dracoontypes.DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.BaseURL == "" {
		return nil, errors.NewError("client initialization", errors.ErrMissingBaseURL)
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.NewError("client initialization",
			fmt.Errorf("%w: %s", errors.ErrInvalidBaseURL, cfg.BaseURL))
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	filesystem := cfg.Filesystem
	if filesystem == nil {
		filesystem = osfs.New("/")
	}

	client := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  cfg.UserAgent,
		tokens:     cfg.TokenProvider,
		chunkSize:  cfg.ChunkSize,
		logger:     logger,
		fs:         filesystem,
	}
	client.downloader = download.New(client, baseURL, cfg.ChunkSize, logger)
	client.uploader = upload.New(client, baseURL, cfg.ChunkSize, cfg.Concurrency, logger)

	return client, nil
}

// Do sends a request with the client's identity attached: user agent, a
// request id for tracing, and a bearer token when a provider is configured.
// It implements the Doer contract consumed by the operation packages.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())

	if c.tokens != nil {
		token, err := c.tokens.AccessToken(req.Context())
		if err != nil {
			return nil, errors.NewError("acquire access token", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}

// BuildAPIURL joins path segments onto the client's versioned API prefix.
func (c *Client) BuildAPIURL(parts ...string) string {
	return c.baseURL + "/" + dracoontypes.APIPrefix + "/" + strings.Join(parts, "/")
}
