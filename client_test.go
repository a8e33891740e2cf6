package dracoon

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbekanntes-pferd/dco3-go/errors"
)

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New()
	require.ErrorIs(t, err, errors.ErrMissingBaseURL)
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	_, err := New(WithBaseURL("not a url"))
	require.ErrorIs(t, err, errors.ErrInvalidBaseURL)
}

func TestNewTrimsTrailingSlash(t *testing.T) {
	client, err := New(WithBaseURL("https://dracoon.team/"))
	require.NoError(t, err)

	assert.Equal(t,
		"https://dracoon.team/api/v4/public/shares/downloads/abc",
		client.BuildAPIURL("public", "shares", "downloads", "abc"))
}

func TestDoAttachesHeaders(t *testing.T) {
	var gotAuth, gotUA, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get("X-Request-Id")
	}))
	defer server.Close()

	client, err := New(
		WithBaseURL(server.URL),
		WithAccessToken("token123"),
		WithUserAgent("custom-agent/1.0"),
	)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	res, err := client.Do(req)
	require.NoError(t, err)
	res.Body.Close()

	assert.Equal(t, "Bearer token123", gotAuth)
	assert.Equal(t, "custom-agent/1.0", gotUA)
	assert.NotEmpty(t, gotRequestID)
}

func TestDoWithoutTokenProvider(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer server.Close()

	client, err := New(WithBaseURL(server.URL))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	res, err := client.Do(req)
	require.NoError(t, err)
	res.Body.Close()

	assert.Empty(t, gotAuth)
}
