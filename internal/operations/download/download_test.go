package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbekanntes-pferd/dco3-go/crypto"
	"github.com/unbekanntes-pferd/dco3-go/dracoontypes"
	"github.com/unbekanntes-pferd/dco3-go/errors"
	"github.com/unbekanntes-pferd/dco3-go/internal/testutil"
)

func newTestDownloader(baseURL string, chunkSize int64) *Downloader {
	return New(http.DefaultClient, baseURL, chunkSize, log.New(io.Discard))
}

func boolPtr(v bool) *bool { return &v }

func testContent(n int) []byte {
	content := make([]byte, n)
	for i := range content {
		content[i] = byte(i % 251)
	}
	return content
}

func TestDownloadPlainSingleChunk(t *testing.T) {
	content := testContent(16)
	server := testutil.NewShareServer("access123", content)
	defer server.Close()

	d := newTestDownloader(server.Server.URL, 16)
	share := &dracoontypes.PublicDownloadShare{Size: 16}

	var sink bytes.Buffer
	err := d.Download(context.Background(), "access123", share, &sink, nil)
	require.NoError(t, err)

	assert.Equal(t, content, sink.Bytes())
	assert.Equal(t, 1, server.ResolveCalls())
	assert.Equal(t, []string{"bytes=0-15"}, server.Ranges())
}

func TestDownloadPlainTwoChunks(t *testing.T) {
	content := testContent(16)
	server := testutil.NewShareServer("access123", content)
	defer server.Close()

	d := newTestDownloader(server.Server.URL, 8)
	share := &dracoontypes.PublicDownloadShare{Size: 16}

	var sink bytes.Buffer
	progress := &testutil.ProgressRecorder{}
	err := d.Download(context.Background(), "access123", share, &sink, &dracoontypes.PublicDownloadConfig{
		Progress: progress.Callback(),
	})
	require.NoError(t, err)

	assert.Equal(t, content, sink.Bytes())

	// each chunk resolves its own single-use URL
	assert.Equal(t, 2, server.ResolveCalls())
	assert.Equal(t, []string{"bytes=0-7", "bytes=8-15"}, server.Ranges())

	assert.Equal(t, int64(16), progress.TotalBytes())
	for _, u := range progress.Updates {
		assert.Equal(t, int64(16), u.Total)
	}
}

func TestDownloadPlainUnevenChunks(t *testing.T) {
	content := testContent(100)
	server := testutil.NewShareServer("access123", content)
	defer server.Close()

	d := newTestDownloader(server.Server.URL, 33)
	share := &dracoontypes.PublicDownloadShare{Size: 100}

	var sink bytes.Buffer
	err := d.Download(context.Background(), "access123", share, &sink, nil)
	require.NoError(t, err)

	assert.Equal(t, content, sink.Bytes())
	assert.Equal(t, []string{"bytes=0-32", "bytes=33-65", "bytes=66-98", "bytes=99-99"}, server.Ranges())
	assert.Equal(t, 4, server.ResolveCalls())
}

func TestDownloadPasswordForwardedForProtectedShare(t *testing.T) {
	content := testContent(8)
	server := testutil.NewShareServer("access123", content)
	defer server.Close()

	d := newTestDownloader(server.Server.URL, 8)
	share := &dracoontypes.PublicDownloadShare{Size: 8, IsProtected: true}

	var sink bytes.Buffer
	err := d.Download(context.Background(), "access123", share, &sink, &dracoontypes.PublicDownloadConfig{
		Password: "TopSecret1234!",
	})
	require.NoError(t, err)

	bodies := server.ResolveBodies()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], `"password":"TopSecret1234!"`)
}

func TestDownloadPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		share   *dracoontypes.PublicDownloadShare
		cfg     *dracoontypes.PublicDownloadConfig
		wantErr error
	}{
		{
			name:    "protected share without password",
			share:   &dracoontypes.PublicDownloadShare{Size: 16, IsProtected: true},
			cfg:     nil,
			wantErr: errors.ErrMissingArgument,
		},
		{
			name:    "encrypted share without password",
			share:   &dracoontypes.PublicDownloadShare{Size: 16, IsEncrypted: boolPtr(true)},
			cfg:     nil,
			wantErr: errors.ErrMissingArgument,
		},
		{
			name:    "encrypted share without file key",
			share:   &dracoontypes.PublicDownloadShare{Size: 16, IsEncrypted: boolPtr(true)},
			cfg:     &dracoontypes.PublicDownloadConfig{Password: "TopSecret1234!"},
			wantErr: errors.ErrMissingEncryptionSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewShareServer("access123", testContent(16))
			defer server.Close()

			d := newTestDownloader(server.Server.URL, 8)

			var sink bytes.Buffer
			err := d.Download(context.Background(), "access123", tt.share, &sink, tt.cfg)

			require.ErrorIs(t, err, tt.wantErr)

			// the precondition fails before any network call
			assert.Equal(t, 0, server.ResolveCalls())
			assert.Empty(t, server.Ranges())
			assert.Zero(t, sink.Len())
		})
	}
}

// encryptedShareFixture builds a fully wired encrypted share: plaintext
// sealed under a fresh file key, the file key wrapped with a generated
// keypair, the keypair protected by the given password.
func encryptedShareFixture(t *testing.T, plaintext []byte, password string) (*dracoontypes.PublicDownloadShare, []byte) {
	t.Helper()

	keypair, err := crypto.GenerateKeypair(crypto.KeypairRSA2048)
	require.NoError(t, err)

	plainKey, err := crypto.NewPlainFileKey()
	require.NoError(t, err)

	ciphertext, err := crypto.EncryptBytes(plainKey, plaintext)
	require.NoError(t, err)

	pub, err := keypair.PublicKeyContainer()
	require.NoError(t, err)

	fileKey, err := crypto.EncryptFileKey(plainKey, pub)
	require.NoError(t, err)

	container, err := crypto.EncryptPrivateKey(password, keypair)
	require.NoError(t, err)

	share := &dracoontypes.PublicDownloadShare{
		Size:                int64(len(plaintext)),
		IsEncrypted:         boolPtr(true),
		FileKey:             fileKey,
		PrivateKeyContainer: container,
	}
	return share, ciphertext
}

func TestDownloadEncryptedRoundTrip(t *testing.T) {
	plaintext := testContent(16)
	share, ciphertext := encryptedShareFixture(t, plaintext, "TopSecret1234!")

	server := testutil.NewShareServer("access123", ciphertext)
	defer server.Close()

	d := newTestDownloader(server.Server.URL, 8)

	var sink bytes.Buffer
	progress := &testutil.ProgressRecorder{}
	err := d.Download(context.Background(), "access123", share, &sink, &dracoontypes.PublicDownloadConfig{
		Password: "TopSecret1234!",
		Progress: progress.Callback(),
	})
	require.NoError(t, err)

	assert.Equal(t, plaintext, sink.Bytes())
	assert.Equal(t, 2, server.ResolveCalls())
	assert.Equal(t, []string{"bytes=0-7", "bytes=8-15"}, server.Ranges())
	assert.Equal(t, int64(16), progress.TotalBytes())
}

func TestDownloadEncryptedWrongPassword(t *testing.T) {
	plaintext := testContent(16)
	share, ciphertext := encryptedShareFixture(t, plaintext, "TopSecret1234!")

	server := testutil.NewShareServer("access123", ciphertext)
	defer server.Close()

	d := newTestDownloader(server.Server.URL, 8)

	var sink bytes.Buffer
	err := d.Download(context.Background(), "access123", share, &sink, &dracoontypes.PublicDownloadConfig{
		Password: "wrong password",
	})

	require.ErrorIs(t, err, errors.ErrWrongPassword)
	assert.True(t, errors.IsCryptoError(err))

	// key unwrap fails before any chunk is fetched, nothing reaches the sink
	assert.Zero(t, sink.Len())
	assert.Equal(t, 0, server.ResolveCalls())
}

func TestDownloadEncryptedTamperedCiphertext(t *testing.T) {
	plaintext := testContent(32)
	share, ciphertext := encryptedShareFixture(t, plaintext, "TopSecret1234!")

	ciphertext[7] ^= 0xff

	server := testutil.NewShareServer("access123", ciphertext)
	defer server.Close()

	d := newTestDownloader(server.Server.URL, 16)

	var sink bytes.Buffer
	err := d.Download(context.Background(), "access123", share, &sink, &dracoontypes.PublicDownloadConfig{
		Password: "TopSecret1234!",
	})

	require.ErrorIs(t, err, errors.ErrBadCiphertext)
	assert.Zero(t, sink.Len())
}

func TestDownloadOversizedResponse(t *testing.T) {
	// a server that ignores the requested range and always returns 32 bytes
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("POST /api/v4/public/shares/downloads/access123", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"downloadUrl":%q}`, server.URL+"/downloads/content")
	})
	mux.HandleFunc("GET /downloads/content", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(testContent(32))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	d := newTestDownloader(server.URL, 16)
	share := &dracoontypes.PublicDownloadShare{Size: 16}

	var sink bytes.Buffer
	err := d.Download(context.Background(), "access123", share, &sink, nil)

	require.ErrorIs(t, err, errors.ErrUnexpectedData)
}

func TestDownloadEmptyChunkResponse(t *testing.T) {
	// a server that accepts the range but never returns any content; the
	// transfer must fail instead of re-requesting the same range forever
	mux := http.NewServeMux()
	var server *httptest.Server
	var fetches int
	mux.HandleFunc("POST /api/v4/public/shares/downloads/access123", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"downloadUrl":%q}`, server.URL+"/downloads/content")
	})
	mux.HandleFunc("GET /downloads/content", func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.WriteHeader(http.StatusPartialContent)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	d := newTestDownloader(server.URL, 16)
	share := &dracoontypes.PublicDownloadShare{Size: 16}

	var sink bytes.Buffer
	err := d.Download(context.Background(), "access123", share, &sink, nil)

	require.ErrorIs(t, err, errors.ErrUnexpectedData)
	assert.Equal(t, 1, fetches)
	assert.Zero(t, sink.Len())
}

func TestDownloadStorageError(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("POST /api/v4/public/shares/downloads/access123", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"downloadUrl":%q}`, server.URL+"/downloads/content")
	})
	mux.HandleFunc("GET /downloads/content", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0"?><Error><Code>AccessDenied</Code><Message>Request has expired</Message><RequestId>abc123</RequestId></Error>`))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	d := newTestDownloader(server.URL, 16)
	share := &dracoontypes.PublicDownloadShare{Size: 16}

	var sink bytes.Buffer
	err := d.Download(context.Background(), "access123", share, &sink, nil)

	s3Err, ok := errors.AsS3Error(err)
	require.True(t, ok, "expected a storage error, got %v", err)
	assert.Equal(t, http.StatusForbidden, s3Err.Status)
	assert.Equal(t, "AccessDenied", s3Err.Code)
	assert.Equal(t, "Request has expired", s3Err.Message)
	assert.Zero(t, sink.Len())
}

func TestDownloadResolveAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/public/shares/downloads/access123", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":404,"message":"Share not found","errorCode":-41000}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	d := newTestDownloader(server.URL, 16)
	share := &dracoontypes.PublicDownloadShare{Size: 16}

	var sink bytes.Buffer
	err := d.Download(context.Background(), "access123", share, &sink, nil)

	apiErr, ok := errors.AsAPIError(err)
	require.True(t, ok, "expected an api error, got %v", err)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "Share not found", apiErr.Message)
}
