// Package dracoontypes provides shared type definitions for the DRACOON client.
package dracoontypes

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5"
)

// Default configuration values mirroring the API defaults.
const (
	// APIPrefix is the versioned path prefix of the DRACOON REST API.
	APIPrefix = "api/v4"

	// DefaultChunkSize is the byte-range granularity used per request
	// during chunked transfers (32 MB).
	DefaultChunkSize int64 = 32 * 1024 * 1024

	// DefaultConcurrency is the number of upload parts transferred in parallel.
	DefaultConcurrency = 5

	// DefaultUserAgent identifies this client on the wire.
	DefaultUserAgent = "dco3-go"
)

// AccessTokenProvider supplies OAuth2 access tokens for authenticated
// requests. Token acquisition and refresh are the provider's concern; the
// client only attaches the returned token as a bearer credential.
type AccessTokenProvider interface {
	// AccessToken returns a currently valid access token.
	AccessToken(ctx context.Context) (string, error)
}

// StaticTokenProvider is an AccessTokenProvider returning a fixed token.
type StaticTokenProvider string

// AccessToken returns the static token.
func (p StaticTokenProvider) AccessToken(_ context.Context) (string, error) {
	return string(p), nil
}

// FileKey is a wrapped symmetric content-encryption key: the AES key is
// encrypted under the recipient's public RSA key, while IV and GCM tag
// travel in the clear.
type FileKey struct {
	Key     string `json:"key"`
	IV      string `json:"iv"`
	Tag     string `json:"tag"`
	Version string `json:"version"`
}

// PrivateKeyContainer is a user's private key, stored encrypted under a
// password-derived key.
type PrivateKeyContainer struct {
	Version    string `json:"version"`
	PrivateKey string `json:"privateKey"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
}

// PublicDownloadShare describes a public download share as returned by
// GET /api/v4/public/shares/downloads/{access_key}.
type PublicDownloadShare struct {
	IsProtected         bool                 `json:"isProtected"`
	FileName            string               `json:"fileName"`
	Size                int64                `json:"size"`
	CreatorName         string               `json:"creatorName"`
	CreatedAt           time.Time            `json:"createdAt"`
	HasDownloadLimit    bool                 `json:"hasDownloadLimit"`
	LimitReached        *bool                `json:"limitReached,omitempty"`
	MediaType           string               `json:"mediaType,omitempty"`
	Notes               string               `json:"notes,omitempty"`
	ExpireAt            *time.Time           `json:"expireAt,omitempty"`
	IsEncrypted         *bool                `json:"isEncrypted,omitempty"`
	FileKey             *FileKey             `json:"fileKey,omitempty"`
	PrivateKeyContainer *PrivateKeyContainer `json:"privateKeyContainer,omitempty"`
}

// Encrypted reports whether the share is end-to-end encrypted.
func (s *PublicDownloadShare) Encrypted() bool {
	return s.IsEncrypted != nil && *s.IsEncrypted
}

// PublicDownloadTokenGenerateRequest is the body of the download token
// generation call. The password is omitted entirely when not set so that
// unprotected shares receive a bodyless request.
type PublicDownloadTokenGenerateRequest struct {
	Password string `json:"password,omitempty"`
}

// PublicDownloadTokenGenerateResponse carries the single-use download URL
// issued per chunk.
type PublicDownloadTokenGenerateResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// DownloadProgressCallback is invoked after each received chunk with the
// chunk length and the total resource size in bytes.
type DownloadProgressCallback func(bytesInChunk, totalBytes int64)

// UploadProgressCallback is invoked after each transferred part with the
// part length and the total upload size in bytes.
type UploadProgressCallback func(bytesInPart, totalBytes int64)

// PublicDownloadConfig carries the per-call parameters of a download.
type PublicDownloadConfig struct {
	// Password unlocks protected shares and, for encrypted shares, the
	// private key container. Empty means no password supplied.
	Password string

	// ChunkSize overrides the client chunk size for this call (0 = client default).
	ChunkSize int64

	// Progress is an optional progress callback.
	Progress DownloadProgressCallback
}

// SoftwareVersionData is returned by GET /api/v4/public/software/version.
type SoftwareVersionData struct {
	RestAPIVersion   string    `json:"restApiVersion"`
	SDSServerVersion string    `json:"sdsServerVersion"`
	BuildDate        time.Time `json:"buildDate"`
	IsDracoonCloud   *bool     `json:"isDracoonCloud,omitempty"`
}

// SystemInfo is returned by GET /api/v4/public/system/info.
type SystemInfo struct {
	LanguageDefault       string   `json:"languageDefault"`
	S3Hosts               []string `json:"s3Hosts"`
	S3EnforceDirectUpload bool     `json:"s3EnforceDirectUpload"`
	UseS3Storage          bool     `json:"useS3Storage"`
}

// PublicKeyContainer is a user's public key (PKIX DER, base64 encoded).
type PublicKeyContainer struct {
	Version   string     `json:"version"`
	PublicKey string     `json:"publicKey"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	ExpireAt  *time.Time `json:"expireAt,omitempty"`
}

// UserUserPublicKey pairs a share recipient with their public key.
type UserUserPublicKey struct {
	ID                 int64              `json:"id"`
	PublicKeyContainer PublicKeyContainer `json:"publicKeyContainer"`
}

// UserUserPublicKeyList lists the recipients of an encrypted upload share.
type UserUserPublicKeyList struct {
	Items []UserUserPublicKey `json:"items"`
}

// PublicUploadShare describes a public upload share (file request).
type PublicUploadShare struct {
	IsProtected           bool                   `json:"isProtected"`
	Name                  string                 `json:"name,omitempty"`
	IsEncrypted           *bool                  `json:"isEncrypted,omitempty"`
	RemainingSize         *int64                 `json:"remainingSize,omitempty"`
	ExpireAt              *time.Time             `json:"expireAt,omitempty"`
	UserUserPublicKeyList *UserUserPublicKeyList `json:"userUserPublicKeyList,omitempty"`
}

// Encrypted reports whether the upload share is end-to-end encrypted.
func (s *PublicUploadShare) Encrypted() bool {
	return s.IsEncrypted != nil && *s.IsEncrypted
}

// CreateShareUploadChannelRequest opens an upload channel on a public
// upload share.
type CreateShareUploadChannelRequest struct {
	Name              string     `json:"name"`
	Size              int64      `json:"size"`
	Password          string     `json:"password,omitempty"`
	DirectS3Upload    bool       `json:"directS3Upload"`
	TimestampCreation *time.Time `json:"timestampCreation,omitempty"`
}

// CreateShareUploadChannelResponse identifies an opened upload channel.
type CreateShareUploadChannelResponse struct {
	UploadID  string `json:"uploadId"`
	UploadURL string `json:"uploadUrl,omitempty"`
	Token     string `json:"token,omitempty"`
}

// GeneratePresignedURLsRequest asks the API for presigned part upload URLs.
type GeneratePresignedURLsRequest struct {
	Size            int64 `json:"size"`
	FirstPartNumber int32 `json:"firstPartNumber"`
	LastPartNumber  int32 `json:"lastPartNumber"`
}

// PresignedURL is a single presigned part upload target.
type PresignedURL struct {
	URL        string `json:"url"`
	PartNumber int32  `json:"partNumber"`
}

// PresignedURLList is the response to a presigned URL generation call.
type PresignedURLList struct {
	URLs []PresignedURL `json:"urls"`
}

// S3FileUploadPart pairs a part number with the ETag the storage backend
// returned for it.
type S3FileUploadPart struct {
	PartNumber int32  `json:"partNumber"`
	PartEtag   string `json:"partEtag"`
}

// UserFileKey is a file key wrapped for one share recipient.
type UserFileKey struct {
	UserID  int64   `json:"userId"`
	FileKey FileKey `json:"fileKey"`
}

// UserFileKeyList is the body of an NFS upload finalization carrying the
// wrapped recipient file keys.
type UserFileKeyList struct {
	Items []UserFileKey `json:"items"`
}

// CompleteS3ShareUploadRequest finalizes a chunked upload. For encrypted
// shares it carries the file key wrapped for every recipient.
type CompleteS3ShareUploadRequest struct {
	Parts           []S3FileUploadPart `json:"parts"`
	UserFileKeyList []UserFileKey      `json:"userFileKeyList,omitempty"`
}

// PublicUploadedFileData is returned when an NFS upload is finalized.
type PublicUploadedFileData struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	Hash      string    `json:"hash,omitempty"`
}

// Upload status values reported while the backend assembles the parts.
const (
	S3UploadStatusTransfer  = "transfer"
	S3UploadStatusFinishing = "finishing"
	S3UploadStatusDone      = "done"
	S3UploadStatusError     = "error"
)

// S3ShareUploadStatus is returned while polling an upload channel.
type S3ShareUploadStatus struct {
	Status       string `json:"status"`
	FileName     string `json:"fileName,omitempty"`
	Size         int64  `json:"size,omitempty"`
	ErrorDetails *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errorDetails,omitempty"`
}

// PublicUploadConfig carries the per-call parameters of a public share upload.
type PublicUploadConfig struct {
	// FileName is the name the uploaded file receives in the share.
	FileName string

	// FileSize is the total upload size in bytes. It must be known up front
	// because the storage backend issues presigned URLs per fixed part.
	FileSize int64

	// Password unlocks protected upload shares.
	Password string

	// ChunkSize overrides the client chunk size for this call (0 = client default).
	ChunkSize int64

	// Progress is an optional progress callback.
	Progress UploadProgressCallback
}

// ClientConfig holds the configuration assembled from functional options.
type ClientConfig struct {
	BaseURL       string
	UserAgent     string
	ChunkSize     int64
	Concurrency   int
	HTTPClient    *http.Client
	TokenProvider AccessTokenProvider
	Logger        *log.Logger
	Filesystem    billy.Filesystem
}

// Option configures the client.
type Option func(*ClientConfig)
