package dracoon

import (
	"context"
	"io"
	"net/http"

	"github.com/unbekanntes-pferd/dco3-go/dracoontypes"
	"github.com/unbekanntes-pferd/dco3-go/errors"
	"github.com/unbekanntes-pferd/dco3-go/internal/httputil"
)

// GetPublicDownloadShare fetches the descriptor of a public download share.
func (c *Client) GetPublicDownloadShare(ctx context.Context, accessKey string) (*dracoontypes.PublicDownloadShare, error) {
	return getJSON[dracoontypes.PublicDownloadShare](ctx, c, c.BuildAPIURL("public", "shares", "downloads", accessKey))
}

// DownloadPublicShare transfers the content of a public download share to w.
// Protected and encrypted shares require cfg.Password. Progress and chunk
// size can be set per call via cfg; cfg may be nil for unprotected shares.
//
// A failed download is not resumable: the caller restarts from the
// beginning with a fresh call.
func (c *Client) DownloadPublicShare(
	ctx context.Context,
	accessKey string,
	share *dracoontypes.PublicDownloadShare,
	w io.Writer,
	cfg *dracoontypes.PublicDownloadConfig,
) error {
	return c.downloader.Download(ctx, accessKey, share, w, cfg)
}

// DownloadPublicShareToFile downloads a public share into a file on the
// client's filesystem, creating or truncating it.
func (c *Client) DownloadPublicShareToFile(
	ctx context.Context,
	accessKey string,
	share *dracoontypes.PublicDownloadShare,
	path string,
	cfg *dracoontypes.PublicDownloadConfig,
) error {
	file, err := c.fs.Create(path)
	if err != nil {
		return errors.NewError("create download file", err).WithPath(path)
	}

	if err := c.downloader.Download(ctx, accessKey, share, file, cfg); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.NewError("close download file", err).WithPath(path)
	}
	return nil
}

// UploadPublicShare transfers the content of r to a public upload share
// (file request) and waits until the backend has assembled the file. The
// storage backend (S3 or NFS) is picked from the instance's system info;
// encrypted shares are sealed client-side with the file key wrapped for
// every recipient the share names.
func (c *Client) UploadPublicShare(
	ctx context.Context,
	accessKey string,
	share *dracoontypes.PublicUploadShare,
	r io.Reader,
	cfg *dracoontypes.PublicUploadConfig,
) (*dracoontypes.S3ShareUploadStatus, error) {
	return c.uploader.Upload(ctx, accessKey, share, r, cfg)
}

// GetSoftwareVersion returns version information of the DRACOON backend.
func (c *Client) GetSoftwareVersion(ctx context.Context) (*dracoontypes.SoftwareVersionData, error) {
	return getJSON[dracoontypes.SoftwareVersionData](ctx, c, c.BuildAPIURL("public", "software", "version"))
}

// GetSystemInfo returns system information of the DRACOON backend, among it
// whether the instance stores files on an S3 backend.
func (c *Client) GetSystemInfo(ctx context.Context) (*dracoontypes.SystemInfo, error) {
	return getJSON[dracoontypes.SystemInfo](ctx, c, c.BuildAPIURL("public", "system", "info"))
}

func getJSON[T any](ctx context.Context, c *Client, url string) (*T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewError("get", err).WithPath(url)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.Do(req)
	if err != nil {
		return nil, errors.NewError("get", err).WithPath(url)
	}
	return httputil.DecodeJSON[T](res)
}
