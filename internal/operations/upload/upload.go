package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/unbekanntes-pferd/dco3-go/crypto"
	"github.com/unbekanntes-pferd/dco3-go/dracoontypes"
	"github.com/unbekanntes-pferd/dco3-go/errors"
	"github.com/unbekanntes-pferd/dco3-go/internal/httputil"
)

// pollStartDelay is the initial wait between upload status polls; the delay
// doubles per attempt up to pollMaxDelay.
const (
	pollStartDelay = 300 * time.Millisecond
	pollMaxDelay   = 5 * time.Second
)

// Uploader drives public share uploads.
type Uploader struct {
	http        httputil.Doer
	baseURL     string
	chunkSize   int64
	concurrency int
	logger      *log.Logger
}

// New creates an Uploader against the given API base URL.
func New(client httputil.Doer, baseURL string, chunkSize int64, concurrency int, logger *log.Logger) *Uploader {
	if chunkSize <= 0 {
		chunkSize = dracoontypes.DefaultChunkSize
	}
	if concurrency <= 0 {
		concurrency = dracoontypes.DefaultConcurrency
	}
	return &Uploader{
		http:        client,
		baseURL:     baseURL,
		chunkSize:   chunkSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Upload transfers the content of r to a public upload share. The file size
// must be known up front because the storage backend addresses the content
// in fixed ranges. The instance's system info decides whether the content
// goes to S3 via presigned part URLs or to NFS via the channel's upload
// URL. Encrypted shares are sealed before transfer and the file key is
// wrapped for each recipient the share names.
//
// Returns the final upload status reported by the backend; NFS uploads
// complete synchronously and report a done status directly.
func (u *Uploader) Upload(
	ctx context.Context,
	accessKey string,
	share *dracoontypes.PublicUploadShare,
	r io.Reader,
	cfg *dracoontypes.PublicUploadConfig,
) (*dracoontypes.S3ShareUploadStatus, error) {
	if cfg == nil || cfg.FileName == "" || cfg.FileSize <= 0 {
		return nil, errors.NewError("upload", errors.ErrMissingArgument)
	}
	if share.IsProtected && cfg.Password == "" {
		return nil, errors.NewError("upload", errors.ErrMissingArgument)
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = u.chunkSize
	}

	info, err := u.systemInfo(ctx)
	if err != nil {
		return nil, err
	}

	content := r
	var userFileKeys []dracoontypes.UserFileKey
	if share.Encrypted() {
		ciphertext, keys, err := sealShareContent(r, cfg.FileSize, share.UserUserPublicKeyList)
		if err != nil {
			return nil, err
		}
		content = bytes.NewReader(ciphertext)
		userFileKeys = keys
	}

	if info.UseS3Storage {
		return u.uploadS3(ctx, accessKey, content, chunkSize, cfg, userFileKeys)
	}
	return u.uploadNFS(ctx, accessKey, content, chunkSize, cfg, userFileKeys)
}

// sealShareContent encrypts the full content under a fresh file key and
// wraps the key for every recipient. Ciphertext length equals plaintext
// length; the tag lives in the wrapped keys.
func sealShareContent(
	r io.Reader,
	size int64,
	recipients *dracoontypes.UserUserPublicKeyList,
) ([]byte, []dracoontypes.UserFileKey, error) {
	plaintext := make([]byte, size)
	if _, err := io.ReadFull(r, plaintext); err != nil {
		return nil, nil, errors.NewError("read upload content", err)
	}

	plainKey, err := crypto.NewPlainFileKey()
	if err != nil {
		return nil, nil, err
	}
	ciphertext, err := crypto.EncryptBytes(plainKey, plaintext)
	if err != nil {
		return nil, nil, err
	}

	var keys []dracoontypes.UserFileKey
	if recipients != nil {
		for _, recipient := range recipients.Items {
			fileKey, err := crypto.EncryptFileKey(plainKey, &recipient.PublicKeyContainer)
			if err != nil {
				return nil, nil, err
			}
			keys = append(keys, dracoontypes.UserFileKey{
				UserID:  recipient.ID,
				FileKey: *fileKey,
			})
		}
	}
	return ciphertext, keys, nil
}

func (u *Uploader) uploadS3(
	ctx context.Context,
	accessKey string,
	r io.Reader,
	chunkSize int64,
	cfg *dracoontypes.PublicUploadConfig,
	userFileKeys []dracoontypes.UserFileKey,
) (*dracoontypes.S3ShareUploadStatus, error) {
	channel, err := u.createChannel(ctx, accessKey, cfg, true)
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	u.logger.Debug("upload channel opened",
		"upload_id", channel.UploadID, "correlation_id", correlationID, "size", cfg.FileSize)

	parts, err := u.uploadParts(ctx, accessKey, channel.UploadID, r, chunkSize, cfg)
	if err != nil {
		return nil, err
	}

	if err := u.finalizeS3(ctx, accessKey, channel.UploadID, parts, userFileKeys); err != nil {
		return nil, err
	}

	return u.pollStatus(ctx, accessKey, channel.UploadID)
}

func (u *Uploader) uploadNFS(
	ctx context.Context,
	accessKey string,
	r io.Reader,
	chunkSize int64,
	cfg *dracoontypes.PublicUploadConfig,
	userFileKeys []dracoontypes.UserFileKey,
) (*dracoontypes.S3ShareUploadStatus, error) {
	channel, err := u.createChannel(ctx, accessKey, cfg, false)
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	u.logger.Debug("upload channel opened",
		"upload_id", channel.UploadID, "correlation_id", correlationID, "size", cfg.FileSize)

	var transferred int64
	for transferred < cfg.FileSize {
		chunkLen := min(chunkSize, cfg.FileSize-transferred)
		chunk := make([]byte, chunkLen)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, errors.NewError("read upload content", err)
		}

		if err := u.putNFSChunk(ctx, channel.UploadURL, chunk, transferred, cfg.FileSize); err != nil {
			return nil, err
		}
		transferred += chunkLen

		if cfg.Progress != nil {
			cfg.Progress(chunkLen, cfg.FileSize)
		}
	}

	uploaded, err := u.finalizeNFS(ctx, accessKey, channel.UploadID, userFileKeys)
	if err != nil {
		return nil, err
	}

	return &dracoontypes.S3ShareUploadStatus{
		Status:   dracoontypes.S3UploadStatusDone,
		FileName: uploaded.Name,
		Size:     uploaded.Size,
	}, nil
}

func (u *Uploader) systemInfo(ctx context.Context) (*dracoontypes.SystemInfo, error) {
	path := fmt.Sprintf("%s/%s/public/system/info", u.baseURL, dracoontypes.APIPrefix)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, errors.NewError("get system info", err)
	}

	res, err := u.http.Do(req)
	if err != nil {
		return nil, errors.NewError("get system info", err).WithPath(path)
	}
	return httputil.DecodeJSON[dracoontypes.SystemInfo](res)
}

func (u *Uploader) createChannel(
	ctx context.Context,
	accessKey string,
	cfg *dracoontypes.PublicUploadConfig,
	directS3 bool,
) (*dracoontypes.CreateShareUploadChannelResponse, error) {
	path := fmt.Sprintf("%s/%s/public/shares/uploads/%s", u.baseURL, dracoontypes.APIPrefix, accessKey)

	body, err := httputil.MarshalJSON(dracoontypes.CreateShareUploadChannelRequest{
		Name:           cfg.FileName,
		Size:           cfg.FileSize,
		Password:       cfg.Password,
		DirectS3Upload: directS3,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewError("create upload channel", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := u.http.Do(req)
	if err != nil {
		return nil, errors.NewError("create upload channel", err).WithPath(path)
	}
	return httputil.DecodeJSON[dracoontypes.CreateShareUploadChannelResponse](res)
}

// uploadParts reads the content sequentially and transfers the parts with
// bounded concurrency. Part numbers are 1-based, matching the storage
// backend's multipart convention.
func (u *Uploader) uploadParts(
	ctx context.Context,
	accessKey, uploadID string,
	r io.Reader,
	chunkSize int64,
	cfg *dracoontypes.PublicUploadConfig,
) ([]dracoontypes.S3FileUploadPart, error) {
	numParts := int32((cfg.FileSize + chunkSize - 1) / chunkSize)
	parts := make([]dracoontypes.S3FileUploadPart, numParts)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(u.concurrency)

	var contentType string
	var read int64

	// an error in the sequential stage must not return before the group
	// has settled: in-flight part transfers write into parts and fire the
	// progress callback
	var loopErr error

	for partNumber := int32(1); partNumber <= numParts; partNumber++ {
		partSize := min(chunkSize, cfg.FileSize-read)
		part := make([]byte, partSize)
		if _, err := io.ReadFull(r, part); err != nil {
			loopErr = errors.NewError("read upload content", err)
			break
		}
		read += partSize

		if contentType == "" {
			contentType = mimetype.Detect(part).String()
		}

		target, err := u.presignedURL(groupCtx, accessKey, uploadID, partNumber, partSize)
		if err != nil {
			loopErr = err
			break
		}

		ct := contentType
		group.Go(func() error {
			etag, err := u.putPart(groupCtx, target, part, ct)
			if err != nil {
				return err
			}
			parts[partNumber-1] = dracoontypes.S3FileUploadPart{
				PartNumber: partNumber,
				PartEtag:   etag,
			}
			if cfg.Progress != nil {
				cfg.Progress(partSize, cfg.FileSize)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	if loopErr != nil {
		return nil, loopErr
	}
	return parts, nil
}

func (u *Uploader) presignedURL(
	ctx context.Context,
	accessKey, uploadID string,
	partNumber int32,
	partSize int64,
) (string, error) {
	path := fmt.Sprintf("%s/%s/public/shares/uploads/%s/%s/s3_urls",
		u.baseURL, dracoontypes.APIPrefix, accessKey, uploadID)

	body, err := httputil.MarshalJSON(dracoontypes.GeneratePresignedURLsRequest{
		Size:            partSize,
		FirstPartNumber: partNumber,
		LastPartNumber:  partNumber,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return "", errors.NewError("generate presigned url", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := u.http.Do(req)
	if err != nil {
		return "", errors.NewError("generate presigned url", err).WithPath(path)
	}

	urls, err := httputil.DecodeJSON[dracoontypes.PresignedURLList](res)
	if err != nil {
		return "", err
	}
	if len(urls.URLs) == 0 {
		return "", errors.NewError("generate presigned url", fmt.Errorf("empty url list for part %d", partNumber))
	}
	return urls.URLs[0].URL, nil
}

// putPart uploads one part to its presigned URL and returns the ETag the
// storage backend assigned to it.
func (u *Uploader) putPart(ctx context.Context, url string, part []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(part))
	if err != nil {
		return "", errors.NewError("upload part", err)
	}
	req.Header.Set("Content-Type", contentType)

	res, err := u.http.Do(req)
	if err != nil {
		u.logger.Error("part upload failed", "err", err)
		return "", errors.NewError("upload part", err).WithPath(url)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return "", httputil.S3ErrorFromResponse(res)
	}
	httputil.DrainAndClose(res.Body)

	return strings.Trim(res.Header.Get("ETag"), `"`), nil
}

// putNFSChunk posts one content chunk to the channel's upload URL, addressed
// by a content range against the total file size.
func (u *Uploader) putNFSChunk(ctx context.Context, url string, chunk []byte, offset, total int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(chunk))
	if err != nil {
		return errors.NewError("upload chunk", err)
	}
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+int64(len(chunk)), total))

	res, err := u.http.Do(req)
	if err != nil {
		u.logger.Error("chunk upload failed", "err", err)
		return errors.NewError("upload chunk", err).WithPath(url)
	}

	if res.StatusCode >= http.StatusBadRequest {
		defer res.Body.Close()
		raw, _ := io.ReadAll(res.Body)
		return httputil.APIErrorFromBody(res.StatusCode, raw)
	}
	httputil.DrainAndClose(res.Body)
	return nil
}

func (u *Uploader) finalizeS3(
	ctx context.Context,
	accessKey, uploadID string,
	parts []dracoontypes.S3FileUploadPart,
	userFileKeys []dracoontypes.UserFileKey,
) error {
	path := fmt.Sprintf("%s/%s/public/shares/uploads/%s/%s/s3",
		u.baseURL, dracoontypes.APIPrefix, accessKey, uploadID)

	body, err := httputil.MarshalJSON(dracoontypes.CompleteS3ShareUploadRequest{
		Parts:           parts,
		UserFileKeyList: userFileKeys,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, path, bytes.NewReader(body))
	if err != nil {
		return errors.NewError("finalize upload", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := u.http.Do(req)
	if err != nil {
		return errors.NewError("finalize upload", err).WithPath(path)
	}
	if res.StatusCode >= http.StatusBadRequest {
		defer res.Body.Close()
		raw, _ := io.ReadAll(res.Body)
		return httputil.APIErrorFromBody(res.StatusCode, raw)
	}
	httputil.DrainAndClose(res.Body)
	return nil
}

// finalizeNFS closes an NFS upload channel. The request is bodyless unless
// recipient file keys have to be delivered.
func (u *Uploader) finalizeNFS(
	ctx context.Context,
	accessKey, uploadID string,
	userFileKeys []dracoontypes.UserFileKey,
) (*dracoontypes.PublicUploadedFileData, error) {
	path := fmt.Sprintf("%s/%s/public/shares/uploads/%s/%s",
		u.baseURL, dracoontypes.APIPrefix, accessKey, uploadID)

	var reqBody io.Reader
	if len(userFileKeys) > 0 {
		body, err := httputil.MarshalJSON(dracoontypes.UserFileKeyList{Items: userFileKeys})
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, path, reqBody)
	if err != nil {
		return nil, errors.NewError("finalize upload", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := u.http.Do(req)
	if err != nil {
		return nil, errors.NewError("finalize upload", err).WithPath(path)
	}
	return httputil.DecodeJSON[dracoontypes.PublicUploadedFileData](res)
}

// pollStatus waits for the backend to assemble the uploaded parts.
func (u *Uploader) pollStatus(ctx context.Context, accessKey, uploadID string) (*dracoontypes.S3ShareUploadStatus, error) {
	path := fmt.Sprintf("%s/%s/public/shares/uploads/%s/%s",
		u.baseURL, dracoontypes.APIPrefix, accessKey, uploadID)

	delay := pollStartDelay
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, errors.NewError("poll upload status", err)
		}

		res, err := u.http.Do(req)
		if err != nil {
			return nil, errors.NewError("poll upload status", err).WithPath(path)
		}

		status, err := httputil.DecodeJSON[dracoontypes.S3ShareUploadStatus](res)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case dracoontypes.S3UploadStatusDone:
			return status, nil
		case dracoontypes.S3UploadStatusError:
			if status.ErrorDetails != nil {
				return status, errors.NewError("upload",
					fmt.Errorf("%w: %s", errors.ErrUploadFailed, status.ErrorDetails.Message))
			}
			return status, errors.NewError("upload", errors.ErrUploadFailed)
		}

		select {
		case <-ctx.Done():
			return nil, errors.NewError("poll upload status", ctx.Err())
		case <-time.After(delay):
		}
		if delay < pollMaxDelay {
			delay *= 2
		}
	}
}
