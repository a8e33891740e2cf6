package download

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/unbekanntes-pferd/dco3-go/crypto"
	"github.com/unbekanntes-pferd/dco3-go/dracoontypes"
	"github.com/unbekanntes-pferd/dco3-go/errors"
	"github.com/unbekanntes-pferd/dco3-go/internal/httputil"
)

// readBufferSize is the granularity of single stream reads inside one
// ranged response.
const readBufferSize = 32 * 1024

// Downloader drives a public share download: it validates preconditions and
// dispatches to the plain or encrypted pipeline. One Downloader is safe for
// concurrent use; all per-call state lives on the stack.
type Downloader struct {
	resolver  *Resolver
	fetcher   *Fetcher
	chunkSize int64
	logger    *log.Logger
}

// New creates a Downloader against the given API base URL.
func New(client httputil.Doer, baseURL string, chunkSize int64, logger *log.Logger) *Downloader {
	if chunkSize <= 0 {
		chunkSize = dracoontypes.DefaultChunkSize
	}
	return &Downloader{
		resolver:  NewResolver(client, baseURL, logger),
		fetcher:   NewFetcher(client, logger),
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Download transfers the share's content to w. Protected and encrypted
// shares require a password; the check happens before any network call.
func (d *Downloader) Download(
	ctx context.Context,
	accessKey string,
	share *dracoontypes.PublicDownloadShare,
	w io.Writer,
	cfg *dracoontypes.PublicDownloadConfig,
) error {
	if cfg == nil {
		cfg = &dracoontypes.PublicDownloadConfig{}
	}

	if cfg.Password == "" && (share.IsProtected || share.Encrypted()) {
		return errors.NewError("download", errors.ErrMissingArgument)
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = d.chunkSize
	}

	// the password reaches the resolver only for protected shares; on the
	// encrypted path its cryptographic role is unlocking the key container
	resolverPassword := ""
	if share.IsProtected {
		resolverPassword = cfg.Password
	}

	if share.Encrypted() {
		if share.FileKey == nil || share.PrivateKeyContainer == nil {
			return errors.NewError("download", errors.ErrMissingEncryptionSecret)
		}
		return d.downloadEncrypted(ctx, accessKey, resolverPassword, share, w, chunkSize, cfg)
	}

	return d.downloadPlain(ctx, accessKey, resolverPassword, share.Size, w, chunkSize, cfg.Progress)
}

// downloadPlain streams the resource to w chunk by chunk. Every chunk gets
// its own freshly resolved download URL because issued URLs are single-use.
func (d *Downloader) downloadPlain(
	ctx context.Context,
	accessKey, password string,
	size int64,
	w io.Writer,
	chunkSize int64,
	progress dracoontypes.DownloadProgressCallback,
) error {
	var transferred int64

	for transferred < size {
		url, err := d.resolver.Resolve(ctx, accessKey, password)
		if err != nil {
			return err
		}

		end := min(transferred+chunkSize-1, size-1)
		body, err := d.fetcher.Fetch(ctx, url, transferred, end)
		if err != nil {
			return err
		}

		before := transferred
		err = consumeStream(body, size, &transferred, progress, func(chunk []byte) error {
			if _, werr := w.Write(chunk); werr != nil {
				return errors.NewError("write to sink", werr)
			}
			return nil
		})
		body.Close()
		if err != nil {
			return err
		}
		if transferred == before {
			// a chunk that contributes nothing would loop forever
			return errors.NewError("download", fmt.Errorf("%w: empty response for range %d-%d",
				errors.ErrUnexpectedData, before, end))
		}
	}

	return nil
}

// downloadEncrypted unwraps the share's keys, streams ciphertext through the
// chunked decrypter, and writes the plaintext in one operation after the
// stream has been authenticated. Flushing earlier would leak plaintext the
// tag has not vouched for.
func (d *Downloader) downloadEncrypted(
	ctx context.Context,
	accessKey, resolverPassword string,
	share *dracoontypes.PublicDownloadShare,
	w io.Writer,
	chunkSize int64,
	cfg *dracoontypes.PublicDownloadConfig,
) error {
	keypair, err := crypto.DecryptPrivateKey(cfg.Password, share.PrivateKeyContainer)
	if err != nil {
		return err
	}
	plainKey, err := crypto.DecryptFileKey(share.FileKey, keypair)
	if err != nil {
		return err
	}

	// bounded by the platform's maximum file size, so a full in-memory
	// plaintext buffer is acceptable
	buffer := make([]byte, share.Size)
	decrypter, err := crypto.NewChunkedDecrypter(plainKey, buffer)
	if err != nil {
		return err
	}

	var transferred int64
	size := share.Size

	for transferred < size {
		url, err := d.resolver.Resolve(ctx, accessKey, resolverPassword)
		if err != nil {
			return err
		}

		end := min(transferred+chunkSize-1, size-1)
		body, err := d.fetcher.Fetch(ctx, url, transferred, end)
		if err != nil {
			return err
		}

		before := transferred
		err = consumeStream(body, size, &transferred, cfg.Progress, decrypter.Update)
		body.Close()
		if err != nil {
			return err
		}
		if transferred == before {
			// a chunk that contributes nothing would loop forever
			return errors.NewError("download", fmt.Errorf("%w: empty response for range %d-%d",
				errors.ErrUnexpectedData, before, end))
		}
	}

	if err := decrypter.Finalize(); err != nil {
		return err
	}

	if _, err := w.Write(buffer); err != nil {
		return errors.NewError("write to sink", err)
	}
	return nil
}

// consumeStream reads one ranged response to exhaustion, handing each read
// chunk to sink and reporting progress against total. A stream carrying the
// transfer past total is a hard error: range math guarantees it cannot
// happen with a well-behaved server.
func consumeStream(
	body io.Reader,
	total int64,
	transferred *int64,
	progress dracoontypes.DownloadProgressCallback,
	sink func(chunk []byte) error,
) error {
	buf := make([]byte, readBufferSize)

	for {
		n, err := body.Read(buf)
		if n > 0 {
			if *transferred+int64(n) > total {
				return errors.NewError("download", errors.ErrUnexpectedData)
			}
			if serr := sink(buf[:n]); serr != nil {
				return serr
			}
			*transferred += int64(n)
			if progress != nil {
				progress(int64(n), total)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.NewError("read chunk stream", err)
		}
	}
}
