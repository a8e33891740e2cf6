package crypto

import (
	"fmt"

	"github.com/unbekanntes-pferd/dco3-go/errors"
)

// ChunkedDecrypter consumes ciphertext chunk by chunk and releases the
// plaintext into a caller-owned buffer only after the authentication tag
// has been verified. The GCM tag is carried in the file key, so ciphertext
// and plaintext have identical length and the output buffer doubles as the
// ciphertext accumulator until Finalize.
//
// Go's AEAD interface has no verified incremental open; releasing plaintext
// before the tag check would hand unauthenticated data to the caller.
type ChunkedDecrypter struct {
	key  *PlainFileKey
	out  []byte
	n    int
	done bool
}

// NewChunkedDecrypter creates a decrypter writing into out, which must be
// sized to the exact plaintext length.
func NewChunkedDecrypter(key *PlainFileKey, out []byte) (*ChunkedDecrypter, error) {
	if _, err := newGCM(key); err != nil {
		return nil, errors.NewError("init decrypter", err)
	}
	return &ChunkedDecrypter{key: key, out: out}, nil
}

// Update feeds the next ciphertext chunk into the decrypter.
func (d *ChunkedDecrypter) Update(chunk []byte) error {
	if d.done {
		return errors.NewError("decrypt chunk", fmt.Errorf("decrypter already finalized"))
	}
	if d.n+len(chunk) > len(d.out) {
		return errors.NewError("decrypt chunk", errors.ErrUnexpectedData)
	}
	copy(d.out[d.n:], chunk)
	d.n += len(chunk)
	return nil
}

// Finalize authenticates the accumulated ciphertext against the file key's
// tag and decrypts it in place. A failure means tampering or corruption and
// leaves the output buffer unusable.
func (d *ChunkedDecrypter) Finalize() error {
	if d.done {
		return errors.NewError("finalize decrypter", fmt.Errorf("decrypter already finalized"))
	}
	d.done = true

	aead, err := newGCM(d.key)
	if err != nil {
		return errors.NewError("finalize decrypter", err)
	}

	sealed := make([]byte, d.n+len(d.key.Tag))
	copy(sealed, d.out[:d.n])
	copy(sealed[d.n:], d.key.Tag)

	if _, err := aead.Open(d.out[:0], d.key.IV, sealed, nil); err != nil {
		return errors.ErrBadCiphertext
	}
	return nil
}

// BytesWritten returns the number of ciphertext bytes consumed so far.
func (d *ChunkedDecrypter) BytesWritten() int {
	return d.n
}

// EncryptBytes encrypts a full plaintext under the given file key and
// records the authentication tag on the key. Chunked encryption is not
// needed client-side: uploads buffer the content before sealing, mirroring
// the decrypt path's authenticate-then-release rule.
func EncryptBytes(key *PlainFileKey, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, errors.NewError("encrypt", err)
	}

	sealed := aead.Seal(nil, key.IV, plaintext, nil)
	ciphertext := sealed[:len(plaintext)]
	key.Tag = sealed[len(plaintext):]
	return ciphertext, nil
}
