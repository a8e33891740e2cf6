package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/unbekanntes-pferd/dco3-go/dracoontypes"
	"github.com/unbekanntes-pferd/dco3-go/errors"
)

// FileKeyVersion identifies the content encryption scheme of a file key.
const FileKeyVersion = "AES-256-GCM"

const (
	fileKeySize = 32
	ivSize      = 12
)

// PlainFileKey is an unwrapped symmetric content-encryption key. The Tag is
// empty until content has been encrypted under the key.
type PlainFileKey struct {
	Key []byte
	IV  []byte
	Tag []byte
}

// NewPlainFileKey generates a fresh content-encryption key with a random IV.
func NewPlainFileKey() (*PlainFileKey, error) {
	key := make([]byte, fileKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.NewError("generate file key", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, errors.NewError("generate file key", err)
	}
	return &PlainFileKey{Key: key, IV: iv}, nil
}

// EncryptFileKey wraps a plain file key under a recipient's public key.
// Only the AES key is RSA-encrypted; IV and tag travel alongside it.
func EncryptFileKey(plain *PlainFileKey, pub *dracoontypes.PublicKeyContainer) (*dracoontypes.FileKey, error) {
	der, err := base64.StdEncoding.DecodeString(pub.PublicKey)
	if err != nil {
		return nil, errors.NewError("encrypt file key", err)
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.NewError("encrypt file key", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.NewError("encrypt file key", fmt.Errorf("container holds a %T, not an RSA key", parsed))
	}

	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, key, plain.Key, nil)
	if err != nil {
		return nil, errors.NewError("encrypt file key", err)
	}

	return &dracoontypes.FileKey{
		Key:     base64.StdEncoding.EncodeToString(wrapped),
		IV:      base64.StdEncoding.EncodeToString(plain.IV),
		Tag:     base64.StdEncoding.EncodeToString(plain.Tag),
		Version: FileKeyVersion,
	}, nil
}

// DecryptFileKey unwraps a file key using the recipient's plain private key.
func DecryptFileKey(fileKey *dracoontypes.FileKey, kp *UserKeypair) (*PlainFileKey, error) {
	if fileKey.Version != FileKeyVersion {
		return nil, errors.NewError("decrypt file key", fmt.Errorf("unsupported file key version %q", fileKey.Version))
	}

	wrapped, err := base64.StdEncoding.DecodeString(fileKey.Key)
	if err != nil {
		return nil, errors.NewError("decrypt file key", err)
	}
	iv, err := base64.StdEncoding.DecodeString(fileKey.IV)
	if err != nil {
		return nil, errors.NewError("decrypt file key", err)
	}
	tag, err := base64.StdEncoding.DecodeString(fileKey.Tag)
	if err != nil {
		return nil, errors.NewError("decrypt file key", err)
	}

	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, kp.PrivateKey, wrapped, nil)
	if err != nil {
		return nil, errors.NewError("decrypt file key", errors.ErrBadCiphertext)
	}

	return &PlainFileKey{Key: key, IV: iv, Tag: tag}, nil
}

func newGCM(key *PlainFileKey) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key.Key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
