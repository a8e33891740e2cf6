package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/unbekanntes-pferd/dco3-go/dracoontypes"
	"github.com/unbekanntes-pferd/dco3-go/errors"
)

// KeypairVersion selects the RSA modulus size of a user keypair.
type KeypairVersion string

// Supported keypair versions.
const (
	KeypairRSA2048 KeypairVersion = "RSA-2048"
	KeypairRSA4096 KeypairVersion = "RSA-4096"
)

const (
	saltSize = 16

	// argon2id parameters for the container key derivation
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// UserKeypair is a user's plain (unwrapped) asymmetric keypair.
type UserKeypair struct {
	Version    KeypairVersion
	PrivateKey *rsa.PrivateKey
}

// GenerateKeypair creates a fresh RSA keypair of the given version.
func GenerateKeypair(version KeypairVersion) (*UserKeypair, error) {
	var bits int
	switch version {
	case KeypairRSA2048:
		bits = 2048
	case KeypairRSA4096:
		bits = 4096
	default:
		return nil, errors.NewError("generate keypair", fmt.Errorf("unsupported keypair version %q", version))
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, errors.NewError("generate keypair", err)
	}

	return &UserKeypair{Version: version, PrivateKey: key}, nil
}

// PublicKeyContainer exports the keypair's public half as a shareable
// container.
func (kp *UserKeypair) PublicKeyContainer() (*dracoontypes.PublicKeyContainer, error) {
	der, err := x509.MarshalPKIXPublicKey(&kp.PrivateKey.PublicKey)
	if err != nil {
		return nil, errors.NewError("export public key", err)
	}
	return &dracoontypes.PublicKeyContainer{
		Version:   string(kp.Version),
		PublicKey: base64.StdEncoding.EncodeToString(der),
	}, nil
}

// EncryptPrivateKey seals a keypair into a password-protected container.
// The PKCS#8 encoded key is encrypted with chacha20poly1305 under an
// argon2id key derived from the password and a random salt.
func EncryptPrivateKey(password string, kp *UserKeypair) (*dracoontypes.PrivateKeyContainer, error) {
	der, err := x509.MarshalPKCS8PrivateKey(kp.PrivateKey)
	if err != nil {
		return nil, errors.NewError("encrypt private key", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.NewError("encrypt private key", err)
	}

	aead, err := chacha20poly1305.New(deriveContainerKey(password, salt))
	if err != nil {
		return nil, errors.NewError("encrypt private key", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.NewError("encrypt private key", err)
	}

	sealed := aead.Seal(nil, nonce, der, salt)

	return &dracoontypes.PrivateKeyContainer{
		Version:    string(kp.Version),
		PrivateKey: base64.StdEncoding.EncodeToString(sealed),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
	}, nil
}

// DecryptPrivateKey unlocks a private key container with the given password.
// A wrong password is indistinguishable from a corrupted container and
// yields errors.ErrWrongPassword.
func DecryptPrivateKey(password string, container *dracoontypes.PrivateKeyContainer) (*UserKeypair, error) {
	sealed, err := base64.StdEncoding.DecodeString(container.PrivateKey)
	if err != nil {
		return nil, errors.NewError("decrypt private key", err)
	}
	salt, err := base64.StdEncoding.DecodeString(container.Salt)
	if err != nil {
		return nil, errors.NewError("decrypt private key", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(container.Nonce)
	if err != nil {
		return nil, errors.NewError("decrypt private key", err)
	}

	aead, err := chacha20poly1305.New(deriveContainerKey(password, salt))
	if err != nil {
		return nil, errors.NewError("decrypt private key", err)
	}

	der, err := aead.Open(nil, nonce, sealed, salt)
	if err != nil {
		return nil, errors.ErrWrongPassword
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errors.NewError("decrypt private key", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.NewError("decrypt private key", fmt.Errorf("container holds a %T, not an RSA key", parsed))
	}

	return &UserKeypair{Version: KeypairVersion(container.Version), PrivateKey: key}, nil
}

func deriveContainerKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}
