package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbekanntes-pferd/dco3-go/errors"
)

func TestPrivateKeyContainerRoundTrip(t *testing.T) {
	keypair, err := GenerateKeypair(KeypairRSA2048)
	require.NoError(t, err)

	container, err := EncryptPrivateKey("TopSecret1234!", keypair)
	require.NoError(t, err)
	assert.Equal(t, string(KeypairRSA2048), container.Version)

	unlocked, err := DecryptPrivateKey("TopSecret1234!", container)
	require.NoError(t, err)
	assert.True(t, keypair.PrivateKey.Equal(unlocked.PrivateKey))
}

func TestDecryptPrivateKeyWrongPassword(t *testing.T) {
	keypair, err := GenerateKeypair(KeypairRSA2048)
	require.NoError(t, err)

	container, err := EncryptPrivateKey("TopSecret1234!", keypair)
	require.NoError(t, err)

	_, err = DecryptPrivateKey("not the password", container)
	require.ErrorIs(t, err, errors.ErrWrongPassword)
}

func TestGenerateKeypairUnsupportedVersion(t *testing.T) {
	_, err := GenerateKeypair(KeypairVersion("RSA-512"))
	require.Error(t, err)
}

func TestFileKeyRoundTrip(t *testing.T) {
	keypair, err := GenerateKeypair(KeypairRSA2048)
	require.NoError(t, err)

	plainKey, err := NewPlainFileKey()
	require.NoError(t, err)

	ciphertext, err := EncryptBytes(plainKey, []byte("some content to seal"))
	require.NoError(t, err)
	require.Len(t, ciphertext, len("some content to seal"))
	require.Len(t, plainKey.Tag, 16)

	pub, err := keypair.PublicKeyContainer()
	require.NoError(t, err)
	assert.Equal(t, string(KeypairRSA2048), pub.Version)

	fileKey, err := EncryptFileKey(plainKey, pub)
	require.NoError(t, err)
	assert.Equal(t, FileKeyVersion, fileKey.Version)

	unwrapped, err := DecryptFileKey(fileKey, keypair)
	require.NoError(t, err)
	assert.Equal(t, plainKey.Key, unwrapped.Key)
	assert.Equal(t, plainKey.IV, unwrapped.IV)
	assert.Equal(t, plainKey.Tag, unwrapped.Tag)
}

func TestChunkedDecrypterAcrossChunkBoundaries(t *testing.T) {
	plainKey, err := NewPlainFileKey()
	require.NoError(t, err)

	plaintext := make([]byte, 100)
	for i := range plaintext {
		plaintext[i] = byte(i)
	}

	ciphertext, err := EncryptBytes(plainKey, plaintext)
	require.NoError(t, err)

	out := make([]byte, len(plaintext))
	decrypter, err := NewChunkedDecrypter(plainKey, out)
	require.NoError(t, err)

	// feed in chunks that do not align with any block size
	for start := 0; start < len(ciphertext); start += 7 {
		end := min(start+7, len(ciphertext))
		require.NoError(t, decrypter.Update(ciphertext[start:end]))
	}
	require.Equal(t, len(ciphertext), decrypter.BytesWritten())

	require.NoError(t, decrypter.Finalize())
	assert.Equal(t, plaintext, out)
}

func TestChunkedDecrypterRejectsOverflow(t *testing.T) {
	plainKey, err := NewPlainFileKey()
	require.NoError(t, err)

	out := make([]byte, 8)
	decrypter, err := NewChunkedDecrypter(plainKey, out)
	require.NoError(t, err)

	err = decrypter.Update(make([]byte, 9))
	require.ErrorIs(t, err, errors.ErrUnexpectedData)
}

func TestChunkedDecrypterTamperedTag(t *testing.T) {
	plainKey, err := NewPlainFileKey()
	require.NoError(t, err)

	plaintext := []byte("authenticated content")
	ciphertext, err := EncryptBytes(plainKey, plaintext)
	require.NoError(t, err)

	plainKey.Tag[0] ^= 0xff

	out := make([]byte, len(plaintext))
	decrypter, err := NewChunkedDecrypter(plainKey, out)
	require.NoError(t, err)

	require.NoError(t, decrypter.Update(ciphertext))
	require.ErrorIs(t, decrypter.Finalize(), errors.ErrBadCiphertext)
}

func TestChunkedDecrypterFinalizeTwice(t *testing.T) {
	plainKey, err := NewPlainFileKey()
	require.NoError(t, err)

	ciphertext, err := EncryptBytes(plainKey, []byte("abc"))
	require.NoError(t, err)

	out := make([]byte, 3)
	decrypter, err := NewChunkedDecrypter(plainKey, out)
	require.NoError(t, err)

	require.NoError(t, decrypter.Update(ciphertext))
	require.NoError(t, decrypter.Finalize())
	require.Error(t, decrypter.Finalize())
	require.Error(t, decrypter.Update([]byte("x")))
}
