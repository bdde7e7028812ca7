// Package codec implements the reversible transform between a plaintext
// snapshot and the encrypted artifact stored in the object store.
//
// Artifact layout: [16-byte random IV][ciphertext][16-byte GCM tag], where
// the ciphertext is the gzip-compressed plaintext encrypted under AES-256
// in GCM mode. The GCM tag is verified before any decompression is
// attempted; a mismatch is a hard failure.
package codec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

const (
	// KeySize is the required AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the GCM nonce length used by the artifact format.
	IVSize = 16
	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

// ErrInvalidInput reports malformed arguments: a nil plaintext or a key of
// the wrong length. Failing fast here avoids silently producing a corrupt
// artifact.
var ErrInvalidInput = errors.New("codec: invalid input")

// ErrTagMismatch reports an artifact whose GCM tag did not verify. The
// artifact is corrupted or tampered with; its contents must not be trusted.
var ErrTagMismatch = errors.New("codec: authentication tag mismatch")

// ErrMalformed reports an artifact too short to contain an IV and tag, or a
// stream that failed to decompress after the tag verified. The latter
// indicates data corruption that predates encryption.
var ErrMalformed = errors.New("codec: malformed artifact")

// Encode compresses plaintext with gzip and encrypts it with AES-256-GCM
// under a freshly generated random IV. The returned artifact is
// IV || ciphertext || tag. An empty plaintext is valid and round-trips to
// an empty plaintext on Decode.
func Encode(plaintext []byte, key []byte) ([]byte, error) {
	if plaintext == nil {
		return nil, fmt.Errorf("%w: nil plaintext", ErrInvalidInput)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(plaintext); err != nil {
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing compression: %w", err)
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generating IV: %w", err)
	}

	// Seal appends ciphertext||tag; seed the slice with the IV so the
	// artifact comes out in one allocation.
	artifact := make([]byte, IVSize, IVSize+buf.Len()+TagSize)
	copy(artifact, iv)
	return aead.Seal(artifact, iv, buf.Bytes(), nil), nil
}

// Decode splits the artifact per the fixed layout, decrypts with
// AES-256-GCM verifying the tag, and decompresses the result.
func Decode(artifact []byte, key []byte) ([]byte, error) {
	if artifact == nil {
		return nil, fmt.Errorf("%w: nil artifact", ErrInvalidInput)
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	if len(artifact) < IVSize+TagSize {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrMalformed, len(artifact))
	}

	iv := artifact[:IVSize]
	compressed, err := aead.Open(nil, iv, artifact[IVSize:], nil)
	if err != nil {
		return nil, ErrTagMismatch
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer zr.Close()

	plaintext, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return plaintext, nil
}

// newAEAD builds the AES-256-GCM cipher for the artifact's 16-byte IV.
func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrInvalidInput, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return aead, nil
}
