package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	KeySize      = 32
	nonceSize    = 12
	tagSize      = 16
	formatMagic  = byte('G')
	packedHeader = 1 + tagSize + nonceSize
)

var (
	ErrShortCiphertext = errors.New("ciphertext is too short")
	ErrUnknownFormat   = errors.New("ciphertext has an unknown format byte")
)

// Cipher seals and opens values bound to additional authenticated data.
type Cipher interface {
	Encrypt(aad, plainText []byte) ([]byte, error)
	Decrypt(aad, packedText []byte) ([]byte, error)
}

// Symmetric is an AES-256-GCM Cipher. Sealed values are packed as
// magic | tag | nonce | ciphertext.
type Symmetric struct {
	aead cipher.AEAD
}

var _ Cipher = (*Symmetric)(nil)

func NewSymmetric(key []byte) (*Symmetric, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("data key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Symmetric{aead: aead}, nil
}

func (s *Symmetric) Encrypt(aad, plainText []byte) ([]byte, error) {
	nonce, err := RandomBytes(nonceSize)
	if err != nil {
		return nil, err
	}
	return s.seal(aad, plainText, nonce), nil
}

func (s *Symmetric) seal(aad, plainText, nonce []byte) []byte {
	sealed := s.aead.Seal(nil, nonce, plainText, aad)
	split := len(sealed) - tagSize

	out := make([]byte, 0, packedHeader+split)
	out = append(out, formatMagic)
	out = append(out, sealed[split:]...)
	out = append(out, nonce...)
	out = append(out, sealed[:split]...)
	return out
}

func (s *Symmetric) Decrypt(aad, packedText []byte) ([]byte, error) {
	if len(packedText) < packedHeader {
		return nil, ErrShortCiphertext
	}
	if packedText[0] != formatMagic {
		return nil, ErrUnknownFormat
	}
	tag := packedText[1 : 1+tagSize]
	nonce := packedText[1+tagSize : packedHeader]

	sealed := make([]byte, 0, len(packedText)-packedHeader+tagSize)
	sealed = append(sealed, packedText[packedHeader:]...)
	sealed = append(sealed, tag...)

	return s.aead.Open(nil, nonce, sealed, aad)
}

// RandomBytes reads size bytes from the system CSPRNG.
func RandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
