package secrets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrNoKeyOpened is returned when none of the keyring's keys can open a value.
var ErrNoKeyOpened = errors.New("no data key could decrypt the value")

// Keyring encrypts with a primary key and decrypts with the primary or any
// retired key, so data keys can be rotated while old rows are re-encrypted.
type Keyring struct {
	primary  Cipher
	previous []Cipher
}

var _ Cipher = (*Keyring)(nil)

func NewKeyring(primary Cipher, previous ...Cipher) *Keyring {
	return &Keyring{primary: primary, previous: previous}
}

// ParseDataKey decodes a base64 data key as produced by
// "settingsctl data-key generate".
func ParseDataKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("data key is not valid base64: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("data key must decode to %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// KeyringFromEncoded builds a keyring from a base64 primary key and a
// comma-separated list of base64 retired keys (may be empty).
func KeyringFromEncoded(primary, previous string) (*Keyring, error) {
	key, err := ParseDataKey(primary)
	if err != nil {
		return nil, err
	}
	p, err := NewSymmetric(key)
	if err != nil {
		return nil, err
	}

	var olds []Cipher
	for i, enc := range strings.Split(previous, ",") {
		if strings.TrimSpace(enc) == "" {
			continue
		}
		k, err := ParseDataKey(enc)
		if err != nil {
			return nil, fmt.Errorf("previous data key %d: %w", i, err)
		}
		c, err := NewSymmetric(k)
		if err != nil {
			return nil, err
		}
		olds = append(olds, c)
	}
	return NewKeyring(p, olds...), nil
}

func (k *Keyring) Encrypt(aad, plainText []byte) ([]byte, error) {
	return k.primary.Encrypt(aad, plainText)
}

func (k *Keyring) Decrypt(aad, packedText []byte) ([]byte, error) {
	plain, _, err := k.decrypt(aad, packedText)
	return plain, err
}

// decrypt also reports whether a retired key was needed.
func (k *Keyring) decrypt(aad, packedText []byte) ([]byte, bool, error) {
	plain, err := k.primary.Decrypt(aad, packedText)
	if err == nil {
		return plain, false, nil
	}
	if errors.Is(err, ErrShortCiphertext) || errors.Is(err, ErrUnknownFormat) {
		return nil, false, err
	}
	for _, c := range k.previous {
		if plain, err := c.Decrypt(aad, packedText); err == nil {
			return plain, true, nil
		}
	}
	return nil, false, ErrNoKeyOpened
}
