package secrets

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
)

// Marker prefixes every stored ciphertext so encrypted values are
// recognisable and never encrypted twice. The prefix is reserved: a secret
// whose plaintext starts with it cannot be stored.
const Marker = "enc:v1:"

// ErrMarkedValue is returned on write for a flagged value that carries
// Marker but is not a ciphertext of that key and field. It is bad input,
// not a storage fault.
var ErrMarkedValue = errors.New("value starts with the reserved " + Marker + " prefix but is not a ciphertext of this field")

// DecryptionError reports a flagged field whose stored value could not be
// opened: malformed ciphertext, a wrong key, or tampering.
type DecryptionError struct {
	Key   string
	Field string
	Err   error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decrypt %s.%s: %v", e.Key, e.Field, e.Err)
}

func (e *DecryptionError) Unwrap() error {
	return e.Err
}

// Codec encrypts and decrypts the flagged fields of settings documents.
// Field values are JSON-encoded before sealing and decoded with
// encoding/json on the way out, so a round trip returns JSON types: strings,
// bools, float64 numbers, []any and map[string]any. Documents decoded from
// JSON come back unchanged; a Go int comes back as a float64. Each value is
// bound to "<settings key>#<field>" so ciphertext cannot be moved to
// another field or key.
type Codec struct {
	cipher Cipher
}

func NewCodec(c Cipher) *Codec {
	return &Codec{cipher: c}
}

// IsEncrypted reports whether v is a stored ciphertext string.
func IsEncrypted(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, Marker)
}

func aad(key, field string) []byte {
	return []byte(key + "#" + field)
}

// EncryptFields returns a copy of doc with every present, non-null flagged
// field encrypted. Values that already carry the marker are verified and
// kept as they are; one that does not open fails with ErrMarkedValue.
func (c *Codec) EncryptFields(key string, doc model.Document, fields []string) (model.Document, error) {
	out := doc.Clone()
	for _, field := range fields {
		v, ok := out[field]
		if !ok || v == nil {
			continue
		}
		if IsEncrypted(v) {
			if _, err := c.open(key, field, v.(string)); err != nil {
				return nil, fmt.Errorf("%s.%s: %w", key, field, ErrMarkedValue)
			}
			continue
		}
		plain, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s.%s: %w", key, field, err)
		}
		sealed, err := c.cipher.Encrypt(aad(key, field), plain)
		if err != nil {
			return nil, fmt.Errorf("encrypt %s.%s: %w", key, field, err)
		}
		out[field] = Marker + base64.StdEncoding.EncodeToString(sealed)
	}
	return out, nil
}

// DecryptFields returns a copy of doc with every flagged ciphertext replaced
// by its plaintext value. Flagged fields holding plaintext (rows written
// before the field was flagged) are passed through.
func (c *Codec) DecryptFields(key string, doc model.Document, fields []string) (model.Document, error) {
	out := doc.Clone()
	for _, field := range fields {
		v, ok := out[field]
		if !ok || !IsEncrypted(v) {
			continue
		}
		plain, err := c.open(key, field, v.(string))
		if err != nil {
			return nil, err
		}
		out[field] = plain
	}
	return out, nil
}

// Reencrypt re-seals flagged fields that only a retired key can open. It
// reports whether anything changed. Plaintext flagged values are sealed too.
func (c *Codec) Reencrypt(key string, doc model.Document, fields []string) (model.Document, bool, error) {
	kr, rotating := c.cipher.(*Keyring)
	out := doc.Clone()
	changed := false
	for _, field := range fields {
		v, ok := out[field]
		if !ok || v == nil {
			continue
		}
		var value any
		if IsEncrypted(v) {
			if !rotating {
				continue
			}
			packed, err := decode(v.(string))
			if err != nil {
				return nil, false, &DecryptionError{Key: key, Field: field, Err: err}
			}
			plain, stale, err := kr.decrypt(aad(key, field), packed)
			if err != nil {
				return nil, false, &DecryptionError{Key: key, Field: field, Err: err}
			}
			if !stale {
				continue
			}
			if err := json.Unmarshal(plain, &value); err != nil {
				return nil, false, &DecryptionError{Key: key, Field: field, Err: err}
			}
		} else {
			value = v
		}
		sealed, err := c.EncryptFields(key, model.Document{field: value}, []string{field})
		if err != nil {
			return nil, false, err
		}
		out[field] = sealed[field]
		changed = true
	}
	return out, changed, nil
}

func (c *Codec) open(key, field, stored string) (any, error) {
	packed, err := decode(stored)
	if err != nil {
		return nil, &DecryptionError{Key: key, Field: field, Err: err}
	}
	plain, err := c.cipher.Decrypt(aad(key, field), packed)
	if err != nil {
		return nil, &DecryptionError{Key: key, Field: field, Err: err}
	}
	var value any
	if err := json.Unmarshal(plain, &value); err != nil {
		return nil, &DecryptionError{Key: key, Field: field, Err: err}
	}
	return value, nil
}

func decode(stored string) ([]byte, error) {
	packed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, Marker))
	if err != nil {
		return nil, fmt.Errorf("malformed ciphertext: %w", err)
	}
	return packed, nil
}
