package secrets

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
)

var emailFields = []string{"smtp_password", "ses_secret"}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewSymmetric(testKey(0))
	require.NoError(t, err)
	return NewCodec(c)
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	// values as encoding/json decodes them, which is how documents arrive
	doc := model.Document{
		"smtp_host":     "mail.school.edu",
		"smtp_password": "hunter2",
		"ses_secret":    map[string]any{"id": "AK", "n": float64(3), "on": true, "tags": []any{"a", "b"}},
	}

	sealed, err := codec.EncryptFields("system.email", doc, emailFields)
	require.NoError(t, err)

	assert.Equal(t, "mail.school.edu", sealed["smtp_host"])
	assert.True(t, IsEncrypted(sealed["smtp_password"]))
	assert.True(t, IsEncrypted(sealed["ses_secret"]))
	assert.NotContains(t, sealed["smtp_password"], "hunter2")
	// input is never mutated
	assert.Equal(t, "hunter2", doc["smtp_password"])

	opened, err := codec.DecryptFields("system.email", sealed, emailFields)
	require.NoError(t, err)
	assert.Equal(t, doc, opened)
}

func TestCodec_SkipsAbsentAndNullFields(t *testing.T) {
	codec := newTestCodec(t)
	doc := model.Document{"smtp_password": nil}

	sealed, err := codec.EncryptFields("system.email", doc, emailFields)
	require.NoError(t, err)
	assert.True(t, sealed.Has("smtp_password"))
	assert.Nil(t, sealed["smtp_password"])
	assert.False(t, sealed.Has("ses_secret"))
}

func TestCodec_DoubleSubmissionIsNotReencrypted(t *testing.T) {
	codec := newTestCodec(t)

	first, err := codec.EncryptFields("system.email", model.Document{"smtp_password": "hunter2"}, emailFields)
	require.NoError(t, err)

	// a form echoing the stored ciphertext back
	second, err := codec.EncryptFields("system.email", first, emailFields)
	require.NoError(t, err)
	assert.Equal(t, first["smtp_password"], second["smtp_password"])

	opened, err := codec.DecryptFields("system.email", second, emailFields)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", opened["smtp_password"])
}

func TestCodec_CiphertextIsBoundToKeyAndField(t *testing.T) {
	codec := newTestCodec(t)
	sealed, err := codec.EncryptFields("system.email", model.Document{"smtp_password": "hunter2"}, emailFields)
	require.NoError(t, err)

	moved := model.Document{"secret_key": sealed["smtp_password"]}
	_, err = codec.DecryptFields("payment.gateway", moved, []string{"secret_key"})

	var decErr *DecryptionError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, "payment.gateway", decErr.Key)
	assert.Equal(t, "secret_key", decErr.Field)

	// and it cannot be smuggled in through a write either
	_, err = codec.EncryptFields("payment.gateway", moved, []string{"secret_key"})
	assert.ErrorIs(t, err, ErrMarkedValue)
}

func TestCodec_NumbersComeBackAsJSONNumbers(t *testing.T) {
	codec := newTestCodec(t)
	sealed, err := codec.EncryptFields("system.sms", model.Document{"api_key": 12345}, []string{"api_key"})
	require.NoError(t, err)

	opened, err := codec.DecryptFields("system.sms", sealed, []string{"api_key"})
	require.NoError(t, err)
	assert.Equal(t, float64(12345), opened["api_key"])
}

func TestCodec_MarkedPlaintextIsRejectedOnWrite(t *testing.T) {
	codec := newTestCodec(t)
	_, err := codec.EncryptFields("system.email", model.Document{"smtp_password": Marker + "my-literal-password"}, emailFields)
	require.ErrorIs(t, err, ErrMarkedValue)

	var decErr *DecryptionError
	assert.False(t, errors.As(err, &decErr), "bad input is not a decryption fault")
}

func TestCodec_DecryptionErrors(t *testing.T) {
	codec := newTestCodec(t)
	sealed, err := codec.EncryptFields("system.sms", model.Document{"api_key": "k"}, []string{"api_key"})
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed["api_key"].(string), Marker))
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	tampered := Marker + base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name  string
		value string
	}{
		{name: "not base64", value: Marker + "%%%"},
		{name: "too short", value: Marker + base64.StdEncoding.EncodeToString([]byte("G12"))},
		{name: "tampered", value: tampered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.DecryptFields("system.sms", model.Document{"api_key": tt.value}, []string{"api_key"})
			var decErr *DecryptionError
			require.ErrorAs(t, err, &decErr)
			assert.Equal(t, "api_key", decErr.Field)
		})
	}

	other, _ := NewSymmetric(testKey(9))
	_, err = NewCodec(other).DecryptFields("system.sms", sealed, []string{"api_key"})
	var decErr *DecryptionError
	assert.ErrorAs(t, err, &decErr)
}

func TestCodec_PlaintextInFlaggedFieldPassesThroughOnRead(t *testing.T) {
	codec := newTestCodec(t)
	out, err := codec.DecryptFields("system.sms", model.Document{"api_key": "legacy"}, []string{"api_key"})
	require.NoError(t, err)
	assert.Equal(t, "legacy", out["api_key"])
}

func TestCodec_ReencryptMovesToPrimaryKey(t *testing.T) {
	oldCipher, _ := NewSymmetric(testKey(1))
	newCipher, _ := NewSymmetric(testKey(2))

	sealedOld, err := NewCodec(oldCipher).EncryptFields("payment.gateway",
		model.Document{"secret_key": "sk_live", "webhook_secret": "wh", "mode": "live"},
		[]string{"secret_key", "webhook_secret"})
	require.NoError(t, err)

	rotating := NewCodec(NewKeyring(newCipher, oldCipher))

	// readable during rotation
	opened, err := rotating.DecryptFields("payment.gateway", sealedOld, []string{"secret_key", "webhook_secret"})
	require.NoError(t, err)
	assert.Equal(t, "sk_live", opened["secret_key"])

	rotated, changed, err := rotating.Reencrypt("payment.gateway", sealedOld, []string{"secret_key", "webhook_secret"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "live", rotated["mode"])

	// the primary key alone can now open it
	opened, err = NewCodec(newCipher).DecryptFields("payment.gateway", rotated, []string{"secret_key", "webhook_secret"})
	require.NoError(t, err)
	assert.Equal(t, "sk_live", opened["secret_key"])
	assert.Equal(t, "wh", opened["webhook_secret"])

	_, changed, err = rotating.Reencrypt("payment.gateway", rotated, []string{"secret_key", "webhook_secret"})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestCodec_ReencryptSealsPlaintext(t *testing.T) {
	codec := newTestCodec(t)
	out, changed, err := codec.Reencrypt("system.sms", model.Document{"api_key": "plain"}, []string{"api_key"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, IsEncrypted(out["api_key"]))
}

func TestKeyringFromEncoded(t *testing.T) {
	primary := base64.StdEncoding.EncodeToString(testKey(1))
	previous := base64.StdEncoding.EncodeToString(testKey(2))

	kr, err := KeyringFromEncoded(primary, " "+previous+", ")
	require.NoError(t, err)
	assert.Len(t, kr.previous, 1)

	_, err = KeyringFromEncoded("not-base64!", "")
	assert.Error(t, err)

	_, err = KeyringFromEncoded(base64.StdEncoding.EncodeToString([]byte("short")), "")
	assert.Error(t, err)

	_, err = KeyringFromEncoded(primary, "bad!")
	assert.Error(t, err)
}

func TestKeyring_NoKeyOpens(t *testing.T) {
	a, _ := NewSymmetric(testKey(1))
	b, _ := NewSymmetric(testKey(2))
	c, _ := NewSymmetric(testKey(3))

	sealed, err := a.Encrypt([]byte("x"), []byte("y"))
	require.NoError(t, err)

	_, err = NewKeyring(b, c).Decrypt([]byte("x"), sealed)
	assert.True(t, errors.Is(err, ErrNoKeyOpened))
}
