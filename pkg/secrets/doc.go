// Package secrets encrypts the secret fields of settings documents at rest.
//
// # Symmetric Encryption
//
// Symmetric is AES-256-GCM with additional authenticated data:
//
//	c, err := secrets.NewSymmetric(dataKey)
//	sealed, err := c.Encrypt([]byte("system.email#smtp_password"), []byte(`"hunter2"`))
//
// # Key Rotation
//
// A Keyring encrypts with its primary key and decrypts with any key it
// holds. Codec.Reencrypt moves values sealed under a retired key onto the
// primary one.
//
// # Field Codec
//
// Codec seals the flagged fields of a model.Document. Stored values are
// strings of the form "enc:v1:<base64>"; a value already in that form is
// never sealed twice.
package secrets
