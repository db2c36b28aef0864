package user

import (
	"encoding/base64"
	"fmt"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/argon2"
)

// PasswordHasher defines the hashing contract used by the service. Derive must
// produce the exact encoding Hash produced for the same password and salt so
// digests can be compared as opaque strings.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Derive(stored, pw string) (string, error)
}

// Argon2idHasher implementation. Zero value uses argon2id.DefaultParams.
type Argon2idHasher struct {
	Params *argon2id.Params
}

func (h Argon2idHasher) params() *argon2id.Params {
	if h.Params != nil {
		return h.Params
	}
	return argon2id.DefaultParams
}

// Hash creates a fresh salted digest in PHC string format.
func (h Argon2idHasher) Hash(pw string) (string, error) {
	return argon2id.CreateHash(pw, h.params())
}

// Derive re-derives pw with the salt and cost parameters embedded in stored.
func (h Argon2idHasher) Derive(stored, pw string) (string, error) {
	p, salt, _, err := argon2id.DecodeHash(stored)
	if err != nil {
		return "", fmt.Errorf("decode hash: %w", err)
	}
	key := argon2.IDKey([]byte(pw), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}
