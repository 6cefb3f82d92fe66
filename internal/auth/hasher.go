package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/argon2"
)

// Argon2 parameters. These follow the OWASP recommended minimums for
// argon2id.
const (
	argonMemory     = 64 * 1024
	argonIterations = 2
	argonThreads    = 4
	argonSaltLen    = 16
	argonKeyLen     = 32
)

// ErrInvalidHash is returned when a stored hash is not in the expected
// $argon2id$ encoded format.
var ErrInvalidHash = errors.New("invalid password hash format")

// Argon2Hasher hashes passwords with argon2id and a server-side pepper.
type Argon2Hasher struct {
	pepper string
}

// NewArgon2Hasher creates an Argon2Hasher. The pepper is appended to every
// password before hashing; losing it invalidates all stored hashes.
func NewArgon2Hasher(pepper string) *Argon2Hasher {
	return &Argon2Hasher{pepper: pepper}
}

// Hash derives an argon2id hash and returns it in the standard
// $argon2id$v=19$m=...,t=...,p=...$salt$hash encoding.
func (h *Argon2Hasher) Hash(plain string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "generate salt")
	}

	key := argon2.IDKey([]byte(plain+h.pepper), salt, argonIterations, argonMemory, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify re-derives the key using the parameters stored in the hash and
// compares in constant time.
func (h *Argon2Hasher) Verify(plain, hashed string) (bool, error) {
	parts := strings.Split(hashed, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrInvalidHash
	}

	got := argon2.IDKey([]byte(plain+h.pepper), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
