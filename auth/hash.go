package auth

import (
	"fmt"
	"strings"

	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Constants

// Password schemes as named by Dovecot.
const (
	SchemeBlowfish = "BLF-CRYPT"
	SchemeArgon2ID = "ARGON2ID"
)

// bcryptMaxPassword is the number of password bytes
// bcrypt consumes. Dovecot ignores everything after.
const bcryptMaxPassword = 72

// Structs

type bcryptHasher struct {
	cost int
}

// Argon2Params are the argon2id tuning knobs
// encoded into every produced hash.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

type argon2Hasher struct {
	params Argon2Params
}

// Variables

// DefaultArgon2Params match the defaults
// of Dovecot's ARGON2ID scheme.
var DefaultArgon2Params = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 1,
	SaltLen: 16,
	KeyLen:  32,
}

// Functions

// NewHasher returns the hasher for a Dovecot
// scheme name using its default parameters.
func NewHasher(scheme string) (Hasher, error) {

	switch strings.ToUpper(scheme) {
	case SchemeBlowfish:
		return NewBcryptHasher(bcrypt.DefaultCost), nil
	case SchemeArgon2ID:
		return NewArgon2Hasher(DefaultArgon2Params), nil
	}

	return nil, fmt.Errorf("unsupported password scheme '%s'", scheme)
}

// NewBcryptHasher returns a BLF-CRYPT hasher
// with the given bcrypt cost.
func NewBcryptHasher(cost int) Hasher {
	return &bcryptHasher{cost: cost}
}

// NewArgon2Hasher returns an ARGON2ID hasher.
func NewArgon2Hasher(params Argon2Params) Hasher {
	return &argon2Hasher{params: params}
}

func (h *bcryptHasher) Scheme() string {
	return SchemeBlowfish
}

func (h *bcryptHasher) Hash(password string) (string, error) {

	pw := []byte(password)
	if len(pw) > bcryptMaxPassword {
		pw = pw[:bcryptMaxPassword]
	}

	digest, err := bcrypt.GenerateFromPassword(pw, h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt failed: %w", err)
	}

	return "{" + SchemeBlowfish + "}" + string(digest), nil
}

func (h *argon2Hasher) Scheme() string {
	return SchemeArgon2ID
}

// Hash produces the PHC string format libargon2
// and Dovecot read: $argon2id$v=19$m=..,t=..,p=..$salt$key
func (h *argon2Hasher) Hash(password string) (string, error) {

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf("{%s}$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		SchemeArgon2ID,
		argon2.Version,
		h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}
