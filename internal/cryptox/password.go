// Package cryptox implements password hashing for stored credentials.
//
// New hashes are argon2id in PHC string format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt b64>$<key b64>
//
// bcrypt hashes ($2a$, $2b$, $2y$) written by earlier deployments are still
// accepted by VerifyPassword and reported as needing a rehash.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/gophbook/internal/common"
)

var (
	ErrUnsupportedHash = errors.New("unsupported password hash format")
	ErrMalformedHash   = errors.New("malformed password hash")
)

// Params are the argon2id cost parameters.
type Params struct {
	Time        uint32 `json:"time" yaml:"time"`
	MemoryKiB   uint32 `json:"memory_kib" yaml:"memory_kib"`
	Parallelism uint8  `json:"parallelism" yaml:"parallelism"`
	KeyLen      uint32 `json:"key_len" yaml:"key_len"`
	SaltLen     uint32 `json:"salt_len" yaml:"salt_len"`
}

// DefaultParams follows the RFC 9106 second recommended option.
func DefaultParams() Params {
	return Params{Time: 1, MemoryKiB: 64 * 1024, Parallelism: 4, KeyLen: 32, SaltLen: 16}
}

func (p Params) orDefault() Params {
	if p.Time == 0 || p.MemoryKiB == 0 || p.Parallelism == 0 || p.KeyLen == 0 || p.SaltLen == 0 {
		return DefaultParams()
	}
	return p
}

// HashPassword derives an argon2id key for password with a fresh random salt
// and returns it PHC-encoded. Zero-valued params fall back to DefaultParams.
func HashPassword(password []byte, p Params) string {
	p = p.orDefault()
	salt := common.GenerateRandByteArray(int(p.SaltLen))
	key := argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Parallelism, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKiB, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

// VerifyPassword reports whether password matches encoded. needsRehash is
// true when the match succeeded but encoded is a legacy bcrypt hash or was
// produced with parameters different from want.
func VerifyPassword(encoded string, password []byte, want Params) (ok, needsRehash bool, err error) {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		p, salt, key, err := decodeArgon2id(encoded)
		if err != nil {
			return false, false, err
		}
		candidate := argon2.IDKey(password, salt, p.Time, p.MemoryKiB, p.Parallelism, uint32(len(key)))
		if subtle.ConstantTimeCompare(candidate, key) != 1 {
			return false, false, nil
		}
		return true, p != want.orDefault(), nil

	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(encoded), password)
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, false, nil
		}
		if err != nil {
			return false, false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
		}
		return true, true, nil

	default:
		return false, false, ErrUnsupportedHash
	}
}

func decodeArgon2id(encoded string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return p, nil, nil, ErrMalformedHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, nil, nil, fmt.Errorf("%w: version %s", ErrUnsupportedHash, parts[2])
	}

	for _, kv := range strings.Split(parts[3], ",") {
		name, value, found := strings.Cut(kv, "=")
		if !found {
			return p, nil, nil, ErrMalformedHash
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return p, nil, nil, fmt.Errorf("%w: %v", ErrMalformedHash, err)
		}
		switch name {
		case "m":
			p.MemoryKiB = uint32(n)
		case "t":
			p.Time = uint32(n)
		case "p":
			if n > 255 {
				return p, nil, nil, ErrMalformedHash
			}
			p.Parallelism = uint8(n)
		}
	}
	if p.Time == 0 || p.MemoryKiB == 0 || p.Parallelism == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}
