// Package apikey generates and verifies bearer credentials of the form
// payx_<base64url 32 random bytes>. Only the memory-hard hash and a short
// lookup prefix are ever persisted; the raw key is returned once, at
// generation time.
package apikey

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

const (
	prefixTag    = "payx_"
	prefixLen    = 12
	keyBytes     = 32
	saltBytes    = 16
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
	argonKeyLen  = 32
)

// Generated is the one-time view of a freshly minted credential.
type Generated struct {
	ID     string
	Key    string // raw secret, shown once
	Prefix string
	Hash   string // encoded argon2id hash, persisted
}

// Generate mints a new credential; the caller associates it with a business
// when persisting it.
func Generate() (Generated, error) {
	raw := make([]byte, keyBytes)
	if _, err := rand.Read(raw); err != nil {
		return Generated{}, fmt.Errorf("apikey: generating random key: %w", err)
	}

	key := prefixTag + base64.RawURLEncoding.EncodeToString(raw)
	prefix, err := Prefix(key)
	if err != nil {
		return Generated{}, err
	}

	hash, err := hash(key)
	if err != nil {
		return Generated{}, err
	}

	return Generated{
		ID:     uuid.NewString(),
		Key:    key,
		Prefix: prefix,
		Hash:   hash,
	}, nil
}

// Prefix extracts the fixed-length lookup prefix from a raw credential:
// the first 12 characters after the payx_ tag.
func Prefix(key string) (string, error) {
	rest, ok := strings.CutPrefix(key, prefixTag)
	if !ok || len(rest) < prefixLen {
		return "", fmt.Errorf("apikey: malformed credential")
	}
	return rest[:prefixLen], nil
}

// hash produces an encoded argon2id hash of the raw credential, in the
// "$argon2id$v=..$m=..,t=..,p=..$salt$hash" form used by Verify.
func hash(key string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("apikey: generating salt: %w", err)
	}
	sum := argon2.IDKey([]byte(key), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	)
	return encoded, nil
}

// Verify performs a constant-time comparison of a raw credential against
// a stored encoded hash. It runs inline on the request goroutine: Argon2id
// is deliberately CPU-bound, and offloading it to a worker pool would just
// move the cost without reducing it.
func Verify(key, encoded string) bool {
	params, salt, want, err := decode(encoded)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(key), salt, params.time, params.memory, params.threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

func decode(encoded string) (argonParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return argonParams{}, nil, nil, fmt.Errorf("apikey: unrecognized hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return argonParams{}, nil, nil, err
	}

	var p argonParams
	var mem, t uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &t, &threads); err != nil {
		return argonParams{}, nil, nil, err
	}
	p.memory, p.time, p.threads = mem, t, threads

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argonParams{}, nil, nil, err
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return argonParams{}, nil, nil, err
	}

	return p, salt, sum, nil
}
