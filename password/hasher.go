package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// MinLength matches the client-side form rule.
	MinLength = 8
	// MaxLength bounds the work an attacker can force per verification.
	MaxLength = 128

	phcPrefix = "$argon2id$"
)

var (
	// ErrTooShort is returned by Hash for passwords under MinLength bytes.
	ErrTooShort = errors.New("password: too short")
	// ErrTooLong is returned for passwords over MaxLength bytes.
	ErrTooLong = errors.New("password: too long")
	// ErrMalformedHash is returned for encoded hashes that do not parse.
	ErrMalformedHash = errors.New("password: malformed hash")
	// ErrIncompatibleVersion is returned for hashes from another argon2 version.
	ErrIncompatibleVersion = errors.New("password: incompatible argon2 version")
	// ErrWeakParams is returned by NewHasher for parameters below the floor.
	ErrWeakParams = errors.New("password: parameters below minimum")
)

// Params are the argon2id cost parameters.
type Params struct {
	MemoryKB    uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams suit an interactive login on a small server.
func DefaultParams() Params {
	return Params{MemoryKB: 64 * 1024, Iterations: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32}
}

// DevParams are cheap enough for tests and the seeded dev backend.
func DevParams() Params {
	return Params{MemoryKB: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
}

func (p Params) validate() error {
	switch {
	case p.MemoryKB < 8*1024:
		return fmt.Errorf("%w: memory %d KB < 8192", ErrWeakParams, p.MemoryKB)
	case p.Iterations < 1:
		return fmt.Errorf("%w: iterations must be >= 1", ErrWeakParams)
	case p.Parallelism < 1:
		return fmt.Errorf("%w: parallelism must be >= 1", ErrWeakParams)
	case p.SaltLength < 16:
		return fmt.Errorf("%w: salt length %d < 16", ErrWeakParams, p.SaltLength)
	case p.KeyLength < 16:
		return fmt.Errorf("%w: key length %d < 16", ErrWeakParams, p.KeyLength)
	}
	return nil
}

// Hasher hashes and verifies passwords. It is safe for concurrent use.
type Hasher struct {
	params Params
}

// NewHasher validates p and returns a Hasher.
func NewHasher(p Params) (*Hasher, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Hasher{params: p}, nil
}

// Hash returns the PHC-encoded argon2id hash of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	if err := checkLength(plain); err != nil {
		return "", err
	}
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, h.params.Iterations, h.params.MemoryKB, h.params.Parallelism, h.params.KeyLength)
	return encode(h.params, salt, key), nil
}

// Verify reports whether plain matches encoded. A mismatch is (false, nil);
// errors are reserved for unusable hashes.
func (h *Hasher) Verify(plain, encoded string) (bool, error) {
	if len(plain) > MaxLength {
		return false, ErrTooLong
	}
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(plain), salt, p.Iterations, p.MemoryKB, p.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(got, key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker parameters than
// h uses now.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	p, _, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	return p.MemoryKB < h.params.MemoryKB ||
		p.Iterations < h.params.Iterations ||
		p.Parallelism < h.params.Parallelism ||
		uint32(len(key)) != h.params.KeyLength, nil
}

func checkLength(plain string) error {
	if len(plain) < MinLength {
		return ErrTooShort
	}
	if len(plain) > MaxLength {
		return ErrTooLong
	}
	return nil
}

func encode(p Params, salt, key []byte) string {
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		phcPrefix, argon2.Version, p.MemoryKB, p.Iterations, p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key))
}

// decode parses $argon2id$v=19$m=..,t=..,p=..$salt$key.
func decode(encoded string) (Params, []byte, []byte, error) {
	var p Params
	if !strings.HasPrefix(encoded, phcPrefix) {
		return p, nil, nil, ErrMalformedHash
	}
	fields := strings.Split(strings.TrimPrefix(encoded, phcPrefix), "$")
	if len(fields) != 4 {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if version != argon2.Version {
		return p, nil, nil, ErrIncompatibleVersion
	}
	if _, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &p.MemoryKB, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if p.MemoryKB == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(fields[2])
	if err != nil || len(salt) < 16 {
		return p, nil, nil, ErrMalformedHash
	}
	key, err := b64.DecodeString(fields[3])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrMalformedHash
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}
