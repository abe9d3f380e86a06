package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go-auth-api/config"
	"go-auth-api/logger"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// IPasswordHasher hashes user passwords and refresh token fingerprints.
// Verify returns false for a mismatch and an ErrHashFormat error only when the
// stored hash itself is unusable.
type IPasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) (bool, error)
}

// NewPasswordHasher builds the hasher selected in configuration.
func NewPasswordHasher(cfg *config.Config) (IPasswordHasher, error) {
	switch cfg.Hash.Algorithm {
	case config.HashBcrypt:
		return NewBcryptHasher(cfg.Hash.BcryptCost)
	case config.HashArgon2id, "":
		return NewArgon2Hasher(Argon2Params{
			Memory:      cfg.Hash.Memory,
			Time:        cfg.Hash.Time,
			Parallelism: cfg.Hash.Parallelism,
			SaltLength:  cfg.Hash.SaltLength,
			KeyLength:   cfg.Hash.KeyLength,
		})
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", cfg.Hash.Algorithm)
	}
}

const argon2ID = "argon2id"

type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Argon2Hasher produces PHC strings: $argon2id$v=19$m=...,t=...,p=...$salt$hash
type Argon2Hasher struct {
	params Argon2Params
}

func NewArgon2Hasher(p Argon2Params) (*Argon2Hasher, error) {
	if p.Memory == 0 || p.Time == 0 || p.Parallelism == 0 {
		return nil, errors.New("argon2 memory, time and parallelism must be positive")
	}
	if p.SaltLength < 16 || p.KeyLength < 16 {
		return nil, errors.New("argon2 salt and key length must be at least 16 bytes")
	}
	return &Argon2Hasher{params: p}, nil
}

func (a *Argon2Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		logger.Log.WithError(err).Error("Failed to read salt")
		return "", err
	}

	key := argon2.IDKey([]byte(plaintext), salt, a.params.Time, a.params.Memory, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID,
		argon2.Version,
		a.params.Memory,
		a.params.Time,
		a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (a *Argon2Hasher) Verify(hash, plaintext string) (bool, error) {
	p, salt, key, err := parseArgon2(hash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

func parseArgon2(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return p, nil, nil, fmt.Errorf("%w: invalid PHC format", ErrHashFormat)
	}
	if parts[1] != argon2ID {
		return p, nil, nil, fmt.Errorf("%w: unsupported algorithm %q", ErrHashFormat, parts[1])
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return p, nil, nil, fmt.Errorf("%w: invalid version", ErrHashFormat)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: unsupported argon2 version %d", ErrHashFormat, version)
	}

	var parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &parallelism); err != nil {
		return p, nil, nil, fmt.Errorf("%w: invalid parameters", ErrHashFormat)
	}
	if p.Memory == 0 || p.Time == 0 || parallelism == 0 || parallelism > 255 {
		return p, nil, nil, fmt.Errorf("%w: invalid parameters", ErrHashFormat)
	}
	p.Parallelism = uint8(parallelism)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, fmt.Errorf("%w: invalid salt", ErrHashFormat)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: invalid key", ErrHashFormat)
	}

	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}

// BcryptHasher wraps bcrypt. Input is first reduced to a SHA-256 digest so
// values longer than bcrypt's 72-byte limit, such as signed refresh tokens,
// keep all of their entropy.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

func prehash(plaintext string) []byte {
	sum := sha256.Sum256([]byte(plaintext))
	out := make([]byte, base64.RawStdEncoding.EncodedLen(len(sum)))
	base64.RawStdEncoding.Encode(out, sum[:])
	return out
}

func (b *BcryptHasher) Hash(plaintext string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(prehash(plaintext), b.cost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash value with bcrypt")
		return "", err
	}
	return string(bytes), nil
}

func (b *BcryptHasher) Verify(hash, plaintext string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), prehash(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrHashFormat, err)
	}
}
