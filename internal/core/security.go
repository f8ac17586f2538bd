// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/acquisitions/api/internal/config"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLength   = 16
)

// bcrypt only reads the first 72 bytes of its input.
const bcryptMaxInput = 72

const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

const dummyPassword = "dummy_password_for_timing_attack_prevention"

// PasswordHasher hashes new passwords and verifies candidates against a
// stored hash. Verify must take the same time whether or not a stored hash
// exists.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encodedHash *string) (bool, string, error)
}

// Hasher produces hashes with the configured algorithm and verifies both
// argon2id and bcrypt hashes, so stored hashes can migrate on next sign-in.
type Hasher struct {
	algorithm  string
	bcryptCost int
	dummyHash  string
}

func NewHasher(cfg config.PasswordConfig) (*Hasher, error) {
	h := &Hasher{
		algorithm:  cfg.Algorithm,
		bcryptCost: cfg.BcryptCost,
	}
	if h.algorithm == "" {
		h.algorithm = AlgorithmArgon2id
	}
	if h.bcryptCost == 0 {
		h.bcryptCost = bcrypt.DefaultCost
	}
	if h.algorithm != AlgorithmArgon2id && h.algorithm != AlgorithmBcrypt {
		return nil, fmt.Errorf("unsupported password algorithm: %s", h.algorithm)
	}

	dummy, err := h.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	h.dummyHash = dummy

	return h, nil
}

func (h *Hasher) Hash(password string) (string, error) {
	if h.algorithm == AlgorithmBcrypt {
		hashed, err := bcrypt.GenerateFromPassword(bcryptInput(password), h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("bcrypt hash: %w", err)
		}
		return string(hashed), nil
	}
	return hashArgon2(password)
}

// Verify checks password against encodedHash. A nil or empty hash is
// verified against a dummy hash and always reports false. When the stored
// hash uses outdated parameters a replacement hash is returned.
func (h *Hasher) Verify(
	password string,
	encodedHash *string,
) (bool, string, error) {
	hashToVerify := h.dummyHash
	if encodedHash != nil && *encodedHash != "" {
		hashToVerify = *encodedHash
	}

	valid, err := verifyEncoded(password, hashToVerify)

	if encodedHash == nil || *encodedHash == "" {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	if !valid {
		return false, "", nil
	}

	if h.needsRehash(*encodedHash) {
		newHash, hashErr := h.Hash(password)
		if hashErr != nil {
			//nolint:nilerr // password verified successfully; rehash failure is non-critical
			return true, "", nil
		}
		return true, newHash, nil
	}

	return true, "", nil
}

func (h *Hasher) needsRehash(encodedHash string) bool {
	switch {
	case isArgon2Hash(encodedHash):
		if h.algorithm != AlgorithmArgon2id {
			return true
		}
		params, _, _, err := decodeHash(encodedHash)
		if err != nil {
			return true
		}
		return params.memory != argonMemory ||
			params.time != argonTime ||
			params.threads != argonThreads ||
			params.keyLen != argonKeyLen
	case isBcryptHash(encodedHash):
		if h.algorithm != AlgorithmBcrypt {
			return true
		}
		cost, err := bcrypt.Cost([]byte(encodedHash))
		if err != nil {
			return true
		}
		return cost != h.bcryptCost
	default:
		return true
	}
}

func verifyEncoded(password, encodedHash string) (bool, error) {
	switch {
	case isArgon2Hash(encodedHash):
		return verifyArgon2(password, encodedHash)
	case isBcryptHash(encodedHash):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), bcryptInput(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("bcrypt compare: %w", err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("invalid hash format")
	}
}

// bcryptInput folds passwords longer than bcrypt accepts into a fixed 44
// byte digest. Shorter passwords are used as is, so existing hashes still
// verify.
func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

func isArgon2Hash(encoded string) bool {
	return strings.HasPrefix(encoded, "$argon2id$")
}

func isBcryptHash(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

func hashArgon2(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		argonTime,
		argonMemory,
		argonThreads,
		argonKeyLen,
	)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonTime,
		argonThreads,
		b64Salt,
		b64Hash,
	)

	return encoded, nil
}

func verifyArgon2(password, encodedHash string) (bool, error) {
	params, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	otherHash := argon2.IDKey(
		[]byte(password),
		salt,
		params.time,
		params.memory,
		params.threads,
		params.keyLen,
	)

	return subtle.ConstantTimeCompare(hash, otherHash) == 1, nil
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

func decodeHash(encodedHash string) (*argonParams, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, nil, fmt.Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return nil, nil, nil, fmt.Errorf("unsupported algorithm: %s", parts[1])
	}

	var version int
	_, err := fmt.Sscanf(parts[2], "v=%d", &version)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid version: %w", err)
	}

	if version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("incompatible version: %d", version)
	}

	params := &argonParams{}
	_, err = fmt.Sscanf(
		parts[3],
		"m=%d,t=%d,p=%d",
		&params.memory,
		&params.time,
		&params.threads,
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode salt: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode hash: %w", err)
	}

	//nolint:gosec // G115: hash length is always small (32 bytes for Argon2id)
	params.keyLen = uint32(len(hash))

	return params, salt, hash, nil
}

var _ PasswordHasher = (*Hasher)(nil)
