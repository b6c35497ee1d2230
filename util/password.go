package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "argon2id$"

// Argon2id parameters.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

var (
	jwtSecretByte = []byte(getEnv("JWTSECRET", ""))
	jwtMutex      sync.RWMutex
)

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}

// SetJWTSecret allows tests or runtime code to update the JWT secret used
// for both token signing and legacy password hashing. Thread-safe.
func SetJWTSecret(secret string) {
	jwtMutex.Lock()
	defer jwtMutex.Unlock()
	jwtSecretByte = []byte(secret)
}

// GetJWTSecretByte returns a copy of the current JWT secret bytes in a thread-safe manner.
func GetJWTSecretByte() []byte {
	jwtMutex.RLock()
	defer jwtMutex.RUnlock()
	return append([]byte(nil), jwtSecretByte...)
}

// GenerateSalt returns a fresh hex-encoded random salt for password hashing.
func GenerateSalt() (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(salt), nil
}

// HashPasswordArgon2 hashes a password with argon2id and the given hex salt.
// The result carries the "argon2id$" prefix so legacy HMAC hashes remain
// distinguishable.
func HashPasswordArgon2(password, salt string) (string, error) {
	saltBytes, err := hex.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("invalid salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), saltBytes, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return argon2Prefix + hex.EncodeToString(key), nil
}

// HashPassword is the legacy HMAC-SHA256 password hash, keyed with the JWT
// secret. Kept for verifying accounts created before the argon2 migration;
// such hashes are upgraded on the next successful login.
func HashPassword(password string) (hashedPassword string) {
	h := hmac.New(sha256.New, GetJWTSecretByte())
	h.Write([]byte(password))
	hashedPassword = hex.EncodeToString(h.Sum(nil))
	return
}

// IsLegacyHash reports whether a stored password hash predates the argon2
// migration.
func IsLegacyHash(hashed string) bool {
	return !strings.HasPrefix(hashed, argon2Prefix)
}

// VerifyPassword checks a plaintext password against a stored hash,
// supporting both argon2id and legacy HMAC hashes. Comparison is
// constant-time in both branches.
func VerifyPassword(password, hashed, salt string) (bool, error) {
	if IsLegacyHash(hashed) {
		expected := HashPassword(password)
		return subtle.ConstantTimeCompare([]byte(expected), []byte(hashed)) == 1, nil
	}
	computed, err := HashPasswordArgon2(password, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hashed)) == 1, nil
}
