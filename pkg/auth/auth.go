package auth

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoCredential = errors.New("no credential provided")
)

// Validator decides whether a resolved credential is acceptable
type Validator interface {
	Validate(credential string) error
}

// ValidatorFunc adapts a function to Validator
type ValidatorFunc func(credential string) error

func (f ValidatorFunc) Validate(credential string) error {
	return f(credential)
}

// KeyStore holds bcrypt hashes of accepted API keys
type KeyStore struct {
	hashes []string
	mu     sync.RWMutex
}

// NewKeyStore creates a key store from existing bcrypt hashes
func NewKeyStore(hashes ...string) *KeyStore {
	ks := &KeyStore{}
	for _, h := range hashes {
		if h = strings.TrimSpace(h); h != "" {
			ks.hashes = append(ks.hashes, h)
		}
	}
	return ks
}

// HashKey returns the bcrypt hash of key, suitable for config files
func HashKey(key string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}
	return string(hash), nil
}

// Add hashes key and stores it
func (ks *KeyStore) Add(key string, cost int) error {
	hash, err := HashKey(key, cost)
	if err != nil {
		return err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.hashes = append(ks.hashes, hash)
	return nil
}

// Len returns the number of stored keys
func (ks *KeyStore) Len() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.hashes)
}

// Validate checks credential against every stored hash
func (ks *KeyStore) Validate(credential string) error {
	if credential == "" {
		return ErrNoCredential
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()

	for _, hash := range ks.hashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential)) == nil {
			return nil
		}
	}
	return ErrInvalidToken
}

// StaticToken accepts exactly one token, compared in constant time
func StaticToken(token string) Validator {
	return ValidatorFunc(func(credential string) error {
		if credential == "" {
			return ErrNoCredential
		}
		if !SecureCompare(credential, token) {
			return ErrInvalidToken
		}
		return nil
	})
}

// ReadCredentialFile returns the first non-empty, non-comment line of path.
// A missing file is reported with an error wrapping os.ErrNotExist.
func ReadCredentialFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read credential file %s: %w", path, err)
	}
	return "", fmt.Errorf("credential file %s: %w", path, ErrNoCredential)
}

// SecureCompare performs constant-time comparison
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
