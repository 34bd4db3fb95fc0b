package mocks

import (
	"errors"
	"strings"
)

const fakeHashPrefix = "hashed:"

// PasswordHasher is a fast, deterministic stand-in for bcrypt.
type PasswordHasher struct {
	HashFn    func(password string) (string, error)
	CompareFn func(hashedPassword, password string) error
}

// Hash implements auth.PasswordHasher and store.PasswordHasher.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h != nil && h.HashFn != nil {
		return h.HashFn(password)
	}
	if password == "" {
		return "", errors.New("cannot hash empty password")
	}
	return fakeHashPrefix + password, nil
}

// Compare implements auth.PasswordHasher.
func (h *PasswordHasher) Compare(hashedPassword, password string) error {
	if h != nil && h.CompareFn != nil {
		return h.CompareFn(hashedPassword, password)
	}
	if !strings.HasPrefix(hashedPassword, fakeHashPrefix) || hashedPassword != fakeHashPrefix+password {
		return errors.New("password mismatch")
	}
	return nil
}
