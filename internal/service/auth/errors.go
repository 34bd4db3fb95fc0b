package auth

import "errors"

// Common authentication service errors
var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrWrongTokenType indicates a token of one class was used as another
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrMissingToken indicates a token was expected but not provided
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrRevokedToken indicates a validly signed token that was signed out
	ErrRevokedToken = errors.New("authentication token has been revoked")

	// ErrInvalidCredentials indicates a password did not match
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidResetToken indicates a reset token with a bad signature, or
	// one that is no longer the user's current reset token
	ErrInvalidResetToken = errors.New("invalid password reset token")

	// ErrExpiredResetToken indicates a reset token past its lifetime
	ErrExpiredResetToken = errors.New("password reset token has expired")
)
