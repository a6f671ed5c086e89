package token

import "errors"

var (
	// ErrTokenGeneration indicates token signing failed
	ErrTokenGeneration = errors.New("failed to generate token")

	// ErrMalformedToken indicates the token could not be parsed at all
	ErrMalformedToken = errors.New("malformed token")

	// ErrSignatureInvalid indicates the token signature did not verify
	ErrSignatureInvalid = errors.New("token signature invalid")

	// ErrExpiredToken indicates a validly-signed token whose expires_at
	// has passed. Distinct from ErrMalformedToken: expiry is a lifecycle
	// outcome, not a format error.
	ErrExpiredToken = errors.New("token expired")

	// ErrMissingClaim indicates a required claim (sub or scope) is absent
	ErrMissingClaim = errors.New("required claim missing")
)
