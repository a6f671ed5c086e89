// Package pkce implements Proof Key for Code Exchange (RFC 7636)
// challenge computation and verification.
package pkce

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/dev-299792/oauth2/internal/util"
)

// Challenge methods defined by RFC 7636 §4.2.
const (
	MethodS256  = "S256"
	MethodPlain = "plain"
)

var (
	// ErrUnsupportedMethod is returned for any method other than S256 or plain
	ErrUnsupportedMethod = errors.New("unsupported code_challenge_method")

	// ErrVerifierRequired is returned when a challenge is stored but no
	// verifier was supplied. A stored challenge is never silently skipped.
	ErrVerifierRequired = errors.New("code_verifier required")
)

// Challenge computes the code challenge for verifier under method.
// S256 is base64url(SHA-256(verifier)) without padding; plain returns the
// verifier unchanged.
func Challenge(verifier, method string) (string, error) {
	switch method {
	case MethodS256:
		sum := sha256.Sum256([]byte(verifier))
		return base64.RawURLEncoding.EncodeToString(sum[:]), nil
	case MethodPlain:
		return verifier, nil
	default:
		return "", ErrUnsupportedMethod
	}
}

// ValidMethod reports whether method names a supported challenge method.
func ValidMethod(method string) bool {
	return method == MethodS256 || method == MethodPlain
}

// Verify recomputes the challenge from the supplied verifier using the
// stored method and compares it against the stored challenge in constant
// time. An empty stored challenge means PKCE was not required for the
// code and verification trivially succeeds; an empty verifier against a
// stored challenge always fails.
func Verify(storedChallenge, storedMethod, suppliedVerifier string) bool {
	if storedChallenge == "" {
		return true
	}
	if suppliedVerifier == "" {
		return false
	}
	computed, err := Challenge(suppliedVerifier, storedMethod)
	if err != nil {
		return false
	}
	return util.ConstantTimeEquals(computed, storedChallenge)
}
