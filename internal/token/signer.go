// Package token signs and verifies bearer tokens with an RSA key pair.
// Signing is asymmetric (RS256) so resource servers can verify tokens
// with the public key alone, without calling back into this system.
package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Token type constant for the OAuth token response.
const TokenTypeBearer = "Bearer"

// Claims is the verified content of a bearer token.
type Claims struct {
	Subject   string // user ID
	ClientID  string
	Scopes    string // space-separated
	ExpiresAt time.Time
	Raw       jwt.MapClaims
}

// Signer creates and verifies RS256-signed tokens. Key material is
// read-only after construction; a Signer is safe for concurrent use.
type Signer struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	keyID      string
}

// NewSigner builds a Signer around key, embedding issuer in every token.
func NewSigner(key *rsa.PrivateKey, issuer string) *Signer {
	return &Signer{
		privateKey: key,
		publicKey:  &key.PublicKey,
		issuer:     issuer,
		keyID:      uuid.New().String(),
	}
}

// Sign produces a signed token for subject expiring at expiresAt.
// Caller-supplied claims (typically client_id and scope) are merged in;
// registered claims (sub, iss, iat, exp, jti) cannot be overridden.
func (s *Signer) Sign(
	subject string,
	expiresAt time.Time,
	claims map[string]any,
) (string, error) {
	mapClaims := jwt.MapClaims{}
	for k, v := range claims {
		mapClaims[k] = v
	}
	mapClaims["sub"] = subject
	mapClaims["iss"] = s.issuer
	mapClaims["iat"] = time.Now().Unix()
	mapClaims["exp"] = expiresAt.Unix()
	mapClaims["jti"] = uuid.New().String()

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, mapClaims)
	t.Header["kid"] = s.keyID

	signed, err := t.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and extracts its claims.
// A validly-signed token with a past exp fails with ErrExpiredToken, never
// with a format error.
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}
	if !parsed.Valid {
		return nil, ErrSignatureInvalid
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformedToken
	}

	exp, ok := mapClaims["exp"].(float64)
	if !ok {
		return nil, ErrMalformedToken
	}

	subject, _ := mapClaims["sub"].(string)
	clientID, _ := mapClaims["client_id"].(string)
	scopes, _ := mapClaims["scope"].(string)
	if subject == "" || scopes == "" {
		return nil, ErrMissingClaim
	}

	return &Claims{
		Subject:   subject,
		ClientID:  clientID,
		Scopes:    scopes,
		ExpiresAt: time.Unix(int64(exp), 0),
		Raw:       mapClaims,
	}, nil
}

// PublicKey returns the verification key.
func (s *Signer) PublicKey() *rsa.PublicKey {
	return s.publicKey
}

// JWKS returns the public key as a JWK set for the jwks endpoint, so
// resource servers can fetch the verification key.
func (s *Signer) JWKS() (jwk.Set, error) {
	key, err := jwk.FromRaw(s.publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build JWK: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, s.keyID); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.AlgorithmKey, "RS256"); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, err
	}

	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, err
	}
	return set, nil
}
