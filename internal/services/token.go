package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dev-299792/oauth2/internal/config"
	"github.com/dev-299792/oauth2/internal/metrics"
	"github.com/dev-299792/oauth2/internal/models"
	"github.com/dev-299792/oauth2/internal/pkce"
	"github.com/dev-299792/oauth2/internal/store"
	"github.com/dev-299792/oauth2/internal/token"
	"github.com/dev-299792/oauth2/internal/util"

	"github.com/google/uuid"
)

// Principal is the verified identity behind a bearer token.
type Principal struct {
	UserID   string
	ClientID string
	Scopes   string
}

// HasScope reports whether the principal holds the given scope.
func (p *Principal) HasScope(scope string) bool {
	return HasScope(p.Scopes, scope)
}

// TokenService exchanges grants for token pairs and verifies bearer
// tokens. Every decision is made against the store at call time; nothing
// about credential validity is cached between requests.
type TokenService struct {
	store   *store.Store
	config  *config.Config
	signer  *token.Signer
	metrics metrics.Recorder
}

func NewTokenService(
	s *store.Store,
	cfg *config.Config,
	signer *token.Signer,
	m metrics.Recorder,
) *TokenService {
	return &TokenService{
		store:   s,
		config:  cfg,
		signer:  signer,
		metrics: m,
	}
}

// mintTokenPair creates and persists a fresh token pair: a signed access
// token plus an opaque random refresh token, both stored hashed. The
// plaintext values ride back to the caller on the in-memory Raw fields.
func (s *TokenService) mintTokenPair(
	userID, clientID, scopes, parentID string,
) (*models.AccessToken, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenExpiration)

	accessToken, err := s.signer.Sign(userID, expiresAt, map[string]any{
		"client_id": clientID,
		"scope":     scopes,
	})
	if err != nil {
		return nil, err
	}

	refreshToken, err := util.CryptoRandomString(64)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	pair := &models.AccessToken{
		ID:                    uuid.New().String(),
		TokenHash:             util.SHA256Hex(accessToken),
		RefreshTokenHash:      util.SHA256Hex(refreshToken),
		RawToken:              accessToken,
		RawRefreshToken:       refreshToken,
		TokenType:             token.TokenTypeBearer,
		UserID:                userID,
		ClientID:              clientID,
		Scopes:                scopes,
		CreatedAt:             now,
		ExpiresAt:             expiresAt,
		RefreshTokenExpiresAt: now.Add(s.config.RefreshTokenExpiration),
		ParentTokenID:         parentID,
	}
	return pair, nil
}

// ExchangeAuthorizationCode redeems an authorization code for a token
// pair. The code row is consumed before any validation runs, so a code
// that fails validation is burned just the same and can never be retried.
// requestedScope may narrow the code's scopes; empty means all of them.
func (s *TokenService) ExchangeAuthorizationCode(
	plainCode, clientID, redirectURI, requestedScope, codeVerifier string,
) (*models.AccessToken, error) {
	start := time.Now()

	code, err := s.store.ConsumeAuthorizationCode(util.SHA256Hex(plainCode))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) || errors.Is(err, store.ErrAuthCodeConsumed) {
			s.metrics.RecordAuthorizationCodeConsumed("replayed")
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	// From here on the code is gone regardless of the outcome.
	if code.ClientID != clientID {
		s.metrics.RecordAuthorizationCodeConsumed("client_mismatch")
		log.Printf("[Token] Code %s... presented by wrong client %s", code.CodePrefix, clientID)
		return nil, ErrInvalidClient
	}

	if code.CodeChallenge != "" && codeVerifier == "" {
		s.metrics.RecordAuthorizationCodeConsumed("pkce_failed")
		return nil, ErrInvalidGrant
	}
	if !pkce.Verify(code.CodeChallenge, code.CodeChallengeMethod, codeVerifier) {
		s.metrics.RecordAuthorizationCodeConsumed("pkce_failed")
		return nil, ErrInvalidGrant
	}

	if code.IsExpired() {
		s.metrics.RecordAuthorizationCodeConsumed("expired")
		return nil, ErrInvalidGrant
	}

	client, err := s.store.GetClient(clientID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	if !client.IsActive || !client.HasGrantType(models.GrantTypeAuthorizationCode) {
		return nil, ErrUnauthorizedClient
	}

	// Redemption is bound to the exact authorization context: the URI
	// must match both the code and the client's registered set.
	if redirectURI != code.RedirectURI || !client.HasRedirectURI(redirectURI) {
		s.metrics.RecordAuthorizationCodeConsumed("redirect_mismatch")
		return nil, ErrInvalidGrant
	}

	// Scopes must fit both the code and the client's current allowed set,
	// which may have narrowed since the code was issued.
	scopes := code.Scopes
	if requestedScope != "" {
		scopes = requestedScope
	}
	if !ScopesSubset(scopes, code.Scopes) || !ScopesSubset(scopes, client.Scopes) {
		s.metrics.RecordAuthorizationCodeConsumed("scope_invalid")
		return nil, ErrInvalidScope
	}

	pair, err := s.mintTokenPair(code.UserID, clientID, scopes, "")
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAccessToken(pair); err != nil {
		return nil, fmt.Errorf("failed to save token pair: %w", err)
	}

	s.metrics.RecordAuthorizationCodeConsumed("success")
	s.metrics.RecordTokenIssued(models.GrantTypeAuthorizationCode, time.Since(start))
	log.Printf("[Token] Exchanged code %s... for tokens, client %s, user %s",
		code.CodePrefix, clientID, code.UserID)
	return pair, nil
}

// ExchangeRefreshToken rotates a refresh token: the presented token is
// soft-revoked and a fresh pair is persisted in the same transaction.
// Presenting a rotated, expired, or revoked refresh token fails as
// invalid_grant. The new scope may only narrow, never widen.
func (s *TokenService) ExchangeRefreshToken(
	rawRefreshToken, clientID, requestedScope string,
) (*models.AccessToken, error) {
	start := time.Now()

	old, err := s.store.GetAccessTokenByRefreshTokenHash(util.SHA256Hex(rawRefreshToken))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			s.metrics.RecordTokenRefresh(false)
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	if old.ClientID != clientID {
		s.metrics.RecordTokenRefresh(false)
		log.Printf("[Token] Refresh token for client %s presented by %s", old.ClientID, clientID)
		return nil, ErrInvalidClient
	}

	if old.IsRefreshTokenExpired() {
		s.metrics.RecordTokenRefresh(false)
		return nil, ErrInvalidGrant
	}

	// Refresh may narrow the scope but never widen it; empty falls back
	// to the old pair's full set.
	scopes := old.Scopes
	if requestedScope != "" {
		scopes = requestedScope
	}
	if scopes == "" || !ScopesSubset(scopes, old.Scopes) {
		s.metrics.RecordTokenRefresh(false)
		return nil, ErrInvalidScope
	}

	pair, err := s.mintTokenPair(old.UserID, old.ClientID, scopes, old.ID)
	if err != nil {
		return nil, err
	}

	backdate := time.Now().Add(-time.Second)
	if err := s.store.RotateTokenPair(old.ID, backdate, pair); err != nil {
		if errors.Is(err, store.ErrRefreshTokenRotated) {
			s.metrics.RecordTokenRefresh(false)
			s.metrics.RecordTokenRevoked("rotation_race")
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("failed to rotate token pair: %w", err)
	}

	s.metrics.RecordTokenRefresh(true)
	s.metrics.RecordTokenIssued(models.GrantTypeRefreshToken, time.Since(start))
	log.Printf("[Token] Rotated refresh token for client %s, user %s", clientID, old.UserID)
	return pair, nil
}

// IssueClientCredentialsToken mints an access token for a confidential
// client acting on its own behalf (RFC 6749 §4.4). No refresh token is
// returned; the row's refresh side is born already expired.
func (s *TokenService) IssueClientCredentialsToken(
	client *models.Client,
	requestedScope string,
) (*models.AccessToken, error) {
	start := time.Now()

	if client.ClientType != models.ClientTypeConfidential {
		return nil, ErrUnauthorizedClient
	}
	if !client.HasGrantType(models.GrantTypeClientCredentials) {
		return nil, ErrUnauthorizedClient
	}

	scopes := client.Scopes
	if requestedScope != "" {
		if !ScopesSubset(requestedScope, client.Scopes) {
			return nil, ErrInvalidScope
		}
		scopes = requestedScope
	}

	pair, err := s.mintTokenPair(client.ClientID, client.ClientID, scopes, "")
	if err != nil {
		return nil, err
	}
	pair.RawRefreshToken = ""
	pair.RefreshTokenExpiresAt = time.Now().Add(-time.Second)

	if err := s.store.CreateAccessToken(pair); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	s.metrics.RecordTokenIssued(models.GrantTypeClientCredentials, time.Since(start))
	log.Printf("[Token] Issued client_credentials token for client %s", client.ClientID)
	return pair, nil
}

// VerifyBearerToken checks a presented access token: signature and expiry
// via the signer, then a liveness check against the store so that consent
// revocation takes effect immediately rather than at natural TTL.
func (s *TokenService) VerifyBearerToken(rawToken string) (*Principal, error) {
	start := time.Now()

	claims, err := s.signer.Verify(rawToken)
	if err != nil {
		result := "malformed"
		switch {
		case errors.Is(err, token.ErrExpiredToken):
			result = "expired"
		case errors.Is(err, token.ErrSignatureInvalid):
			result = "signature_invalid"
		case errors.Is(err, token.ErrMissingClaim):
			result = "missing_claim"
		}
		s.metrics.RecordTokenValidation(result, time.Since(start))
		return nil, ErrInvalidToken
	}

	record, err := s.store.GetAccessTokenByHash(util.SHA256Hex(rawToken))
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			s.metrics.RecordTokenValidation("unknown", time.Since(start))
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if record.IsExpired() {
		s.metrics.RecordTokenValidation("revoked", time.Since(start))
		return nil, ErrInvalidToken
	}

	s.metrics.RecordTokenValidation("success", time.Since(start))
	return &Principal{
		UserID:   claims.Subject,
		ClientID: record.ClientID,
		Scopes:   record.Scopes,
	}, nil
}
