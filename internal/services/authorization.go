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
	"github.com/dev-299792/oauth2/internal/util"

	"github.com/google/uuid"
)

// Supported response type at the authorization endpoint.
const ResponseTypeCode = "code"

// AuthorizationRequest carries the query parameters of an authorization
// request (RFC 6749 §4.1.1), unvalidated.
type AuthorizationRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizationService validates authorization requests and issues
// single-use authorization codes.
type AuthorizationService struct {
	store   *store.Store
	config  *config.Config
	metrics metrics.Recorder
}

func NewAuthorizationService(
	s *store.Store,
	cfg *config.Config,
	m metrics.Recorder,
) *AuthorizationService {
	return &AuthorizationService{
		store:   s,
		config:  cfg,
		metrics: m,
	}
}

// ValidateAuthorizationRequest checks a request in a fixed order: client,
// redirect URI, response type, grant registration, scope, PKCE. The order
// matters for the error surface: until the client and redirect URI have
// both been verified, the caller must not redirect the error anywhere.
func (s *AuthorizationService) ValidateAuthorizationRequest(
	req *AuthorizationRequest,
) (*models.Client, error) {
	client, err := s.store.GetClient(req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	if !client.IsActive {
		return nil, ErrInvalidClient
	}

	// Exact string equality against the registered set. A request with an
	// unregistered redirect URI gets an error page, never a redirect.
	if !client.HasRedirectURI(req.RedirectURI) {
		return nil, ErrInvalidRedirectURI
	}

	if req.ResponseType != ResponseTypeCode {
		return client, ErrUnsupportedResponseType
	}

	if !client.HasGrantType(models.GrantTypeAuthorizationCode) {
		return client, ErrUnauthorizedClient
	}

	if req.Scope == "" || !ScopesSubset(req.Scope, client.Scopes) {
		return client, ErrInvalidScope
	}

	if req.CodeChallenge != "" {
		method := req.CodeChallengeMethod
		if method == "" {
			method = pkce.MethodPlain
		}
		if !pkce.ValidMethod(method) {
			return client, ErrInvalidRequest
		}
	} else if s.config.PKCERequired {
		return client, ErrInvalidRequest
	}

	return client, nil
}

// IssueAuthorizationCode re-validates the request, then mints a 256-bit
// random code bound to the authenticated user. Only the code's hash is
// persisted; the plaintext goes back to the client in the redirect and is
// never seen again.
func (s *AuthorizationService) IssueAuthorizationCode(
	userID string,
	req *AuthorizationRequest,
) (string, error) {
	if _, err := s.ValidateAuthorizationRequest(req); err != nil {
		s.metrics.RecordAuthorizationCodeIssued(false)
		return "", err
	}

	plainCode, err := util.CryptoRandomString(64)
	if err != nil {
		s.metrics.RecordAuthorizationCodeIssued(false)
		return "", fmt.Errorf("failed to generate authorization code: %w", err)
	}

	method := req.CodeChallengeMethod
	if req.CodeChallenge != "" && method == "" {
		method = pkce.MethodPlain
	}

	code := &models.AuthorizationCode{
		UUID:                uuid.New().String(),
		CodeHash:            util.SHA256Hex(plainCode),
		CodePrefix:          plainCode[:8],
		ClientID:            req.ClientID,
		UserID:              userID,
		RedirectURI:         req.RedirectURI,
		Scopes:              req.Scope,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: method,
		ExpiresAt:           time.Now().Add(s.config.AuthCodeExpiration),
	}

	if err := s.store.CreateAuthorizationCode(code); err != nil {
		s.metrics.RecordAuthorizationCodeIssued(false)
		return "", fmt.Errorf("failed to save authorization code: %w", err)
	}

	log.Printf("[Authorization] Issued code %s... for client %s, user %s",
		code.CodePrefix, req.ClientID, userID)
	s.metrics.RecordAuthorizationCodeIssued(true)
	return plainCode, nil
}
