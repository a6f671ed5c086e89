package services

import (
	"testing"
	"time"

	"github.com/dev-299792/oauth2/internal/config"
	"github.com/dev-299792/oauth2/internal/metrics"
	"github.com/dev-299792/oauth2/internal/models"
	"github.com/dev-299792/oauth2/internal/store"
	"github.com/dev-299792/oauth2/internal/token"

	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store   *store.Store
	config  *config.Config
	signer  *token.Signer
	authz   *AuthorizationService
	tokens  *TokenService
	consent *ConsentService
	clients *ClientService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)

	cfg := &config.Config{
		BaseURL:                "http://localhost:8080",
		AuthCodeExpiration:     90 * time.Second,
		AccessTokenExpiration:  5 * time.Minute,
		RefreshTokenExpiration: 30 * time.Minute,
	}

	key, err := token.GenerateEphemeralKey()
	require.NoError(t, err)
	signer := token.NewSigner(key, cfg.BaseURL)

	m := metrics.NewNoopMetrics()

	return &testEnv{
		store:   st,
		config:  cfg,
		signer:  signer,
		authz:   NewAuthorizationService(st, cfg, m),
		tokens:  NewTokenService(st, cfg, signer, m),
		consent: NewConsentService(st, m),
		clients: NewClientService(st),
	}
}

func createTestClient(t *testing.T, env *testEnv) *models.Client {
	t.Helper()

	client := &models.Client{
		ClientID:     "test-client",
		ClientName:   "Test Client",
		Scopes:       "read write profile",
		GrantTypes:   "authorization_code refresh_token client_credentials",
		AuthMethods:  "client_secret_basic",
		RedirectURIs: models.StringArray{"https://app.example.com/callback"},
		ClientType:   models.ClientTypeConfidential,
		IsActive:     true,
	}
	require.NoError(t, env.store.CreateClient(client))
	return client
}

func issueTestCode(t *testing.T, env *testEnv, req *AuthorizationRequest) string {
	t.Helper()

	code, err := env.authz.IssueAuthorizationCode("user-1", req)
	require.NoError(t, err)
	return code
}

func defaultAuthRequest() *AuthorizationRequest {
	return &AuthorizationRequest{
		ResponseType: ResponseTypeCode,
		ClientID:     "test-client",
		RedirectURI:  "https://app.example.com/callback",
		Scope:        "read write",
		State:        "xyz",
	}
}
