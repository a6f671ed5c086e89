package handlers

import (
	"net/http"
	"time"

	"github.com/dev-299792/oauth2/internal/config"
	"github.com/dev-299792/oauth2/internal/models"
	"github.com/dev-299792/oauth2/internal/services"

	"github.com/gin-gonic/gin"
)

// TokenResponse is the success body of the token endpoint (RFC 6749 §5.1).
type TokenResponse struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	ExpiresIn             int64  `json:"expires_in"`
	RefreshToken          string `json:"refresh_token,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in,omitempty"`
	Scope                 string `json:"scope"`
}

type TokenHandler struct {
	tokenService  *services.TokenService
	clientService *services.ClientService
	config        *config.Config
}

func NewTokenHandler(
	ts *services.TokenService,
	cs *services.ClientService,
	cfg *config.Config,
) *TokenHandler {
	return &TokenHandler{
		tokenService:  ts,
		clientService: cs,
		config:        cfg,
	}
}

// Token handles POST /oauth2/token: form-encoded, dispatched on grant_type.
func (h *TokenHandler) Token(c *gin.Context) {
	client, err := h.authenticateClient(c)
	if err != nil {
		oauthError(c, err)
		return
	}

	switch c.PostForm("grant_type") {
	case models.GrantTypeAuthorizationCode:
		h.handleAuthorizationCodeGrant(c, client)
	case models.GrantTypeRefreshToken:
		h.handleRefreshTokenGrant(c, client)
	case models.GrantTypeClientCredentials:
		h.handleClientCredentialsGrant(c, client)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported_grant_type",
			"error_description": "Supported grant types: authorization_code, refresh_token, client_credentials",
		})
	}
}

// authenticateClient resolves the requesting client from HTTP Basic
// credentials (client_secret_basic) or, for public clients, from the
// client_id form field alone.
func (h *TokenHandler) authenticateClient(c *gin.Context) (*models.Client, error) {
	if clientID, clientSecret, ok := c.Request.BasicAuth(); ok {
		return h.clientService.Authenticate(clientID, clientSecret)
	}

	clientID := c.PostForm("client_id")
	if clientID == "" {
		return nil, services.ErrInvalidClient
	}
	return h.clientService.Authenticate(clientID, c.PostForm("client_secret"))
}

func (h *TokenHandler) handleAuthorizationCodeGrant(c *gin.Context, client *models.Client) {
	code := c.PostForm("code")
	redirectURI := c.PostForm("redirect_uri")
	codeVerifier := c.PostForm("code_verifier")

	if code == "" || redirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "code and redirect_uri are required",
		})
		return
	}

	pair, err := h.tokenService.ExchangeAuthorizationCode(
		code, client.ClientID, redirectURI, c.PostForm("scope"), codeVerifier)
	if err != nil {
		oauthError(c, err)
		return
	}
	h.respondWithPair(c, pair, true)
}

func (h *TokenHandler) handleRefreshTokenGrant(c *gin.Context, client *models.Client) {
	refreshToken := c.PostForm("refresh_token")
	if refreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "refresh_token is required",
		})
		return
	}

	pair, err := h.tokenService.ExchangeRefreshToken(
		refreshToken, client.ClientID, c.PostForm("scope"))
	if err != nil {
		oauthError(c, err)
		return
	}
	h.respondWithPair(c, pair, true)
}

func (h *TokenHandler) handleClientCredentialsGrant(c *gin.Context, client *models.Client) {
	pair, err := h.tokenService.IssueClientCredentialsToken(client, c.PostForm("scope"))
	if err != nil {
		oauthError(c, err)
		return
	}
	h.respondWithPair(c, pair, false)
}

func (h *TokenHandler) respondWithPair(
	c *gin.Context,
	pair *models.AccessToken,
	withRefresh bool,
) {
	resp := TokenResponse{
		AccessToken: pair.RawToken,
		TokenType:   pair.TokenType,
		ExpiresIn:   int64(time.Until(pair.ExpiresAt).Seconds()),
		Scope:       pair.Scopes,
	}
	if withRefresh {
		resp.RefreshToken = pair.RawRefreshToken
		resp.RefreshTokenExpiresIn = int64(time.Until(pair.RefreshTokenExpiresAt).Seconds())
	}

	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(http.StatusOK, resp)
}
