package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/dev-299792/oauth2/internal/config"
	"github.com/dev-299792/oauth2/internal/services"

	"github.com/gin-gonic/gin"
)

// UserHeader names the header carrying the authenticated user's ID. Login
// and session management live upstream; by the time a request reaches the
// authorization endpoint the fronting layer has resolved the user.
const UserHeader = "X-Authenticated-User"

type AuthorizationHandler struct {
	authzService   *services.AuthorizationService
	consentService *services.ConsentService
	config         *config.Config
}

func NewAuthorizationHandler(
	as *services.AuthorizationService,
	cs *services.ConsentService,
	cfg *config.Config,
) *AuthorizationHandler {
	return &AuthorizationHandler{
		authzService:   as,
		consentService: cs,
		config:         cfg,
	}
}

// Authorize handles GET /oauth2/authorize. Requests failing client or
// redirect URI validation get a direct error response; once both are
// verified, later failures redirect back to the client with an error
// code. With full consent already on record the code is issued
// immediately, otherwise the response asks for a consent decision.
func (h *AuthorizationHandler) Authorize(c *gin.Context) {
	userID := c.GetHeader(UserHeader)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "access_denied",
			"error_description": "user authentication required",
		})
		return
	}

	req := authorizationRequestFromQuery(c)

	client, err := h.authzService.ValidateAuthorizationRequest(req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidClient) ||
			errors.Is(err, services.ErrInvalidRedirectURI) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             "invalid_request",
				"error_description": err.Error(),
			})
			return
		}
		redirectWithError(c, req, err)
		return
	}

	full, err := h.consentService.HasFullConsent(userID, req.ClientID, req.Scope)
	if err != nil {
		oauthError(c, err)
		return
	}

	if full && h.config.ConsentRemember {
		h.issueAndRedirect(c, userID, req)
		return
	}

	newScopes, err := h.consentService.NewlyRequestedScopes(userID, req.ClientID, req.Scope)
	if err != nil {
		oauthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"consent_required": true,
		"client_id":        client.ClientID,
		"client_name":      client.ClientName,
		"requested_scopes": services.SplitScopes(req.Scope),
		"new_scopes":       newScopes,
		"state":            req.State,
	})
}

// Consent handles POST /oauth2/authorize/consent, the user's decision on
// a pending authorization request. Approval records the scopes in the
// ledger before issuing the code; denial redirects back with
// access_denied.
func (h *AuthorizationHandler) Consent(c *gin.Context) {
	userID := c.GetHeader(UserHeader)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "access_denied",
			"error_description": "user authentication required",
		})
		return
	}

	req := authorizationRequestFromForm(c)

	if _, err := h.authzService.ValidateAuthorizationRequest(req); err != nil {
		if errors.Is(err, services.ErrInvalidClient) ||
			errors.Is(err, services.ErrInvalidRedirectURI) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             "invalid_request",
				"error_description": err.Error(),
			})
			return
		}
		redirectWithError(c, req, err)
		return
	}

	if c.PostForm("approved") != "true" {
		redirectWithError(c, req, services.ErrAccessDenied)
		return
	}

	if err := h.consentService.RecordConsent(userID, req.ClientID, req.Scope); err != nil {
		oauthError(c, err)
		return
	}
	h.issueAndRedirect(c, userID, req)
}

func (h *AuthorizationHandler) issueAndRedirect(
	c *gin.Context,
	userID string,
	req *services.AuthorizationRequest,
) {
	code, err := h.authzService.IssueAuthorizationCode(userID, req)
	if err != nil {
		oauthError(c, err)
		return
	}

	target, err := url.Parse(req.RedirectURI)
	if err != nil {
		oauthError(c, err)
		return
	}
	q := target.Query()
	q.Set("code", code)
	if req.State != "" {
		q.Set("state", req.State)
	}
	target.RawQuery = q.Encode()

	c.Redirect(http.StatusFound, target.String())
}

// redirectWithError sends the client a post-validation error on the
// already-verified redirect URI (RFC 6749 §4.1.2.1). Callers must verify
// the redirect URI before reaching here.
func redirectWithError(c *gin.Context, req *services.AuthorizationRequest, err error) {
	target, parseErr := url.Parse(req.RedirectURI)
	if parseErr != nil {
		oauthError(c, parseErr)
		return
	}

	code := "server_error"
	switch {
	case errors.Is(err, services.ErrUnsupportedResponseType):
		code = "unsupported_response_type"
	case errors.Is(err, services.ErrUnauthorizedClient):
		code = "unauthorized_client"
	case errors.Is(err, services.ErrInvalidScope):
		code = "invalid_scope"
	case errors.Is(err, services.ErrInvalidRequest):
		code = "invalid_request"
	case errors.Is(err, services.ErrAccessDenied):
		code = "access_denied"
	}

	q := target.Query()
	q.Set("error", code)
	if req.State != "" {
		q.Set("state", req.State)
	}
	target.RawQuery = q.Encode()

	c.Redirect(http.StatusFound, target.String())
}

func authorizationRequestFromQuery(c *gin.Context) *services.AuthorizationRequest {
	return &services.AuthorizationRequest{
		ResponseType:        c.Query("response_type"),
		ClientID:            c.Query("client_id"),
		RedirectURI:         c.Query("redirect_uri"),
		Scope:               c.Query("scope"),
		State:               c.Query("state"),
		CodeChallenge:       c.Query("code_challenge"),
		CodeChallengeMethod: c.Query("code_challenge_method"),
	}
}

func authorizationRequestFromForm(c *gin.Context) *services.AuthorizationRequest {
	return &services.AuthorizationRequest{
		ResponseType:        c.PostForm("response_type"),
		ClientID:            c.PostForm("client_id"),
		RedirectURI:         c.PostForm("redirect_uri"),
		Scope:               c.PostForm("scope"),
		State:               c.PostForm("state"),
		CodeChallenge:       c.PostForm("code_challenge"),
		CodeChallengeMethod: c.PostForm("code_challenge_method"),
	}
}
