package handlers

import (
	"net/http"

	"github.com/dev-299792/oauth2/internal/middleware"
	"github.com/dev-299792/oauth2/internal/services"
	"github.com/dev-299792/oauth2/internal/store"

	"github.com/gin-gonic/gin"
)

type ConsentHandler struct {
	consentService *services.ConsentService
	store          *store.Store
}

func NewConsentHandler(cs *services.ConsentService, s *store.Store) *ConsentHandler {
	return &ConsentHandler{
		consentService: cs,
		store:          s,
	}
}

// List handles GET /consents: the caller's active consents, with client
// names resolved for display.
func (h *ConsentHandler) List(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	consents, err := h.consentService.ListConsents(principal.UserID)
	if err != nil {
		oauthError(c, err)
		return
	}

	clientIDs := make([]string, 0, len(consents))
	for _, consent := range consents {
		clientIDs = append(clientIDs, consent.ClientID)
	}
	clients, err := h.store.GetClientsByIDs(clientIDs)
	if err != nil {
		oauthError(c, err)
		return
	}

	type consentView struct {
		ClientID   string   `json:"client_id"`
		ClientName string   `json:"client_name"`
		Scopes     []string `json:"scopes"`
		GrantedAt  string   `json:"granted_at"`
	}

	views := make([]consentView, 0, len(consents))
	for _, consent := range consents {
		view := consentView{
			ClientID:  consent.ClientID,
			Scopes:    services.SplitScopes(consent.Scopes),
			GrantedAt: consent.GrantedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if client, ok := clients[consent.ClientID]; ok {
			view.ClientName = client.ClientName
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"consents": views})
}

// Revoke handles DELETE /consents/:client_id: drops the consent and
// expires every live token the client holds for the caller.
func (h *ConsentHandler) Revoke(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	clientID := c.Param("client_id")
	if err := h.consentService.Revoke(principal.UserID, clientID); err != nil {
		oauthError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
