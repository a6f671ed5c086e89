package handlers

import (
	"net/http"

	"github.com/dev-299792/oauth2/internal/services"

	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	clientService *services.ClientService
}

func NewClientHandler(cs *services.ClientService) *ClientHandler {
	return &ClientHandler{clientService: cs}
}

type registerClientRequest struct {
	ClientName   string   `json:"client_name" binding:"required"`
	Description  string   `json:"description"`
	RedirectURIs []string `json:"redirect_uris" binding:"required"`
	Scopes       string   `json:"scopes"`
	GrantTypes   string   `json:"grant_types"`
	ClientType   string   `json:"client_type"`
}

// Register handles POST /clients. The response is the only place the
// plaintext client secret ever appears.
func (h *ClientHandler) Register(c *gin.Context) {
	var req registerClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": err.Error(),
		})
		return
	}

	reg, err := h.clientService.Register(c.Request.Context(), &services.ClientRegistration{
		ClientName:   req.ClientName,
		Description:  req.Description,
		RedirectURIs: req.RedirectURIs,
		Scopes:       req.Scopes,
		GrantTypes:   req.GrantTypes,
		ClientType:   req.ClientType,
	})
	if err != nil {
		oauthError(c, err)
		return
	}

	resp := gin.H{
		"client_id":     reg.Client.ClientID,
		"client_name":   reg.Client.ClientName,
		"client_type":   reg.Client.ClientType,
		"redirect_uris": []string(reg.Client.RedirectURIs),
		"scopes":        reg.Client.Scopes,
		"grant_types":   reg.Client.GrantTypes,
	}
	if reg.ClientSecret != "" {
		resp["client_secret"] = reg.ClientSecret
	}
	c.JSON(http.StatusCreated, resp)
}

// Deregister handles DELETE /clients/:client_id. The client proves
// ownership with its own credentials via Basic auth and is deactivated,
// not deleted.
func (h *ClientHandler) Deregister(c *gin.Context) {
	clientID, clientSecret, _ := c.Request.BasicAuth()
	if clientID == "" || clientID != c.Param("client_id") {
		oauthError(c, services.ErrInvalidClient)
		return
	}
	if err := h.clientService.Deactivate(clientID, clientSecret); err != nil {
		oauthError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
