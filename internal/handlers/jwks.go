package handlers

import (
	"fmt"
	"net/http"

	"github.com/dev-299792/oauth2/internal/token"

	"github.com/gin-gonic/gin"
)

type JWKSHandler struct {
	signer      *token.Signer
	cacheMaxAge int
}

func NewJWKSHandler(s *token.Signer, cacheMaxAge int) *JWKSHandler {
	return &JWKSHandler{signer: s, cacheMaxAge: cacheMaxAge}
}

// JWKS handles GET /.well-known/jwks.json, publishing the verification
// key so resource servers can validate tokens without calling back.
func (h *JWKSHandler) JWKS(c *gin.Context) {
	set, err := h.signer.JWKS()
	if err != nil {
		oauthError(c, err)
		return
	}
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", h.cacheMaxAge))
	c.JSON(http.StatusOK, set)
}
