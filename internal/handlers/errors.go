package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/dev-299792/oauth2/internal/services"

	"github.com/gin-gonic/gin"
)

// oauthError writes an RFC 6749 §5.2 error response for err. Protocol
// sentinels map to their error codes; anything unrecognized is a server
// fault and answers 500 server_error without leaking detail.
func oauthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": err.Error(),
		})
	case errors.Is(err, services.ErrInvalidRedirectURI):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": err.Error(),
		})
	case errors.Is(err, services.ErrUnsupportedResponseType):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unsupported_response_type",
		})
	case errors.Is(err, services.ErrInvalidClient):
		c.Header("WWW-Authenticate", `Basic realm="oauth2"`)
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid_client",
		})
	case errors.Is(err, services.ErrInvalidGrant):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid_grant",
		})
	case errors.Is(err, services.ErrUnauthorizedClient):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unauthorized_client",
		})
	case errors.Is(err, services.ErrUnsupportedGrantType):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unsupported_grant_type",
		})
	case errors.Is(err, services.ErrInvalidScope):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid_scope",
		})
	case errors.Is(err, services.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{
			"error": "access_denied",
		})
	default:
		log.Printf("[Handler] Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "server_error",
		})
	}
}
