package handlers

import (
	"errors"
	"net/http"

	"github.com/dev-299792/oauth2/internal/middleware"
	"github.com/dev-299792/oauth2/internal/store"

	"github.com/gin-gonic/gin"
)

type UserInfoHandler struct {
	store *store.Store
}

func NewUserInfoHandler(s *store.Store) *UserInfoHandler {
	return &UserInfoHandler{store: s}
}

// UserInfo handles GET /userinfo. Claims beyond the subject are gated on
// the scopes the access token actually carries: profile unlocks name
// fields, email unlocks the email claim.
func (h *UserInfoHandler) UserInfo(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
		return
	}

	claims := gin.H{"sub": principal.UserID}

	user, err := h.store.GetUserByID(principal.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrRecordNotFound) {
			oauthError(c, err)
			return
		}
		// Client-credentials tokens have no user record behind them;
		// the bare subject claim is all there is.
		c.JSON(http.StatusOK, claims)
		return
	}

	if principal.HasScope("profile") {
		claims["preferred_username"] = user.Username
		claims["name"] = user.FullName
	}
	if principal.HasScope("email") {
		claims["email"] = user.Email
	}

	c.JSON(http.StatusOK, claims)
}
