package models

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateClientSecret(t *testing.T) {
	c := &Client{}
	plain, err := c.GenerateClientSecret(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(plain, "oas_"))
	assert.NotEqual(t, plain, c.ClientSecret, "stored secret must be hashed")
	assert.True(t, c.ValidateClientSecret([]byte(plain)))
	assert.False(t, c.ValidateClientSecret([]byte("wrong-secret")))
}

func TestHasRedirectURI(t *testing.T) {
	c := &Client{RedirectURIs: StringArray{"https://app.example.com/callback"}}

	assert.True(t, c.HasRedirectURI("https://app.example.com/callback"))
	// Exact match only: no prefix, suffix, or subpath matching
	assert.False(t, c.HasRedirectURI("https://app.example.com/callback/extra"))
	assert.False(t, c.HasRedirectURI("https://app.example.com/"))
	assert.False(t, c.HasRedirectURI(""))
}

func TestHasGrantType(t *testing.T) {
	c := &Client{GrantTypes: "authorization_code refresh_token"}

	assert.True(t, c.HasGrantType(GrantTypeAuthorizationCode))
	assert.True(t, c.HasGrantType(GrantTypeRefreshToken))
	assert.False(t, c.HasGrantType(GrantTypeClientCredentials))
}

func TestHasAuthMethod(t *testing.T) {
	c := &Client{AuthMethods: "client_secret_basic"}

	assert.True(t, c.HasAuthMethod(AuthMethodClientSecretBasic))
	assert.False(t, c.HasAuthMethod(AuthMethodNone))
}

func TestStringArrayRoundTrip(t *testing.T) {
	arr := StringArray{"https://a.example.com/cb", "https://b.example.com/cb"}
	value, err := arr.Value()
	require.NoError(t, err)

	var decoded StringArray
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, arr, decoded)
}
