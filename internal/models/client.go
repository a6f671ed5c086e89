package models

import (
	"context"
	"database/sql/driver"
	"encoding/base32"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dev-299792/oauth2/internal/util"

	"golang.org/x/crypto/bcrypt"
)

// Grant types a client may be registered for (RFC 6749).
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeClientCredentials = "client_credentials"
)

// Client authentication methods at the token endpoint.
const (
	AuthMethodNone              = "none"
	AuthMethodClientSecretBasic = "client_secret_basic"
)

// Client types.
const (
	ClientTypeConfidential = "confidential"
	ClientTypePublic       = "public"
)

// Base32 characters, but lowercased.
const lowerBase32Chars = "abcdefghijklmnopqrstuvwxyz234567"

// base32 encoder that uses lowered characters without padding.
var base32Lower = base32.NewEncoding(lowerBase32Chars).WithPadding(base32.NoPadding)

// Client is a registered OAuth 2.0 client application.
// ClientID is immutable once issued; RedirectURIs must be non-empty.
type Client struct {
	ID           int64       `gorm:"primaryKey;autoIncrement"`
	ClientID     string      `gorm:"uniqueIndex;not null"`
	ClientSecret string      `gorm:"default:''"` // bcrypt hash; empty for public clients
	ClientName   string      `gorm:"not null"`
	Description  string      `gorm:"type:text"`
	Scopes       string      `gorm:"not null"` // space-separated allowed scopes
	GrantTypes   string      `gorm:"not null;default:'authorization_code refresh_token'"`
	AuthMethods  string      `gorm:"not null;default:'client_secret_basic'"`
	RedirectURIs StringArray `gorm:"type:json"`
	ClientType   string      `gorm:"not null;default:'confidential'"` // "confidential" or "public"
	IsActive     bool        `gorm:"not null;default:true"`
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GenerateClientSecret generates a fresh client secret, stores its bcrypt
// hash on the model, and returns the plaintext. The plaintext is shown to
// the registrant exactly once and is not recoverable afterwards.
func (c *Client) GenerateClientSecret(ctx context.Context) (string, error) {
	rBytes, err := util.CryptoRandomBytes(32)
	if err != nil {
		return "", err
	}
	// Add a prefix to the base32, this is in order to make it easier
	// for code scanners to grab sensitive tokens.
	clientSecret := "oas_" + base32Lower.EncodeToString(rBytes)

	hashedSecret, err := bcrypt.GenerateFromPassword([]byte(clientSecret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	c.ClientSecret = string(hashedSecret)
	return clientSecret, nil
}

// ValidateClientSecret validates the given secret against the stored hash.
func (c *Client) ValidateClientSecret(secret []byte) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.ClientSecret), secret) == nil
}

// HasGrantType reports whether the client is registered for the grant type.
func (c *Client) HasGrantType(grantType string) bool {
	for _, gt := range strings.Fields(c.GrantTypes) {
		if gt == grantType {
			return true
		}
	}
	return false
}

// HasAuthMethod reports whether the client may authenticate with the method.
func (c *Client) HasAuthMethod(method string) bool {
	for _, m := range strings.Fields(c.AuthMethods) {
		if m == method {
			return true
		}
	}
	return false
}

// HasRedirectURI reports whether uri exactly matches a registered redirect
// URI. No prefix or pattern matching: exact string equality only.
func (c *Client) HasRedirectURI(uri string) bool {
	if uri == "" {
		return false
	}
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// StringArray is a custom type for []string that can be stored as JSON in database
type StringArray []string

// Scan implements sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSON value")
	}
	return json.Unmarshal(bytes, s)
}

// Value implements driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return json.Marshal([]string{})
	}
	return json.Marshal(s)
}

// TableName overrides the table name used by Client to `clients`
func (Client) TableName() string {
	return "clients"
}
