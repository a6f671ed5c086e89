package models

import "time"

// AuthorizationCode stores OAuth 2.0 authorization codes (RFC 6749).
// Codes are short-lived and single-use: the token endpoint consumes the
// row with an atomic delete before any validation, so a leaked code can
// never be replayed.
type AuthorizationCode struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	UUID string `gorm:"uniqueIndex;size:36;not null"` // Public UUID for audit identification

	// Code storage: SHA256 hash for security, prefix for quick lookup
	CodeHash   string `gorm:"uniqueIndex;not null"`  // SHA256(plainCode)
	CodePrefix string `gorm:"index;not null;size:8"` // First 8 chars for diagnostics

	ClientID string `gorm:"not null;index"`
	UserID   string `gorm:"not null;index"`

	// RedirectURI used at issuance time. Redemption must present the
	// exact same URI, independent of the client's registered set.
	RedirectURI string `gorm:"not null"`
	Scopes      string `gorm:"not null"`

	// PKCE (RFC 7636)
	CodeChallenge       string `gorm:"default:''"`     // code_challenge (empty = PKCE not used)
	CodeChallengeMethod string `gorm:"default:'S256'"` // "S256" or "plain"

	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the code's lifetime has passed. A code whose
// ExpiresAt equals the current instant is already expired (fail-closed).
func (a *AuthorizationCode) IsExpired() bool {
	return !time.Now().Before(a.ExpiresAt)
}

func (AuthorizationCode) TableName() string {
	return "authorization_codes"
}
