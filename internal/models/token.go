package models

import "time"

// AccessToken is a token-pair record: a signed access token and its
// companion refresh token, issued together and rotated together.
//
// The access token itself is a self-contained JWT; only its hash is kept
// here so that consent revocation can invalidate it before its natural
// TTL. The refresh token is opaque and likewise stored hashed.
//
// Rotation and revocation are soft: RefreshTokenExpiresAt (and, on
// cascade revocation, ExpiresAt) are forced into the past instead of
// deleting the row, preserving the audit trail.
type AccessToken struct {
	ID string `gorm:"primaryKey"`

	TokenHash        string `gorm:"uniqueIndex;not null"` // SHA256(access token JWT)
	RefreshTokenHash string `gorm:"uniqueIndex;not null"` // SHA256(refresh token)

	// In-memory only; never persisted to DB
	RawToken        string `gorm:"-"`
	RawRefreshToken string `gorm:"-"`

	TokenType string `gorm:"not null;default:'Bearer'"`
	UserID    string `gorm:"not null;index"`
	ClientID  string `gorm:"not null;index"`
	Scopes    string `gorm:"not null"` // space-separated scopes

	CreatedAt             time.Time
	ExpiresAt             time.Time
	RefreshTokenExpiresAt time.Time

	ParentTokenID string `gorm:"index"` // Previous pair in the rotation chain
}

// IsExpired reports whether the access token side of the pair has expired.
// Boundary instant counts as expired (fail-closed).
func (t *AccessToken) IsExpired() bool {
	return !time.Now().Before(t.ExpiresAt)
}

// IsRefreshTokenExpired reports whether the refresh token side has
// expired. A rotated or revoked pair has its RefreshTokenExpiresAt
// backdated and therefore reads as expired here.
func (t *AccessToken) IsRefreshTokenExpired() bool {
	return !time.Now().Before(t.RefreshTokenExpiresAt)
}

func (AccessToken) TableName() string {
	return "access_tokens"
}
