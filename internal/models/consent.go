package models

import "time"

// Consent records a user's cumulative scope approval for a client.
// There is at most one active record per (UserID, ClientID) pair; the
// scope set only grows via union, and shrinks only by full revocation.
type Consent struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	UUID string `gorm:"uniqueIndex;size:36;not null"`

	// Composite unique index ensures one grant per user+client
	UserID   string `gorm:"not null;uniqueIndex:idx_user_client"`
	ClientID string `gorm:"not null;uniqueIndex:idx_user_client"`

	Scopes    string `gorm:"not null"` // union of all approved scopes
	GrantedAt time.Time
	IsActive  bool `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Consent) TableName() string {
	return "consents"
}
