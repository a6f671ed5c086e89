package models

import "time"

// User is a resource owner. Credential storage and password policy live
// outside this system; the record here carries only what the userinfo
// surface needs for scope-gated profile claims.
type User struct {
	ID        string `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"index"`
	FullName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}
