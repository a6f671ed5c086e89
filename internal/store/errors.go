package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrClientIDConflict is returned when a client_id already exists
	ErrClientIDConflict = errors.New("client_id already exists")

	// ErrAuthCodeConsumed is returned by ConsumeAuthorizationCode when the
	// code row was already deleted by a concurrent redemption (0 rows
	// deleted). Exactly one of two racing redemptions sees the row.
	ErrAuthCodeConsumed = errors.New("authorization code already consumed")

	// ErrRefreshTokenRotated is returned by RotateTokenPair when the old
	// pair's refresh token was already backdated by a concurrent rotation
	// (0 rows updated by the conditional update).
	ErrRefreshTokenRotated = errors.New("refresh token already rotated")
)
