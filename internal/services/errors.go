package services

import "errors"

// Protocol-level errors. Handler code maps these onto the RFC 6749 error
// response vocabulary; anything not listed here surfaces as server_error.
var (
	ErrInvalidRequest           = errors.New("invalid_request")
	ErrInvalidClient            = errors.New("invalid_client")
	ErrInvalidGrant             = errors.New("invalid_grant")
	ErrUnauthorizedClient       = errors.New("unauthorized_client")
	ErrUnsupportedGrantType     = errors.New("unsupported_grant_type")
	ErrUnsupportedResponseType  = errors.New("unsupported_response_type")
	ErrInvalidScope             = errors.New("invalid_scope")
	ErrAccessDenied             = errors.New("access_denied")
	ErrInvalidRedirectURI       = errors.New("invalid redirect_uri")
	ErrInvalidToken             = errors.New("invalid_token")
)
