// Package service holds the business logic for chat, history and accounts.
package service

import "errors"

// Service errors.
var (
	ErrInvalidInput          = errors.New("must provide either text input or an image file")
	ErrUpstreamUnavailable   = errors.New("image upload failed and no text was provided")
	ErrModelInvocationFailed = errors.New("model invocation failed")
	ErrPersistenceFailed     = errors.New("failed to persist interaction")
	ErrHistoryUnavailable    = errors.New("failed to read history")

	ErrInvalidSignup      = errors.New("invalid signup data")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("incorrect email or password")
)
