package auth

import "errors"

var (
	// ErrInvalidToken indicates the bearer token failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrUnauthorized indicates missing or wrong credentials.
	ErrUnauthorized = errors.New("auth: unauthorized")
)
