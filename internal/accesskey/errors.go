package accesskey

import "errors"

var (
	ErrNotFound          = errors.New("accesskey: no key on record")
	ErrUsed              = errors.New("accesskey: key already used")
	ErrExpired           = errors.New("accesskey: key expired")
	ErrAttemptsExhausted = errors.New("accesskey: attempt limit reached")
	ErrMismatch          = errors.New("accesskey: key does not match")
)
