package asset

import "errors"

var (
	ErrNotFound           = errors.New("asset: not found")
	ErrConflict           = errors.New("asset: already exists")
	ErrInvalidInput       = errors.New("asset: invalid input")
	ErrAlreadyProvisioned = errors.New("asset: clearance phrase already set")
	ErrNotProvisioned     = errors.New("asset: signup not completed")
	ErrBadCredentials     = errors.New("asset: incorrect email or password")
	ErrBadSecurityAnswer  = errors.New("asset: security answer mismatch")
)
