package services

import "errors"

var (
	// ErrForbidden means the actor lacks the role the operation needs.
	ErrForbidden = errors.New("permission denied")
	// ErrNotFound covers missing rows and rows past their expiry.
	ErrNotFound      = errors.New("not found or expired")
	ErrAlreadyMember = errors.New("already a member of this project")
	ErrInvalidRole   = errors.New("invalid role")
	ErrValidation    = errors.New("validation failed")
	// ErrFormat means generator output could not be parsed into course modules.
	ErrFormat = errors.New("generator returned malformed content")
)
