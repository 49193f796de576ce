package models

import "errors"

var (
	ErrInvalidTask          = errors.New("invalid task")
	ErrInvalidSprint        = errors.New("invalid sprint")
	ErrInvalidUser          = errors.New("invalid user")
	ErrNotFound             = errors.New("not found")
	ErrInvalidPR            = errors.New("invalid pull request")
	ErrTokenRequired        = errors.New("access token required")
	ErrConfirmationNotFound = errors.New("confirmation not found")
)
