package services

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrNotParticipant     = errors.New("not a participant of this challenge")
	ErrAlreadyParticipant = errors.New("already a participant of this challenge")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidTimezone    = errors.New("invalid timezone")
	ErrInvalidInput       = errors.New("invalid input")
)
