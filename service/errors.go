package service

import "errors"

// Business errors surfaced to the HTTP layer, which maps them to status codes.
var (
	ErrPollNotFound         = errors.New("poll not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrPollClosed           = errors.New("poll is closed")
	ErrEmptyChoices         = errors.New("choices must be non-empty")
	ErrInvalidChoices       = errors.New("invalid choices")
	ErrSingleChoiceRequired = errors.New("single poll requires exactly one choice")
	ErrTooManyChoices       = errors.New("too many choices")
)
