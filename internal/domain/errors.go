package domain

import "errors"

var (
	// ErrValidation marks a missing or malformed required field.
	ErrValidation = errors.New("validation failed")
	// ErrUserNotFound is returned when a user ID does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrChapterNotFound is returned when a chapter ID does not resolve.
	ErrChapterNotFound = errors.New("chapter not found")
	// ErrReadOnlyContent is returned when chapter or question authoring is
	// attempted against a backend without content-write support.
	ErrReadOnlyContent = errors.New("content authoring requires a relational backend")
)
