package errors

// Package errors provides sentinel errors for post loading operations.

import "errors"

var (
	// ErrSourceRootUnreadable indicates the configured source root cannot be opened or walked.
	ErrSourceRootUnreadable = errors.New("source root unreadable")

	// ErrFileReadFailed indicates reading a discovered post file failed.
	ErrFileReadFailed = errors.New("post file read failed")

	// ErrMissingKey indicates a required metadata key is absent.
	ErrMissingKey = errors.New("required metadata key missing")

	// ErrInvalidDate indicates the date value matched none of the accepted layouts.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidHeader indicates the metadata header could not be parsed.
	ErrInvalidHeader = errors.New("invalid metadata header")

	// ErrDuplicateID indicates two source files produce the same post identifier.
	ErrDuplicateID = errors.New("duplicate post identifier")

	// ErrPathCollision indicates two posts map to the same output path.
	ErrPathCollision = errors.New("output path collision")
)
