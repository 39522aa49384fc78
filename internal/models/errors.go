package models

import "errors"

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnreachable is returned when the inspected target is closed or navigating.
	ErrUnreachable = errors.New("target unreachable")
	// ErrInvalidArgument is returned for requests the host rejects.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupported is returned for operations a category does not offer.
	ErrUnsupported = errors.New("unsupported")
	// ErrPartial marks a snapshot where some storage areas could not be read.
	// The snapshot still carries the areas that were.
	ErrPartial = errors.New("partial snapshot")
)
