package services

import "errors"

var (
	// ErrNotFound is returned when a scan root, folder or file does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnreadable is returned when a location exists but cannot be read
	ErrUnreadable = errors.New("unreadable")

	// ErrPathRequired is returned when neither a path nor a URI was given
	ErrPathRequired = errors.New("path or uri is required")

	// ErrOutsideRoots is returned when a location resolves outside the
	// storage, music and documents directories
	ErrOutsideRoots = errors.New("location outside allowed directories")
)
