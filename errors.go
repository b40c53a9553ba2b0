package mdchat

import "errors"

// Common errors
var (
	// ErrInvalidConfig is returned when the app configuration is invalid
	ErrInvalidConfig = errors.New("mdchat: invalid configuration")

	// ErrMountPointNotFound is returned when the page shell has no element
	// matching MountSelector
	ErrMountPointNotFound = errors.New("mdchat: mount point not found")
)
