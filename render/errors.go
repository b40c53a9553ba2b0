package render

import "errors"

// Render package errors.
var (
	// ErrInvalidExtension indicates a nil extension or one without a name.
	ErrInvalidExtension = errors.New("render: invalid extension")

	// ErrDuplicateExtension indicates an extension name was registered twice.
	ErrDuplicateExtension = errors.New("render: extension already registered")

	// ErrRegistryFrozen indicates a registration after Build.
	ErrRegistryFrozen = errors.New("render: registry is frozen")

	// ErrNoMarkdown indicates Build was called without a markdown extension.
	ErrNoMarkdown = errors.New("render: markdown extension required")

	// ErrUnknownEngine indicates a math engine name that is not registered.
	ErrUnknownEngine = errors.New("render: unknown math engine")
)
