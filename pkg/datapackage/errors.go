package datapackage

import (
	"fmt"
)

// NotFoundError indicates a named record is missing or unreadable.
type NotFoundError struct {
	// Kind is the record kind ("configuration", "view", "format", "resource",
	// "datapackage").
	Kind string

	// Name is the record name that was requested.
	Name string

	// Err is the underlying filesystem or decode error.
	Err error
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found: %v", e.Kind, e.Name, e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// UnsupportedProfileError indicates a resource carries a profile tag this
// package does not recognize. There is no fallback handling for unknown
// profiles.
type UnsupportedProfileError struct {
	// Resource is the name of the offending resource.
	Resource string

	// Profile is the unrecognized profile tag.
	Profile string
}

// Error implements the error interface.
func (e *UnsupportedProfileError) Error() string {
	return fmt.Sprintf("resource %q has unsupported profile %q", e.Resource, e.Profile)
}

// VariableNotFoundError indicates a configuration has no binding for the
// requested variable name.
type VariableNotFoundError struct {
	// Variable is the variable name that was requested.
	Variable string

	// Configuration is the configuration that was searched.
	Configuration string
}

// Error implements the error interface.
func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("no variable named %q in configuration %q", e.Variable, e.Configuration)
}

// ResourceError indicates a required resource is not in a usable state,
// typically because its data payload is empty.
type ResourceError struct {
	// Resource is the name of the offending resource.
	Resource string

	// Message is the human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	return e.Message
}
