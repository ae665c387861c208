// Package kernel contains the primitive types shared by the table management
// packages.
package kernel

// Error describes a table management error. All errors that callers are
// expected to test for must be defined as global variables that are pointers
// to the Error structure so they can be compared by identity even after
// additional context has been attached to them.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Module == "" {
		return e.Message
	}

	return e.Module + ": " + e.Message
}
