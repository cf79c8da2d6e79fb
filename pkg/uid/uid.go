// Package uid issues the request ids echoed in X-Request-ID.
package uid

import "github.com/google/uuid"

// New returns a random (version 4) id in canonical form.
func New() string {
	return uuid.NewString()
}

// IsValid reports whether id parses as a UUID. Client-supplied request ids
// that fail this check are replaced.
func IsValid(id string) bool {
	return uuid.Validate(id) == nil
}
