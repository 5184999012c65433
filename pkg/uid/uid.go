package uid

import "github.com/google/uuid"

// New generates a random identifier in canonical 36 character form.
func New() string {
	return uuid.New().String()
}

// IsValid reports whether id is a UUID in the canonical form New produces.
// Braced or URN forms are rejected since ids are stored and compared as text.
func IsValid(id string) bool {
	if len(id) != 36 {
		return false
	}
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}
