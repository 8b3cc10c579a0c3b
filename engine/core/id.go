package core

import "github.com/google/uuid"

// ID is the identifier type shared by sessions, messages, and chatbot keys.
type ID string

// NewID returns a new random identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

func (i ID) String() string {
	return string(i)
}

// IsZero reports whether the identifier is unset.
func (i ID) IsZero() bool {
	return i == ""
}

// ParseID validates the given string as an identifier.
func ParseID(s string) (ID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return ID(parsed.String()), nil
}
