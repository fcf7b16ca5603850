package ids

import "github.com/segmentio/ksuid"

// New returns a fresh sortable entity id.
func New() string {
	return ksuid.New().String()
}

// IsValid reports whether s parses as an entity id.
func IsValid(s string) bool {
	_, err := ksuid.Parse(s)
	return err == nil
}
