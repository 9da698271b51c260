package facts

import "fmt"

// DuplicateFactError is returned when a fact is written twice.
type DuplicateFactError struct {
	Key string
}

func (e *DuplicateFactError) Error() string {
	return fmt.Sprintf("fact %q is already set and cannot be changed", e.Key)
}

// MissingFactError is returned when a fact is read but was never set.
type MissingFactError struct {
	Key string
}

func (e *MissingFactError) Error() string {
	return fmt.Sprintf("fact %q is not set", e.Key)
}
