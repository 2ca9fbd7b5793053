package cache

import "fmt"

// TypeMismatchError is returned by Fetch when a key holds a value of a different type.
type TypeMismatchError struct {
	Key   string
	Value any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cache key %q holds %T", e.Key, e.Value)
}
