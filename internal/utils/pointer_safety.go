package utils

// Ptr returns a pointer to v, for building partial-update payloads where nil
// means "leave unchanged".
func Ptr[T any](v T) *T {
	return &v
}

// Value safely dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}
