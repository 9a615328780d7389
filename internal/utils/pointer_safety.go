package utils

// Value dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// NonZero returns nil for the zero value so optional columns store NULL.
func NonZero[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

// NonEmpty returns nil for an empty string so optional text columns store NULL.
func NonEmpty(s string) *string {
	return NonZero(s)
}
