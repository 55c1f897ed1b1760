package utils

// Value dereferences an optional wire field, yielding the zero value when it is absent.
func Value[T any](v *T) T {
	return ValueOr(v, *new(T))
}

// ValueOr dereferences v or returns def when v is nil.
func ValueOr[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}
