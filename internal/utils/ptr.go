package utils

import "strings"

func Ptr[T any](v T) *T {
	return &v
}

func OrZero[T comparable](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// Is reports whether p is set and points at v. Match slots and winner slots
// are nullable, so most comparisons against them go through here.
func Is[T comparable](p *T, v T) bool {
	return p != nil && *p == v
}

// Same reports whether a and b are both set to the same value.
func Same[T comparable](a, b *T) bool {
	return a != nil && b != nil && *a == *b
}

// StringOrNil trims s and returns nil when nothing is left.
func StringOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
