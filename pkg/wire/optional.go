package wire

import "fmt"

// Optional holds either a value of T or nothing.
// The zero value is empty.
type Optional[T any] struct {
	value  T
	active bool
}

// Some creates an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, active: true}
}

// None creates an empty Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// HasValue reports whether a value is present.
func (o Optional[T]) HasValue() bool {
	return o.active
}

// Value returns the held value. It panics if the Optional is empty.
func (o Optional[T]) Value() T {
	if !o.active {
		panic("wire: value of empty Optional")
	}
	return o.value
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.active
}

// ValueOr returns the held value or def if empty.
func (o Optional[T]) ValueOr(def T) T {
	if o.active {
		return o.value
	}
	return def
}

// Emplace replaces the content with v.
func (o *Optional[T]) Emplace(v T) {
	o.value, o.active = v, true
}

// Reset drops the held value.
func (o *Optional[T]) Reset() {
	var zero T
	o.value, o.active = zero, false
}

// String is used by fmt.
func (o Optional[T]) String() string {
	if !o.active {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", o.value)
}

// add sums two byte counts, empty if either is empty.
func add(a, b Optional[int]) Optional[int] {
	if !a.active || !b.active {
		return Optional[int]{}
	}
	return Some(a.value + b.value)
}
