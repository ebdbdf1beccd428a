package session

// Override is a staged change to a nested toggle: either inherit the current
// server value or override it with a pending value that must be sent on
// save. The two states are distinct on purpose so that an explicit override
// can never be confused with "no pending change".
type Override[T any] struct {
	set   bool
	value T
}

// Inherit returns an Override with no pending change.
func Inherit[T any]() Override[T] {
	return Override[T]{}
}

// Pending returns an Override staging the given value.
func Pending[T any](v T) Override[T] {
	return Override[T]{set: true, value: v}
}

// IsPending reports whether a change is staged.
func (o Override[T]) IsPending() bool {
	return o.set
}

// Value returns the staged value and whether one is set.
func (o Override[T]) Value() (T, bool) {
	return o.value, o.set
}

// Or returns the staged value if set, otherwise the current server value.
func (o Override[T]) Or(current T) T {
	if o.set {
		return o.value
	}
	return current
}
