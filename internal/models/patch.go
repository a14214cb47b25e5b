package models

type patchState uint8

const (
	patchKeep patchState = iota
	patchSet
	patchClear
)

// Patch is a single field of a partial update. The zero value leaves the
// field unchanged.
type Patch[T any] struct {
	state patchState
	value T
}

// Keep leaves the field unchanged.
func Keep[T any]() Patch[T] { return Patch[T]{} }

// Set overwrites the field with v.
func Set[T any](v T) Patch[T] { return Patch[T]{state: patchSet, value: v} }

// Clear resets the field to null.
func Clear[T any]() Patch[T] { return Patch[T]{state: patchClear} }

// IsKeep reports whether the field is left unchanged.
func (p Patch[T]) IsKeep() bool { return p.state == patchKeep }

// IsSet reports whether the field carries a new value.
func (p Patch[T]) IsSet() bool { return p.state == patchSet }

// IsClear reports whether the field is reset to null.
func (p Patch[T]) IsClear() bool { return p.state == patchClear }

// Value returns the new value and whether one is present.
func (p Patch[T]) Value() (T, bool) {
	return p.value, p.state == patchSet
}

// ApplyTo writes the patch into a nullable field.
func (p Patch[T]) ApplyTo(dst **T) {
	switch p.state {
	case patchSet:
		v := p.value
		*dst = &v
	case patchClear:
		*dst = nil
	}
}
