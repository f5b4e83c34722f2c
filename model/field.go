package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field carries an explicit set/unset tag for partial updates. The zero
// value means "leave unchanged"; Set wraps a value to be written. This
// replaces nil-means-untouched conventions so that clearing a nullable
// column (via Field[*T] holding nil) stays distinguishable from not
// touching it.
type Field[T any] struct {
	value T
	set   bool
}

// Set returns a Field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Get returns the wrapped value and whether it was set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.set
}

// IsSet reports whether the field carries a value.
func (f Field[T]) IsSet() bool {
	return f.set
}

// UserPatch selects which User fields an update touches.
type UserPatch struct {
	Name  Field[string]
	Email Field[string]
}

// GroupPatch selects which Group fields an update touches.
type GroupPatch struct {
	Name     Field[string]
	Currency Field[string]
}

// CategoryPatch selects which Category fields an update touches.
type CategoryPatch struct {
	Name  Field[string]
	Color Field[string]
}

// EntryPatch selects which Entry fields an update touches. CategoryID
// set to nil detaches the entry from its category.
type EntryPatch struct {
	Description Field[string]
	Date        Field[time.Time]
	CategoryID  Field[*uuid.UUID]
}

// ItemPatch selects which Item fields an update touches.
type ItemPatch struct {
	Description Field[string]
	Amount      Field[decimal.Decimal]
	Quantity    Field[int64]
}
