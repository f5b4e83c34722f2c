// Package service implements the cached CRUD services over the expense
// tracker entities: one service per entity kind, composing the store
// gateway with the three-namespace cache. Reads go through the cache;
// writes go to the store and then invalidate every key family the write
// could have staled, before returning.
package service

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a referenced entity does not exist. It is a
// caller-input condition, not an infrastructure failure.
var ErrNotFound = errors.New("not found")

// GuardViolation is a domain precondition failure raised before any
// store write is attempted: deleting a group that still owns entries,
// deleting a user that still has memberships. Distinct from StoreError
// so callers can tell bad input from broken infrastructure.
type GuardViolation struct {
	Entity string
	Reason string
}

func (e *GuardViolation) Error() string {
	return fmt.Sprintf("cannot modify %s: %s", e.Entity, e.Reason)
}

// ValidationError reports a malformed input field on a create or update.
// Uniqueness is deliberately not enforced here: services report existence
// via their exists queries and leave rejection policy to callers.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
