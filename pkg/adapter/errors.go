package adapter

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedResponse means the store answered without the envelope
	// fields the operation needs (success flag, results).
	ErrUnexpectedResponse = errors.New("unexpected record store response")
	// ErrUnknownFilter is returned for a filter key the entity does not declare.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrMissingID is returned when an update value carries no identity.
	ErrMissingID = errors.New("record has no id")
)

// OpError tags a failure with the entity and operation that produced it.
type OpError struct {
	Entity string
	Op     string
	ID     string
	Err    error
}

func (e *OpError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Entity, e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Entity, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
