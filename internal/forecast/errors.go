package forecast

import (
	"errors"
	"fmt"
)

// ErrNoData is returned by queries when the selection matches no records.
var ErrNoData = errors.New("no forecast data for selection")

// FetchError means no source produced a parseable JSON document.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch forecast payload: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError means a JSON document was obtained but it does not have the expected shape.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse forecast payload: %s: %v", e.Reason, e.Err)
	}
	return "parse forecast payload: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// StoreError wraps a database or filesystem failure of the given operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
