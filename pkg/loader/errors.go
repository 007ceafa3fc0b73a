package loader

import "fmt"

// MissingKeyError reports a record without a mandatory identifier.
type MissingKeyError struct {
	Field string
}

func (e *MissingKeyError) Error() string { return fmt.Sprintf("missing %s", e.Field) }

// DateParseError reports a created value that does not match the dump's timestamp layout.
type DateParseError struct {
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("parse created date %q: %v", e.Value, e.Err)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// StoreError reports a failed save or lookup against the record store.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }
