// Package parser extracts and validates the fields of common log format lines.
package parser

import "errors"

// Common errors returned by the parsing stages.
var (
	ErrNoMatch          = errors.New("line does not match parser pattern")
	ErrTimestampMissing = errors.New("timestamp group is absent")
	ErrBadPattern       = errors.New("pattern must have exactly seven capture groups")
)

// Fields holds the seven raw substrings captured from one log line.
// Values are slices of the input line; nothing is copied.
type Fields struct {
	Host      string
	Ident     string
	AuthUser  string
	Request   string
	Status    string
	Bytes     string
	Timestamp string

	// HasTimestamp reports whether the bracketed timestamp group matched.
	// An empty bracket pair ("[]") leaves it false.
	HasTimestamp bool
}
