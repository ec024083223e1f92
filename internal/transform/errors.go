package transform

import (
	"errors"
	"fmt"
)

// Kind identifies the pipeline stage that rejected a record.
type Kind int

// Failure kinds, in pipeline order.
const (
	KindEncoding Kind = iota + 1
	KindPatternMismatch
	KindTimestamp
	KindNumeric
	KindSerialization
)

// Sentinels for errors.Is, one per Kind.
var (
	ErrEncoding        = errors.New("invalid utf-8 input")
	ErrPatternMismatch = errors.New("pattern mismatch")
	ErrTimestamp       = errors.New("invalid timestamp")
	ErrNumeric         = errors.New("invalid number")
	ErrSerialization   = errors.New("serialization failed")
)

var kindSentinels = map[Kind]error{
	KindEncoding:        ErrEncoding,
	KindPatternMismatch: ErrPatternMismatch,
	KindTimestamp:       ErrTimestamp,
	KindNumeric:         ErrNumeric,
	KindSerialization:   ErrSerialization,
}

func (k Kind) String() string {
	switch k {
	case KindEncoding:
		return "EncodingError"
	case KindPatternMismatch:
		return "PatternMismatch"
	case KindTimestamp:
		return "TimestampError"
	case KindNumeric:
		return "NumericError"
	case KindSerialization:
		return "SerializationError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the single error type returned by Transform. Kind is always
// one of the declared constants.
type Error struct {
	Kind Kind

	// Input is the offending text: the timestamp or number substring, or
	// a prefix of the line for encoding and pattern failures.
	Input string

	// Err is the underlying diagnostic, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %q", e.Kind, e.Input)
	}
	return fmt.Sprintf("%s: %q: %v", e.Kind, e.Input, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// The constructors below are the only conversions from stage errors.

func encodingError(data []byte) *Error {
	return &Error{Kind: KindEncoding, Input: excerpt(string(data))}
}

func patternError(line string, err error) *Error {
	return &Error{Kind: KindPatternMismatch, Input: excerpt(line), Err: err}
}

func timestampError(raw string, err error) *Error {
	return &Error{Kind: KindTimestamp, Input: raw, Err: err}
}

func numericError(status, bytes string, err error) *Error {
	return &Error{Kind: KindNumeric, Input: status + " " + bytes, Err: err}
}

func serializationError(err error) *Error {
	return &Error{Kind: KindSerialization, Err: err}
}

const maxExcerpt = 120

func excerpt(s string) string {
	if len(s) <= maxExcerpt {
		return s
	}
	return s[:maxExcerpt] + "..."
}
