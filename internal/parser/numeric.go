package parser

import (
	"fmt"
	"strconv"
)

// Numbers holds the validated status code and byte count.
type Numbers struct {
	Status uint32
	Bytes  uint32
}

// ParseUint32 parses s as an unsigned 32-bit decimal integer.
func ParseUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// ValidateNumeric checks that the status and bytes substrings are
// unsigned 32-bit integers. The pattern already limits both to digits,
// so in practice this guards against overflow of the byte count.
func ValidateNumeric(status, bytes string) (Numbers, error) {
	s, err := ParseUint32(status)
	if err != nil {
		return Numbers{}, fmt.Errorf("status %q: %w", status, err)
	}
	b, err := ParseUint32(bytes)
	if err != nil {
		return Numbers{}, fmt.Errorf("bytes %q: %w", bytes, err)
	}
	return Numbers{Status: s, Bytes: b}, nil
}
