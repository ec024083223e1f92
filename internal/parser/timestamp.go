package parser

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Accepted timestamp layouts, tried in order. They differ only in the
// colon inside the UTC offset. Day, hour, minute and second may have one
// or two digits.
const (
	LayoutColonOffset = "2/Jan/2006:15:4:5 -07:00"
	LayoutPlainOffset = "2/Jan/2006:15:4:5 -0700"
)

// ISO8601 is RFC 3339 with a numeric offset, so UTC renders as +00:00.
const ISO8601 = "2006-01-02T15:04:05-07:00"

var timestampLayouts = []string{LayoutColonOffset, LayoutPlainOffset}

// Timestamp is a parsed log timestamp rendered two ways.
type Timestamp struct {
	// Time keeps the offset found in the log line.
	Time time.Time
}

// Local formats the instant with its original offset.
func (t Timestamp) Local() string {
	return t.Time.Format(ISO8601)
}

// UTC formats the same instant converted to UTC.
func (t Timestamp) UTC() string {
	return t.Time.UTC().Format(ISO8601)
}

// NormalizeTimestamp parses a bracketed log timestamp such as
// "14/Dec/2017:22:16:45 +09:00" or "14/Dec/2017:22:16:45 +0900".
// The first layout that parses wins. On failure the error of the last
// attempt is wrapped.
func NormalizeTimestamp(raw string) (Timestamp, error) {
	value := normalizeSeparator(raw)

	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return Timestamp{Time: t}, nil
		}
		lastErr = err
	}
	return Timestamp{}, fmt.Errorf("parse timestamp %q: %w", raw, lastErr)
}

// normalizeSeparator replaces the whitespace rune before the offset with
// a plain space, so a tab between time and offset parses too.
func normalizeSeparator(raw string) string {
	i := strings.LastIndexFunc(raw, unicode.IsSpace)
	if i < 0 {
		return raw
	}
	_, size := utf8.DecodeRuneInString(raw[i:])
	return raw[:i] + " " + raw[i+size:]
}
