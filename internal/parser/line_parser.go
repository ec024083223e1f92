package parser

import (
	"fmt"
	"regexp"
)

// CommonLogPattern matches host, ident, authuser, [timestamp], "request",
// a three digit status and the byte count.
const CommonLogPattern = `^([\d.]+) (\S+) (\S+) \[([\w:/]+\s[+\-]\d{2}:?\d{2})?\] "(.+?)" (\d{3}) (\d+)`

// Capture group indexes within CommonLogPattern.
const (
	groupHost = iota + 1
	groupIdent
	groupAuthUser
	groupTimestamp
	groupRequest
	groupStatus
	groupBytes

	groupCount = groupBytes
)

// LineParser applies a compiled pattern to a single log line.
// It holds no mutable state and is safe for concurrent use.
type LineParser struct {
	pattern *regexp.Regexp
	custom  bool
}

// NewLineParser creates a parser for the common log format.
func NewLineParser() *LineParser {
	return &LineParser{pattern: regexp.MustCompile(CommonLogPattern)}
}

// NewLineParserWithPattern creates a parser from a custom expression.
// The expression must keep the seven groups of CommonLogPattern in the
// same order; the timestamp group may be optional.
func NewLineParserWithPattern(expr string) (*LineParser, error) {
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	if pattern.NumSubexp() != groupCount {
		return nil, fmt.Errorf("%w: got %d", ErrBadPattern, pattern.NumSubexp())
	}
	return &LineParser{pattern: pattern, custom: true}, nil
}

// Name returns the parser identifier: "clf", or "regex" for a custom
// pattern.
func (p *LineParser) Name() string {
	if p.custom {
		return "regex"
	}
	return "clf"
}

// Description returns a human-readable description.
func (p *LineParser) Description() string {
	if p.custom {
		return fmt.Sprintf("Custom regex pattern: %s", p.pattern)
	}
	return "Apache/NCSA Common Log Format"
}

// Parse extracts the seven fields from line.
// It returns ErrNoMatch when the pattern does not match; there are no
// partial results.
func (p *LineParser) Parse(line string) (Fields, error) {
	loc := p.pattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return Fields{}, ErrNoMatch
	}

	group := func(i int) (string, bool) {
		start, end := loc[2*i], loc[2*i+1]
		if start < 0 {
			return "", false
		}
		return line[start:end], true
	}

	var f Fields
	f.Host, _ = group(groupHost)
	f.Ident, _ = group(groupIdent)
	f.AuthUser, _ = group(groupAuthUser)
	f.Timestamp, f.HasTimestamp = group(groupTimestamp)
	f.Request, _ = group(groupRequest)
	f.Status, _ = group(groupStatus)
	f.Bytes, _ = group(groupBytes)

	return f, nil
}
