package transform

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"unicode/utf8"

	"github.com/juliosaraiva/firehose-log2json/internal/parser"
)

// Transformer converts raw access log lines to AccessLogRecord JSON.
// It is immutable after construction and safe for concurrent use.
type Transformer struct {
	lines  *parser.LineParser
	logger *slog.Logger
}

// Option configures the Transformer.
type Option func(*Transformer)

// WithLineParser replaces the default common log format parser.
func WithLineParser(p *parser.LineParser) Option {
	return func(t *Transformer) {
		t.lines = p
	}
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transformer) {
		t.logger = l
	}
}

// New creates a Transformer.
func New(opts ...Option) *Transformer {
	t := &Transformer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.lines == nil {
		t.lines = parser.NewLineParser()
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// Transform runs the full pipeline on one raw line. Every error it
// returns is a *Error.
func (t *Transformer) Transform(data []byte) ([]byte, error) {
	if !utf8.Valid(data) {
		return nil, encodingError(data)
	}
	line := string(data)

	fields, err := t.lines.Parse(line)
	if err != nil {
		return nil, patternError(line, err)
	}

	if !fields.HasTimestamp {
		return nil, timestampError("", parser.ErrTimestampMissing)
	}
	ts, err := parser.NormalizeTimestamp(fields.Timestamp)
	if err != nil {
		return nil, timestampError(fields.Timestamp, err)
	}

	nums, err := parser.ValidateNumeric(fields.Status, fields.Bytes)
	if err != nil {
		return nil, numericError(fields.Status, fields.Bytes, err)
	}

	rec := AccessLogRecord{
		Host:         fields.Host,
		Ident:        fields.Ident,
		AuthUser:     fields.AuthUser,
		Timestamp:    ts.Local(),
		TimestampUTC: ts.UTC(),
		Request:      fields.Request,
		Response:     nums.Status,
		Bytes:        nums.Bytes,
	}
	out, err := marshal(rec)
	if err != nil {
		return nil, serializationError(err)
	}
	return out, nil
}

// TransformOrPassThrough returns the transformed JSON, or data itself
// when any stage fails. ok reports which one happened. It never fails.
func (t *Transformer) TransformOrPassThrough(id string, data []byte) (out []byte, ok bool) {
	out, err := t.Transform(data)
	if err != nil {
		var te *Error
		kind := "unknown"
		if errors.As(err, &te) {
			kind = te.Kind.String()
		}
		t.logger.Debug("record passed through", "id", id, "kind", kind, "error", err)
		return data, false
	}
	return out, true
}

// marshal encodes rec without HTML escaping and without the trailing
// newline json.Encoder adds.
func marshal(rec AccessLogRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
