// Package emitter writes output records as newline-delimited output.
package emitter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/juliosaraiva/firehose-log2json/internal/batch"
)

// Options configures the emitter behavior.
type Options struct {
	// Pretty indents transformed JSON payloads.
	// Not recommended for pipe output (breaks NDJSON).
	Pretty bool

	// SkipFailed drops records annotated as ProcessingFailed.
	// Has no effect on records without annotation.
	SkipFailed bool

	// Envelope wraps every record as {"id","result","data"}. JSON
	// payloads are embedded as objects, anything else as a string.
	Envelope bool
}

// Emitter writes output records to an io.Writer, one per line.
type Emitter struct {
	writer  *bufio.Writer
	options Options
	encoder *json.Encoder
}

type envelope struct {
	ID     string          `json:"id"`
	Result *batch.Result   `json:"result,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Raw    *string         `json:"raw,omitempty"`
}

// New creates a new emitter writing to the given output.
func New(output io.Writer, opts Options) *Emitter {
	writer := bufio.NewWriter(output)
	encoder := json.NewEncoder(writer)

	if opts.Pretty {
		encoder.SetIndent("", "  ")
	}

	// Don't escape HTML characters (cleaner output)
	encoder.SetEscapeHTML(false)

	return &Emitter{
		writer:  writer,
		options: opts,
		encoder: encoder,
	}
}

// Emit writes one record. Pass-through payloads are written verbatim
// unless Envelope is set.
func (e *Emitter) Emit(rec batch.OutputRecord) error {
	if e.options.SkipFailed && rec.Result != nil && !rec.Transformed() {
		return nil
	}

	if e.options.Envelope {
		return e.encoder.Encode(e.wrap(rec))
	}

	data := rec.Data
	if e.options.Pretty && json.Valid(data) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err == nil {
			data = buf.Bytes()
		}
	}
	if _, err := e.writer.Write(data); err != nil {
		return err
	}
	return e.writer.WriteByte('\n')
}

// EmitAll writes records in order and flushes once at the end.
func (e *Emitter) EmitAll(records []batch.OutputRecord) error {
	for _, rec := range records {
		if err := e.Emit(rec); err != nil {
			return err
		}
	}
	return e.writer.Flush()
}

func (e *Emitter) wrap(rec batch.OutputRecord) envelope {
	env := envelope{ID: rec.ID, Result: rec.Result}
	if len(rec.Data) > 0 && json.Valid(rec.Data) {
		env.Data = json.RawMessage(rec.Data)
	} else {
		raw := string(rec.Data)
		env.Raw = &raw
	}
	return env
}

// Close flushes any remaining data.
func (e *Emitter) Close() error {
	return e.writer.Flush()
}
