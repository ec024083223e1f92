// Package reader provides streaming line-based reading from io.Reader sources.
package reader

import (
	"bufio"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Default configuration values.
const (
	DefaultMaxLineSize = 1024 * 1024 // 1MB max line size
	DefaultBufferSize  = 64 * 1024   // 64KB initial buffer
)

// Line represents a single line read from the input stream.
type Line struct {
	// Data contains the raw line bytes (without newline). They are not
	// required to be valid UTF-8.
	Data []byte

	// Number is the 1-based line number in the input.
	Number int

	// Err contains any error that occurred reading this line.
	// If Err is non-nil, Data may be empty.
	Err error
}

// Text returns the line as a string.
func (l Line) Text() string {
	return string(l.Data)
}

// StreamReader reads lines from an io.Reader in a streaming fashion.
// Designed for processing stdin in real-time (pipe-friendly).
type StreamReader struct {
	scanner    *bufio.Scanner
	lineNumber int
	maxSize    int
	closer     func()
}

// Option configures the StreamReader.
type Option func(*StreamReader)

// WithMaxLineSize sets the maximum allowed line size.
// Lines exceeding this stop the reader with an error.
func WithMaxLineSize(size int) Option {
	return func(r *StreamReader) {
		r.maxSize = size
	}
}

// New creates a StreamReader from an io.Reader.
// The reader processes input line-by-line, suitable for streaming.
func New(input io.Reader, opts ...Option) *StreamReader {
	reader := &StreamReader{
		maxSize: DefaultMaxLineSize,
	}

	// Apply options
	for _, opt := range opts {
		opt(reader)
	}

	// Create scanner with custom buffer
	scanner := bufio.NewScanner(input)
	buf := make([]byte, DefaultBufferSize)
	scanner.Buffer(buf, reader.maxSize)

	reader.scanner = scanner
	return reader
}

// NewZstd creates a StreamReader over zstd-compressed input.
// Call Close to release the decoder.
func NewZstd(input io.Reader, opts ...Option) (*StreamReader, error) {
	dec, err := zstd.NewReader(input)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	r := New(dec, opts...)
	r.closer = dec.Close
	return r, nil
}

// Close releases resources held by the reader.
func (r *StreamReader) Close() {
	if r.closer != nil {
		r.closer()
		r.closer = nil
	}
}

// next scans one line, copying the scanner buffer.
func (r *StreamReader) next() (Line, bool) {
	if !r.scanner.Scan() {
		return Line{}, false
	}
	r.lineNumber++
	data := make([]byte, len(r.scanner.Bytes()))
	copy(data, r.scanner.Bytes())
	return Line{Data: data, Number: r.lineNumber}, true
}

// Lines returns a channel that yields lines as they are read.
// The channel is closed when EOF is reached or an error occurs.
// This method should only be called once per reader.
func (r *StreamReader) Lines() <-chan Line {
	lines := make(chan Line)

	go func() {
		defer close(lines)

		for {
			line, ok := r.next()
			if !ok {
				break
			}
			lines <- line
		}

		// Check for scanner errors (not EOF)
		if err := r.scanner.Err(); err != nil {
			lines <- Line{
				Number: r.lineNumber + 1,
				Err:    err,
			}
		}
	}()

	return lines
}

// ReadAll reads all lines synchronously and returns them as a slice.
// Useful for testing; for production use Lines() for streaming.
func (r *StreamReader) ReadAll() ([]Line, error) {
	var lines []Line

	for {
		line, ok := r.next()
		if !ok {
			break
		}
		lines = append(lines, line)
	}

	if err := r.scanner.Err(); err != nil {
		return lines, err
	}

	return lines, nil
}
