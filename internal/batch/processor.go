package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/juliosaraiva/firehose-log2json/internal/transform"
)

// RecordTransformer converts one record payload, falling back to the
// original bytes on failure.
type RecordTransformer interface {
	TransformOrPassThrough(id string, data []byte) ([]byte, bool)
}

// Processor maps a RecordTransformer over a batch with a fixed number
// of workers. Output order always matches input order.
type Processor struct {
	transformer RecordTransformer
	workers     int
	annotate    bool
	metrics     *Metrics
	logger      *slog.Logger
}

// Option configures the Processor.
type Option func(*Processor)

// WithWorkers sets the number of concurrent workers. Values below one
// select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithAnnotation sets Result on every output record: ResultOK for
// transformed records and ResultProcessingFailed for pass-through.
func WithAnnotation() Option {
	return func(p *Processor) {
		p.annotate = true
	}
}

// WithMetrics records batch outcomes in m.
func WithMetrics(m *Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithLogger sets the processor logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithTransformer replaces the default transform.Transformer.
func WithTransformer(t RecordTransformer) Option {
	return func(p *Processor) {
		p.transformer = t
	}
}

// NewProcessor creates a Processor.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers < 1 {
		p.workers = runtime.GOMAXPROCS(0)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.transformer == nil {
		p.transformer = transform.New(transform.WithLogger(p.logger))
	}
	return p
}

// Workers returns the configured degree of parallelism.
func (p *Processor) Workers() int {
	return p.workers
}

// Process transforms every record and returns one output per input, in
// input order. It never fails; a record whose transformation panics is
// passed through.
func (p *Processor) Process(records []RawRecord) []OutputRecord {
	out := make([]OutputRecord, len(records))
	if len(records) == 0 {
		return out
	}

	workers := p.workers
	if workers > len(records) {
		workers = len(records)
	}

	indexes := make(chan int, len(records))
	for i := range records {
		indexes <- i
	}
	close(indexes)

	ok := make([]bool, len(records))
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				out[i], ok[i] = p.processOne(records[i])
			}
		}()
	}
	wg.Wait()

	transformed := 0
	for _, v := range ok {
		if v {
			transformed++
		}
	}
	p.metrics.observe(len(records), transformed)
	p.logger.Debug("batch processed", "records", len(records), "transformed", transformed, "workers", workers)

	return out
}

// ProcessContext is Process for callers that carry a context. Records
// are never cancelled individually; the context is only checked before
// work starts.
func (p *Processor) ProcessContext(ctx context.Context, records []RawRecord) ([]OutputRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("process batch: %w", err)
	}
	return p.Process(records), nil
}

func (p *Processor) processOne(rec RawRecord) (out OutputRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.recovered()
			p.logger.Error("transform panicked, passing record through", "id", rec.ID, "panic", r)
			out, ok = p.output(rec.ID, rec.Data, false), false
		}
	}()

	data, ok := p.transformer.TransformOrPassThrough(rec.ID, rec.Data)
	return p.output(rec.ID, data, ok), ok
}

func (p *Processor) output(id string, data []byte, ok bool) OutputRecord {
	out := OutputRecord{ID: id, Data: data}
	if p.annotate {
		r := ResultProcessingFailed
		if ok {
			r = ResultOK
		}
		out.Result = &r
	}
	return out
}
