package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juliosaraiva/firehose-log2json/internal/batch"
	"github.com/juliosaraiva/firehose-log2json/internal/config"
	"github.com/juliosaraiva/firehose-log2json/internal/emitter"
	"github.com/juliosaraiva/firehose-log2json/internal/firehose"
	"github.com/juliosaraiva/firehose-log2json/internal/parser"
	"github.com/juliosaraiva/firehose-log2json/internal/reader"
	"github.com/juliosaraiva/firehose-log2json/internal/transform"
)

// app wires configuration to the batch processor.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	processor *batch.Processor
	registry  *prometheus.Registry
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	topts := []transform.Option{transform.WithLogger(logger)}
	if cfg.Pattern != "" {
		lp, err := parser.NewLineParserWithPattern(cfg.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		topts = append(topts, transform.WithLineParser(lp))
		logger.Info("line parser installed", "parser", lp.Name(), "description", lp.Description())
	}

	metrics := batch.NewMetrics()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	popts := []batch.Option{
		batch.WithWorkers(cfg.Workers),
		batch.WithLogger(logger),
		batch.WithMetrics(metrics),
		batch.WithTransformer(transform.New(topts...)),
	}
	if cfg.Annotate {
		popts = append(popts, batch.WithAnnotation())
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		processor: batch.NewProcessor(popts...),
		registry:  registry,
	}, nil
}

// serveMetrics exposes the registry on cfg.MetricsAddr until ctx is
// done. It returns the bound address, or "" when metrics are disabled.
func (a *app) serveMetrics(ctx context.Context) (string, error) {
	if a.cfg.MetricsAddr == "" {
		return "", nil
	}

	ln, err := net.Listen("tcp", a.cfg.MetricsAddr)
	if err != nil {
		return "", fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	return ln.Addr().String(), nil
}

// lines opens the configured line source.
func (a *app) lines(ctx context.Context, input io.Reader) (<-chan reader.Line, func(), error) {
	switch {
	case a.cfg.Follow != "":
		ch, err := reader.Follow(ctx, a.cfg.Follow, a.cfg.Poll)
		return ch, func() {}, err
	case a.cfg.InputCompression == "zstd":
		r, err := reader.NewZstd(input)
		if err != nil {
			return nil, nil, err
		}
		return r.Lines(), r.Close, nil
	default:
		return reader.New(input).Lines(), func() {}, nil
	}
}

func (a *app) recordID(line reader.Line) string {
	if a.cfg.UUIDIDs {
		return uuid.NewString()
	}
	return strconv.Itoa(line.Number)
}

// convert reads log lines, transforms them in batches and writes one
// output line per input line.
func (a *app) convert(ctx context.Context, input io.Reader, output io.Writer) error {
	lines, closeInput, err := a.lines(ctx, input)
	if err != nil {
		return err
	}
	defer closeInput()

	em := emitter.New(output, emitter.Options{
		Pretty:     a.cfg.Pretty,
		SkipFailed: a.cfg.SkipFailed,
		Envelope:   a.cfg.Envelope,
	})
	defer em.Close()

	lineCount, readErrors := 0, 0
	for chunk := range reader.Batches(lines, a.cfg.BatchSize, a.cfg.FlushInterval) {
		records := make([]batch.RawRecord, 0, len(chunk))
		for _, line := range chunk {
			if line.Err != nil {
				a.logger.Warn("read error", "line", line.Number, "error", line.Err)
				readErrors++
				continue
			}
			lineCount++
			records = append(records, batch.RawRecord{ID: a.recordID(line), Data: line.Data})
		}

		if err := em.EmitAll(a.processor.Process(records)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	a.logger.Info("conversion finished", "lines", lineCount, "read_errors", readErrors)
	return nil
}

// firehose answers one Firehose transformation event read from input.
func (a *app) firehose(ctx context.Context, input io.Reader, output io.Writer) error {
	body, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("read event: %w", err)
	}

	resp, err := firehose.NewHandler(a.processor, a.logger).HandleJSON(ctx, body)
	if err != nil {
		return err
	}

	if _, err := output.Write(append(resp, '\n')); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
