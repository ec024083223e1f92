// log2json converts Apache/NCSA common log format lines to JSON records,
// either as a Unix filter or as a Kinesis Data Firehose transformation.
//
// Usage:
//
//	tail -f /var/log/apache2/access.log | log2json
//	log2json --follow /var/log/apache2/access.log --metrics-addr :9102
//	log2json firehose < event.json
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/juliosaraiva/firehose-log2json/internal/config"
)

// Version information (set via build flags)
var version = "dev"

// cliOptions holds flags that are not part of config.Config.
type cliOptions struct {
	cfgFile string
	envFile string
	quiet   bool
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &cliOptions{}
	loader := config.NewLoader()

	root := &cobra.Command{
		Use:   "log2json [file]",
		Short: "Convert common log format lines to JSON",
		Long: `log2json parses Apache/NCSA access log lines and writes one JSON record
per line. Lines that cannot be parsed are written through unchanged.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, loader, opts, stderr, func(a *app) error {
				ctx := cmd.Context()
				if _, err := a.serveMetrics(ctx); err != nil {
					return err
				}
				return withInput(args, stdin, func(r io.Reader) error {
					return a.convert(ctx, r, stdout)
				})
			})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.cfgFile, "config", "c", "", "config file (default: ./.log2json.yaml or $HOME/.log2json.yaml)")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with LOG2JSON_* variables")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "only log errors")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging, including every passed-through record")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.IntP("workers", "w", 0, "concurrent transform workers (default GOMAXPROCS)")
	pf.Bool("annotate", false, "mark records Ok or ProcessingFailed")
	pf.String("pattern", "", "custom regex with the seven common log format groups")

	f := root.Flags()
	f.IntP("batch-size", "b", config.DefaultBatchSize, "lines per batch")
	f.Duration("flush-interval", 0, "emit a partial batch after this long (default 1s)")
	f.Bool("pretty", false, "pretty-print JSON (not recommended for pipes)")
	f.Bool("skip-failed", false, "drop lines that fail to parse (requires --annotate)")
	f.Bool("envelope", false, "wrap output as {id, result, data|raw}")
	f.String("input-compression", "none", "input compression: none, zstd")
	f.StringP("follow", "f", "", "follow a file, surviving rotation")
	f.Bool("poll", false, "poll for changes when following instead of inotify")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	f.Bool("uuid-ids", false, "use random UUIDs instead of line numbers as record ids")

	root.AddCommand(newFirehoseCmd(loader, opts, stdin, stdout, stderr))
	root.AddCommand(newVersionCmd(stdout))

	return root
}

func newFirehoseCmd(loader *config.Loader, opts *cliOptions, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "firehose [event.json]",
		Short: "Answer a Kinesis Data Firehose transformation event",
		Long: `firehose reads a Firehose data transformation event (JSON with base64
record data) and writes the transformation response to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, loader, opts, stderr, func(a *app) error {
				return withInput(args, stdin, func(r io.Reader) error {
					return a.firehose(cmd.Context(), r, stdout)
				})
			})
		},
	}
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "log2json version %s\n", version)
		},
	}
}

// withApp resolves configuration for cmd and builds the app.
func withApp(cmd *cobra.Command, loader *config.Loader, opts *cliOptions, stderr io.Writer, fn func(*app) error) error {
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		return err
	}
	cfg, err := loader.Load(opts.cfgFile, opts.envFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(stderr, cfg.LogLevel, opts.quiet, opts.verbose)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	return fn(a)
}

// withInput opens the file named by args, or uses stdin.
func withInput(args []string, stdin io.Reader, fn func(io.Reader) error) error {
	if len(args) == 0 || args[0] == "-" {
		return fn(stdin)
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}

func newLogger(w io.Writer, levelName string, quiet, verbose bool) (*slog.Logger, error) {
	level, err := config.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}
