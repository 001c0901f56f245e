package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"pqmeta/internal/config"
	"pqmeta/internal/exporter"
	"pqmeta/internal/files"
	"pqmeta/internal/infrastructure"
	"pqmeta/internal/operations"
	"pqmeta/internal/validation"
	"pqmeta/pkg/contracts/domain"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// options holds the parsed command line
type options struct {
	out        string
	format     domain.ReportFormat
	jsonOut    bool
	configPath string
	region     string
	paths      []string
}

// newS3Storage is replaced in tests
var newS3Storage = func(ctx context.Context, region string) (*files.S3Storage, error) {
	client, err := files.NewS3Client(ctx, region)
	if err != nil {
		return nil, err
	}
	return files.NewS3Storage(client), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("pqmeta", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: pqmeta [-out report.xlsx] [-format xlsx|csv|parquet] [-json] paths...")
		fmt.Fprintln(stderr, "paths are Parquet files, directories or s3://bucket/key URIs")
		fs.PrintDefaults()
	}

	out := fs.String("out", "", "report destination, a local path or s3:// URI (default parquet_metadata.<format>)")
	format := fs.String("format", "xlsx", "report format: xlsx, csv or parquet")
	jsonOut := fs.Bool("json", false, "print the batch result as JSON on stdout")
	configPath := fs.String("config", "", "optional config.yaml")
	region := fs.String("region", "", "AWS region for s3:// paths")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f, ok := domain.ParseReportFormat(strings.ToLower(*format))
	if !ok {
		return nil, fmt.Errorf("unsupported format %q", *format)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, errors.New("no input paths")
	}

	opts := &options{
		out:        *out,
		format:     f,
		jsonOut:    *jsonOut,
		configPath: *configPath,
		region:     *region,
		paths:      fs.Args(),
	}
	if opts.out == "" {
		opts.out = "parquet_metadata" + f.Extension()
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "pqmeta:", err)
		return exitUsage
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, "pqmeta:", err)
		return exitError
	}
	logger := infrastructure.NewLoggerWithWriter(stderr, cfg.Logging.Level)

	if err := extract(ctx, cfg, opts, stdout, stderr, logger); err != nil {
		logger.Error("extraction failed", slog.String("error", err.Error()))
		fmt.Fprintln(stderr, "pqmeta:", err)
		if validation.IsValidationError(err) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

func extract(ctx context.Context, cfg *config.Config, opts *options, stdout, stderr io.Writer, logger *slog.Logger) error {
	var storage *files.S3Storage
	s3 := func() (*files.S3Storage, error) {
		if storage != nil {
			return storage, nil
		}
		s, err := newS3Storage(ctx, opts.region)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		storage = s
		return storage, nil
	}

	validator := validation.NewFileValidator(logger, cfg.Extraction.AllowedExtensions...)

	sources, err := openSources(ctx, cfg, validator, opts.paths, s3)
	defer files.CloseAll(sources)
	if err != nil {
		return err
	}

	orch := operations.NewOrchestrator(operations.ConfigFrom(cfg.Extraction), logger)
	job, err := orch.Run(ctx, sources)
	if err != nil {
		return err
	}
	if job.Document == nil {
		return fmt.Errorf("report not built: %s", job.Error)
	}

	enc, err := exporter.EncoderFor(opts.format)
	if err != nil {
		return err
	}
	dest, err := writeReport(ctx, opts.out, enc, job.Document, validator, logger, s3)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		e := json.NewEncoder(stdout)
		e.SetIndent("", "  ")
		if err := e.Encode(job.Result); err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
	}

	fmt.Fprintf(stderr, "%d files: %d ok, %d failed; report written to %s\n",
		job.Result.Len(), job.Result.Succeeded(), job.Result.Len()-job.Result.Succeeded(), dest)
	return nil
}

// openSources expands directories and s3:// prefixes and opens every input.
// Sources opened before a failure are returned so the caller can close them.
func openSources(ctx context.Context, cfg *config.Config, validator *validation.FileValidator, paths []string, s3 func() (*files.S3Storage, error)) ([]files.Source, error) {
	expanded, err := files.NewDiscovery("", cfg.Extraction.AllowedExtensions...).Expand(paths)
	if err != nil {
		return nil, err
	}

	var sources []files.Source
	for _, p := range expanded {
		if !files.IsS3URI(p) {
			if err := validator.ValidateFile(p); err != nil {
				return sources, err
			}
			src, err := files.Open(p)
			if err != nil {
				return sources, err
			}
			sources = append(sources, src)
			continue
		}

		storage, err := s3()
		if err != nil {
			return sources, err
		}
		uris := []string{p}
		if _, key, _ := files.ParseS3URI(p); key == "" || strings.HasSuffix(key, "/") {
			if uris, err = storage.List(ctx, p, cfg.Extraction.AllowedExtensions); err != nil {
				return sources, err
			}
		}
		for _, uri := range uris {
			src, err := storage.Source(ctx, uri)
			if err != nil {
				return sources, err
			}
			sources = append(sources, src)
		}
	}
	return sources, nil
}

// writeReport encodes doc to a local file or an s3:// URI and returns the
// final location
func writeReport(ctx context.Context, out string, enc exporter.Encoder, doc *exporter.Document, validator *validation.FileValidator, logger *slog.Logger, s3 func() (*files.S3Storage, error)) (string, error) {
	if files.IsS3URI(out) {
		storage, err := s3()
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := enc.Encode(&buf, doc); err != nil {
			return "", err
		}
		if err := storage.Write(ctx, out, bytes.NewReader(buf.Bytes()), enc.Format().ContentType()); err != nil {
			return "", err
		}
		return out, nil
	}

	if err := validator.ValidateOutputDirectory(filepath.Dir(out)); err != nil {
		return "", err
	}
	return files.NewManager("", logger).WriteFile(out, func(w io.Writer) error {
		return enc.Encode(w, doc)
	})
}
