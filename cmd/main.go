package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"

	"garoonsync/internal/caldav"
	"garoonsync/internal/config"
	"garoonsync/internal/export"
	"garoonsync/internal/garoon"
	"garoonsync/internal/metrics"
	"garoonsync/internal/syncer"
)

const requestTimeout = 30 * time.Second

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "garoonsync",
		Usage: "Export Garoon schedule events to CSV, iCalendar or a CalDAV calendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "Path to a YAML config file."},
		},
		Commands: []*cli.Command{
			exportCommand(),
			publishCommand(),
			syncCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func windowFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "days", Usage: "Number of days to fetch, starting at --from."},
		&cli.StringFlag{Name: "from", Usage: "Window start: RFC3339, YYYY-MM-DD or text like \"next monday\". Defaults to now."},
		&cli.StringFlag{Name: "on-invalid", Usage: "What to do with an event that fails validation: fail or skip."},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Fetch the upcoming events and write them to a file.",
		Flags: append(windowFlags(),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file path."},
			&cli.StringFlag{Name: "format", Usage: "Output format: csv or ics."},
			&cli.StringFlag{Name: "timezone", Usage: "IANA time zone for CSV dates and times."},
			&cli.StringFlag{Name: "encoding", Usage: "CSV encoding: utf-8 or shift_jis."},
			&cli.BoolFlag{Name: "atomic", Usage: "Write to a temporary file and rename it into place."},
			&cli.BoolFlag{Name: "print", Usage: "Also print the events as a table on stdout."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Fetch and validate without writing the output file."},
		),
		Action: func(c *cli.Context) error {
			r, err := newRun(c)
			if err != nil {
				return err
			}
			if err := applyExportFlags(c, r.cfg); err != nil {
				return err
			}
			return r.export(c.Context, os.Stdout, c.Bool("print"), c.Bool("dry-run"))
		},
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Fetch the upcoming events and upload them to a CalDAV calendar.",
		Flags: windowFlags(),
		Action: func(c *cli.Context) error {
			r, err := newRun(c)
			if err != nil {
				return err
			}
			if err := r.cfg.ValidateCalDAV(); err != nil {
				return err
			}
			return r.publish(c.Context)
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run a full synchronization (not implemented yet).",
		Action: func(c *cli.Context) error {
			r, err := newRun(c)
			if err != nil {
				return err
			}
			return r.syncer.SyncEvents(c.Context)
		},
	}
}

// run carries what every command needs for one invocation.
type run struct {
	cfg      *config.Config
	logger   *slog.Logger
	syncer   *syncer.Syncer
	recorder *metrics.Recorder
	started  time.Time
}

func newRun(c *cli.Context) (*run, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("days") {
		if err := config.ValidateWindowDays(c.Int("days")); err != nil {
			return nil, fmt.Errorf("%w: --days %w", config.ErrInvalidConfig, err)
		}
		cfg.Sync.WindowDays = c.Int("days")
	}
	if c.IsSet("on-invalid") {
		if cfg.Sync.OnInvalidEvent, err = syncer.ParsePolicy(c.String("on-invalid")); err != nil {
			return nil, fmt.Errorf("%w: --on-invalid: %w", config.ErrInvalidConfig, err)
		}
	}
	if c.IsSet("timezone") {
		if cfg.Export.Location, err = time.LoadLocation(c.String("timezone")); err != nil {
			return nil, fmt.Errorf("%w: --timezone: %w", config.ErrInvalidConfig, err)
		}
	}

	logger := setupLogger(cfg.Log.Level).With("run", uuid.NewString())
	slog.SetDefault(logger)

	opts := syncer.Options{
		WindowDays:     cfg.Sync.WindowDays,
		OnInvalidEvent: cfg.Sync.OnInvalidEvent,
	}
	if c.IsSet("from") {
		start, err := parseStart(newDateParser(), c.String("from"), time.Now(), cfg.Export.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: --from: %w", config.ErrInvalidConfig, err)
		}
		opts.Start = &start
	}

	client, err := garoon.NewClient(logger, cfg.Garoon, &http.Client{Timeout: requestTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create garoon client: %w", err)
	}

	s, err := syncer.NewSyncer(logger, client, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create syncer: %w", err)
	}

	return &run{
		cfg:      cfg,
		logger:   logger,
		syncer:   s,
		recorder: metrics.NewRecorder(),
		started:  time.Now(),
	}, nil
}

// export fetches the window and writes it in the configured format.
// printTable also renders the table to stdout; dryRun skips the file.
func (r *run) export(ctx context.Context, stdout io.Writer, printTable, dryRun bool) error {
	cfg := r.cfg

	res, err := r.syncer.Fetch(ctx)
	if err != nil {
		r.finish(ctx, res, 0, err)
		return err
	}

	if printTable {
		if err := export.Print(stdout, res.Events, cfg.Export.Location); err != nil {
			err = fmt.Errorf("failed to print events: %w", err)
			r.finish(ctx, res, 0, err)
			return err
		}
	}

	if dryRun {
		r.logger.Info("Dry run, not writing output.", "output", cfg.Export.Output, "events", len(res.Events))
		r.finish(ctx, res, 0, nil)
		return nil
	}

	var exporter export.Exporter
	switch cfg.Export.Format {
	case config.FormatICS:
		exporter = export.ICS{Atomic: cfg.Export.Atomic}
	default:
		exporter = export.CSV{
			Location: cfg.Export.Location,
			Encoding: cfg.Export.Encoding,
			Atomic:   cfg.Export.Atomic,
		}
	}
	if err := exporter.Export(res.Events, cfg.Export.Output); err != nil {
		r.finish(ctx, res, 0, err)
		return err
	}

	r.logger.Info("Exported events.", "output", cfg.Export.Output, "format", cfg.Export.Format, "count", len(res.Events))
	r.finish(ctx, res, len(res.Events), nil)
	return nil
}

// publish uploads the window to the configured CalDAV calendar.
func (r *run) publish(ctx context.Context) error {
	publisher, err := caldav.NewPublisher(ctx, r.logger, r.cfg.CalDAV, nil)
	if err != nil {
		err = fmt.Errorf("failed to create caldav publisher: %w", err)
		r.finish(ctx, syncer.Result{}, 0, err)
		return err
	}

	res, err := r.syncer.Fetch(ctx)
	if err != nil {
		r.finish(ctx, res, 0, err)
		return err
	}

	n, err := publisher.Publish(ctx, res.Events)
	r.finish(ctx, res, n, err)
	return err
}

func applyExportFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("output") {
		cfg.Export.Output = c.String("output")
	}
	if c.IsSet("format") {
		format := strings.ToLower(c.String("format"))
		if format != config.FormatCSV && format != config.FormatICS {
			return fmt.Errorf("%w: --format must be csv or ics, got %q", config.ErrInvalidConfig, c.String("format"))
		}
		cfg.Export.Format = format
	}
	if c.IsSet("encoding") {
		enc, err := export.ParseEncoding(c.String("encoding"))
		if err != nil {
			return fmt.Errorf("%w: --encoding: %w", config.ErrInvalidConfig, err)
		}
		cfg.Export.Encoding = enc
	}
	if c.IsSet("atomic") {
		cfg.Export.Atomic = c.Bool("atomic")
	}
	return nil
}

// finish records the run and pushes metrics when a Pushgateway is
// configured. A failed push is logged and does not fail the run.
func (r *run) finish(ctx context.Context, res syncer.Result, written int, runErr error) {
	r.recorder.Observe(res.Fetched, written, len(res.Skipped), time.Since(r.started), time.Now(), runErr == nil)

	if garoon.IsUnauthorized(runErr) {
		r.logger.Error("Garoon rejected the credentials", "user", r.cfg.Garoon.UserID)
	}

	if r.cfg.Metrics.PushgatewayURL == "" {
		return
	}
	// Push even when ctx was cancelled so the failure is visible.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requestTimeout)
	defer cancel()
	if err := r.recorder.Push(pushCtx, r.cfg.Metrics.PushgatewayURL, r.cfg.Metrics.Job); err != nil {
		r.logger.Warn("Metrics push failed", "error", err)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.DateTime,
	}))
}
