package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"garoonsync/internal/garoon"
	"garoonsync/internal/models"
)

// DefaultWindowDays is the length of the fetch window when none is configured.
const DefaultWindowDays = 7

// MaxWindowDays bounds the fetch window so start + days never overflows
// a time.Duration.
const MaxWindowDays = 3660

// ErrNotImplemented is returned by SyncEvents.
var ErrNotImplemented = errors.New("sync: not implemented")

// EventSource fetches the raw events whose schedule intersects a range.
// A single call returns the complete result for the range.
type EventSource interface {
	GetEvents(ctx context.Context, r models.TimeRange) ([]garoon.Event, error)
}

// Policy decides what happens to a batch when one event cannot be converted.
type Policy int

const (
	// PolicyFail aborts the whole fetch on the first invalid event.
	PolicyFail Policy = iota
	// PolicySkip drops invalid events with a warning and keeps the rest.
	PolicySkip
)

// ParsePolicy maps "fail" or "skip" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return PolicyFail, nil
	case "skip":
		return PolicySkip, nil
	default:
		return PolicyFail, fmt.Errorf("unknown invalid-event policy %q: want fail or skip", s)
	}
}

func (p Policy) String() string {
	if p == PolicySkip {
		return "skip"
	}
	return "fail"
}

// Options configures a Syncer. Zero values select the defaults.
type Options struct {
	// Clock returns the current instant. Defaults to time.Now.
	Clock func() time.Time
	// WindowDays is the fetch window length. Defaults to DefaultWindowDays.
	WindowDays int
	// Start, if set, replaces the clock reading as the window start.
	Start *time.Time
	// OnInvalidEvent selects the invalid-event policy. Defaults to PolicyFail.
	OnInvalidEvent Policy
}

// Result is the outcome of one fetch.
type Result struct {
	Window  models.TimeRange
	Fetched int
	Events  []models.Event
	// Skipped holds one error per event dropped under PolicySkip.
	Skipped []error
}

// Syncer orchestrates fetching Garoon events and converting them.
type Syncer struct {
	logger *slog.Logger
	source EventSource
	opts   Options
}

// NewSyncer creates a new Syncer.
func NewSyncer(logger *slog.Logger, source EventSource, opts Options) (*Syncer, error) {
	if source == nil {
		return nil, errors.New("event source is nil")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.WindowDays < 0 || opts.WindowDays > MaxWindowDays {
		return nil, fmt.Errorf("window days must be between 0 and %d, got %d", MaxWindowDays, opts.WindowDays)
	}
	if opts.WindowDays == 0 {
		opts.WindowDays = DefaultWindowDays
	}
	return &Syncer{
		logger: logger,
		source: source,
		opts:   opts,
	}, nil
}

// DefaultFetchWindow returns [start, start + window days), where start is
// the configured start or the current clock reading.
func (s *Syncer) DefaultFetchWindow() (models.TimeRange, error) {
	start := s.opts.Clock()
	if s.opts.Start != nil {
		start = *s.opts.Start
	}
	return models.NewTimeRange(start, start.Add(time.Duration(s.opts.WindowDays)*24*time.Hour))
}

// GetEvents fetches the events of the default window and converts them,
// preserving the order the API returned them in.
func (s *Syncer) GetEvents(ctx context.Context) ([]models.Event, error) {
	res, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return res.Events, nil
}

// Fetch is GetEvents with the details callers need for reporting.
func (s *Syncer) Fetch(ctx context.Context) (Result, error) {
	window, err := s.DefaultFetchWindow()
	if err != nil {
		return Result{}, fmt.Errorf("failed to compute fetch window: %w", err)
	}

	s.logger.Info("Fetching Garoon events.", "window", window.String(), "policy", s.opts.OnInvalidEvent.String())

	raw, err := s.source.GetEvents(ctx, window)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch garoon events: %w", err)
	}

	res := Result{
		Window:  window,
		Fetched: len(raw),
		Events:  make([]models.Event, 0, len(raw)),
	}
	for _, item := range raw {
		event, err := ToEvent(item)
		if err != nil {
			if s.opts.OnInvalidEvent == PolicySkip {
				s.logger.Warn("Skipping invalid event", "title", item.Subject, "error", err)
				res.Skipped = append(res.Skipped, err)
				continue
			}
			return Result{}, fmt.Errorf("failed to convert garoon events: %w", err)
		}
		res.Events = append(res.Events, event)
	}

	s.logger.Info("Converted Garoon events.", "fetched", res.Fetched, "converted", len(res.Events), "skipped", len(res.Skipped))
	return res, nil
}

// SyncEvents is reserved for a full synchronization mode whose semantics
// (incremental or full, persistence, dedup against earlier runs) are not
// defined yet. It always returns ErrNotImplemented.
func (s *Syncer) SyncEvents(ctx context.Context) error {
	return ErrNotImplemented
}
