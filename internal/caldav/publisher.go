package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"garoonsync/internal/export"
	"garoonsync/internal/models"
)

// Config selects the CalDAV server and the target collection.
// CalendarPath wins over CalendarName when both are set.
type Config struct {
	Endpoint     string
	Username     string
	Password     string
	CalendarName string
	CalendarPath string
}

// basicAuthTransport handles adding Basic Auth and custom headers to requests.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "garoonsync/1.0")
	return t.Transport.RoundTrip(req)
}

// Publisher writes events into a CalDAV collection, one resource per event.
type Publisher struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarPath string
	now          func() time.Time
}

// NewPublisher creates a Publisher and resolves the target collection.
// base is the underlying transport; nil means http.DefaultTransport.
func NewPublisher(ctx context.Context, logger *slog.Logger, cfg Config, base http.RoundTripper) (*Publisher, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("caldav endpoint is empty")
	}
	if cfg.CalendarName == "" && cfg.CalendarPath == "" {
		return nil, errors.New("caldav needs a calendar name or a calendar path")
	}
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: base,
	}}

	caldavClient, err := caldav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	p := &Publisher{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		calendarPath: cfg.CalendarPath,
		now:          time.Now,
	}

	if p.calendarPath == "" {
		logger.Info("Finding CalDAV calendar", "calendarName", cfg.CalendarName)
		p.calendarPath, err = p.findCalendar(ctx, cfg.CalendarName)
		if err != nil {
			return nil, fmt.Errorf("could not find calendar '%s': %w", cfg.CalendarName, err)
		}
	}
	logger.Info("Using CalDAV calendar", "path", p.calendarPath)

	return p, nil
}

// Publish PUTs every event into the calendar and stops at the first failure.
// Resources are named after export.EventUID, so publishing the same event
// again overwrites it.
func (p *Publisher) Publish(ctx context.Context, events []models.Event) (int, error) {
	stamp := p.now().UTC()
	for i, event := range events {
		if err := p.put(ctx, event, stamp); err != nil {
			return i, fmt.Errorf("failed to publish event %q: %w", event.Title, err)
		}
	}
	p.logger.Info("Published events to CalDAV", "count", len(events), "path", p.calendarPath)
	return len(events), nil
}

func (p *Publisher) put(ctx context.Context, event models.Event, stamp time.Time) error {
	uid := export.EventUID(event)
	eventPath := path.Join(p.calendarPath, uid+".ics")
	p.logger.Debug("Publishing event", "title", event.Title, "path", eventPath)

	writer, err := p.webdavClient.Create(ctx, eventPath)
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	if err := ical.NewEncoder(writer).Encode(export.NewCalendar([]models.Event{event}, stamp)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	// Close waits for the server's answer to the PUT.
	return writer.Close()
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (p *Publisher) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := p.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := p.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := p.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
