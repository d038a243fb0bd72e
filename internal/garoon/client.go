package garoon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"garoonsync/internal/models"
)

const (
	eventsPath = "/api/v1/schedule/events"

	// maxErrorBody caps how much of a failed response ends up in a StatusError.
	maxErrorBody = 4 << 10
)

// Client fetches schedule events from the Garoon REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a new Garoon client.
// httpClient supplies the transport and any timeout; nil means a default
// client. The client is copied, so the caller's value is left untouched.
func NewClient(logger *slog.Logger, cfg Config, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid garoon base URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid garoon base URL %q: want http(s)://host", cfg.BaseURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{}
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := *httpClient
	hc.Transport = &authTransport{
		authorization: Authorization(cfg.UserID, cfg.Password),
		Transport:     base,
	}

	return &Client{
		httpClient: &hc,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:     logger,
	}, nil
}

// GetEvents fetches the events whose schedule intersects r.
// The whole result is returned by a single request; there is no retry.
func (c *Client) GetEvents(ctx context.Context, r models.TimeRange) ([]Event, error) {
	c.logger.Debug("Fetching Garoon events", "rangeStart", rangeParam(r.Start), "rangeEnd", rangeParam(r.End))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.eventsURL(r), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build events request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call garoon events API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var body eventsResponse
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponseFormat, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after the response object", ErrResponseFormat)
	}
	if body.Events == nil {
		return nil, fmt.Errorf("%w: missing events array", ErrResponseFormat)
	}

	c.logger.Info("Successfully fetched events from Garoon", "count", len(*body.Events), "status", resp.StatusCode)
	return *body.Events, nil
}

func (c *Client) eventsURL(r models.TimeRange) string {
	q := url.Values{}
	q.Set("rangeStart", rangeParam(r.Start))
	q.Set("rangeEnd", rangeParam(r.End))
	return c.baseURL + eventsPath + "?" + q.Encode()
}

// rangeParam renders t as RFC3339 in UTC with whole seconds and a Z suffix.
func rangeParam(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}
