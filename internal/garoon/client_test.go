package garoon_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"

	"garoonsync/internal/garoon"
	"garoonsync/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRange(t *testing.T) models.TimeRange {
	t.Helper()
	r, err := models.NewTimeRange(
		time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func newClient(t *testing.T, baseURL, user, password string) *garoon.Client {
	t.Helper()
	client, err := garoon.NewClient(discardLogger(), garoon.Config{
		BaseURL:  baseURL,
		UserID:   user,
		Password: password,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	return client
}

func TestAuthorization(t *testing.T) {
	if got := garoon.Authorization("user", "password"); got != "dXNlcjpwYXNzd29yZA==" {
		t.Errorf("unexpected authorization: %s", got)
	}
}

func TestGetEvents(t *testing.T) {
	const body = `{
		"events": [
			{
				"id": "1",
				"subject": "会議",
				"attendees": [{"id": "7", "name": "山田太郎"}],
				"start": {"dateTime": "2024-05-10T09:00:00+09:00", "timeZone": "Asia/Tokyo"},
				"end": {"dateTime": "2024-05-10T17:00:00+09:00", "timeZone": "Asia/Tokyo"}
			},
			{
				"subject": "打ち合わせ",
				"attendees": [],
				"start": {"dateTime": "2024-05-10T18:00:00+09:00", "timeZone": "Asia/Tokyo"},
				"end": {"dateTime": "2024-05-10T19:00:00+09:00", "timeZone": "Asia/Tokyo"}
			}
		]
	}`

	var gotQuery url.Values
	var gotHeader http.Header
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotHeader = r.Header.Clone()
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	defer ts.Close()

	client := newClient(t, ts.URL+"/", "user", "password")
	events, err := client.GetEvents(context.Background(), testRange(t))
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}

	t.Run("Request", func(t *testing.T) {
		if gotPath != "/api/v1/schedule/events" {
			t.Errorf("unexpected path: %s", gotPath)
		}
		if got := gotQuery.Get("rangeStart"); got != "2024-05-10T00:00:00Z" {
			t.Errorf("unexpected rangeStart: %s", got)
		}
		if got := gotQuery.Get("rangeEnd"); got != "2024-05-11T00:00:00Z" {
			t.Errorf("unexpected rangeEnd: %s", got)
		}
		if got := gotHeader.Get("X-Cybozu-Authorization"); got != "dXNlcjpwYXNzd29yZA==" {
			t.Errorf("unexpected auth header: %s", got)
		}
		if got := gotHeader.Get("Accept"); got != "application/json; charset=UTF-8" {
			t.Errorf("unexpected accept header: %s", got)
		}
		if gotHeader.Get("Authorization") != "" {
			t.Errorf("standard Authorization header must not be sent")
		}
	})

	t.Run("Response", func(t *testing.T) {
		want := []garoon.Event{
			{
				Subject:   "会議",
				Attendees: []garoon.Attendee{{Name: "山田太郎"}},
				Start:     garoon.DateTime{DateTime: "2024-05-10T09:00:00+09:00", TimeZone: "Asia/Tokyo"},
				End:       garoon.DateTime{DateTime: "2024-05-10T17:00:00+09:00", TimeZone: "Asia/Tokyo"},
			},
			{
				Subject:   "打ち合わせ",
				Attendees: []garoon.Attendee{},
				Start:     garoon.DateTime{DateTime: "2024-05-10T18:00:00+09:00", TimeZone: "Asia/Tokyo"},
				End:       garoon.DateTime{DateTime: "2024-05-10T19:00:00+09:00", TimeZone: "Asia/Tokyo"},
			},
		}
		if !reflect.DeepEqual(events, want) {
			t.Errorf("unexpected events:\n got %+v\nwant %+v", events, want)
		}
	})
}

func TestGetEventsTruncatesFractionalSeconds(t *testing.T) {
	var gotQuery url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte("{\"events\": []}\n"))
	}))
	defer ts.Close()

	jst := time.FixedZone("JST", 9*60*60)
	r, err := models.NewTimeRange(
		time.Date(2024, 5, 10, 9, 0, 0, 999_000_000, jst),
		time.Date(2024, 5, 17, 9, 0, 0, 1, jst),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, err := newClient(t, ts.URL, "user", "password").GetEvents(context.Background(), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
	if got := gotQuery.Get("rangeStart"); got != "2024-05-10T00:00:00Z" {
		t.Errorf("unexpected rangeStart: %s", got)
	}
	if got := gotQuery.Get("rangeEnd"); got != "2024-05-17T00:00:00Z" {
		t.Errorf("unexpected rangeEnd: %s", got)
	}
}

const (
	jstStart = `{"dateTime":"2024-05-10T09:00:00+09:00","timeZone":"Asia/Tokyo"}`
	jstEnd   = `{"dateTime":"2024-05-10T10:00:00+09:00","timeZone":"Asia/Tokyo"}`
)

func TestGetEventsErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/unauthorized/api/v1/schedule/events", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errorCode":"CB_AU01"}`))
	})
	mux.HandleFunc("/broken/api/v1/schedule/events", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events": "nope"}`))
	})
	mux.HandleFunc("/html/api/v1/schedule/events", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html></html>`))
	})
	mux.HandleFunc("/empty/api/v1/schedule/events", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	malformed := map[string]string{
		"no-subject":       `{"events":[{"attendees":[],"start":` + jstStart + `,"end":` + jstEnd + `}]}`,
		"null-subject":     `{"events":[{"subject":null,"attendees":[],"start":` + jstStart + `,"end":` + jstEnd + `}]}`,
		"null-attendees":   `{"events":[{"subject":"会議","attendees":null,"start":` + jstStart + `,"end":` + jstEnd + `}]}`,
		"no-attendee-name": `{"events":[{"subject":"会議","attendees":[{"id":"7"}],"start":` + jstStart + `,"end":` + jstEnd + `}]}`,
		"no-end":           `{"events":[{"subject":"会議","attendees":[],"start":` + jstStart + `}]}`,
		"no-timezone":      `{"events":[{"subject":"会議","attendees":[],"start":{"dateTime":"2024-05-10T09:00:00+09:00"},"end":` + jstEnd + `}]}`,
		"null-datetime":    `{"events":[{"subject":"会議","attendees":[],"start":{"dateTime":null,"timeZone":"Asia/Tokyo"},"end":` + jstEnd + `}]}`,
		"trailing":         `{"events":[]} trailing`,
		"two-objects":      `{"events":[]}{"events":[]}`,
	}
	for name, body := range malformed {
		mux.HandleFunc("/"+name+"/api/v1/schedule/events", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
	}
	ts := httptest.NewServer(mux)
	defer ts.Close()

	ctx := context.Background()

	t.Run("Unauthorized", func(t *testing.T) {
		_, err := newClient(t, ts.URL+"/unauthorized", "wrong_user", "wrong_password").GetEvents(ctx, testRange(t))
		var se *garoon.StatusError
		if !errors.As(err, &se) {
			t.Fatalf("expected StatusError, got %v", err)
		}
		if se.StatusCode != http.StatusUnauthorized {
			t.Errorf("unexpected status: %d", se.StatusCode)
		}
		if !garoon.IsUnauthorized(err) {
			t.Errorf("expected IsUnauthorized to be true")
		}
	})

	for _, name := range []string{"broken", "html", "empty", "no-subject", "null-subject", "null-attendees",
		"no-attendee-name", "no-end", "no-timezone", "null-datetime", "trailing", "two-objects"} {
		t.Run("Format "+name, func(t *testing.T) {
			_, err := newClient(t, ts.URL+"/"+name, "user", "password").GetEvents(ctx, testRange(t))
			if !errors.Is(err, garoon.ErrResponseFormat) {
				t.Fatalf("expected ErrResponseFormat, got %v", err)
			}
		})
	}

	t.Run("Server Down", func(t *testing.T) {
		_, err := newClient(t, "http://127.0.0.1:1", "user", "password").GetEvents(ctx, testRange(t))
		var ue *url.Error
		if !errors.As(err, &ue) {
			t.Fatalf("expected transport error, got %v", err)
		}
	})
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "example.com", "ftp://example.com", "http://"} {
		_, err := garoon.NewClient(discardLogger(), garoon.Config{BaseURL: raw}, nil)
		if err == nil {
			t.Errorf("expected error for base URL %q", raw)
		}
	}
}

func TestNewClientKeepsCallerTransport(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	if _, err := garoon.NewClient(discardLogger(), garoon.Config{BaseURL: "https://example.cybozu.com/g"}, hc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hc.Transport != nil {
		t.Errorf("caller's http.Client was modified")
	}
}
