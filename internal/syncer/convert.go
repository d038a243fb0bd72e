package syncer

import (
	"fmt"
	"time"

	"garoonsync/internal/garoon"
	"garoonsync/internal/models"
)

// TimestampError is returned when an event carries a dateTime that is not
// valid RFC3339.
type TimestampError struct {
	Subject string
	Field   string // "start" or "end"
	Value   string
	Err     error
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("event %q: invalid %s dateTime %q: %v", e.Subject, e.Field, e.Value, e.Err)
}

func (e *TimestampError) Unwrap() error {
	return e.Err
}

// ToEvent converts a Garoon event to the internal Event model.
// Subject and attendee names are kept verbatim; both instants are parsed
// with their offsets and stored in UTC.
func ToEvent(raw garoon.Event) (models.Event, error) {
	start, err := parseDateTime(raw, "start", raw.Start.DateTime)
	if err != nil {
		return models.Event{}, err
	}
	end, err := parseDateTime(raw, "end", raw.End.DateTime)
	if err != nil {
		return models.Event{}, err
	}

	duration, err := models.NewTimeRange(start, end)
	if err != nil {
		return models.Event{}, fmt.Errorf("event %q: %w", raw.Subject, err)
	}

	attendees := make([]models.Attendee, 0, len(raw.Attendees))
	for _, a := range raw.Attendees {
		attendees = append(attendees, models.Attendee{DisplayName: a.Name})
	}

	return models.NewEvent(models.Title(raw.Subject), duration, attendees), nil
}

func parseDateTime(raw garoon.Event, field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, &TimestampError{Subject: raw.Subject, Field: field, Value: value, Err: err}
	}
	return t.UTC(), nil
}
