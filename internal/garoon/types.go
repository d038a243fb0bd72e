package garoon

import (
	"encoding/json"
	"fmt"
)

// Config holds the connection settings for a Garoon instance.
type Config struct {
	BaseURL  string
	UserID   string
	Password string
}

// Event is a schedule event as returned by GET /api/v1/schedule/events.
// Only the fields this tool reads are declared.
type Event struct {
	Subject   string     `json:"subject"`
	Attendees []Attendee `json:"attendees"`
	Start     DateTime   `json:"start"`
	End       DateTime   `json:"end"`
}

type Attendee struct {
	Name string `json:"name"`
}

// DateTime carries an RFC3339 timestamp with its offset. TimeZone is the
// organizer's zone name and is informational only.
type DateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type eventsResponse struct {
	Events *[]Event `json:"events"`
}

func missingField(name string) error {
	return fmt.Errorf("required field %q is missing or null", name)
}

// UnmarshalJSON rejects events with a missing or null field.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		Subject   *string     `json:"subject"`
		Attendees *[]Attendee `json:"attendees"`
		Start     *DateTime   `json:"start"`
		End       *DateTime   `json:"end"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Subject == nil:
		return missingField("subject")
	case raw.Attendees == nil:
		return missingField("attendees")
	case raw.Start == nil:
		return missingField("start")
	case raw.End == nil:
		return missingField("end")
	}
	*e = Event{
		Subject:   *raw.Subject,
		Attendees: *raw.Attendees,
		Start:     *raw.Start,
		End:       *raw.End,
	}
	return nil
}

func (a *Attendee) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name *string `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Name == nil {
		return missingField("name")
	}
	a.Name = *raw.Name
	return nil
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	var raw struct {
		DateTime *string `json:"dateTime"`
		TimeZone *string `json:"timeZone"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.DateTime == nil:
		return missingField("dateTime")
	case raw.TimeZone == nil:
		return missingField("timeZone")
	}
	*d = DateTime{DateTime: *raw.DateTime, TimeZone: *raw.TimeZone}
	return nil
}
