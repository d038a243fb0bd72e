package export

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"garoonsync/internal/models"
)

const productID = "-//garoonsync//EN"

// uidNamespace scopes the name-based UUIDs generated for events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://garoonsync/event"))

// ICS exports events as an iCalendar file.
type ICS struct {
	// Now stamps DTSTAMP. Nil means time.Now.
	Now    func() time.Time
	Atomic bool
}

// Export writes events to path as a single VCALENDAR.
func (x ICS) Export(events []models.Event, path string) error {
	if err := writeFile(path, x.Atomic, func(w io.Writer) error {
		return x.Write(w, events)
	}); err != nil {
		return fmt.Errorf("export ics to %s: %w", path, err)
	}
	return nil
}

func (x ICS) Write(w io.Writer, events []models.Event) error {
	now := time.Now
	if x.Now != nil {
		now = x.Now
	}
	if err := ical.NewEncoder(w).Encode(NewCalendar(events, now().UTC())); err != nil {
		return fmt.Errorf("failed to encode events to iCal format: %w", err)
	}
	return nil
}

// NewCalendar builds a VCALENDAR holding one VEVENT per event.
func NewCalendar(events []models.Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	for _, event := range events {
		cal.Children = append(cal.Children, toICal(event, stamp))
	}
	return cal
}

// EventUID derives a stable UID from the title and the start instant, so
// exporting the same event twice gives the same UID.
func EventUID(event models.Event) string {
	name := string(event.Title) + "\x00" + event.Duration.Start.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String()
}

// toICal converts an internal Event model to an ical.Component (VEvent).
func toICal(event models.Event, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, EventUID(event))
	ve.Props.SetText(ical.PropSummary, string(event.Title))
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.Duration.Start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.Duration.End.UTC())

	// Garoon only exposes display names, so the address is the
	// conventional placeholder for a participant without email.
	for _, attendee := range event.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.Params.Set(ical.ParamCommonName, attendee.DisplayName)
		p.Value = "invalid:nomail"
		ve.Props.Add(p)
	}
	return ve
}
