package models

// Title is an event subject exactly as the source sent it.
type Title string

func (t Title) String() string {
	return string(t)
}

// Attendee is a participant, identified only by display name.
type Attendee struct {
	DisplayName string
}

// Event represents a standard calendar event.
// This is an internal representation, independent of the remote provider;
// only the subject, the attendee names and the UTC instants survive conversion.
type Event struct {
	Title     Title
	Duration  TimeRange
	Attendees []Attendee
}

// NewEvent builds an Event. The attendee slice is copied so the caller
// cannot change the event afterwards.
func NewEvent(title Title, duration TimeRange, attendees []Attendee) Event {
	copied := make([]Attendee, len(attendees))
	copy(copied, attendees)
	return Event{
		Title:     title,
		Duration:  duration,
		Attendees: copied,
	}
}
