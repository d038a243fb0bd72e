package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned when a range would end before it starts.
var ErrInvalidRange = errors.New("range ends before it starts")

// TimeRange is a span between two instants, stored in UTC.
// The zero value is the empty range at the zero instant.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange builds a TimeRange. It fails when start is after end;
// equal instants give a valid empty range.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.After(end) {
		return TimeRange{}, fmt.Errorf("%w: start %s, end %s",
			ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeRange{Start: start.UTC(), End: end.UTC()}, nil
}

// Contains reports whether other lies entirely within r.
func (r TimeRange) Contains(other TimeRange) bool {
	return !r.Start.After(other.Start) && !r.End.Before(other.End)
}

// Overlaps reports whether r and other share any instant.
// Ranges that only touch at an endpoint do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && r.End.After(other.Start)
}

func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

func (r TimeRange) String() string {
	return r.Start.Format(time.RFC3339) + "/" + r.End.Format(time.RFC3339)
}
