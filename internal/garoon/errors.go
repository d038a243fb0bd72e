package garoon

import (
	"errors"
	"fmt"
)

// ErrResponseFormat is returned when a successful response does not carry
// the expected {"events": [...]} document.
var ErrResponseFormat = errors.New("garoon: unexpected response format")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("garoon API error %d: %s", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("garoon API error %d: %s: %s", e.StatusCode, e.Status, e.Body)
}
