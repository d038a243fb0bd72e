package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"garoonsync/internal/models"
)

// CSVHeader is the first line of every CSV export.
const CSVHeader = "Subject,Start Date,Start Time,End Date,End Time"

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Encoding is the character encoding of a CSV export.
type Encoding string

const (
	EncodingUTF8     Encoding = "utf-8"
	EncodingShiftJIS Encoding = "shift_jis"
)

// ParseEncoding accepts the common spellings of the supported encodings.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf-8", "utf8":
		return EncodingUTF8, nil
	case "shift_jis", "shift-jis", "sjis", "cp932":
		return EncodingShiftJIS, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q: want utf-8 or shift_jis", s)
	}
}

// CSV exports events as one row per event, with start and end split into
// date and time columns in Location.
//
// Subjects are written verbatim. A subject containing a comma, a quote or
// a newline produces a row that generic CSV readers will misparse.
type CSV struct {
	// Location is the zone dates and times are rendered in. Nil means time.Local.
	Location *time.Location
	// Encoding defaults to UTF-8.
	Encoding Encoding
	// Atomic writes to a temp file and renames it over the target.
	Atomic bool
}

// Export writes events to path, replacing any existing file.
func (c CSV) Export(events []models.Event, path string) error {
	if err := writeFile(path, c.Atomic, func(w io.Writer) error {
		return c.Write(w, events)
	}); err != nil {
		return fmt.Errorf("export csv to %s: %w", path, err)
	}
	return nil
}

// Write renders events as CSV to w, in input order.
func (c CSV) Write(w io.Writer, events []models.Event) error {
	switch c.Encoding {
	case "", EncodingUTF8:
		return c.write(w, events)
	case EncodingShiftJIS:
		tw := transform.NewWriter(w, japanese.ShiftJIS.NewEncoder())
		if err := c.write(tw, events); err != nil {
			tw.Close()
			return err
		}
		return tw.Close()
	default:
		return fmt.Errorf("unsupported encoding %q", c.Encoding)
	}
}

func (c CSV) write(w io.Writer, events []models.Event) error {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}

	if _, err := io.WriteString(w, CSVHeader+"\n"); err != nil {
		return err
	}
	for _, event := range events {
		start := event.Duration.Start.In(loc)
		end := event.Duration.End.In(loc)
		if _, err := fmt.Fprintf(w, "%s,%s,%s,%s,%s\n",
			event.Title,
			start.Format(dateLayout),
			start.Format(timeLayout),
			end.Format(dateLayout),
			end.Format(timeLayout),
		); err != nil {
			return err
		}
	}
	return nil
}
