package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"garoonsync/internal/models"
)

const consoleLayout = "2006-01-02 15:04"

// Print writes events to w as an aligned table, times in loc (nil means
// time.Local).
func Print(w io.Writer, events []models.Event, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "SUBJECT\tSTART\tEND\tATTENDEES"); err != nil {
		return err
	}
	for _, event := range events {
		names := make([]string, 0, len(event.Attendees))
		for _, a := range event.Attendees {
			names = append(names, a.DisplayName)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			event.Title,
			event.Duration.Start.In(loc).Format(consoleLayout),
			event.Duration.End.In(loc).Format(consoleLayout),
			strings.Join(names, ", "),
		); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(tw, "\n%d event(s)\n", len(events)); err != nil {
		return err
	}
	return tw.Flush()
}
