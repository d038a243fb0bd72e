package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

const dateLayout = "2006-01-02"

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// parseStart reads the --from value. RFC3339 timestamps and plain dates
// (midnight in loc) are taken as is; anything else goes through the
// natural-language parser relative to now, e.g. "tomorrow" or "next monday".
func parseStart(w *when.Parser, text string, now time.Time, loc *time.Location) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("empty start date")
	}
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(dateLayout, text, loc); err == nil {
		return t, nil
	}

	result, err := w.Parse(text, now.In(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("can't parse start date %q: %w", text, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("can't parse start date %q", text)
	}
	return result.Time, nil
}
