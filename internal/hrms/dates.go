package hrms

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const DateLayout = "2006-01-02"

var calendarDateLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"1/2/2006",
	"01/02/2006",
	"2006/01/02",
}

var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseCalendarDate reads the date part of value and drops any time of day.
// Spreadsheet cells may carry Excel serial numbers instead of text.
func ParseCalendarDate(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil {
		// Plain years and small counters are not dates.
		if serial >= 20000 && serial <= 80000 {
			if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return truncateToDate(parsed), true
			}
		}
		return time.Time{}, false
	}
	for _, layout := range calendarDateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return truncateToDate(parsed), true
		}
	}
	return time.Time{}, false
}

func ParseInstant(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range instantLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate returns value as YYYY-MM-DD, or value unchanged when it does
// not parse.
func NormalizeDate(value string) string {
	parsed, ok := ParseCalendarDate(value)
	if !ok {
		return strings.TrimSpace(value)
	}
	return parsed.Format(DateLayout)
}

func FormatRecordDate(value string) string {
	parsed, ok := ParseCalendarDate(value)
	if !ok {
		return strings.TrimSpace(value)
	}
	return parsed.Format("Mon, Jan 2, 2006")
}

func FormatLoggedAt(value string) string {
	parsed, ok := ParseInstant(value)
	if !ok {
		return strings.TrimSpace(value)
	}
	return parsed.Local().Format("03:04 PM")
}

func FormatLongDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}

func Today(now time.Time) string {
	return now.Format(DateLayout)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
