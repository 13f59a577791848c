package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateRegex     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	isoDateRegex  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	relativeRegex = regexp.MustCompile(`^(\d+)\s*(h|hour|hours|d|day|days|w|week|weeks)$`)
)

// ParseSince parses a lower bound for listing sessions.
// Supported formats:
// - dd/mm/yyyy or yyyy-mm-dd (start of that day)
// - X hours, X days, X weeks (that long before now; "3d", "2w" also work)
// - today, yesterday
func ParseSince(input string, now time.Time) (time.Time, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch input {
	case "today":
		return startOfToday, nil
	case "yesterday":
		return startOfToday.AddDate(0, 0, -1), nil
	}

	if t, err := parseDate(input, now.Location()); err == nil {
		return t, nil
	}
	if t, err := parseRelative(input, now); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date format. Use: dd/mm/yyyy, yyyy-mm-dd, X days, X hours, or X weeks")
}

func parseDate(input string, loc *time.Location) (time.Time, error) {
	var day, month, year int
	if m := dateRegex.FindStringSubmatch(input); m != nil {
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	} else if m := isoDateRegex.FindStringSubmatch(input); m != nil {
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
	} else {
		return time.Time{}, fmt.Errorf("invalid date format")
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// Check if date is valid (handles leap years, etc.)
	if t.Day() != day || t.Month() != time.Month(month) || t.Year() != year {
		return time.Time{}, fmt.Errorf("invalid date")
	}
	return t, nil
}

func parseRelative(input string, now time.Time) (time.Time, error) {
	m := relativeRegex.FindStringSubmatch(input)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid relative time format")
	}
	amount, err := strconv.Atoi(m[1])
	if err != nil || amount < 1 {
		return time.Time{}, fmt.Errorf("invalid number")
	}

	switch m[2] {
	case "h", "hour", "hours":
		return now.Add(-time.Duration(amount) * time.Hour), nil
	case "d", "day", "days":
		return now.AddDate(0, 0, -amount), nil
	default:
		return now.AddDate(0, 0, -7*amount), nil
	}
}

// FormatCreated renders a creation time relative to now for listings
func FormatCreated(t, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	t = t.In(now.Location())
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())

	switch daysAgo := int(today.Sub(day).Hours() / 24); {
	case daysAgo == 0:
		return "today " + t.Format("15:04")
	case daysAgo == 1:
		return "yesterday " + t.Format("15:04")
	case daysAgo > 1 && daysAgo < 7:
		return fmt.Sprintf("%d days ago", daysAgo)
	default:
		return t.Format("2006-01-02")
	}
}
