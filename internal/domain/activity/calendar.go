package activity

import (
	"sort"
	"strings"
	"time"
)

// Day truncates t to its calendar date in loc. The result is anchored in UTC
// so that day arithmetic never crosses a DST transition.
func Day(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from from to to. It is negative when from
// is later than to.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	return int(Day(to, loc).Sub(Day(from, loc)).Hours() / 24)
}

// WeekStart returns the Monday of the calendar week containing t.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	day := Day(t, loc)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// Streak counts consecutive calendar days with at least one entry, ending
// today or yesterday. Entries from the future are ignored.
func Streak(times []time.Time, now time.Time, loc *time.Location) int {
	today := Day(now, loc)

	seen := make(map[time.Time]struct{}, len(times))
	days := make([]time.Time, 0, len(times))
	for _, t := range times {
		if t.IsZero() {
			continue
		}
		d := Day(t, loc)
		if d.After(today) {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}

	if len(days) == 0 {
		return 0
	}

	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	current := days[0]
	if !current.Equal(today) && !current.Equal(today.AddDate(0, 0, -1)) {
		return 0
	}

	streak := 1
	for _, d := range days[1:] {
		if !d.Equal(current.AddDate(0, 0, -1)) {
			break
		}
		streak++
		current = d
	}
	return streak
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z07",
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTimestamp accepts the formats older clients wrote: full ISO-8601
// timestamps with or without a zone, and bare dates. Values without a zone
// are read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
