package scan

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DefaultZone = "UTC"

var (
	// -hh[:mm][ am|pm][ ZONE][±h[:mm]]-
	timeRegex   = regexp.MustCompile(`-(\d\d?):?(\d\d)? ?([AaPp][Mm])? ?([A-Za-z]+)?([+\-]\d\d?:?(\d\d)?)?-`)
	offsetRegex = regexp.MustCompile(`^([+\-])(\d\d?)(:\d\d)?$`)
)

const (
	groupHour = iota + 1
	groupMinute
	groupMeridiem
	groupZone
	groupOffset
)

// RewriteTimes replaces every time token with a Discord timestamp.
func (r *Rewriter) RewriteTimes(content string, defaultZone string) string {
	matches := findMatches(timeRegex, content)
	if len(matches) == 0 {
		return content
	}
	if defaultZone == "" {
		defaultZone = DefaultZone
	}
	replacements := make([]string, len(matches))
	for i, m := range matches {
		t, ok := r.resolveTime(m.groups, defaultZone)
		if !ok {
			replacements[i] = m.text
			continue
		}
		replacements[i] = Timestamp(t)
	}
	return splice(content, matches, replacements)
}

func (r *Rewriter) resolveTime(groups []string, defaultZone string) (time.Time, bool) {
	hourStr := groups[groupHour]
	minuteStr := groups[groupMinute]
	if minuteStr == "" {
		minuteStr = "00"
	}
	meridiem := strings.ToUpper(groups[groupMeridiem])
	zone := strings.ToUpper(groups[groupZone])
	if zone == "" {
		zone = strings.ToUpper(defaultZone)
	}

	// 12am is midnight and 12pm is noon
	if meridiem != "" && hourStr == "12" {
		hourStr = "00"
	}
	hour, _ := strconv.Atoi(hourStr)
	minute, _ := strconv.Atoi(minuteStr)
	if meridiem == "PM" {
		hour += 12
	}

	entry, ok := r.Zones.Lookup(zone)
	if !ok {
		slog.Debug("scan: unknown zone in time token", slog.String("zone", zone))
		return time.Time{}, false
	}

	now := r.Now().UTC()
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	t = t.Add(-time.Duration(entry.Minutes) * time.Minute)
	if extra, ok := parseOffset(groups[groupOffset]); ok {
		t = t.Add(-time.Duration(extra) * time.Minute)
	}
	return t, true
}

// parseOffset reads a trailing "+h", "-hh" or "+h:mm" correction in minutes.
func parseOffset(s string) (int, bool) {
	m := offsetRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	hour, _ := strconv.Atoi(m[2])
	minute := 0
	if m[3] != "" {
		minute, _ = strconv.Atoi(m[3][1:])
	}
	minutes := hour*60 + minute
	if m[1] == "-" {
		minutes = -minutes
	}
	return minutes, true
}

// Timestamp formats t as Discord timestamp markup, rendered in the reader's
// locale as a short date and time.
func Timestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:f>", t.Unix())
}
