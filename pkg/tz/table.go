package tz

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/lmittmann/tint"
)

var errMalformedOffset = errors.New("malformed offset")

// Entry is a single timezone abbreviation with its offset from UTC.
type Entry struct {
	Abbr     string `json:"abbr"`
	Positive bool   `json:"positive"`
	Hour     int    `json:"hour"`
	Minute   int    `json:"minute"`
	Minutes  int    `json:"minutes"`
	Raw      string `json:"raw"`
}

// Table maps uppercase abbreviations to entries.
type Table map[string]Entry

func (t Table) Lookup(abbr string) (Entry, bool) {
	e, ok := t[strings.ToUpper(abbr)]
	return e, ok
}

func (t Table) Abbreviations() []string {
	abbrs := make([]string, 0, len(t))
	for abbr := range t {
		abbrs = append(abbrs, abbr)
	}
	slices.Sort(abbrs)
	return abbrs
}

// Load reads the table at path. A missing or unreadable file yields an empty table.
func Load(path string) Table {
	f, err := os.Open(path)
	if err != nil {
		slog.Error("tz: error while reading timezone table", slog.String("table.path", path), tint.Err(err))
		return Table{}
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads ABBR,description,offset lines. Lines that don't describe a single
// uppercase zone are skipped.
func Parse(r io.Reader) Table {
	table := Table{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		split := strings.Split(line, ",")
		if len(split) != 3 {
			continue
		}
		abbr := split[0]
		if abbr == "" || strings.ToUpper(abbr) != abbr {
			continue
		}
		raw := split[2]
		if strings.Contains(raw, "/") { // dual zone
			continue
		}
		entry, err := parseEntry(abbr, raw)
		if err != nil {
			slog.Warn("tz: error while parsing timezone entry", slog.String("line", line), tint.Err(err))
			continue
		}
		table[abbr] = entry
	}
	if err := scanner.Err(); err != nil {
		slog.Error("tz: error while scanning timezone table", tint.Err(err))
	}
	return table
}

// parseEntry reads offsets shaped like "UTC+05:30" or "UTC-03". Positions are
// counted in runes so typographic minus signs still line up.
func parseEntry(abbr string, raw string) (Entry, error) {
	r := []rune(raw)
	if len(r) < 6 {
		return Entry{}, errMalformedOffset
	}
	positive := r[3] == '+'
	hour, err := parseDigits(r[4:6])
	if err != nil {
		return Entry{}, err
	}
	minute := 0
	if strings.ContainsRune(raw, ':') {
		if len(r) < 9 {
			return Entry{}, errMalformedOffset
		}
		if minute, err = parseDigits(r[7:9]); err != nil {
			return Entry{}, err
		}
	}
	minutes := hour*60 + minute
	if !positive {
		minutes = -minutes
	}
	return Entry{
		Abbr:     abbr,
		Positive: positive,
		Hour:     hour,
		Minute:   minute,
		Minutes:  minutes,
		Raw:      raw,
	}, nil
}

func parseDigits(r []rune) (int, error) {
	n := 0
	for _, c := range r {
		if c < '0' || c > '9' {
			return 0, errMalformedOffset
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
