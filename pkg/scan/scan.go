// Package scan finds delimited time and currency tokens in message text and
// rewrites them into normalized values.
package scan

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/Kirdow/BrianBot/pkg/tz"
)

// Converter turns an amount of a currency into a display string.
type Converter interface {
	ValueString(ctx context.Context, code string, amount float64) (string, error)
}

type Rewriter struct {
	Zones    tz.Table
	Currency Converter
	Now      func() time.Time
}

func New(zones tz.Table, currency Converter) *Rewriter {
	return &Rewriter{
		Zones:    zones,
		Currency: currency,
		Now:      time.Now,
	}
}

// Rewrite replaces time tokens, then currency tokens, in content. Tokens that
// can't be converted are left as they are. defaultZone is used for time tokens
// without a zone name.
func (r *Rewriter) Rewrite(ctx context.Context, content string, defaultZone string) string {
	content = r.RewriteTimes(content, defaultZone)
	if r.Currency == nil {
		return content
	}
	return r.RewriteCurrencies(ctx, content)
}

type match struct {
	start  int
	end    int
	text   string
	groups []string
}

// findMatches returns all non-overlapping matches with their positions.
// Groups that did not participate are empty.
func findMatches(re *regexp.Regexp, s string) []match {
	indices := re.FindAllStringSubmatchIndex(s, -1)
	matches := make([]match, 0, len(indices))
	for _, loc := range indices {
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		matches = append(matches, match{
			start:  loc[0],
			end:    loc[1],
			text:   groups[0],
			groups: groups,
		})
	}
	return matches
}

// splice rebuilds s with replacements[i] in place of matches[i].
func splice(s string, matches []match, replacements []string) string {
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for i, m := range matches {
		b.WriteString(s[last:m.start])
		b.WriteString(replacements[i])
		last = m.end
	}
	b.WriteString(s[last:])
	return b.String()
}
