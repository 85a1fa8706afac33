package scan

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
)

// concurrent conversions per message
const currencyWorkers = 4

var currencyRegex = regexp.MustCompile(`-([\d ]+) ([A-Za-z]+)-`)

// RewriteCurrencies replaces every currency token with its converted value.
// Conversions run concurrently; results are spliced back in match order.
func (r *Rewriter) RewriteCurrencies(ctx context.Context, content string) string {
	matches := findMatches(currencyRegex, content)
	if len(matches) == 0 {
		return content
	}
	replacements := make([]string, len(matches))
	var eg errgroup.Group
	eg.SetLimit(currencyWorkers)
	for i, m := range matches {
		eg.Go(func() error {
			replacements[i] = r.convertCurrency(ctx, m)
			return nil
		})
	}
	_ = eg.Wait()
	return splice(content, matches, replacements)
}

func (r *Rewriter) convertCurrency(ctx context.Context, m match) string {
	value := strings.ReplaceAll(m.groups[1], " ", "")
	code := m.groups[2]
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Debug("scan: unparseable amount in currency token", slog.String("token", m.text), tint.Err(err))
		return m.text
	}
	s, err := r.Currency.ValueString(ctx, code, amount)
	if err != nil {
		slog.Debug("scan: error while converting currency", slog.String("currency.code", code), slog.Float64("amount", amount), tint.Err(err))
		return m.text
	}
	return s
}
