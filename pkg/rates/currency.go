package rates

import (
	"context"
	"errors"
	"strconv"
)

const (
	UnknownCurrency = "[Unknown Currency]"

	sourceSuffix = "€"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// ValueString converts amount of code into the default source currency and
// formats it: 8 decimals below 1€, 2 otherwise. Unknown currencies yield the
// UnknownCurrency marker along with ErrUnknownCurrency.
func (c *Cache) ValueString(ctx context.Context, code string, amount float64) (string, error) {
	rate, ok := c.Rate(ctx, code, DefaultSource)
	if !ok {
		return UnknownCurrency, ErrUnknownCurrency
	}
	return FormatValue(amount * rate), nil
}

func FormatValue(value float64) string {
	decimals := 2
	if value < 1.0 {
		decimals = 8
	}
	return strconv.FormatFloat(value, 'f', decimals, 64) + sourceSuffix
}
