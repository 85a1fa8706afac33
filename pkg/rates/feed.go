package rates

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/disgoorg/json"
	"github.com/lmittmann/tint"
	"github.com/pkg/errors"
)

const (
	DefaultFeedURL = "https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@latest/v1/currencies/%s.json"

	feedTimeout = 10 * time.Second
	userAgent   = "BrianBot (https://github.com/Kirdow/BrianBot)"
)

// Feed fetches the raw rate table for a source currency: how many units of
// each currency one unit of the source buys.
type Feed interface {
	Fetch(ctx context.Context, endpoint string) (map[string]float64, error)
}

type HTTPFeed struct {
	client *http.Client
	url    string
}

// NewHTTPFeed creates a feed reading from urlFormat, which takes the endpoint as its only verb.
func NewHTTPFeed(client *http.Client, urlFormat string) *HTTPFeed {
	if urlFormat == "" {
		urlFormat = DefaultFeedURL
	}
	return &HTTPFeed{
		client: client,
		url:    urlFormat,
	}
}

func NewFeedClient() *http.Client {
	return &http.Client{
		Timeout:   feedTimeout,
		Transport: &feedTripper{tripper: http.DefaultTransport},
	}
}

type feedTripper struct {
	tripper http.RoundTripper
}

func (t *feedTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	return t.tripper.RoundTrip(req)
}

func (f *HTTPFeed) Fetch(ctx context.Context, endpoint string) (map[string]float64, error) {
	feedURL := fmt.Sprintf(f.url, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating feed request")
	}
	rs, err := f.client.Do(req)
	if err != nil {
		slog.Error("rates: error while running a feed request", slog.String("feed.url", feedURL), tint.Err(err))
		return nil, errors.Wrap(err, "running feed request")
	}
	defer rs.Body.Close()
	if rs.StatusCode != http.StatusOK {
		slog.Warn("rates: received an unexpected code from the feed", slog.Int("status.code", rs.StatusCode), slog.String("feed.url", feedURL))
		return nil, errors.Errorf("unexpected feed status %d", rs.StatusCode)
	}
	body, err := io.ReadAll(rs.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading feed response")
	}
	// {"date": "2024-03-06", "eur": {"usd": 1.09, ...}}
	var response map[string]json.RawMessage
	if err := json.Unmarshal(body, &response); err != nil {
		slog.Error("rates: error while unmarshalling a feed response", slog.String("feed.url", feedURL), tint.Err(err))
		return nil, errors.Wrap(err, "decoding feed response")
	}
	raw, ok := response[endpoint]
	if !ok {
		return nil, errors.Errorf("feed response has no %q table", endpoint)
	}
	var table map[string]float64
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, errors.Wrapf(err, "decoding %q table", endpoint)
	}
	return table, nil
}
