// Package dashboard reads the budget dashboard and the user's display currency
// on behalf of the signed-in user. Responses are cached in the shared query
// cache so that logout clears them along with the session.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/budget-tracker-client/internal/apiresponse"
	internalerrors "github.com/jrsteele09/budget-tracker-client/internal/errors"
	"github.com/jrsteele09/budget-tracker-client/querycache"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Dashboard endpoint paths relative to the API base URL
const (
	RouteOverview          = "/api/dashboard/overview"
	RouteTimeSeries        = "/api/dashboard/time-series"
	RouteCategoryBreakdown = "/api/dashboard/category-breakdown"
	RouteCurrency          = "/api/user/currency"
)

// Cache freshness per query
const (
	OverviewStaleTime  = 2 * time.Minute
	BreakdownStaleTime = 5 * time.Minute
	CurrencyStaleTime  = 5 * time.Minute

	DefaultMonths   = 6
	DefaultCurrency = "USD"
)

const maxBodyBytes = 1 << 20

// Cache keys
var (
	KeyDashboard         = querycache.Key{"dashboard"}
	KeyOverview          = querycache.Key{"dashboard", "overview"}
	KeyCategoryBreakdown = querycache.Key{"dashboard", "category-breakdown"}
	KeyCurrency          = querycache.Key{"user-currency"}
)

// currencyDependents are the queries whose amounts are rendered in the user's currency.
var currencyDependents = []querycache.Key{
	KeyCurrency,
	KeyDashboard,
	{"subscriptions"},
	{"income"},
	{"bills"},
}

// TimeSeriesKey is the cache key of the time series covering months.
func TimeSeriesKey(months int) querycache.Key {
	return querycache.Key{"dashboard", "time-series", strconv.Itoa(months)}
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *querycache.Cache
}

type ClientOption func(*clientOptions)

type clientOptions struct {
	base    http.RoundTripper
	timeout time.Duration
}

// WithBaseTransport sets the transport underneath the bearer token transport.
func WithBaseTransport(rt http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.base = rt
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// New returns a client that authenticates every request with the current
// token from source.
func New(baseURL string, source oauth2.TokenSource, cache *querycache.Cache, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	if source == nil {
		return nil, fmt.Errorf("token source is required")
	}
	var o clientOptions
	for _, opt := range options {
		opt(&o)
	}
	if cache == nil {
		cache = querycache.New()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: &oauth2.Transport{Source: source, Base: o.base},
			Timeout:   o.timeout,
		},
		cache: cache,
	}, nil
}

func (c *Client) Overview(ctx context.Context) (*Overview, error) {
	return querycache.Fetch(ctx, c.cache, KeyOverview, OverviewStaleTime, func(ctx context.Context) (*Overview, error) {
		var o Overview
		if err := c.get(ctx, RouteOverview, &o); err != nil {
			return nil, err
		}
		return &o, nil
	})
}

// TimeSeries returns monthly income and expenses for the last months months.
// A non-positive months asks for the default of six.
func (c *Client) TimeSeries(ctx context.Context, months int) (*TimeSeries, error) {
	if months <= 0 {
		months = DefaultMonths
	}
	route := RouteTimeSeries + "?months=" + strconv.Itoa(months)
	return querycache.Fetch(ctx, c.cache, TimeSeriesKey(months), BreakdownStaleTime, func(ctx context.Context) (*TimeSeries, error) {
		var ts TimeSeries
		if err := c.get(ctx, route, &ts); err != nil {
			return nil, err
		}
		return &ts, nil
	})
}

func (c *Client) CategoryBreakdown(ctx context.Context) (*CategoryBreakdown, error) {
	return querycache.Fetch(ctx, c.cache, KeyCategoryBreakdown, BreakdownStaleTime, func(ctx context.Context) (*CategoryBreakdown, error) {
		var cb CategoryBreakdown
		if err := c.get(ctx, RouteCategoryBreakdown, &cb); err != nil {
			return nil, err
		}
		return &cb, nil
	})
}

// Currency returns the user's display currency, USD when none is set.
func (c *Client) Currency(ctx context.Context) (string, error) {
	currency, err := querycache.Fetch(ctx, c.cache, KeyCurrency, CurrencyStaleTime, func(ctx context.Context) (string, error) {
		var body currencyBody
		if err := c.get(ctx, RouteCurrency, &body); err != nil {
			return "", err
		}
		return body.Currency, nil
	})
	if err != nil {
		return "", err
	}
	if currency == "" {
		return DefaultCurrency, nil
	}
	return currency, nil
}

// UpdateCurrency stores a new display currency and marks every query that shows
// amounts as stale.
func (c *Client) UpdateCurrency(ctx context.Context, currency string) error {
	payload, err := json.Marshal(currencyBody{Currency: currency})
	if err != nil {
		return errors.Wrap(err, "Client.UpdateCurrency marshal")
	}
	if _, err := c.do(ctx, http.MethodPut, RouteCurrency, payload); err != nil {
		return err
	}
	for _, key := range currencyDependents {
		c.cache.Invalidate(key)
	}
	log.Info().Str("currency", currency).Msg("display currency updated")
	return nil
}

func (c *Client) get(ctx context.Context, route string, v any) error {
	body, err := c.do(ctx, http.MethodGet, route, nil)
	if err != nil {
		return err
	}
	if err := apiresponse.Decode(body, v); err != nil {
		return errors.Wrapf(err, "Client GET %s decode", route)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, route string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, reqBody)
	if err != nil {
		return nil, errors.Wrapf(err, "Client %s %s", method, route)
	}
	requestID := apiresponse.StampRequest(req)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "Client %s %s", method, route)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "Client %s %s read body", method, route)
	}

	log.Debug().Str("request_id", requestID).Str("route", route).Int("status", resp.StatusCode).Msg("dashboard api response")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, internalerrors.Wrapf(internalerrors.ErrUnauthorized, "Client %s %s", method, route)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, internalerrors.Wrapf(internalerrors.ErrUnexpectedReply, "Client %s %s status %d", method, route, resp.StatusCode)
	}
	return body, nil
}
