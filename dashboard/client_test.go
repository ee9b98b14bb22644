package dashboard_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/budget-tracker-client/dashboard"
	"github.com/jrsteele09/budget-tracker-client/internal/apiresponse"
	"github.com/jrsteele09/budget-tracker-client/internal/errors"
	"github.com/jrsteele09/budget-tracker-client/internal/testclock"
	"github.com/jrsteele09/budget-tracker-client/querycache"
	"github.com/jrsteele09/budget-tracker-client/sessions"
	fakeidentityrepo "github.com/jrsteele09/budget-tracker-client/users/repofake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	client *dashboard.Client
	store  *sessions.Store
	cache  *querycache.Cache
	clock  *testclock.Clock
	hits   map[string]*atomic.Int32
}

func setup(t *testing.T, routes map[string]http.HandlerFunc) *fixture {
	t.Helper()

	f := &fixture{
		clock: testclock.New(time.Unix(1_700_000_000, 0)),
		hits:  map[string]*atomic.Int32{},
	}
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		counter := &atomic.Int32{}
		f.hits[pattern] = counter
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			counter.Add(1)
			assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
			assert.NotEmpty(t, r.Header.Get(apiresponse.RequestIDHeader))
			handler(w, r)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f.store = sessions.New(fakeidentityrepo.NewFakeIdentityRepo(), sessions.WithNowFunc(f.clock.Now))
	f.store.SetToken("abc", time.Hour)
	f.cache = querycache.New(querycache.WithNowFunc(f.clock.Now))

	client, err := dashboard.New(srv.URL+"/", f.store.TokenSource(), f.cache)
	require.NoError(t, err)
	f.client = client
	return f
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Overview(t *testing.T) {
	f := setup(t, map[string]http.HandlerFunc{
		"GET " + dashboard.RouteOverview: func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]any{
				"success": true,
				"data": map[string]any{
					"totalIncome":         5000.0,
					"totalExpenses":       3200.5,
					"availableMoney":      1799.5,
					"savingsRate":         35.99,
					"activeSubscriptions": 4,
					"activeBills":         2,
				},
			})
		},
	})

	o, err := f.client.Overview(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5000.0, o.TotalIncome)
	require.Equal(t, 1799.5, o.AvailableMoney)
	require.Equal(t, 4, o.ActiveSubscriptions)

	t.Run("cached within stale time", func(t *testing.T) {
		f.clock.Advance(time.Minute)
		_, err := f.client.Overview(context.Background())
		require.NoError(t, err)
		require.EqualValues(t, 1, f.hits["GET "+dashboard.RouteOverview].Load())
	})

	t.Run("refetched after stale time", func(t *testing.T) {
		f.clock.Advance(2 * time.Minute)
		_, err := f.client.Overview(context.Background())
		require.NoError(t, err)
		require.EqualValues(t, 2, f.hits["GET "+dashboard.RouteOverview].Load())
	})
}

func TestClient_TimeSeries(t *testing.T) {
	var months []string
	f := setup(t, map[string]http.HandlerFunc{
		"GET " + dashboard.RouteTimeSeries: func(w http.ResponseWriter, r *http.Request) {
			months = append(months, r.URL.Query().Get("months"))
			writeJSON(w, dashboard.TimeSeries{DataPoints: []dashboard.DataPoint{
				{Date: "2024-01-01", Income: 100, Expenses: 40, Net: 60},
			}})
		},
	})

	ts, err := f.client.TimeSeries(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, ts.DataPoints, 1)
	require.Equal(t, 60.0, ts.DataPoints[0].Net)

	_, err = f.client.TimeSeries(context.Background(), 12)
	require.NoError(t, err)
	_, err = f.client.TimeSeries(context.Background(), 6)
	require.NoError(t, err)

	require.Equal(t, []string{"6", "12"}, months)
}

func TestClient_CategoryBreakdown(t *testing.T) {
	f := setup(t, map[string]http.HandlerFunc{
		"GET " + dashboard.RouteCategoryBreakdown: func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, dashboard.CategoryBreakdown{
				Expenses:      []dashboard.CategoryExpense{{CategoryName: "Streaming", Amount: 30, Percentage: 100, ItemCount: 2}},
				TotalExpenses: 30,
			})
		},
	})

	cb, err := f.client.CategoryBreakdown(context.Background())
	require.NoError(t, err)
	require.Equal(t, 30.0, cb.TotalExpenses)
	require.Equal(t, "Streaming", cb.Expenses[0].CategoryName)
}

func TestClient_Currency(t *testing.T) {
	currency := ""
	var updates []string
	f := setup(t, map[string]http.HandlerFunc{
		"GET " + dashboard.RouteCurrency: func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]string{"currency": currency})
		},
		"PUT " + dashboard.RouteCurrency: func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var req map[string]string
			assert.NoError(t, json.Unmarshal(body, &req))
			updates = append(updates, req["currency"])
			currency = req["currency"]
			writeJSON(w, map[string]string{"currency": currency})
		},
		"GET " + dashboard.RouteOverview: func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, dashboard.Overview{TotalIncome: 1})
		},
	})

	got, err := f.client.Currency(context.Background())
	require.NoError(t, err)
	require.Equal(t, dashboard.DefaultCurrency, got)

	_, err = f.client.Overview(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.client.UpdateCurrency(context.Background(), "EUR"))
	require.Equal(t, []string{"EUR"}, updates)
	require.True(t, f.cache.Status(dashboard.KeyOverview).Stale)

	got, err = f.client.Currency(context.Background())
	require.NoError(t, err)
	require.Equal(t, "EUR", got)
	require.EqualValues(t, 2, f.hits["GET "+dashboard.RouteCurrency].Load())

	_, err = f.client.Overview(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, f.hits["GET "+dashboard.RouteOverview].Load())
}

func TestClient_Errors(t *testing.T) {
	t.Run("401 is unauthorized", func(t *testing.T) {
		f := setup(t, map[string]http.HandlerFunc{
			"GET " + dashboard.RouteOverview: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		})

		_, err := f.client.Overview(context.Background())
		require.ErrorIs(t, err, errors.ErrUnauthorized)
	})

	t.Run("server error", func(t *testing.T) {
		f := setup(t, map[string]http.HandlerFunc{
			"GET " + dashboard.RouteOverview: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		})

		_, err := f.client.Overview(context.Background())
		require.ErrorIs(t, err, errors.ErrUnexpectedReply)
	})

	t.Run("failed envelope", func(t *testing.T) {
		f := setup(t, map[string]http.HandlerFunc{
			"GET " + dashboard.RouteOverview: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, map[string]any{"success": false, "error": map[string]string{"code": "E1", "message": "boom"}})
			},
		})

		_, err := f.client.Overview(context.Background())
		require.ErrorContains(t, err, "boom")
	})

	t.Run("no token never reaches the server", func(t *testing.T) {
		f := setup(t, map[string]http.HandlerFunc{
			"GET " + dashboard.RouteOverview: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, dashboard.Overview{})
			},
		})
		f.store.RemoveToken()

		_, err := f.client.Overview(context.Background())
		require.ErrorIs(t, err, errors.ErrNoValidToken)
		require.Zero(t, f.hits["GET "+dashboard.RouteOverview].Load())
	})
}

func TestNew_Validation(t *testing.T) {
	store := sessions.New(fakeidentityrepo.NewFakeIdentityRepo())

	_, err := dashboard.New("", store.TokenSource(), nil)
	require.Error(t, err)

	_, err = dashboard.New("http://localhost", nil, nil)
	require.Error(t, err)
}
