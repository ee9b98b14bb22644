package main

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"sync"

	"github.com/jrsteele09/budget-tracker-client/auth"
	"github.com/jrsteele09/budget-tracker-client/authapi"
	"github.com/jrsteele09/budget-tracker-client/dashboard"
	"github.com/jrsteele09/budget-tracker-client/internal/config"
	"github.com/jrsteele09/budget-tracker-client/internal/metrics"
	"github.com/jrsteele09/budget-tracker-client/querycache"
	"github.com/jrsteele09/budget-tracker-client/sessions"
	"github.com/jrsteele09/budget-tracker-client/token/refresh"
	"github.com/jrsteele09/budget-tracker-client/users/filerepo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type app struct {
	lifecycle *auth.Lifecycle
	board     *dashboard.Client
	metrics   *metrics.Metrics
	signedIn  chan struct{}

	mu        sync.Mutex
	lastState auth.State
}

func newApp(c config.Config) (*app, error) {
	identities, err := filerepo.New(c.GetDataFolder())
	if err != nil {
		return nil, errors.Wrap(err, "newApp identity repo")
	}
	store := sessions.New(identities, sessions.WithDefaultLifetime(c.GetDefaultTokenLifetime()))

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "newApp cookiejar")
	}
	api, err := authapi.New(c.GetBaseURL(), authapi.WithHTTPClient(&http.Client{Jar: jar, Timeout: c.GetRequestTimeout()}))
	if err != nil {
		return nil, errors.Wrap(err, "newApp auth api")
	}

	m := metrics.New()
	coordinator := refresh.NewCoordinator(api, store.Ledger(), store,
		refresh.WithLimits(c.GetMaxRefreshAttempts(), c.GetMinRefreshInterval(), c.GetRefreshTimeout()),
		refresh.WithMetrics(m),
	)

	cache := querycache.New()
	lifecycle := auth.New(store, coordinator, api, cache,
		auth.WithNavigator(newCLINavigator(c.GetBaseURL())),
		auth.WithMetrics(m),
		auth.WithTimings(c.GetStatusStaleTime(), c.GetRenewalThreshold(), c.GetTickInterval()),
		auth.WithCallbackLifetime(c.GetCallbackTokenLifetime()),
	)

	board, err := dashboard.New(c.GetBaseURL(), store.TokenSource(), cache, dashboard.WithTimeout(c.GetRequestTimeout()))
	if err != nil {
		return nil, errors.Wrap(err, "newApp dashboard")
	}

	a := &app{
		lifecycle: lifecycle,
		board:     board,
		metrics:   m,
		signedIn:  make(chan struct{}, 1),
	}
	lifecycle.OnChange(a.onChange)
	return a, nil
}

// run drives the session until ctx is cancelled, printing the dashboard
// overview whenever the user becomes authenticated.
func (a *app) run(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-a.signedIn:
				a.printOverview(ctx)
			}
		}
	}()
	return a.lifecycle.Run(ctx)
}

func (a *app) onChange(snap auth.Snapshot) {
	a.mu.Lock()
	previous := a.lastState
	a.lastState = snap.State
	a.mu.Unlock()

	if previous == snap.State {
		return
	}
	log.Info().Str("state", snap.State.String()).Str("user", snap.Username).Msg("session changed")
	if snap.State != auth.StateAuthenticated {
		return
	}
	select {
	case a.signedIn <- struct{}{}:
	default:
	}
}

func (a *app) printOverview(ctx context.Context) {
	overview, err := a.board.Overview(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("loading dashboard overview failed")
		return
	}
	currency, err := a.board.Currency(ctx)
	if err != nil {
		currency = dashboard.DefaultCurrency
	}
	log.Info().
		Str("currency", currency).
		Float64("income", overview.TotalIncome).
		Float64("expenses", overview.TotalExpenses).
		Float64("available", overview.AvailableMoney).
		Float64("savings_rate", overview.SavingsRate).
		Int("subscriptions", overview.ActiveSubscriptions).
		Int("bills", overview.ActiveBills).
		Msg("dashboard overview")
}

// cliNavigator turns navigation to the login page into a prompt.
type cliNavigator struct {
	*auth.HistoryNavigator
	loginURL string
}

func newCLINavigator(baseURL string) *cliNavigator {
	return &cliNavigator{
		HistoryNavigator: auth.NewHistoryNavigator(auth.RootPath),
		loginURL:         baseURL + auth.LoginPath,
	}
}

func (n *cliNavigator) Navigate(path string) {
	n.HistoryNavigator.Navigate(path)
	if path == auth.LoginPath {
		log.Warn().Str("url", n.loginURL).Msg("login required, sign in and pass the callback url with --callback-url")
	}
}
