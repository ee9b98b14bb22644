package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/budget-tracker-client/authapi"
	"github.com/jrsteele09/budget-tracker-client/internal/errors"
	"github.com/jrsteele09/budget-tracker-client/internal/metrics"
	"github.com/jrsteele09/budget-tracker-client/querycache"
	"github.com/jrsteele09/budget-tracker-client/token/refresh"
	"github.com/jrsteele09/budget-tracker-client/users"
	"github.com/rs/zerolog/log"
)

// StatusKey is the query cache key of the remote auth status.
var StatusKey = querycache.Key{"auth-status"}

// Default lifecycle timings
const (
	DefaultStatusStaleTime  = 30 * time.Second
	DefaultRenewalThreshold = 10 * time.Minute
	DefaultTickInterval     = 15 * time.Second
	DefaultCallbackLifetime = 30 * time.Minute
	statusAttempts          = 2
)

// SessionStore is the part of sessions.Store the lifecycle drives.
type SessionStore interface {
	Token() string
	HasToken() bool
	IsExpired() bool
	IsExpiringSoon(threshold time.Duration) bool
	HasValidToken() bool
	SetToken(token string, expiresIn time.Duration)
	UserIdentity() *users.Identity
	SetUserIdentity(identity *users.Identity)
	Clear()
}

// TokenRefresher obtains new access tokens and ends sessions.
type TokenRefresher interface {
	Refresh(ctx context.Context) (*refresh.Result, error)
	Logout(ctx context.Context)
}

// StatusChecker asks the server whether a token is still accepted.
type StatusChecker interface {
	Status(ctx context.Context, token string) (*authapi.StatusResponse, error)
}

// Lifecycle keeps the local session consistent with the server: restoring it on
// mount, reconciling it with the remote status, renewing it before expiry and
// tearing it down on logout.
type Lifecycle struct {
	mu           sync.Mutex
	localUser    *users.Identity
	initializing bool
	mounted      bool
	closed       bool
	listeners    []func(Snapshot)

	// sessionMu orders token installs against logouts. epoch counts logouts so a
	// refresh started before one cannot install its result after it.
	sessionMu sync.Mutex
	epoch     uint64

	store     SessionStore
	refresher TokenRefresher
	status    StatusChecker
	cache     *querycache.Cache
	navigator Navigator
	metrics   *metrics.Metrics

	statusStaleTime  time.Duration
	renewalThreshold time.Duration
	tickInterval     time.Duration
	callbackLifetime time.Duration
}

type Option func(*Lifecycle)

// WithNavigator sets where the lifecycle sends the user. Defaults to an in-memory HistoryNavigator.
func WithNavigator(navigator Navigator) Option {
	return func(l *Lifecycle) {
		l.navigator = navigator
	}
}

// WithMetrics records status checks and logouts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Lifecycle) {
		l.metrics = m
	}
}

// WithTimings overrides the status stale time, the renewal threshold and the
// tick interval. Non-positive values keep the defaults.
func WithTimings(statusStaleTime, renewalThreshold, tickInterval time.Duration) Option {
	return func(l *Lifecycle) {
		if statusStaleTime > 0 {
			l.statusStaleTime = statusStaleTime
		}
		if renewalThreshold > 0 {
			l.renewalThreshold = renewalThreshold
		}
		if tickInterval > 0 {
			l.tickInterval = tickInterval
		}
	}
}

// WithCallbackLifetime sets the expiry given to tokens delivered by the oauth callback.
func WithCallbackLifetime(lifetime time.Duration) Option {
	return func(l *Lifecycle) {
		if lifetime > 0 {
			l.callbackLifetime = lifetime
		}
	}
}

// New creates a lifecycle over the session store. The remembered identity is
// read once here; call Run (or Mount and Tick) to drive it.
func New(store SessionStore, refresher TokenRefresher, status StatusChecker, cache *querycache.Cache, options ...Option) *Lifecycle {
	l := &Lifecycle{
		store:            store,
		refresher:        refresher,
		status:           status,
		cache:            cache,
		initializing:     true,
		statusStaleTime:  DefaultStatusStaleTime,
		renewalThreshold: DefaultRenewalThreshold,
		tickInterval:     DefaultTickInterval,
		callbackLifetime: DefaultCallbackLifetime,
	}
	for _, opt := range options {
		opt(l)
	}
	if l.navigator == nil {
		l.navigator = NewHistoryNavigator(RootPath)
	}
	if l.cache == nil {
		l.cache = querycache.New()
	}
	l.localUser = store.UserIdentity()
	return l
}

// OnChange registers fn to be called with a fresh snapshot after every state change.
func (l *Lifecycle) OnChange(fn func(Snapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Mount runs the one-time session restore. A valid token, or no remembered
// identity, ends initialization without a refresh. Otherwise one refresh is
// attempted; its failure leaves the session unauthenticated.
func (l *Lifecycle) Mount(ctx context.Context) {
	l.mu.Lock()
	if l.mounted || l.closed {
		l.mu.Unlock()
		return
	}
	l.mounted = true
	l.mu.Unlock()

	defer l.finishInitializing()

	if l.store.HasValidToken() {
		return
	}
	if l.store.UserIdentity() == nil {
		log.Debug().Msg("no remembered identity, skipping session restore")
		return
	}

	epoch := l.sessionEpoch()
	result, err := l.refresher.Refresh(ctx)
	if l.isClosed() || ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Info().Err(err).Msg("session restore failed")
		return
	}
	if !l.installIfCurrent(epoch, result) {
		log.Info().Msg("logged out during session restore, dropping refreshed token")
		return
	}
	log.Info().Str("user", result.User.DisplayName()).Msg("session restored")
}

func (l *Lifecycle) finishInitializing() {
	l.mu.Lock()
	l.initializing = false
	l.mu.Unlock()
	l.notify()
}

// Tick runs one pass of the expiry watch, the status reconciliation and the
// proactive renewal.
func (l *Lifecycle) Tick(ctx context.Context) {
	if l.isClosed() {
		return
	}
	if l.store.HasToken() && l.store.IsExpired() {
		log.Info().Msg("access token expired, logging out")
		l.logout(ctx, metrics.LogoutExpired)
		return
	}
	l.checkStatus(ctx)
	l.renewIfNeeded(ctx)
}

func (l *Lifecycle) checkStatus(ctx context.Context) {
	if !l.store.HasValidToken() {
		return
	}
	token := l.store.Token()
	_, err := querycache.Fetch(ctx, l.cache, StatusKey, l.statusStaleTime, func(ctx context.Context) (*authapi.StatusResponse, error) {
		return l.fetchStatus(ctx, token)
	})
	if err != nil {
		log.Warn().Err(err).Msg("auth status check failed")
	}
	l.notify()
}

// fetchStatus asks the server about token, retrying once unless the answer is
// an authoritative 401. A 401 clears the session it was asked about.
func (l *Lifecycle) fetchStatus(ctx context.Context, token string) (*authapi.StatusResponse, error) {
	var err error
	for i := 0; i < statusAttempts; i++ {
		var status *authapi.StatusResponse
		status, err = l.status.Status(ctx, token)
		switch {
		case err == nil:
			l.metrics.ObserveStatus(metrics.StatusOK)
			return status, nil
		case errors.Is(err, errors.ErrUnauthorized):
			l.metrics.ObserveStatus(metrics.StatusUnauthorized)
			l.clearRejected(token)
			return &authapi.StatusResponse{Authenticated: false}, nil
		}
		l.metrics.ObserveStatus(metrics.StatusError)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, err
}

func (l *Lifecycle) renewIfNeeded(ctx context.Context) {
	if !l.store.HasToken() || l.isInitializing() || !l.remoteAuthenticated() {
		return
	}
	if !l.store.IsExpiringSoon(l.renewalThreshold) {
		return
	}

	log.Info().Dur("threshold", l.renewalThreshold).Msg("access token expiring soon, renewing")
	epoch := l.sessionEpoch()
	result, err := l.refresher.Refresh(ctx)
	if l.isClosed() || ctx.Err() != nil {
		return
	}
	if l.sessionEpoch() != epoch {
		log.Info().Msg("logged out during token renewal, dropping result")
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("token renewal failed, logging out")
		l.logout(ctx, metrics.LogoutRenewalFailed)
		return
	}
	if !l.installIfCurrent(epoch, result) {
		log.Info().Msg("logged out during token renewal, dropping result")
		return
	}
	l.notify()
	l.checkStatus(ctx)
}

// Login installs a token and identity, then checks the new token with the
// server straight away.
func (l *Lifecycle) Login(ctx context.Context, token string, user *users.Identity, expiresIn time.Duration) {
	if l.isClosed() {
		return
	}
	l.sessionMu.Lock()
	l.install(token, user, expiresIn)
	l.sessionMu.Unlock()

	l.notify()
	l.checkStatus(ctx)
}

// installIfCurrent installs a refresh result unless a logout happened since epoch.
func (l *Lifecycle) installIfCurrent(epoch uint64, result *refresh.Result) bool {
	l.sessionMu.Lock()
	defer l.sessionMu.Unlock()

	if l.epoch != epoch {
		return false
	}
	l.install(result.Token, result.User, result.ExpiresIn)
	return true
}

// install must be called with sessionMu held.
func (l *Lifecycle) install(token string, user *users.Identity, expiresIn time.Duration) {
	l.store.SetToken(token, expiresIn)
	if user != nil {
		l.store.SetUserIdentity(user)
		l.setLocalUser(user)
	}
	l.cache.Invalidate(StatusKey)
}

// Logout ends the session on the server (best effort) and locally, drops all
// cached queries and sends the user to the login page.
func (l *Lifecycle) Logout(ctx context.Context) {
	l.logout(ctx, metrics.LogoutUser)
}

func (l *Lifecycle) logout(ctx context.Context, reason string) {
	l.sessionMu.Lock()
	l.epoch++
	l.sessionMu.Unlock()

	l.refresher.Logout(ctx)
	l.setLocalUser(nil)
	l.cache.Clear()
	l.metrics.ObserveLogout(reason)
	l.navigator.Navigate(LoginPath)
	l.notify()
}

// Run mounts the lifecycle and ticks until ctx is done, then closes it.
func (l *Lifecycle) Run(ctx context.Context) error {
	defer l.Close()

	l.Mount(ctx)
	l.Tick(ctx)

	ticker := time.NewTicker(l.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Close tears the lifecycle down. Results of requests still in flight are ignored.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.listeners = nil
}

// Snapshot returns the current session view.
func (l *Lifecycle) Snapshot() Snapshot {
	l.mu.Lock()
	user := l.localUser
	initializing := l.initializing
	l.mu.Unlock()

	valid := l.store.HasValidToken()
	status, hasStatus := querycache.Peek[*authapi.StatusResponse](l.cache, StatusKey)
	entry := l.cache.Status(StatusKey)

	snap := Snapshot{
		User:          user,
		Authenticated: valid && hasStatus && status != nil && status.Authenticated,
		Loading:       initializing || (valid && !hasStatus && entry.Err == nil),
	}
	if valid {
		snap.Token = l.store.Token()
		snap.Err = entry.Err
	}
	if user != nil && user.Name != "" {
		snap.Username = user.Name
	} else if hasStatus && status != nil {
		snap.Username = status.Username
	}

	switch {
	case initializing:
		snap.State = StateInitializing
	case snap.Authenticated:
		snap.State = StateAuthenticated
	case snap.Loading:
		snap.State = StateLoading
	default:
		snap.State = StateUnauthenticated
	}
	return snap
}

func (l *Lifecycle) remoteAuthenticated() bool {
	status, ok := querycache.Peek[*authapi.StatusResponse](l.cache, StatusKey)
	return ok && status != nil && status.Authenticated
}

func (l *Lifecycle) notify() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	listeners := make([]func(Snapshot), len(l.listeners))
	copy(listeners, l.listeners)
	l.mu.Unlock()

	if len(listeners) == 0 {
		return
	}
	snap := l.Snapshot()
	for _, fn := range listeners {
		fn(snap)
	}
}

// clearRejected drops the session after the server refused token, unless a
// different token has been installed meanwhile.
func (l *Lifecycle) clearRejected(token string) {
	if l.isClosed() {
		return
	}
	l.sessionMu.Lock()
	defer l.sessionMu.Unlock()

	if l.store.Token() != token {
		return
	}
	log.Info().Msg("server rejected access token, clearing session")
	l.epoch++
	l.store.Clear()
	l.setLocalUser(nil)
}

func (l *Lifecycle) sessionEpoch() uint64 {
	l.sessionMu.Lock()
	defer l.sessionMu.Unlock()
	return l.epoch
}

func (l *Lifecycle) setLocalUser(user *users.Identity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.localUser = user
}

func (l *Lifecycle) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Lifecycle) isInitializing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initializing
}
