package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/budget-tracker-client/authapi"
	"github.com/jrsteele09/budget-tracker-client/internal/errors"
	"github.com/jrsteele09/budget-tracker-client/internal/metrics"
	"github.com/jrsteele09/budget-tracker-client/users"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxAttempts = 1
	DefaultMinInterval = 10 * time.Second
	DefaultTimeout     = 5 * time.Second
)

// Result is a renewed session.
type Result struct {
	Token     string
	User      *users.Identity
	ExpiresIn time.Duration // 0 means the store default applies
}

// Refresher performs the network side of a refresh. *authapi.Client satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) (*authapi.RefreshResponse, error)
	Logout(ctx context.Context) error
}

// SessionClearer is the part of the session store the coordinator needs on logout.
type SessionClearer interface {
	Clear()
}

// Coordinator renews the access token under single-flight, attempt-count,
// interval and timeout guards.
type Coordinator struct {
	api         Refresher
	ledger      *Ledger
	store       SessionClearer
	maxAttempts int
	minInterval time.Duration
	timeout     time.Duration
	metrics     *metrics.Metrics
	nowFunc     func() time.Time
}

type CoordinatorOption func(*Coordinator)

// WithLimits overrides the guards. Non-positive values keep the defaults.
func WithLimits(maxAttempts int, minInterval, timeout time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if minInterval > 0 {
			c.minInterval = minInterval
		}
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithNowFunc(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		c.nowFunc = now
	}
}

func NewCoordinator(api Refresher, ledger *Ledger, store SessionClearer, options ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		api:         api,
		ledger:      ledger,
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		minInterval: DefaultMinInterval,
		timeout:     DefaultTimeout,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.nowFunc == nil {
		c.nowFunc = time.Now
	}
	return c
}

// Refresh returns a renewed session, or nil and the reason no session could be
// obtained. Concurrent callers share one attempt and see the same result.
// Cancelling ctx only stops this caller from waiting.
func (c *Coordinator) Refresh(ctx context.Context) (*Result, error) {
	ch := c.ledger.do(func() (interface{}, error) {
		return c.attempt()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Coordinator) attempt() (*Result, error) {
	generation, err := c.ledger.begin(c.maxAttempts, c.minInterval)
	if err != nil {
		status := c.ledger.Status()
		log.Info().Err(err).Int("attempts", status.AttemptCount).Dur("since_last", status.SinceLastAttempt).Msg("refresh refused")
		if errors.Is(err, errors.ErrMaxAttempts) {
			c.metrics.ObserveRefresh(metrics.OutcomeLimited)
		} else {
			c.metrics.ObserveRefresh(metrics.OutcomeThrottled)
		}
		return nil, err
	}
	defer c.ledger.settle(generation)

	type outcome struct {
		rr  *authapi.RefreshResponse
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		// Not tied to the timeout: on timeout the request is abandoned, and its
		// late result lands in the buffered channel unread.
		rr, err := c.api.Refresh(context.Background())
		done <- outcome{rr: rr, err: err}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case o := <-done:
		if o.err != nil {
			log.Info().Err(o.err).Msg("refresh failed")
			c.metrics.ObserveRefresh(metrics.OutcomeFailed)
			return nil, fmt.Errorf("%w: %w", errors.ErrRefreshFailed, o.err)
		}
		result := &Result{
			Token:     o.rr.AccessToken,
			User:      o.rr.User,
			ExpiresIn: time.Duration(o.rr.ExpiresIn) * time.Second,
		}
		if result.ExpiresIn <= 0 {
			result.ExpiresIn = LifetimeFromToken(result.Token, c.nowFunc())
		}
		log.Info().Dur("expires_in", result.ExpiresIn).Bool("has_user", result.User != nil).Msg("refresh succeeded")
		c.metrics.ObserveRefresh(metrics.OutcomeSuccess)
		return result, nil
	case <-timer.C:
		log.Info().Dur("timeout", c.timeout).Msg("refresh timed out")
		c.metrics.ObserveRefresh(metrics.OutcomeTimeout)
		return nil, errors.ErrRefreshTimeout
	}
}

// Logout notifies the server (best effort) and then clears the local session.
func (c *Coordinator) Logout(ctx context.Context) {
	if err := c.api.Logout(ctx); err != nil {
		log.Warn().Err(err).Msg("logout notification failed, clearing local session anyway")
	}
	c.store.Clear()
}
