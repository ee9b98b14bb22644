package sessions

import (
	"sync"
	"time"

	"github.com/jrsteele09/budget-tracker-client/internal/errors"
	"github.com/jrsteele09/budget-tracker-client/internal/utils"
	"github.com/jrsteele09/budget-tracker-client/token/refresh"
	"github.com/jrsteele09/budget-tracker-client/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultTokenLifetime applies when a token is installed without a positive lifetime.
const DefaultTokenLifetime = 30 * time.Minute

// Store is the single owner of the access token, its expiry and the persisted
// user identity. The token lives in memory only; the identity goes to the
// durable IdentityRepo. Store never touches the network.
type Store struct {
	mu              sync.RWMutex
	token           string
	expiresAt       time.Time
	identities      users.IdentityRepo
	ledger          *refresh.Ledger
	defaultLifetime time.Duration
	nowFunc         func() time.Time
}

type StoreOption func(*Store)

// WithNowFunc sets the clock used for token expiry.
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// WithDefaultLifetime overrides DefaultTokenLifetime.
func WithDefaultLifetime(lifetime time.Duration) StoreOption {
	return func(s *Store) {
		if lifetime > 0 {
			s.defaultLifetime = lifetime
		}
	}
}

// WithLedger shares an existing refresh ledger with the store.
func WithLedger(ledger *refresh.Ledger) StoreOption {
	return func(s *Store) {
		s.ledger = ledger
	}
}

// New creates an empty store that persists identities to the given repo.
func New(identities users.IdentityRepo, options ...StoreOption) *Store {
	s := &Store{
		identities:      identities,
		defaultLifetime: DefaultTokenLifetime,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.nowFunc == nil {
		s.nowFunc = time.Now
	}
	if s.ledger == nil {
		s.ledger = refresh.NewLedger(s.nowFunc)
	}
	return s
}

// Ledger returns the refresh ledger the store resets on Clear.
func (s *Store) Ledger() *refresh.Ledger {
	return s.ledger
}

// Token returns the access token, or "" when there is none.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// HasToken reports whether a token is installed, expired or not.
func (s *Store) HasToken() bool {
	return s.Token() != ""
}

// ExpiresAt returns the token expiry, zero when there is no token.
func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// SetToken installs token with expiry now+expiresIn. Token and expiry are always
// written together.
func (s *Store) SetToken(token string, expiresIn time.Duration) {
	if expiresIn <= 0 {
		expiresIn = s.defaultLifetime
	}

	s.mu.Lock()
	s.token = token
	s.expiresAt = s.nowFunc().Add(expiresIn)
	s.mu.Unlock()

	log.Debug().Str("token", utils.Fingerprint(token)).Dur("expires_in", expiresIn).Msg("access token installed")
}

// IsExpired is true when there is no token or now >= expiry.
func (s *Store) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return true
	}
	return !s.nowFunc().Before(s.expiresAt)
}

// IsExpiringSoon is true when there is no token or it expires within threshold.
func (s *Store) IsExpiringSoon(threshold time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == "" {
		return true
	}
	return s.expiresAt.Sub(s.nowFunc()) < threshold
}

// HasValidToken is true when a token is present and not expired.
func (s *Store) HasValidToken() bool {
	return !s.IsExpired()
}

// UserIdentity reads the persisted identity. Storage failures are logged and
// reported as no identity.
func (s *Store) UserIdentity() *users.Identity {
	identity, err := s.identities.Get()
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			log.Warn().Err(err).Msg("reading persisted identity failed")
		}
		return nil
	}
	return identity
}

// SetUserIdentity persists identity. Storage failures are logged and dropped.
func (s *Store) SetUserIdentity(identity *users.Identity) {
	if identity == nil {
		return
	}
	if err := s.identities.Upsert(identity); err != nil {
		log.Warn().Err(err).Msg("persisting identity failed")
	}
}

// RemoveToken clears the token, its expiry and the persisted identity.
func (s *Store) RemoveToken() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	if err := s.identities.Delete(); err != nil {
		log.Warn().Err(err).Msg("removing persisted identity failed")
	}
}

// Clear removes the session and resets refresh tracking.
func (s *Store) Clear() {
	log.Info().Msg("clearing session and resetting refresh tracking")
	s.RemoveToken()
	s.ledger.Reset()
}

// ResetRefreshTracking resets the refresh ledger without touching the session.
func (s *Store) ResetRefreshTracking() {
	log.Info().Msg("resetting refresh tracking")
	s.ledger.Reset()
}

// RefreshStatus is a debug view of the refresh ledger.
func (s *Store) RefreshStatus() refresh.Status {
	return s.ledger.Status()
}

// TokenSource exposes the in-memory token to oauth2 aware HTTP clients.
func (s *Store) TokenSource() oauth2.TokenSource {
	return tokenSource{store: s}
}

type tokenSource struct {
	store *Store
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	ts.store.mu.RLock()
	defer ts.store.mu.RUnlock()

	if ts.store.token == "" || !ts.store.nowFunc().Before(ts.store.expiresAt) {
		return nil, errors.ErrNoValidToken
	}
	return &oauth2.Token{
		AccessToken: ts.store.token,
		TokenType:   "Bearer",
		Expiry:      ts.store.expiresAt,
	}, nil
}
