package auth

import (
	"context"
	"net/url"

	"github.com/jrsteele09/budget-tracker-client/internal/errors"
	"github.com/jrsteele09/budget-tracker-client/users"
	"github.com/rs/zerolog/log"
)

// Query parameters of the oauth callback redirect
const (
	CallbackTokenParam = "token"
	CallbackUserParam  = "user"
)

// HandleCallback completes an oauth redirect that landed on rawURL. It does
// nothing unless both the token and user parameters are present. When they
// are, the visible URL is always replaced with the root path, and a decodable
// identity logs the user in with the callback token lifetime.
func (l *Lifecycle) HandleCallback(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, errors.Wrapf(errors.ErrMalformedCallback, "[auth HandleCallback] parse url: %v", err)
	}

	query := u.Query()
	token := query.Get(CallbackTokenParam)
	encodedUser := query.Get(CallbackUserParam)
	if token == "" || encodedUser == "" {
		return false, nil
	}
	defer l.navigator.Replace(RootPath)

	identity, err := decodeCallbackUser(encodedUser)
	if err != nil {
		log.Error().Err(err).Msg("oauth callback carried an unreadable user")
		return false, err
	}

	l.Login(ctx, token, identity, l.callbackLifetime)
	log.Info().Str("user", identity.DisplayName()).Msg("logged in from oauth callback")
	return true, nil
}

// decodeCallbackUser undoes the extra escaping the server applies to the user
// parameter on top of the query encoding.
func decodeCallbackUser(encoded string) (*users.Identity, error) {
	raw, err := url.PathUnescape(encoded)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedCallback, "[auth decodeCallbackUser] unescape: %v", err)
	}
	identity, err := users.ParseIdentity([]byte(raw))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedCallback, "[auth decodeCallbackUser] %v", err)
	}
	if *identity == (users.Identity{}) {
		return nil, errors.Wrapf(errors.ErrMalformedCallback, "[auth decodeCallbackUser] empty identity")
	}
	return identity, nil
}
