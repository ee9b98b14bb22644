package authapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/jrsteele09/budget-tracker-client/internal/apiresponse"
	internalerrors "github.com/jrsteele09/budget-tracker-client/internal/errors"
	"github.com/jrsteele09/budget-tracker-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Auth endpoint paths relative to the API base URL
const (
	RouteRefresh = "/api/auth/refresh"
	RouteStatus  = "/api/auth/status"
	RouteLogout  = "/api/auth/logout"
)

const maxBodyBytes = 1 << 20

// RefreshResponse is the body of a successful refresh.
type RefreshResponse struct {
	AccessToken string          `json:"accessToken"`
	ExpiresIn   int64           `json:"expiresIn"` // seconds
	User        *users.Identity `json:"user"`
}

// StatusResponse is the body of the auth status endpoint.
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Env           string `json:"env,omitempty"` // only set by dev servers
}

// Client talks to the auth endpoints. The refresh credential is an HTTP-only
// cookie, so the underlying http.Client must carry a cookie jar.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default cookie-jar client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(baseURL string, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range options {
		opt(c)
	}
	if c.httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "authapi.New cookiejar")
		}
		c.httpClient = &http.Client{Jar: jar}
	}
	return c, nil
}

// HTTPClient returns the cookie-carrying client so collaborators can share the jar.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Refresh exchanges the refresh cookie for a new access token.
func (c *Client) Refresh(ctx context.Context) (*RefreshResponse, error) {
	body, err := c.do(ctx, http.MethodPost, RouteRefresh, "")
	if err != nil {
		return nil, err
	}

	var rr RefreshResponse
	if err := apiresponse.Decode(body, &rr); err != nil {
		return nil, errors.Wrap(err, "Client.Refresh decode")
	}
	if rr.AccessToken == "" {
		return nil, internalerrors.Wrapf(internalerrors.ErrUnexpectedReply, "Client.Refresh: empty access token")
	}
	return &rr, nil
}

// Status asks the server whether token is still accepted. A 401 is returned as
// errors.ErrUnauthorized.
func (c *Client) Status(ctx context.Context, token string) (*StatusResponse, error) {
	body, err := c.do(ctx, http.MethodGet, RouteStatus, token)
	if err != nil {
		return nil, err
	}

	var sr StatusResponse
	if err := apiresponse.Decode(body, &sr); err != nil {
		return nil, errors.Wrap(err, "Client.Status decode")
	}
	return &sr, nil
}

// Logout tells the server to revoke the refresh cookie. The response body is ignored.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, RouteLogout, "")
	return err
}

func (c *Client) do(ctx context.Context, method, route, bearer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Client %s %s", method, route)
	}
	requestID := apiresponse.StampRequest(req)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
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

	log.Debug().Str("request_id", requestID).Str("route", route).Int("status", resp.StatusCode).Msg("auth api response")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, internalerrors.Wrapf(internalerrors.ErrUnauthorized, "Client %s %s", method, route)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, internalerrors.Wrapf(internalerrors.ErrUnexpectedReply, "Client %s %s status %d", method, route, resp.StatusCode)
	}
	return body, nil
}
