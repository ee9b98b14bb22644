package authapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/budget-tracker-client/authapi"
	"github.com/jrsteele09/budget-tracker-client/internal/apiresponse"
	"github.com/jrsteele09/budget-tracker-client/internal/errors"
	"github.com/jrsteele09/budget-tracker-client/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*authapi.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := authapi.New(srv.URL + "/")
	require.NoError(t, err)
	return c, srv
}

func TestClient_Refresh(t *testing.T) {
	c, srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, authapi.RouteRefresh, r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(apiresponse.RequestIDHeader))

		cookie, err := r.Cookie("refresh_token")
		if err != nil || cookie.Value != "rt-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accessToken":"at-1","expiresIn":900,"user":{"id":7,"email":"a@b.com","name":"A"}}`))
	})

	t.Run("without cookie the server rejects", func(t *testing.T) {
		_, err := c.Refresh(context.Background())
		require.ErrorIs(t, err, errors.ErrUnexpectedReply)
	})

	t.Run("cookie from jar is sent", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		c.HTTPClient().Jar.SetCookies(req.URL, []*http.Cookie{{Name: "refresh_token", Value: "rt-1", Path: "/"}})

		rr, err := c.Refresh(context.Background())
		require.NoError(t, err)
		require.Equal(t, "at-1", rr.AccessToken)
		require.Equal(t, int64(900), rr.ExpiresIn)
		require.Equal(t, &users.Identity{ID: 7, Email: "a@b.com", Name: "A"}, rr.User)
	})
}

func TestClient_RefreshEmptyToken(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":{"accessToken":"","expiresIn":900}}`))
	})

	_, err := c.Refresh(context.Background())
	require.ErrorIs(t, err, errors.ErrUnexpectedReply)
}

func TestClient_Status(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Write([]byte(`{"success":true,"data":{"authenticated":true,"username":"alice"}}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})

	sr, err := c.Status(context.Background(), "good")
	require.NoError(t, err)
	require.True(t, sr.Authenticated)
	require.Equal(t, "alice", sr.Username)

	_, err = c.Status(context.Background(), "bad")
	require.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestClient_Logout(t *testing.T) {
	called := false
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, authapi.RouteLogout, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Logout(context.Background()))
	require.True(t, called)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := authapi.New("")
	require.Error(t, err)
}
