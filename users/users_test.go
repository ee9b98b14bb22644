package users_test

import (
	"testing"

	"github.com/jrsteele09/budget-tracker-client/users"
	"github.com/stretchr/testify/require"
)

func TestParseIdentity(t *testing.T) {
	identity, err := users.ParseIdentity([]byte(`{"id":1,"email":"a@b.com","name":"A"}`))
	require.NoError(t, err)
	require.Equal(t, &users.Identity{ID: 1, Email: "a@b.com", Name: "A"}, identity)

	_, err = users.ParseIdentity([]byte(`{"id":`))
	require.Error(t, err)
}

func TestIdentity_DisplayName(t *testing.T) {
	var nilIdentity *users.Identity
	require.Equal(t, "", nilIdentity.DisplayName())
	require.Equal(t, "A", (&users.Identity{Name: "A", Email: "x@y.z"}).DisplayName())
	require.Equal(t, "x", (&users.Identity{Email: "x@y.z"}).DisplayName())
}
