package utils_test

import (
	"testing"

	"github.com/jrsteele09/budget-tracker-client/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	require.Empty(t, utils.Fingerprint(""))

	a := utils.Fingerprint("token-a")
	require.Len(t, a, 12)
	require.Equal(t, a, utils.Fingerprint("token-a"))
	require.NotEqual(t, a, utils.Fingerprint("token-b"))
	require.NotContains(t, a, "token")
}
