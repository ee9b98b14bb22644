package refresh

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LifetimeFromToken reads the exp claim of a JWT access token without
// verifying it, for responses that omit expiresIn. Returns 0 for opaque or
// expired tokens.
func LifetimeFromToken(rawToken string, now time.Time) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	lifetime := exp.Sub(now)
	if lifetime <= 0 {
		return 0
	}
	return lifetime.Truncate(time.Second)
}
