package credential

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Expiry extracts the "exp" claim from a JWT-shaped credential without
// verifying its signature. Returns false when the credential is not a JWT
// or carries no expiry; such credentials are treated as non-expiring and
// refreshed only reactively (on 401).
func Expiry(token string) (time.Time, bool) {
	parsed, _, err := gojwt.NewParser().ParseUnverified(token, &gojwt.RegisteredClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Expired reports whether a JWT-shaped credential expires within the given
// leeway. Non-JWT credentials are never considered expired.
func Expired(token string, leeway time.Duration) bool {
	exp, ok := Expiry(token)
	if !ok {
		return false
	}
	return !time.Now().Add(leeway).Before(exp)
}
