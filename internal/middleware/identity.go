package middleware

// identity.go provides the client identity used in rate-limit and cache
// keys.  Authenticated requests key on the user id set by JWTAuth;
// everything else shares the "guest" identity and is distinguished by
// client IP in the key strategies that include it.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// identity returns a stable string identifier for the requesting user,
// or "guest" when the request is unauthenticated.
func identity(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
