package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// UserID returns the authenticated caller's ID stored by JWTAuth.  The
// second result is false on public routes or when JWTAuth did not run.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(CtxUserID).(uint64)
    return id, ok && id != 0
}

// Role returns the authenticated caller's role, or "" when absent.
func Role(c echo.Context) string {
    role, _ := c.Get(CtxRole).(string)
    return role
}

// clientKey identifies the caller in rate limit keys.  Unauthenticated
// requests share the "anon" identity.
func clientKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
