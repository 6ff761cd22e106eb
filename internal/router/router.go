package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/iliyamo/parking-reservation/internal/handler"    // handlers that implement the endpoints
    "github.com/iliyamo/parking-reservation/internal/middleware" // JWT authentication and role enforcement
    "github.com/iliyamo/parking-reservation/internal/model"      // role names
)

// RegisterRoutes registers routes that do not require authentication and
// are not versioned.  db may be nil, in which case /healthz only reports
// that the process is up.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
    e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the session endpoints.  Register, login, refresh
// and logout live under /v1/auth without authentication; /v1/me requires
// a valid access token of either role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh) // rotates the refresh token
    g.POST("/logout", a.Logout)   // accepts a refresh_token body or a bearer token

    e.GET("/v1/me", a.Me,
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleCustomer, model.RoleOperator),
    )
}

// RegisterPublic registers the unauthenticated lot catalogue.  cache wraps
// only these routes; availability in a cached body is at most one cache
// TTL old.
func RegisterPublic(e *echo.Echo, l *handler.LotHandler, cache echo.MiddlewareFunc) {
    e.GET("/v1/lots", l.List, cache)
    e.GET("/v1/lots/:id", l.Get, cache)
}
