package router // router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-reservation/internal/handler"    // lot handlers
    "github.com/iliyamo/parking-reservation/internal/middleware" // JWT + role middlewares
    "github.com/iliyamo/parking-reservation/internal/model"
)

// RegisterOperator registers OPERATOR-scoped endpoints under /v1/operator.
// All routes require a valid JWT and the OPERATOR role.
func RegisterOperator(e *echo.Echo, l *handler.LotHandler, jwtSecret string) {
    // Attach middlewares at group construction time for clarity.
    g := e.Group(
        "/v1/operator",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleOperator),
    )

    // ---- Lots ----
    g.POST("/lots", l.Create)
    g.PATCH("/lots/:id", l.Update) // capacity is fixed at creation
    g.GET("/lots/:id/reservations", l.Reservations)
}
