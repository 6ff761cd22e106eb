package router

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-reservation/internal/handler"
    "github.com/iliyamo/parking-reservation/internal/middleware"
    "github.com/iliyamo/parking-reservation/internal/model"
)

// RegisterCustomer registers the reservation workflow endpoints.  All
// routes require a valid JWT and the CUSTOMER role; ownership of a
// reservation is checked by the workflow, which reports other users'
// reservations as not found.
func RegisterCustomer(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
    auth := []echo.MiddlewareFunc{
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleCustomer),
    }
    e.POST("/v1/lots/:id/reservations", h.Request, auth...)
    e.GET("/v1/my-reservations", h.ListMine, auth...)

    g := e.Group("/v1/reservations", auth...)
    g.GET("/:id", h.Get)
    g.POST("/:id/payment", h.Pay)
    g.GET("/:id/qr", h.QRCode)
    g.POST("/:id/cancel", h.Cancel)
}
