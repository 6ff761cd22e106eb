package middleware

import (
    "log/slog"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
)

// Register installs the middleware every route shares: panic recovery,
// a uuid request ID and one structured log line per request.
func Register(e *echo.Echo, log *slog.Logger) {
    e.Use(echomw.Recover())
    e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
        Generator: func() string { return uuid.NewString() },
    }))
    e.Use(Slog(log))
}

// Slog logs method, route, status and latency of each request.
func Slog(log *slog.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = slog.Default()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // Let the error handler write the response so the status is final.
                c.Error(err)
            }
            attrs := []any{
                "method", c.Request().Method,
                "path", c.Path(),
                "status", c.Response().Status,
                "latency_ms", time.Since(start).Milliseconds(),
                "req_id", c.Response().Header().Get(echo.HeaderXRequestID),
                "ip", c.RealIP(),
            }
            if id, ok := UserID(c); ok {
                attrs = append(attrs, "user_id", id)
            }
            if c.Response().Status >= 500 {
                log.Error("http", append(attrs, "err", err)...)
            } else {
                log.Info("http", attrs...)
            }
            return nil
        }
    }
}
