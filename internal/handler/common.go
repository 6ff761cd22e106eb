package handler

import (
    "errors"
    "log/slog"
    "net/http"
    "reflect"
    "strconv"
    "strings"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-reservation/internal/booking"
    "github.com/iliyamo/parking-reservation/internal/middleware"
)

var errUnauthorized = errors.New("unauthorized")

// validate is shared by every handler.  Errors name fields by their JSON
// tag.
var validate = newValidator()

func newValidator() *validator.Validate {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return v
}

// getUserID extracts the authenticated user's ID placed in the context by
// the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
    id, ok := middleware.UserID(c)
    if !ok {
        return 0, errUnauthorized
    }
    return id, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// writeError maps workflow errors to status codes.  Anything that is not a
// typed booking error is logged and reported as a generic 500.
func writeError(c echo.Context, log *slog.Logger, err error) error {
    var ve *booking.ValidationError
    var nf *booking.NotFoundError
    var ce *booking.StateConflictError
    switch {
    case errors.As(err, &ve):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error(), "field": ve.Field})
    case errors.As(err, &nf):
        return c.JSON(http.StatusNotFound, echo.Map{"error": nf.Error()})
    case errors.As(err, &ce):
        body := echo.Map{"error": ce.Reason}
        if ce.Status != "" {
            body["status"] = ce.Status
        }
        return c.JSON(http.StatusConflict, body)
    }
    log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// validationMessage renders the first failed validator rule as a short
// message naming the JSON field.
func validationMessage(err error) string {
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) || len(verrs) == 0 {
        return "invalid request body"
    }
    fe := verrs[0]
    field := fe.Field()
    switch fe.Tag() {
    case "required", "required_if":
        return field + " is required"
    case "max":
        return field + " must be at most " + fe.Param() + " characters"
    case "oneof":
        return field + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
    case "email":
        return field + " must be a valid email"
    case "min", "gte":
        return field + " must be at least " + fe.Param()
    }
    return field + " is invalid"
}

// Accepted request time layouts.  Values without a zone are read as UTC.
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

// parseTime parses an RFC 3339 timestamp or an HTML datetime-local value.
func parseTime(field, s string) (time.Time, error) {
    s = strings.TrimSpace(s)
    if s == "" {
        return time.Time{}, &booking.ValidationError{Field: field, Reason: "is required"}
    }
    for _, layout := range timeLayouts {
        if t, err := time.Parse(layout, s); err == nil {
            return t.UTC(), nil
        }
    }
    return time.Time{}, &booking.ValidationError{Field: field, Reason: "must be an RFC 3339 or YYYY-MM-DDTHH:MM timestamp"}
}
