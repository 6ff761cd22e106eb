package handler

import (
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/parking-reservation/internal/booking"
)

// LotHandler serves the public lot catalogue and the operator lot
// management endpoints.
type LotHandler struct {
    Lots *booking.Lots
    Log  *slog.Logger
    // OnChange runs after an operator creates or updates a lot.  The
    // router uses it to purge the catalogue cache.
    OnChange func(echo.Context)
}

// NewLotHandler builds a LotHandler.  lots must be non-nil.
func NewLotHandler(lots *booking.Lots, log *slog.Logger) *LotHandler {
    if lots == nil {
        panic("nil lots service passed to NewLotHandler")
    }
    if log == nil {
        log = slog.Default()
    }
    return &LotHandler{Lots: lots, Log: log}
}

// List handles GET /v1/lots: active lots with their current free spaces.
func (h *LotHandler) List(c echo.Context) error {
    lots, err := h.Lots.List(c.Request().Context(), true)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": lots})
}

// Get handles GET /v1/lots/:id.  Inactive lots are not found.
func (h *LotHandler) Get(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
    }
    lot, err := h.Lots.Get(c.Request().Context(), id, true)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, lot)
}

type createLotReq struct {
    Name        string           `json:"name" validate:"required,max=100"`
    Address     string           `json:"address" validate:"max=255"`
    TotalSpaces *int             `json:"total_spaces" validate:"required,gte=0"`
    HourlyRate  *decimal.Decimal `json:"hourly_rate" validate:"required"`
}

// Create handles POST /v1/operator/lots.
func (h *LotHandler) Create(c echo.Context) error {
    var req createLotReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := validate.Struct(req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
    }
    lot, err := h.Lots.Create(c.Request().Context(), booking.NewLot{
        Name:        req.Name,
        Address:     req.Address,
        TotalSpaces: *req.TotalSpaces,
        HourlyRate:  *req.HourlyRate,
    })
    if err != nil {
        return writeError(c, h.Log, err)
    }
    h.Log.Info("parking lot created", "lot_id", lot.ID, "total_spaces", lot.TotalSpaces)
    h.changed(c)
    return c.JSON(http.StatusCreated, lot)
}

type updateLotReq struct {
    Name       *string          `json:"name" validate:"omitempty,max=100"`
    Address    *string          `json:"address" validate:"omitempty,max=255"`
    HourlyRate *decimal.Decimal `json:"hourly_rate"`
    IsActive   *bool            `json:"is_active"`
}

// Update handles PATCH /v1/operator/lots/:id.  Absent fields keep their
// value; capacity cannot be changed.
func (h *LotHandler) Update(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
    }
    var req updateLotReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := validate.Struct(req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
    }
    lot, err := h.Lots.Update(c.Request().Context(), id, booking.LotPatch{
        Name:       req.Name,
        Address:    req.Address,
        HourlyRate: req.HourlyRate,
        IsActive:   req.IsActive,
    })
    if err != nil {
        return writeError(c, h.Log, err)
    }
    h.Log.Info("parking lot updated", "lot_id", lot.ID, "is_active", lot.IsActive)
    h.changed(c)
    return c.JSON(http.StatusOK, lot)
}

// Reservations handles GET /v1/operator/lots/:id/reservations.
func (h *LotHandler) Reservations(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
    }
    list, err := h.Lots.Reservations(c.Request().Context(), id)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": list})
}

func (h *LotHandler) changed(c echo.Context) {
    if h.OnChange != nil {
        h.OnChange(c)
    }
}
