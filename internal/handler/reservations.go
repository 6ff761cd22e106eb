package handler

import (
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parking-reservation/internal/booking"
    "github.com/iliyamo/parking-reservation/internal/model"
)

// ReservationHandler serves the customer reservation endpoints.  All
// methods assume JWTAuth and RequireRole(CUSTOMER) ran before them.
type ReservationHandler struct {
    Manager  *booking.Manager
    Recorder *booking.Recorder
    Log      *slog.Logger
}

// NewReservationHandler builds a ReservationHandler.  manager and recorder
// must be non-nil.
func NewReservationHandler(manager *booking.Manager, recorder *booking.Recorder, log *slog.Logger) *ReservationHandler {
    if manager == nil || recorder == nil {
        panic("nil service passed to NewReservationHandler")
    }
    if log == nil {
        log = slog.Default()
    }
    return &ReservationHandler{Manager: manager, Recorder: recorder, Log: log}
}

type requestReservationReq struct {
    LicensePlate string `json:"license_plate" validate:"required,max=20"`
    StartTime    string `json:"start_time" validate:"required"`
    EndTime      string `json:"end_time" validate:"required"`
}

// Request handles POST /v1/lots/:id/reservations.  It answers 201 with the
// pending reservation, its total and access code.
func (h *ReservationHandler) Request(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    lotID, ok := parseID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
    }
    var req requestReservationReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if err := validate.Struct(req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
    }
    start, err := parseTime("start_time", req.StartTime)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    end, err := parseTime("end_time", req.EndTime)
    if err != nil {
        return writeError(c, h.Log, err)
    }

    r, err := h.Manager.Request(c.Request().Context(), booking.RequestInput{
        UserID:       userID,
        LotID:        lotID,
        LicensePlate: req.LicensePlate,
        Start:        start,
        End:          end,
    })
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, r)
}

// ListMine handles GET /v1/my-reservations, newest first.
func (h *ReservationHandler) ListMine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    list, err := h.Manager.ListForUser(c.Request().Context(), userID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
    userID, resID, ok := h.ids(c)
    if !ok {
        return nil
    }
    r, err := h.Manager.Get(c.Request().Context(), userID, resID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, r)
}

type paymentResp struct {
    Reservation model.Reservation `json:"reservation"`
    Payment     model.Payment     `json:"payment"`
    CardLast4   string            `json:"card_last4,omitempty"`
}

// Pay handles POST /v1/reservations/:id/payment.  A reservation that is
// not pending answers 409 and no payment is recorded.
func (h *ReservationHandler) Pay(c echo.Context) error {
    userID, resID, ok := h.ids(c)
    if !ok {
        return nil
    }
    var form paymentForm
    if err := c.Bind(&form); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    details, err := form.details()
    if err != nil {
        return writeError(c, h.Log, err)
    }
    receipt, err := h.Recorder.RecordPayment(c.Request().Context(), userID, resID, details)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    resp := paymentResp{Reservation: receipt.Reservation, Payment: receipt.Payment}
    if card, ok := details.(model.CardPayment); ok {
        resp.CardLast4 = card.Last4()
    }
    return c.JSON(http.StatusOK, resp)
}

// QRCode handles GET /v1/reservations/:id/qr.
func (h *ReservationHandler) QRCode(c echo.Context) error {
    userID, resID, ok := h.ids(c)
    if !ok {
        return nil
    }
    r, url, err := h.Manager.QRCode(c.Request().Context(), userID, resID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "reservation_id": r.ID,
        "access_code":    r.AccessCode,
        "license_plate":  r.LicensePlate,
        "qr_code_url":    url,
        "qr_data":        booking.ScanData(r),
    })
}

// Cancel handles POST /v1/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    userID, resID, ok := h.ids(c)
    if !ok {
        return nil
    }
    r, err := h.Manager.Cancel(c.Request().Context(), userID, resID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, r)
}

// ids reads the caller and the :id parameter.  When ok is false the error
// response has already been written.
func (h *ReservationHandler) ids(c echo.Context) (userID, resID uint64, ok bool) {
    userID, err := getUserID(c)
    if err != nil {
        _ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
        return 0, 0, false
    }
    resID, ok = parseID(c, "id")
    if !ok {
        _ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
        return 0, 0, false
    }
    return userID, resID, true
}
