package handler_test

import (
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strconv"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/parking-reservation/internal/booking"
    "github.com/iliyamo/parking-reservation/internal/handler"
    "github.com/iliyamo/parking-reservation/internal/model"
    "github.com/iliyamo/parking-reservation/internal/repository/memrepo"
    "github.com/iliyamo/parking-reservation/internal/router"
    "github.com/iliyamo/parking-reservation/internal/utils"
)

const secret = "handler-secret"

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type api struct {
    e     *echo.Echo
    store *memrepo.Store
}

func newAPI(t *testing.T) *api {
    t.Helper()
    store := memrepo.New()
    store.SetClock(func() time.Time { return now })
    opts := booking.Options{Now: func() time.Time { return now }}
    checker := booking.NewChecker(store, opts)
    lots := handler.NewLotHandler(booking.NewLots(store, checker), nil)
    res := handler.NewReservationHandler(booking.NewManager(store, checker, opts), booking.NewRecorder(store, opts), nil)

    e := echo.New()
    router.RegisterRoutes(e, nil)
    router.RegisterPublic(e, lots, func(next echo.HandlerFunc) echo.HandlerFunc { return next })
    router.RegisterCustomer(e, res, secret)
    router.RegisterOperator(e, lots, secret)
    return &api{e: e, store: store}
}

func bearer(t *testing.T, userID uint64, role string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, userID, role, 10)
    require.NoError(t, err)
    return "Bearer " + tok.Token
}

func (a *api) do(t *testing.T, method, path, auth, body string) (*httptest.ResponseRecorder, map[string]any) {
    t.Helper()
    req := httptest.NewRequest(method, path, strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    if auth != "" {
        req.Header.Set("Authorization", auth)
    }
    rec := httptest.NewRecorder()
    a.e.ServeHTTP(rec, req)
    var out map[string]any
    if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
        require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
    }
    return rec, out
}

func (a *api) createLot(t *testing.T, body string) uint64 {
    t.Helper()
    rec, out := a.do(t, http.MethodPost, "/v1/operator/lots", bearer(t, 100, model.RoleOperator), body)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    return uint64(out["id"].(float64))
}

func (a *api) book(t *testing.T, userID, lotID uint64) map[string]any {
    t.Helper()
    rec, out := a.do(t, http.MethodPost, lotPath(lotID)+"/reservations", bearer(t, userID, model.RoleCustomer),
        `{"license_plate":"abc123","start_time":"2026-03-02T10:00:00Z","end_time":"2026-03-02T12:00:00Z"}`)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    return out
}

func lotPath(id uint64) string { return "/v1/lots/" + itoa(id) }

func resPath(id uint64) string { return "/v1/reservations/" + itoa(id) }

func itoa(id uint64) string { return strconv.FormatUint(id, 10) }

func id(m map[string]any) uint64 { return uint64(m["id"].(float64)) }

func TestHealth(t *testing.T) {
    a := newAPI(t)
    rec, out := a.do(t, http.MethodGet, "/healthz", "", "")
    require.Equal(t, http.StatusOK, rec.Code)
    require.Equal(t, "ok", out["status"])
}

func TestReservationFlow(t *testing.T) {
    a := newAPI(t)
    lotID := a.createLot(t, `{"name":"Central","address":"1 Main St","total_spaces":2,"hourly_rate":"2.50"}`)

    r := a.book(t, 1, lotID)
    require.Equal(t, "pending", r["status"])
    require.Equal(t, "ABC123", r["license_plate"])
    require.Equal(t, "5", r["total_amount"])
    require.NotEmpty(t, r["access_code"])
    resID := id(r)

    rec, out := a.do(t, http.MethodPost, resPath(resID)+"/payment", bearer(t, 1, model.RoleCustomer),
        `{"payment_method":"credit_card","card_number":"4111 1111 1111 1111","card_holder":"JANE DOE","expiry_date":"12/30","cvv":"123"}`)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    require.Equal(t, "confirmed", out["reservation"].(map[string]any)["status"])
    require.Equal(t, "1111", out["card_last4"])
    payment := out["payment"].(map[string]any)
    require.Equal(t, "completed", payment["status"])
    require.Regexp(t, `^TXN20260302090000-`, payment["transaction_id"])

    rec, out = a.do(t, http.MethodPost, resPath(resID)+"/payment", bearer(t, 1, model.RoleCustomer),
        `{"payment_method":"digital_wallet","wallet_token":"tok"}`)
    require.Equal(t, http.StatusConflict, rec.Code)
    require.Equal(t, "confirmed", out["status"])
    require.Equal(t, 1, a.store.PaymentCount())

    rec, out = a.do(t, http.MethodGet, resPath(resID)+"/qr", bearer(t, 1, model.RoleCustomer), "")
    require.Equal(t, http.StatusOK, rec.Code)
    require.True(t, strings.HasPrefix(out["qr_code_url"].(string), booking.DefaultQRBaseURL+"?size=200x200&data=PARKING%7C"))

    rec, out = a.do(t, http.MethodGet, "/v1/my-reservations", bearer(t, 1, model.RoleCustomer), "")
    require.Equal(t, http.StatusOK, rec.Code)
    require.Len(t, out["items"], 1)

    rec, out = a.do(t, http.MethodPost, resPath(resID)+"/cancel", bearer(t, 1, model.RoleCustomer), "")
    require.Equal(t, http.StatusOK, rec.Code)
    require.Equal(t, "cancelled", out["status"])

    rec, _ = a.do(t, http.MethodPost, resPath(resID)+"/cancel", bearer(t, 1, model.RoleCustomer), "")
    require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRequestValidation(t *testing.T) {
    a := newAPI(t)
    lotID := a.createLot(t, `{"name":"Central","total_spaces":1,"hourly_rate":"1.00"}`)
    auth := bearer(t, 1, model.RoleCustomer)

    cases := map[string]string{
        "past start":     `{"license_plate":"A1","start_time":"2026-03-02T08:00:00Z","end_time":"2026-03-02T10:00:00Z"}`,
        "reversed":       `{"license_plate":"A1","start_time":"2026-03-02T12:00:00Z","end_time":"2026-03-02T10:00:00Z"}`,
        "missing plate":  `{"start_time":"2026-03-02T10:00:00Z","end_time":"2026-03-02T12:00:00Z"}`,
        "bad timestamp":  `{"license_plate":"A1","start_time":"tomorrow","end_time":"2026-03-02T12:00:00Z"}`,
        "malformed json": `{`,
    }
    for name, body := range cases {
        t.Run(name, func(t *testing.T) {
            rec, _ := a.do(t, http.MethodPost, lotPath(lotID)+"/reservations", auth, body)
            require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
        })
    }

    rec, _ := a.do(t, http.MethodPost, "/v1/lots/999/reservations", auth,
        `{"license_plate":"A1","start_time":"2026-03-02T10:00","end_time":"2026-03-02T11:00"}`)
    require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentFormValidation(t *testing.T) {
    a := newAPI(t)
    lotID := a.createLot(t, `{"name":"Central","total_spaces":3,"hourly_rate":"1.00"}`)
    resID := id(a.book(t, 1, lotID))
    auth := bearer(t, 1, model.RoleCustomer)

    cases := map[string]string{
        "unknown method":  `{"payment_method":"cash"}`,
        "14 digit card":   `{"payment_method":"debit_card","card_number":"41111111111111","card_holder":"J","expiry_date":"12/30","cvv":"123"}`,
        "letters in card": `{"payment_method":"debit_card","card_number":"4111abcd11111111","card_holder":"J","expiry_date":"12/30","cvv":"123"}`,
        "missing holder":  `{"payment_method":"credit_card","card_number":"4111111111111111","expiry_date":"12/30","cvv":"123"}`,
        "bad expiry":      `{"payment_method":"credit_card","card_number":"4111111111111111","card_holder":"J","expiry_date":"13/30","cvv":"123"}`,
        "short cvv":       `{"payment_method":"credit_card","card_number":"4111111111111111","card_holder":"J","expiry_date":"12/30","cvv":"12"}`,
        "decimal cvv":     `{"payment_method":"credit_card","card_number":"4111111111111111","card_holder":"J","expiry_date":"12/30","cvv":"1.5"}`,
        "signed cvv":      `{"payment_method":"credit_card","card_number":"4111111111111111","card_holder":"J","expiry_date":"12/30","cvv":"+123"}`,
        "negative cvv":    `{"payment_method":"credit_card","card_number":"4111111111111111","card_holder":"J","expiry_date":"12/30","cvv":"-12"}`,
        "missing token":   `{"payment_method":"digital_wallet"}`,
    }
    for name, body := range cases {
        t.Run(name, func(t *testing.T) {
            rec, _ := a.do(t, http.MethodPost, resPath(resID)+"/payment", auth, body)
            require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
        })
    }
    require.Equal(t, 0, a.store.PaymentCount())

    rec, _ := a.do(t, http.MethodPost, resPath(resID)+"/payment", auth,
        `{"payment_method":"credit_card","card_number":"378282246310005","card_holder":"J","expiry_date":"01/29","cvv":"1234"}`)
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestOwnershipAndRoles(t *testing.T) {
    a := newAPI(t)
    lotID := a.createLot(t, `{"name":"Central","total_spaces":3,"hourly_rate":"1.00"}`)
    resID := id(a.book(t, 1, lotID))

    rec, _ := a.do(t, http.MethodGet, resPath(resID), bearer(t, 2, model.RoleCustomer), "")
    require.Equal(t, http.StatusNotFound, rec.Code)

    rec, _ = a.do(t, http.MethodGet, resPath(resID), "", "")
    require.Equal(t, http.StatusUnauthorized, rec.Code)

    rec, _ = a.do(t, http.MethodPost, "/v1/operator/lots", bearer(t, 1, model.RoleCustomer), `{"name":"X","total_spaces":1}`)
    require.Equal(t, http.StatusForbidden, rec.Code)

    rec, _ = a.do(t, http.MethodPost, lotPath(lotID)+"/reservations", bearer(t, 100, model.RoleOperator), `{}`)
    require.Equal(t, http.StatusForbidden, rec.Code)

    rec, out := a.do(t, http.MethodGet, "/v1/operator/lots/"+itoa(lotID)+"/reservations", bearer(t, 100, model.RoleOperator), "")
    require.Equal(t, http.StatusOK, rec.Code)
    require.Len(t, out["items"], 1)
}

func TestLotCatalogue(t *testing.T) {
    a := newAPI(t)
    lotID := a.createLot(t, `{"name":"Central","total_spaces":2,"hourly_rate":2.5}`)
    a.createLot(t, `{"name":"Airport","total_spaces":0,"hourly_rate":"4.00"}`)

    rec, out := a.do(t, http.MethodGet, "/v1/lots", "", "")
    require.Equal(t, http.StatusOK, rec.Code)
    items := out["items"].([]any)
    require.Len(t, items, 2)
    require.Equal(t, "Airport", items[0].(map[string]any)["name"])

    rec, out = a.do(t, http.MethodGet, lotPath(lotID), "", "")
    require.Equal(t, http.StatusOK, rec.Code)
    require.Equal(t, float64(2), out["available_spaces"])

    rec, out = a.do(t, http.MethodPatch, "/v1/operator/lots/"+itoa(lotID), bearer(t, 100, model.RoleOperator), `{"is_active":false}`)
    require.Equal(t, http.StatusOK, rec.Code)
    require.Equal(t, false, out["is_active"])

    rec, _ = a.do(t, http.MethodGet, lotPath(lotID), "", "")
    require.Equal(t, http.StatusNotFound, rec.Code)

    rec, _ = a.do(t, http.MethodPost, "/v1/operator/lots", bearer(t, 100, model.RoleOperator), `{"name":"Neg","total_spaces":-1}`)
    require.Equal(t, http.StatusBadRequest, rec.Code)
    rec, _ = a.do(t, http.MethodPost, "/v1/operator/lots", bearer(t, 100, model.RoleOperator), `{"name":"Cheap","total_spaces":1,"hourly_rate":"1.005"}`)
    require.Equal(t, http.StatusBadRequest, rec.Code)
    rec, _ = a.do(t, http.MethodPost, "/v1/operator/lots", bearer(t, 100, model.RoleOperator), `{"name":"NoRate","total_spaces":1}`)
    require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
    a.createLot(t, `{"name":"Free","total_spaces":1,"hourly_rate":"0"}`)
}
