package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/parking-reservation/internal/config"
    "github.com/iliyamo/parking-reservation/internal/utils"
)

const secret = "test-secret"

func serve(t *testing.T, h echo.HandlerFunc, header string, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    e.GET("/x", h, mws...)
    req := httptest.NewRequest(http.MethodGet, "/x", nil)
    if header != "" {
        req.Header.Set("Authorization", header)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuth(t *testing.T) {
    tok, err := utils.NewAccessToken(secret, 9, "OPERATOR", 5)
    require.NoError(t, err)

    var gotID uint64
    var gotRole string
    h := func(c echo.Context) error {
        gotID, _ = UserID(c)
        gotRole = Role(c)
        return c.NoContent(http.StatusNoContent)
    }

    rec := serve(t, h, "Bearer "+tok.Token, JWTAuth(secret))
    require.Equal(t, http.StatusNoContent, rec.Code)
    require.Equal(t, uint64(9), gotID)
    require.Equal(t, "OPERATOR", gotRole)

    rec = serve(t, h, "", JWTAuth(secret))
    require.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = serve(t, h, "Bearer garbage", JWTAuth(secret))
    require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
    tok, err := utils.NewAccessToken(secret, 3, "CUSTOMER", 5)
    require.NoError(t, err)
    ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

    rec := serve(t, ok, "Bearer "+tok.Token, JWTAuth(secret), RequireRole("OPERATOR"))
    require.Equal(t, http.StatusForbidden, rec.Code)

    rec = serve(t, ok, "Bearer "+tok.Token, JWTAuth(secret), RequireRole("CUSTOMER", "OPERATOR"))
    require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDisabledLayersPassThrough(t *testing.T) {
    ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }

    rec := serve(t, ok, "", NewRedisCache(config.CacheConfig{Enabled: true}, nil))
    require.Equal(t, http.StatusOK, rec.Code)
    require.Empty(t, rec.Header().Get("X-Cache"))

    rec = serve(t, ok, "", NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil))
    require.Equal(t, http.StatusOK, rec.Code)
}

func TestCachePayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": []string{"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
    require.NoError(t, err)

    status, got, body, ok := decodePayload(bs)
    require.True(t, ok)
    require.Equal(t, http.StatusOK, status)
    require.Equal(t, "application/json", got.Get("Content-Type"))
    require.Equal(t, `{"a":1}`, string(body))

    _, _, _, ok = decodePayload(bs[:5])
    require.False(t, ok)
}
