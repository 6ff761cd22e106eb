package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-reservation/internal/config"
	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/repository"
	"github.com/iliyamo/parking-reservation/internal/utils"
)

type fakeUsers struct {
	mu    sync.Mutex
	users []model.User
}

func (f *fakeUsers) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	u := model.User{ID: uint64(len(f.users) + 1), Email: email, PasswordHash: hash, Role: role, IsActive: true}
	f.users = append(f.users, u)
	return u.ID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

type fakeTokens struct {
	mu     sync.Mutex
	tokens map[string]uint64
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[hash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, hash)
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, id := range f.tokens {
		if id == userID {
			delete(f.tokens, h)
		}
	}
	return nil
}

func newAuthEcho(t *testing.T) (*echo.Echo, *fakeTokens) {
	t.Helper()
	cfg := config.Config{JWTSecret: "auth-secret", AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4}
	tokens := &fakeTokens{tokens: map[string]uint64{}}
	h := NewAuthHandler(cfg, &fakeUsers{}, tokens, nil)
	e := echo.New()
	e.POST("/register", h.Register)
	e.POST("/login", h.Login)
	e.POST("/refresh", h.Refresh)
	e.POST("/logout", h.Logout)
	return e, tokens
}

func post(t *testing.T, e *echo.Echo, path, body, auth string) (int, authResp) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out authResp
	if rec.Code == http.StatusOK || rec.Code == http.StatusCreated {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	e, tokens := newAuthEcho(t)

	code, reg := post(t, e, "/register", `{"email":" Jane@Example.com ","password":"correct-horse"}`, "")
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "jane@example.com", reg.User.Email)
	require.Equal(t, model.RoleCustomer, reg.User.Role)

	code, _ = post(t, e, "/register", `{"email":"jane@example.com","password":"correct-horse"}`, "")
	require.Equal(t, http.StatusConflict, code)

	code, _ = post(t, e, "/register", `{"email":"bob@example.com","password":"short"}`, "")
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = post(t, e, "/login", `{"email":"jane@example.com","password":"wrong-horse"}`, "")
	require.Equal(t, http.StatusUnauthorized, code)

	code, login := post(t, e, "/login", `{"email":"jane@example.com","password":"correct-horse"}`, "")
	require.Equal(t, http.StatusOK, code)
	claims, err := utils.ParseAccessToken("auth-secret", login.Access.Token)
	require.NoError(t, err)
	require.Equal(t, model.RoleCustomer, claims.Role)

	code, refreshed := post(t, e, "/refresh", `{"refresh_token":"`+login.Refresh.Token+`"}`, "")
	require.Equal(t, http.StatusOK, code)
	require.NotEqual(t, login.Refresh.Token, refreshed.Refresh.Token)

	// rotated token is single-use
	code, _ = post(t, e, "/refresh", `{"refresh_token":"`+login.Refresh.Token+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, code)

	code, _ = post(t, e, "/logout", "", "Bearer "+refreshed.Access.Token)
	require.Equal(t, http.StatusNoContent, code)
	require.Empty(t, tokens.tokens)

	code, _ = post(t, e, "/logout", "", "")
	require.Equal(t, http.StatusBadRequest, code)
}

func TestRegisterOperatorRole(t *testing.T) {
	e, _ := newAuthEcho(t)
	code, out := post(t, e, "/register", `{"email":"op@example.com","password":"operator-pass","role":"operator"}`, "")
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, model.RoleOperator, out.User.Role)

	code, _ = post(t, e, "/register", `{"email":"x@example.com","password":"operator-pass","role":"ADMIN"}`, "")
	require.Equal(t, http.StatusBadRequest, code)
}
