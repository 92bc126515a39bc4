package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/http/middleware"
	"github.com/you/accountsvc/internal/mocks"
)

var testCookies = CookieOptions{
	Secure:        true,
	SameSite:      http.SameSiteStrictMode,
	SessionMaxAge: time.Hour,
	TokenMaxAge:   2 * time.Hour,
}

// newTestRouter mounts the handlers; withUser simulates the auth middleware
func newTestRouter(svc domain.AccountService, withUser func(c *gin.Context)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAccountHandlers(svc, testCookies, slog.New(slog.NewTextHandler(io.Discard, nil)))

	auth := func(c *gin.Context) {
		if withUser != nil {
			withUser(c)
		}
		c.Next()
	}

	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.GET("/auth/verify-otp", h.VerifyOTP)
	r.POST("/auth/resend-otp", h.ResendOTP)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", auth, h.Logout)
	r.POST("/api/auth/token", h.IssueToken)
	r.GET("/api/users/me", auth, h.Me)
	r.PATCH("/api/users/me", auth, h.UpdateMe)
	r.DELETE("/api/users/me", auth, h.DeleteMe)
	return r
}

func asUser(id uint) func(c *gin.Context) {
	return func(c *gin.Context) { c.Set(middleware.ContextUserID, id) }
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(method, target string, body any) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAccountHandlers_Register(t *testing.T) {
	tests := []struct {
		name         string
		req          *http.Request
		serviceErr   error
		wantStatus   int
		wantLocation string
		wantError    string
	}{
		{
			name:         "form post redirects to otp entry",
			req:          formRequest(http.MethodPost, "/auth/register", url.Values{"name": {"Ada"}, "email": {"ada+1@example.com"}, "password": {"s3cure!pass"}}),
			wantStatus:   http.StatusFound,
			wantLocation: "/verify-otp?email=ada%2B1%40example.com",
		},
		{
			name:         "json body",
			req:          jsonRequest(http.MethodPost, "/auth/register", map[string]string{"name": "Ada", "email": "ada@example.com", "password": "s3cure!pass"}),
			wantStatus:   http.StatusFound,
			wantLocation: "/verify-otp?email=ada%40example.com",
		},
		{
			name:       "validation error",
			req:        formRequest(http.MethodPost, "/auth/register", url.Values{"email": {"ada@example.com"}}),
			serviceErr: domain.NewValidationError(domain.MsgFieldsRequired),
			wantStatus: http.StatusBadRequest,
			wantError:  domain.MsgFieldsRequired,
		},
		{
			name:       "conflict",
			req:        formRequest(http.MethodPost, "/auth/register", url.Values{"email": {"ada@example.com"}}),
			serviceErr: domain.NewConflictError(domain.MsgEmailInUse),
			wantStatus: http.StatusConflict,
			wantError:  domain.MsgEmailInUse,
		},
		{
			name:       "delivery failure",
			req:        formRequest(http.MethodPost, "/auth/register", url.Values{"email": {"ada@example.com"}}),
			serviceErr: domain.NewDeliveryError(domain.MsgRegisterDelivery, errors.New("smtp down")),
			wantStatus: http.StatusInternalServerError,
			wantError:  domain.MsgRegisterDelivery,
		},
		{
			name:       "malformed json",
			req:        httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{")),
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "malformed json" {
				tt.req.Header.Set("Content-Type", "application/json")
			}
			svc := mocks.NewMockAccountService()
			svc.RegisterFunc = func(ctx context.Context, input domain.RegisterInput) (*domain.User, error) {
				if tt.serviceErr != nil {
					return nil, tt.serviceErr
				}
				return &domain.User{ID: 1, Name: input.Name, Email: input.Email}, nil
			}

			w := serve(newTestRouter(svc, nil), tt.req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, w.Header().Get("Location"))
			}
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeBody(t, w)["error"])
			}
		})
	}
}

func TestAccountHandlers_VerifyOTP(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{"success redirects to profile", nil, http.StatusFound, ""},
		{"invalid otp", domain.NewInvalidOTPError(), http.StatusBadRequest, domain.MsgInvalidOTP},
		{"unknown user", domain.NewNotFoundError(domain.MsgUserNotFound), http.StatusNotFound, domain.MsgUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotEmail, gotOTP string
			svc := mocks.NewMockAccountService()
			svc.VerifyOTPFunc = func(ctx context.Context, email, otp string) error {
				gotEmail, gotOTP = email, otp
				return tt.serviceErr
			}

			w := serve(newTestRouter(svc, nil), httptest.NewRequest(http.MethodGet, "/auth/verify-otp?email=ada%40example.com&otp=123456", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "ada@example.com", gotEmail)
			assert.Equal(t, "123456", gotOTP)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeBody(t, w)["error"])
			} else {
				assert.Equal(t, ProfilePath, w.Header().Get("Location"))
			}
		})
	}
}

func TestAccountHandlers_ResendOTP(t *testing.T) {
	svc := mocks.NewMockAccountService()
	r := newTestRouter(svc, nil)

	w := serve(r, jsonRequest(http.MethodPost, "/auth/resend-otp", map[string]string{"email": "ada@example.com"}))
	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.NotEmpty(t, data["message"])

	svc.ResendOTPFunc = func(ctx context.Context, email string) error {
		return domain.NewDeliveryError(domain.MsgResendDelivery, errors.New("smtp down"))
	}
	w = serve(r, jsonRequest(http.MethodPost, "/auth/resend-otp", map[string]string{"email": "ada@example.com"}))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, domain.MsgResendDelivery, decodeBody(t, w)["error"])
}

func TestAccountHandlers_Login(t *testing.T) {
	svc := mocks.NewMockAccountService()
	svc.LoginFunc = func(ctx context.Context, email, password string) (*domain.Session, error) {
		if email == "ada@example.com" && password == "s3cure!pass" {
			return &domain.Session{ID: "sid-123", UserID: 1, Name: "Ada"}, nil
		}
		return nil, domain.NewUnauthorizedError()
	}
	r := newTestRouter(svc, nil)

	w := serve(r, formRequest(http.MethodPost, "/auth/login", url.Values{"email": {"ada@example.com"}, "password": {"s3cure!pass"}}))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, DashboardPath, w.Header().Get("Location"))

	cookie := findCookie(w, middleware.SessionCookie)
	require.NotNil(t, cookie)
	assert.Equal(t, "sid-123", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 3600, cookie.MaxAge)

	w = serve(r, formRequest(http.MethodPost, "/auth/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, domain.MsgInvalidCredentials, decodeBody(t, w)["error"])
	assert.Nil(t, findCookie(w, middleware.SessionCookie))
}

func TestAccountHandlers_IssueToken(t *testing.T) {
	otp := "123456"
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := mocks.NewMockAccountService()
	svc.IssueTokenFunc = func(ctx context.Context, email, password string) (*domain.AuthResult, error) {
		return &domain.AuthResult{
			User:      &domain.User{ID: 1, Name: "Ada", Email: email, PasswordHash: "$2a$hash", OTP: &otp, OTPExpires: &expires},
			Token:     "signed.jwt.token",
			TokenID:   "jti",
			ExpiresAt: expires,
		}, nil
	}

	w := serve(newTestRouter(svc, nil), jsonRequest(http.MethodPost, "/api/auth/token", map[string]string{"email": "ada@example.com", "password": "s3cure!pass"}))

	require.Equal(t, http.StatusOK, w.Code)
	raw := w.Body.String()
	assert.NotContains(t, raw, "password")
	assert.NotContains(t, raw, "$2a$hash")
	assert.NotContains(t, raw, "otp")

	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "signed.jwt.token", data["token"])
	user := data["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, false, user["verified"])

	cookie := findCookie(w, middleware.TokenCookie)
	require.NotNil(t, cookie)
	assert.Equal(t, "signed.jwt.token", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 7200, cookie.MaxAge)
}

func TestAccountHandlers_Me(t *testing.T) {
	svc := mocks.NewMockAccountService()
	svc.GetProfileFunc = func(ctx context.Context, userID uint) (*domain.User, error) {
		return &domain.User{ID: userID, Name: "Ada", Email: "ada@example.com", PasswordHash: "secret-hash"}, nil
	}

	w := serve(newTestRouter(svc, asUser(5)), httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-hash")
	user := decodeBody(t, w)["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, float64(5), user["id"])

	w = serve(newTestRouter(svc, nil), httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccountHandlers_UpdateMe(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		serviceErr error
		wantStatus int
		wantInput  domain.UpdateInput
	}{
		{
			name:       "password only",
			body:       map[string]any{"password": "n3w-secret!"},
			wantStatus: http.StatusOK,
			wantInput:  domain.UpdateInput{Password: ptr("n3w-secret!")},
		},
		{
			name:       "name only",
			body:       map[string]any{"name": "Ada King"},
			wantStatus: http.StatusOK,
			wantInput:  domain.UpdateInput{Name: ptr("Ada King")},
		},
		{
			name:       "nothing supplied",
			body:       map[string]any{},
			serviceErr: domain.NewValidationError(domain.MsgNoUpdateData),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "record gone",
			body:       map[string]any{"name": "X"},
			serviceErr: domain.NewNotFoundError(domain.MsgUserNotFound),
			wantStatus: http.StatusNotFound,
			wantInput:  domain.UpdateInput{Name: ptr("X")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotInput domain.UpdateInput
			svc := mocks.NewMockAccountService()
			svc.UpdateUserFunc = func(ctx context.Context, userID uint, input domain.UpdateInput) (*domain.User, error) {
				assert.Equal(t, uint(9), userID)
				gotInput = input
				if tt.serviceErr != nil {
					return nil, tt.serviceErr
				}
				return &domain.User{ID: userID, Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"}, nil
			}

			w := serve(newTestRouter(svc, asUser(9)), jsonRequest(http.MethodPatch, "/api/users/me", tt.body))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK || tt.wantInput != (domain.UpdateInput{}) {
				assert.Equal(t, tt.wantInput, gotInput)
			}
			assert.NotContains(t, w.Body.String(), "password")
		})
	}
}

func TestAccountHandlers_DeleteMe(t *testing.T) {
	svc := mocks.NewMockAccountService()
	r := newTestRouter(svc, asUser(2))

	w := serve(r, httptest.NewRequest(http.MethodDelete, "/api/users/me", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	svc.DeleteUserFunc = func(ctx context.Context, userID uint) error {
		return domain.NewNotFoundError(domain.MsgUserNotFound)
	}
	w = serve(r, httptest.NewRequest(http.MethodDelete, "/api/users/me", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAccountHandlers_Logout(t *testing.T) {
	claims := &domain.TokenClaims{UserID: 1, TokenID: "jti"}

	tests := []struct {
		name          string
		withUser      func(c *gin.Context)
		cookie        *http.Cookie
		serviceErr    error
		wantStatus    int
		wantSessionID string
		wantClaims    bool
	}{
		{
			name: "resolved session and token",
			withUser: func(c *gin.Context) {
				c.Set(middleware.ContextSessionID, "sid-1")
				c.Set(middleware.ContextTokenClaims, claims)
			},
			wantStatus:    http.StatusFound,
			wantSessionID: "sid-1",
			wantClaims:    true,
		},
		{
			name:          "stale session cookie",
			cookie:        &http.Cookie{Name: middleware.SessionCookie, Value: "stale"},
			wantStatus:    http.StatusFound,
			wantSessionID: "stale",
		},
		{
			name:          "destroy fails",
			cookie:        &http.Cookie{Name: middleware.SessionCookie, Value: "sid-2"},
			serviceErr:    domain.NewSessionError(errors.New("redis down")),
			wantStatus:    http.StatusInternalServerError,
			wantSessionID: "sid-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSessionID string
			var gotClaims *domain.TokenClaims
			svc := mocks.NewMockAccountService()
			svc.LogoutFunc = func(ctx context.Context, sessionID string, c *domain.TokenClaims) error {
				gotSessionID, gotClaims = sessionID, c
				return tt.serviceErr
			}

			req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := serve(newTestRouter(svc, tt.withUser), req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantSessionID, gotSessionID)
			assert.Equal(t, tt.wantClaims, gotClaims != nil)

			if tt.wantStatus != http.StatusFound {
				assert.Equal(t, domain.MsgLogoutFailed, decodeBody(t, w)["error"])
				return
			}
			assert.Equal(t, SignInPath, w.Header().Get("Location"))
			for _, name := range []string{middleware.SessionCookie, middleware.TokenCookie} {
				cookie := findCookie(w, name)
				require.NotNil(t, cookie, name)
				assert.Empty(t, cookie.Value)
				assert.Less(t, cookie.MaxAge, 0)
				assert.True(t, cookie.HttpOnly)
				assert.True(t, cookie.Secure)
				assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
			}
		})
	}
}

func TestAccountHandlers_UntypedErrorsAreHidden(t *testing.T) {
	svc := mocks.NewMockAccountService()
	svc.ResendOTPFunc = func(ctx context.Context, email string) error {
		return errors.New("pq: relation users does not exist")
	}

	w := serve(newTestRouter(svc, nil), jsonRequest(http.MethodPost, "/auth/resend-otp", map[string]string{"email": "a@b.c"}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, domain.MsgInternal, decodeBody(t, w)["error"])
}

func ptr(s string) *string { return &s }
