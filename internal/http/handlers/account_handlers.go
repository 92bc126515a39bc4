package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/http/middleware"
)

// Redirect targets of the browser flow
const (
	VerifyOTPPath = "/verify-otp"
	ProfilePath   = "/profile"
	DashboardPath = "/dashboard"
	SignInPath    = "/sign"
)

// CookieOptions are the attributes applied when auth cookies are set or cleared
type CookieOptions struct {
	Secure        bool
	SameSite      http.SameSite
	SessionMaxAge time.Duration
	TokenMaxAge   time.Duration
}

// AccountHandlers handles account HTTP requests
type AccountHandlers struct {
	accountSvc domain.AccountService
	cookies    CookieOptions
	logger     *slog.Logger
}

// NewAccountHandlers creates new account handlers
func NewAccountHandlers(accountSvc domain.AccountService, cookies CookieOptions, logger *slog.Logger) *AccountHandlers {
	return &AccountHandlers{
		accountSvc: accountSvc,
		cookies:    cookies,
		logger:     logger,
	}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// CredentialsRequest represents login and token requests
type CredentialsRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// ResendOTPRequest represents a request for a fresh code
type ResendOTPRequest struct {
	Email string `form:"email" json:"email"`
}

// UpdateUserRequest represents a partial account update
type UpdateUserRequest struct {
	Name     *string `form:"name" json:"name"`
	Password *string `form:"password" json:"password"`
}

// Register handles user registration
func (h *AccountHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.accountSvc.Register(c.Request.Context(), domain.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, VerifyOTPPath+"?email="+url.QueryEscape(user.Email))
}

// VerifyOTP handles email verification with the code from the confirmation mail
func (h *AccountHandlers) VerifyOTP(c *gin.Context) {
	if err := h.accountSvc.VerifyOTP(c.Request.Context(), c.Query("email"), c.Query("otp")); err != nil {
		h.respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, ProfilePath)
}

// ResendOTP handles requests for a fresh code
func (h *AccountHandlers) ResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.accountSvc.ResendOTP(c.Request.Context(), req.Email); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": "A new OTP has been sent to your email",
		},
	})
}

// Login handles the browser login and sets the session cookie
func (h *AccountHandlers) Login(c *gin.Context) {
	var req CredentialsRequest
	if !h.bind(c, &req) {
		return
	}

	session, err := h.accountSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.setCookie(c, middleware.SessionCookie, session.ID, h.cookies.SessionMaxAge)
	c.Redirect(http.StatusFound, DashboardPath)
}

// IssueToken handles bearer token issuance for API clients
func (h *AccountHandlers) IssueToken(c *gin.Context) {
	var req CredentialsRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.accountSvc.IssueToken(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.setCookie(c, middleware.TokenCookie, result.Token, h.cookies.TokenMaxAge)
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message":    "Token issued successfully",
			"token":      result.Token,
			"token_type": "Bearer",
			"expires_at": result.ExpiresAt.UTC(),
			"user":       result.User.Public(),
		},
	})
}

// Me handles getting the caller's profile
func (h *AccountHandlers) Me(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.respondError(c, domain.NewUnauthorizedError())
		return
	}

	user, err := h.accountSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"user": user.Public()}})
}

// UpdateMe handles a partial update of the caller's account
func (h *AccountHandlers) UpdateMe(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.respondError(c, domain.NewUnauthorizedError())
		return
	}

	var req UpdateUserRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.accountSvc.UpdateUser(c.Request.Context(), userID, domain.UpdateInput{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"user": user.Public()}})
}

// DeleteMe handles removal of the caller's account
func (h *AccountHandlers) DeleteMe(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		h.respondError(c, domain.NewUnauthorizedError())
		return
	}

	if err := h.accountSvc.DeleteUser(c.Request.Context(), userID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": "User deleted successfully",
		},
	})
}

// Logout handles logout. The session cookie is honoured even when the
// session already expired so the cookies always get cleared.
func (h *AccountHandlers) Logout(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	if sessionID == "" {
		sessionID, _ = c.Cookie(middleware.SessionCookie)
	}

	if err := h.accountSvc.Logout(c.Request.Context(), sessionID, middleware.TokenClaims(c)); err != nil {
		h.respondError(c, err)
		return
	}

	h.clearCookie(c, middleware.SessionCookie)
	h.clearCookie(c, middleware.TokenCookie)
	c.Redirect(http.StatusFound, SignInPath)
}

// bind decodes form or JSON bodies depending on Content-Type
func (h *AccountHandlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBind(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func (h *AccountHandlers) setCookie(c *gin.Context, name, value string, maxAge time.Duration) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(name, value, int(maxAge.Seconds()), "/", "", h.cookies.Secure, true)
}

func (h *AccountHandlers) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(h.cookies.SameSite)
	c.SetCookie(name, "", -1, "/", "", h.cookies.Secure, true)
}

// respondError writes typed errors with their status and message; anything
// else is logged and reported as a generic server error.
func (h *AccountHandlers) respondError(c *gin.Context, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.ErrorContext(c.Request.Context(), "request failed",
				"path", c.FullPath(), "kind", appErr.Kind, "error", err)
		}
		c.JSON(appErr.Status, gin.H{"error": appErr.Message})
		return
	}

	h.logger.ErrorContext(c.Request.Context(), "unexpected error", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": domain.MsgInternal})
}
