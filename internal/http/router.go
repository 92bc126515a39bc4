package httpx

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/you/accountsvc/internal/http/handlers"
	"github.com/you/accountsvc/internal/http/middleware"
)

// BuildRouter mounts the account routes. metrics may be nil.
func BuildRouter(ah *handlers.AccountHandlers, authmw *middleware.AuthMW, metrics http.Handler, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	auth := r.Group("/auth")
	auth.POST("/register", ah.Register)
	auth.GET("/verify-otp", ah.VerifyOTP)
	auth.POST("/resend-otp", ah.ResendOTP)
	auth.POST("/login", ah.Login)
	auth.POST("/logout", authmw.Optional(), ah.Logout)

	api := r.Group("/api")
	api.POST("/auth/token", ah.IssueToken)

	me := api.Group("/users/me", authmw.Required())
	me.GET("", ah.Me)
	me.PATCH("", ah.UpdateMe)
	me.DELETE("", ah.DeleteMe)

	return r
}
