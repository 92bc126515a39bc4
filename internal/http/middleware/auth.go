package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/you/accountsvc/domain"
)

// AuthMW wraps the credential stores for middleware
type AuthMW struct {
	tokenSvc    domain.TokenService
	revocations domain.RevocationRepository
	sessionRepo domain.SessionRepository
	logger      *slog.Logger
}

// NewAuthMW creates new auth middleware wrapper
func NewAuthMW(tokenSvc domain.TokenService, revocations domain.RevocationRepository, sessionRepo domain.SessionRepository, logger *slog.Logger) *AuthMW {
	return &AuthMW{
		tokenSvc:    tokenSvc,
		revocations: revocations,
		sessionRepo: sessionRepo,
		logger:      logger,
	}
}

// Required rejects unauthenticated requests with 401
func (mw *AuthMW) Required() gin.HandlerFunc {
	return AuthMiddleware(mw.tokenSvc, mw.revocations, mw.sessionRepo, mw.logger, false)
}

// Optional resolves the caller when possible and never rejects
func (mw *AuthMW) Optional() gin.HandlerFunc {
	return AuthMiddleware(mw.tokenSvc, mw.revocations, mw.sessionRepo, mw.logger, true)
}
