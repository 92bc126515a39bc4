package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/you/accountsvc/domain"
)

// Cookie names shared with the handlers
const (
	SessionCookie = "sid"
	TokenCookie   = "token"
)

// Context keys set by the middleware
const (
	ContextUserID      = "user_id"
	ContextSessionID   = "session_id"
	ContextTokenClaims = "token_claims"
)

// errNoCredentials means the request carried neither a token nor a session cookie
var errNoCredentials = errors.New("no credentials")

// identity is what a request authenticated as
type identity struct {
	userID    uint
	sessionID string
	claims    *domain.TokenClaims
}

// AuthMiddleware creates authentication middleware. A bearer token (header or
// token cookie) is tried first, then the session cookie. With optional set the
// request continues unauthenticated instead of being rejected.
func AuthMiddleware(tokenSvc domain.TokenService, revocations domain.RevocationRepository, sessionRepo domain.SessionRepository, logger *slog.Logger, optional bool) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		id, err := resolve(c, tokenSvc, revocations, sessionRepo)
		if err != nil {
			var appErr *domain.AppError
			if errors.As(err, &appErr) && appErr.Kind == domain.KindInternal {
				logger.ErrorContext(c.Request.Context(), "authentication lookup failed", "path", c.FullPath(), "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": domain.MsgInternal})
				return
			}
			if optional {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.MsgAuthRequired})
			return
		}

		c.Set(ContextUserID, id.userID)
		if id.sessionID != "" {
			c.Set(ContextSessionID, id.sessionID)
		}
		if id.claims != nil {
			c.Set(ContextTokenClaims, id.claims)
		}
		c.Next()
	})
}

func resolve(c *gin.Context, tokenSvc domain.TokenService, revocations domain.RevocationRepository, sessionRepo domain.SessionRepository) (*identity, error) {
	ctx := c.Request.Context()

	if token := bearerToken(c); token != "" {
		claims, err := tokenSvc.Validate(token)
		if err == nil {
			revoked, rerr := revocations.IsRevoked(ctx, claims.TokenID)
			if rerr != nil {
				return nil, domain.NewInternalError(rerr)
			}
			if !revoked {
				return &identity{userID: claims.UserID, claims: claims}, nil
			}
		}
		// a bad token falls through to the session cookie
	}

	sessionID, err := c.Cookie(SessionCookie)
	if err != nil || sessionID == "" {
		return nil, errNoCredentials
	}
	session, err := sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrSessionExpired) {
			return nil, err
		}
		return nil, domain.NewInternalError(err)
	}
	return &identity{userID: session.UserID, sessionID: session.ID}, nil
}

// bearerToken reads "Authorization: Bearer <token>" or the token cookie
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	token, err := c.Cookie(TokenCookie)
	if err != nil {
		return ""
	}
	return token
}

// UserID returns the authenticated user id
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// SessionID returns the id of the session the request authenticated with
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}

// TokenClaims returns the claims of the bearer token the request authenticated with
func TokenClaims(c *gin.Context) *domain.TokenClaims {
	v, ok := c.Get(ContextTokenClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*domain.TokenClaims)
	return claims
}
