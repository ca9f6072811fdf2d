package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/chhs/grades-backend/internal/response"
	"github.com/chhs/grades-backend/internal/service"
)

// SessionChecker reports whether a session ID is still live.
type SessionChecker interface {
	CheckSession(ctx context.Context, jti string) error
}

// CheckActiveSession rejects tokens whose session was ended. Must run after RequireJWT.
func CheckActiveSession(sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if err := sessions.CheckSession(c.Request.Context(), claims.ID); err != nil {
			if errors.Is(err, service.ErrSessionEnded) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
				return
			}
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("Session registry check failed")
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}

		c.Next()
	}
}
