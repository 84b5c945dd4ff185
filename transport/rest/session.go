package rest

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	sessionName  = "arena"
	sessionIDKey = "session_id"
)

// SessionID - id of the caller's series, set by the session middleware.
func SessionID(ctx echo.Context) string {
	id, _ := ctx.Get(sessionIDKey).(string)
	return id
}

// sessionMiddleware - makes sure every caller carries a session id in its signed cookie.
func sessionMiddleware(logger *slog.Logger, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			userSession, err := session.Get(sessionName, ctx)
			if userSession == nil {
				return fmt.Errorf("failed to get session: %w", err)
			}
			if err != nil {
				// a cookie signed with an old secret yields a fresh session
				logger.Debug("discarding unreadable session cookie", "error", err)
			}

			id, ok := userSession.Values[sessionIDKey].(string)
			if !ok || id == "" {
				id = uuid.NewString()
				userSession.Values[sessionIDKey] = id
				userSession.Options = &sessions.Options{
					Path:     "/",
					MaxAge:   int(ttl.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				}

				if err = userSession.Save(ctx.Request(), ctx.Response()); err != nil {
					return fmt.Errorf("failed to save session: %w", err)
				}
			}

			ctx.Set(sessionIDKey, id)

			return next(ctx)
		}
	}
}
