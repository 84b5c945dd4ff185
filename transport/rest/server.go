package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
)

const shutdownTimeout = 10 * time.Second

// NewServer - echo instance with sessions, access logging and the arena routes.
// extra registers additional routes behind the same session middleware.
func NewServer(
	logger *slog.Logger,
	conf *config.Config,
	ping PingHandler,
	series SeriesHandler,
	extra ...func(group *echo.Group),
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(conf.Session.Secret))))

	e.GET("/ping", ping.Ping)

	withSession := e.Group("", sessionMiddleware(logger, conf.Session.TTL))

	api := withSession.Group("/api")
	api.POST("/start-games", series.StartGames)
	api.GET("/game-state", series.GameState)
	api.POST("/next-move", series.NextMove)
	api.POST("/next-game", series.NextGame)

	for _, register := range extra {
		register(withSession)
	}

	if conf.StaticDir != "" {
		withSession.Static("/", conf.StaticDir)
	}

	return e
}

// Start - serves until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, e *echo.Echo, port string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	log := logger.With("component", "http")

	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(ctx echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			log.LogAttrs(ctx.Request().Context(), level, "request", attrs...)

			return nil
		},
	})
}
