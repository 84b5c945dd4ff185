package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/presenter"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

type seriesService interface {
	StartSeries(ctx context.Context, sessionID string, numGames int) (*entity.Series, error)
	GetSeries(ctx context.Context, sessionID string) (*entity.Series, error)
	NextMove(ctx context.Context, sessionID string) (*entity.Series, *usecase.TurnResult, error)
	NextGame(ctx context.Context, sessionID string) (*entity.Series, error)
}

type SeriesHandler interface {
	StartGames(ctx echo.Context) error
	GameState(ctx echo.Context) error
	NextMove(ctx echo.Context) error
	NextGame(ctx echo.Context) error
}

var errNotANumber = errors.New("not a number")

type (
	// gameCount - accepts 5, 5.0 and "5". null keeps the default.
	gameCount int

	startGamesRequest struct {
		NumGames gameCount `json:"num_games"`
	}

	stateResponse struct {
		Success   bool                   `json:"success"`
		GameState *presenter.ClientState `json:"game_state"`
	}

	moveResponse struct {
		Success     bool                   `json:"success"`
		Move        string                 `json:"move"`
		Model       string                 `json:"model"`
		Mark        string                 `json:"mark"`
		ElapsedTime float64                `json:"elapsed_time"`
		GameState   *presenter.ClientState `json:"game_state"`
	}
)

func (that *gameCount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}

	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}

	if n, err := strconv.Atoi(raw); err == nil {
		*that = gameCount(n)
		return nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("num_games %s: %w", raw, errNotANumber)
	}

	// anything outside the series range is clamped later, this only keeps the conversion defined
	*that = gameCount(math.Max(math.Min(f, entity.MaxSeriesGames+1), entity.MinSeriesGames-1))

	return nil
}

type seriesHandler struct {
	logger *slog.Logger
	series seriesService
}

func NewSeriesHandler(logger *slog.Logger, series seriesService) SeriesHandler {
	return &seriesHandler{
		logger: logger.With("component", "series_handler"),
		series: series,
	}
}

// StartGames - POST /api/start-games {"num_games": n}. n is clamped to the allowed range.
func (that *seriesHandler) StartGames(ctx echo.Context) error {
	log := that.logger.With("method", "StartGames")

	request := startGamesRequest{NumGames: gameCount(entity.MinSeriesGames)}
	if err := ctx.Bind(&request); err != nil {
		log.Debug("failed to bind request", "error", err)
		return ctx.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
	}

	series, err := that.series.StartSeries(ctx.Request().Context(), SessionID(ctx), int(request.NumGames))
	if err != nil {
		return that.fail(ctx, log, err)
	}

	return ctx.JSON(http.StatusOK, stateResponse{Success: true, GameState: presenter.Project(series)})
}

// GameState - GET /api/game-state.
func (that *seriesHandler) GameState(ctx echo.Context) error {
	log := that.logger.With("method", "GameState")

	series, err := that.series.GetSeries(ctx.Request().Context(), SessionID(ctx))
	if err != nil {
		return that.fail(ctx, log, err)
	}

	return ctx.JSON(http.StatusOK, presenter.Project(series))
}

// NextMove - POST /api/next-move. Blocks for as long as the provider thinks.
func (that *seriesHandler) NextMove(ctx echo.Context) error {
	log := that.logger.With("method", "NextMove")

	series, result, err := that.series.NextMove(ctx.Request().Context(), SessionID(ctx))
	if err != nil {
		return that.fail(ctx, log, err)
	}

	return ctx.JSON(http.StatusOK, moveResponse{
		Success:     true,
		Move:        string(result.Move),
		Model:       string(result.Provider),
		Mark:        string(result.Mark),
		ElapsedTime: result.ElapsedSeconds,
		GameState:   presenter.Project(series),
	})
}

// NextGame - POST /api/next-game.
func (that *seriesHandler) NextGame(ctx echo.Context) error {
	log := that.logger.With("method", "NextGame")

	series, err := that.series.NextGame(ctx.Request().Context(), SessionID(ctx))
	if err != nil {
		return that.fail(ctx, log, err)
	}

	return ctx.JSON(http.StatusOK, stateResponse{Success: true, GameState: presenter.Project(series)})
}

func (that *seriesHandler) fail(ctx echo.Context, log *slog.Logger, err error) error {
	status, message := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "session", SessionID(ctx), "error", err)
	} else {
		log.Info("request rejected", "session", SessionID(ctx), "error", err)
	}

	return ctx.JSON(status, errorResponse{Error: message})
}
