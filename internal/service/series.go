package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/presenter"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

type SeriesService interface {
	StartSeries(ctx context.Context, sessionID string, numGames int) (*entity.Series, error)
	GetSeries(ctx context.Context, sessionID string) (*entity.Series, error)

	NextMove(ctx context.Context, sessionID string) (*entity.Series, *usecase.TurnResult, error)
	NextGame(ctx context.Context, sessionID string) (*entity.Series, error)
}

type seriesRepo interface {
	CreateOrUpdate(ctx context.Context, series *entity.Series) error
	GetByID(ctx context.Context, id string) (*entity.Series, error)
}

type sessionLocker interface {
	Acquire(ctx context.Context, id string) (repository.ReleaseFunc, error)
}

type publisher interface {
	Publish(ctx context.Context, seriesID string, payload []byte) error
}

type orchestrator interface {
	NewSeries(id string, totalGames int) (*entity.Series, error)
	AdvanceTurn(ctx context.Context, series *entity.Series) (*usecase.TurnResult, error)
	AdvanceSeries(series *entity.Series) error
}

const (
	busyRetries    = 20
	busyRetryDelay = 50 * time.Millisecond
)

type seriesService struct {
	logger *slog.Logger

	// state queries on a fresh session retry while another request holds the lock
	busyRetries    int
	busyRetryDelay time.Duration

	seriesRepo   seriesRepo
	locker       sessionLocker
	publisher    publisher
	orchestrator orchestrator
}

func NewSeriesService(
	logger *slog.Logger,
	seriesRepo seriesRepo,
	locker sessionLocker,
	publisher publisher,
	orchestrator orchestrator,
) SeriesService {
	return &seriesService{
		logger:         logger.With("component", "series_service"),
		busyRetries:    busyRetries,
		busyRetryDelay: busyRetryDelay,
		seriesRepo:     seriesRepo,
		locker:         locker,
		publisher:      publisher,
		orchestrator:   orchestrator,
	}
}

// ClampSeriesLength - forces a requested number of games into the allowed range.
func ClampSeriesLength(numGames int) int {
	return min(max(numGames, entity.MinSeriesGames), entity.MaxSeriesGames)
}

// StartSeries - replaces whatever the session was playing with a fresh series.
func (that *seriesService) StartSeries(ctx context.Context, sessionID string, numGames int) (*entity.Series, error) {
	log := that.logger.With("method", "StartSeries", "session", sessionID)

	var series *entity.Series
	err := that.withLock(ctx, sessionID, func() error {
		var err error
		series, err = that.orchestrator.NewSeries(sessionID, ClampSeriesLength(numGames))
		if err != nil {
			return fmt.Errorf("failed to create series: %w", err)
		}

		return that.save(ctx, series)
	})
	if err != nil {
		return nil, err
	}

	log.Info("series started", "total_games", series.TotalGames, "x", series.Game.X)

	return series, nil
}

// GetSeries - returns the session's series, starting a single-game one when there is none.
// A series stored by a concurrent request is never replaced.
func (that *seriesService) GetSeries(ctx context.Context, sessionID string) (*entity.Series, error) {
	for attempt := 0; ; attempt++ {
		series, err := that.seriesRepo.GetByID(ctx, sessionID)
		if err == nil {
			return series, nil
		}

		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("failed to get series: %w", err)
		}

		series, err = that.startIfMissing(ctx, sessionID)
		if err == nil {
			return series, nil
		}

		if !errors.Is(err, apperror.ErrSessionBusy) || attempt >= that.busyRetries {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to get series: %w", ctx.Err())
		case <-time.After(that.busyRetryDelay):
		}
	}
}

// startIfMissing - re-reads under the lock and creates a single-game series only when the session still has none.
func (that *seriesService) startIfMissing(ctx context.Context, sessionID string) (*entity.Series, error) {
	log := that.logger.With("method", "startIfMissing", "session", sessionID)

	var (
		series  *entity.Series
		created bool
	)

	err := that.withLock(ctx, sessionID, func() error {
		var err error
		series, err = that.seriesRepo.GetByID(ctx, sessionID)
		if err == nil {
			return nil
		}

		if !errors.Is(err, apperror.ErrNotFound) {
			return fmt.Errorf("failed to get series: %w", err)
		}

		series, err = that.orchestrator.NewSeries(sessionID, entity.MinSeriesGames)
		if err != nil {
			return fmt.Errorf("failed to create series: %w", err)
		}

		created = true

		return that.save(ctx, series)
	})
	if err != nil {
		return nil, err
	}

	if created {
		log.Info("default series started", "x", series.Game.X)
	}

	return series, nil
}

func (that *seriesService) NextMove(ctx context.Context, sessionID string) (*entity.Series, *usecase.TurnResult, error) {
	log := that.logger.With("method", "NextMove", "session", sessionID)

	var (
		series *entity.Series
		result *usecase.TurnResult
	)

	err := that.withLock(ctx, sessionID, func() error {
		var err error
		series, err = that.load(ctx, sessionID)
		if err != nil {
			return err
		}

		result, err = that.orchestrator.AdvanceTurn(ctx, series)
		if err != nil {
			return fmt.Errorf("failed to advance turn: %w", err)
		}

		return that.save(ctx, series)
	})
	if err != nil {
		return nil, nil, err
	}

	log.Debug("move committed", "provider", result.Provider, "mark", result.Mark, "move", result.Move)

	return series, result, nil
}

func (that *seriesService) NextGame(ctx context.Context, sessionID string) (*entity.Series, error) {
	log := that.logger.With("method", "NextGame", "session", sessionID)

	var series *entity.Series
	err := that.withLock(ctx, sessionID, func() error {
		var err error
		series, err = that.load(ctx, sessionID)
		if err != nil {
			return err
		}

		if err = that.orchestrator.AdvanceSeries(series); err != nil {
			return fmt.Errorf("failed to advance series: %w", err)
		}

		return that.save(ctx, series)
	})
	if err != nil {
		return nil, err
	}

	log.Info("next game started", "game", series.GameIndex, "x", series.Game.X)

	return series, nil
}

// withLock - runs fn while holding the session lock. The lock is released even when ctx is cancelled.
func (that *seriesService) withLock(ctx context.Context, sessionID string, fn func() error) error {
	release, err := that.locker.Acquire(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to lock session: %w", err)
	}

	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			that.logger.Warn("failed to release session lock", "session", sessionID, "error", err)
		}
	}()

	return fn()
}

func (that *seriesService) load(ctx context.Context, sessionID string) (*entity.Series, error) {
	series, err := that.seriesRepo.GetByID(ctx, sessionID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.ErrNoGameInProgress
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get series: %w", err)
	}

	return series, nil
}

// save - stores the series and tells subscribers. A failed broadcast is not an error for the caller.
func (that *seriesService) save(ctx context.Context, series *entity.Series) error {
	if err := that.seriesRepo.CreateOrUpdate(ctx, series); err != nil {
		return fmt.Errorf("failed to save series: %w", err)
	}

	payload, err := json.Marshal(presenter.Project(series))
	if err != nil {
		that.logger.Error("failed to marshal series view", "series", series.ID, "error", err)
		return nil
	}

	if err = that.publisher.Publish(ctx, series.ID, payload); err != nil {
		that.logger.Warn("failed to publish series update", "series", series.ID, "error", err)
	}

	return nil
}
