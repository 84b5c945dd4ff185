package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/provider"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

var ErrUnknownProvider = errors.New("no provider registered for competitor")

// Entrant - a competitor as registered with the orchestrator.
type Entrant struct {
	ID       entity.ProviderID
	Label    string
	Provider provider.MoveProvider
}

// TurnResult - what happened on a committed turn.
type TurnResult struct {
	Move           entity.Coordinate
	Provider       entity.ProviderID
	Mark           entity.Mark
	ElapsedSeconds float64
}

// Orchestrator - drives a series: asks the provider whose mark is due for a move,
// applies it and keeps statistics across games. It is the only writer of a Series.
type Orchestrator struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	entrants [2]Entrant
	now      func() time.Time

	rngMu sync.Mutex
	rng   tictactoe.Rand
}

func NewOrchestrator(
	logger *slog.Logger,
	tracer trace.Tracer,
	rng tictactoe.Rand,
	now func() time.Time,
	first, second Entrant,
) *Orchestrator {
	return &Orchestrator{
		logger:   logger.With("component", "orchestrator"),
		tracer:   tracer,
		entrants: [2]Entrant{first, second},
		now:      now,
		rng:      rng,
	}
}

// NewSeries - fresh series of totalGames games with a randomly bound first game.
func (that *Orchestrator) NewSeries(id string, totalGames int) (*entity.Series, error) {
	if totalGames < entity.MinSeriesGames || totalGames > entity.MaxSeriesGames {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]",
			apperror.ErrInvalidSeriesLength, totalGames, entity.MinSeriesGames, entity.MaxSeriesGames)
	}

	now := that.now()

	series := &entity.Series{
		ID:         id,
		Game:       that.newGame(),
		GameIndex:  1,
		TotalGames: totalGames,
		History:    []entity.HistoryEntry{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for i, entrant := range that.entrants {
		series.Competitors[i] = entity.Competitor{ID: entrant.ID, Label: entrant.Label}
	}

	return series, nil
}

// AdvanceTurn - plays one move of the active game. On any error the series is left as it was.
func (that *Orchestrator) AdvanceTurn(ctx context.Context, series *entity.Series) (*TurnResult, error) {
	log := that.logger.With("method", "AdvanceTurn")

	if series == nil || series.Game == nil {
		return nil, apperror.ErrNoGameInProgress
	}

	game := series.Game
	if err := game.ConfirmOngoingState(); err != nil {
		return nil, err
	}

	mark := game.Turn
	id := game.ProviderFor(mark)

	competitor := series.Competitor(id)
	entrant, ok := that.entrant(id)
	if competitor == nil || !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}

	proposal, elapsed, err := that.propose(ctx, entrant, mark, game.Board.Serialize(mark))
	if err != nil {
		log.Warn("provider failed", "series", series.ID, "provider", id, "error", err)
		return nil, provider.WrapError(entrant.Label, err)
	}

	coordinate, err := entity.ParseCoordinate(proposal.Move)
	if err == nil {
		err = tictactoe.MakeTurn(game, coordinate)
	}
	if err != nil {
		log.Info("move rejected", "series", series.ID, "provider", id, "move", proposal.Move, "error", err)
		if errors.Is(err, apperror.ErrIllegalMove) {
			return nil, &apperror.MoveError{Move: proposal.Move, Err: err}
		}
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	competitor.Timing.Record(elapsed)
	competitor.Reasoning = proposal.Rationale
	if competitor.Reasoning == "" {
		competitor.Reasoning = provider.NoRationale
	}

	if game.IsFinished() {
		that.closeGame(series)
		log.Info("game finished", "series", series.ID, "game", series.GameIndex, "status", game.Status, "winner", game.Winner)
	}

	series.UpdatedAt = that.now()

	return &TurnResult{
		Move:           coordinate,
		Provider:       id,
		Mark:           mark,
		ElapsedSeconds: competitor.Timing.LastSeconds,
	}, nil
}

// AdvanceSeries - moves on to the next game after a terminal one, keeping stats and history.
func (that *Orchestrator) AdvanceSeries(series *entity.Series) error {
	if series == nil || series.Game == nil {
		return apperror.ErrNoGameInProgress
	}

	if !series.Game.IsFinished() {
		return apperror.ErrGameNotFinished
	}

	if series.GameIndex >= series.TotalGames {
		return apperror.ErrSeriesComplete
	}

	series.Game = that.newGame()
	series.GameIndex++
	for i := range series.Competitors {
		series.Competitors[i].Timing.Reset()
		series.Competitors[i].Reasoning = ""
	}
	series.UpdatedAt = that.now()

	return nil
}

func (that *Orchestrator) newGame() *entity.Game {
	that.rngMu.Lock()
	defer that.rngMu.Unlock()

	return tictactoe.NewGame(that.rng, that.entrants[0].ID, that.entrants[1].ID)
}

func (that *Orchestrator) entrant(id entity.ProviderID) (Entrant, bool) {
	for _, entrant := range that.entrants {
		if entrant.ID == id {
			return entrant, true
		}
	}
	return Entrant{}, false
}

// propose - calls the provider and measures only the call itself.
func (that *Orchestrator) propose(
	ctx context.Context,
	entrant Entrant,
	mark entity.Mark,
	prompt string,
) (provider.Proposal, time.Duration, error) {
	ctx, span := that.tracer.Start(ctx, "provider.propose_move", trace.WithAttributes(
		attribute.String("provider.id", string(entrant.ID)),
		attribute.String("game.mark", string(mark)),
	))
	defer span.End()

	start := that.now()
	proposal, err := entrant.Provider.ProposeMove(ctx, prompt)
	elapsed := that.now().Sub(start)

	span.SetAttributes(attribute.Float64("provider.elapsed_seconds", elapsed.Seconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "propose move failed")
		return provider.Proposal{}, 0, err
	}

	span.SetAttributes(attribute.String("provider.move", proposal.Move))

	return proposal, elapsed, nil
}

// closeGame - books the result of the finished game into stats and history.
func (that *Orchestrator) closeGame(series *entity.Series) {
	game := series.Game
	winnerLabel := entity.DrawLabel

	if game.IsDraw() {
		for i := range series.Competitors {
			series.Competitors[i].Stats.Draws++
		}
	} else {
		winnerID := game.WinnerProvider()
		winner, loser := series.Competitor(winnerID), series.Opponent(winnerID)
		winner.Stats.Wins++
		loser.Stats.Losses++
		winnerLabel = winner.Label
	}

	timings := make(map[entity.ProviderID]float64, len(series.Competitors))
	for _, competitor := range series.Competitors {
		timings[competitor.ID] = competitor.Timing.TotalSeconds
	}

	series.History = append(series.History, entity.HistoryEntry{
		Game:       series.GameIndex,
		FinishedAt: that.now(),
		Winner:     winnerLabel,
		Timings:    timings,
	})
}
