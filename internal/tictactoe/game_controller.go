package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// Rand - source for the X/O binding draw. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// NewGame - starts a game between a and b with a fair coin deciding who holds X.
func NewGame(rng Rand, a, b entity.ProviderID) *entity.Game {
	x, o := AssignMarks(rng, a, b)
	return entity.NewGame(x, o)
}

// AssignMarks - returns the providers bound to X and O.
func AssignMarks(rng Rand, a, b entity.ProviderID) (x, o entity.ProviderID) {
	if rng.IntN(2) == 0 {
		return a, b
	}
	return b, a
}

// MakeTurn - applies a move for the mark whose turn it is. The game is left untouched on error.
func MakeTurn(game *entity.Game, c entity.Coordinate) error {
	if err := game.ConfirmOngoingState(); err != nil {
		return err
	}

	board := game.Board
	if err := board.Apply(c, game.Turn); err != nil {
		return fmt.Errorf("invalid turn: %w", err)
	}

	outcome, err := board.Evaluate()
	if err != nil {
		return fmt.Errorf("failed to evaluate board: %w", err)
	}

	game.Board = board
	updateGameStatus(game, outcome)

	return nil
}

// updateGameStatus - records a terminal outcome or passes the turn.
func updateGameStatus(game *entity.Game, outcome entity.Outcome) {
	switch outcome.Status {
	case entity.StatusWon:
		game.Status = entity.StatusWon
		game.Winner = outcome.Winner
	case entity.StatusDrawn:
		game.Status = entity.StatusDrawn
	default:
		game.Turn = game.Turn.Opponent()
	}
}
