package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

// ProviderID - stable identity of one of the two competitors.
type ProviderID string

// Game - one game of the series. X and O hold the provider bound to each mark for the whole game.
type Game struct {
	Board  Board      `json:"board"`
	X      ProviderID `json:"x"`
	O      ProviderID `json:"o"`
	Turn   Mark       `json:"turn"`
	Status Status     `json:"status"`
	Winner Mark       `json:"winner,omitempty"`
}

func NewGame(x, o ProviderID) *Game {
	return &Game{
		X:      x,
		O:      o,
		Turn:   MarkX,
		Status: StatusInProgress,
	}
}

func (that *Game) IsFinished() bool {
	return that.Status.IsTerminal()
}

func (that *Game) IsDraw() bool {
	return that.Status == StatusDrawn
}

// ProviderFor - provider bound to mark.
func (that *Game) ProviderFor(mark Mark) ProviderID {
	if mark == MarkX {
		return that.X
	}
	return that.O
}

// MarkOf - mark bound to provider, empty when the provider does not play this game.
func (that *Game) MarkOf(id ProviderID) Mark {
	switch id {
	case that.X:
		return MarkX
	case that.O:
		return MarkO
	default:
		return EmptyCell
	}
}

// CurrentProvider - provider expected to move, empty once the game is over.
func (that *Game) CurrentProvider() ProviderID {
	if that.IsFinished() {
		return ""
	}
	return that.ProviderFor(that.Turn)
}

// WinnerProvider - provider holding the winning mark, empty for draws and unfinished games.
func (that *Game) WinnerProvider() ProviderID {
	if that.Status != StatusWon {
		return ""
	}
	return that.ProviderFor(that.Winner)
}

// ConfirmOngoingState - errors unless the game accepts moves.
func (that *Game) ConfirmOngoingState() error {
	switch that.Status {
	case StatusInProgress:
		return nil
	case StatusWon, StatusDrawn:
		return apperror.ErrGameOver
	default:
		return fmt.Errorf("unknown game status: %q", that.Status)
	}
}
