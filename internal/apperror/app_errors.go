package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalMove       = errors.New("illegal move")
	ErrInvalidCoordinate = fmt.Errorf("%w: invalid coordinate", ErrIllegalMove)
	ErrCellOccupied      = fmt.Errorf("%w: cell is already occupied", ErrIllegalMove)
	ErrInvalidMark       = fmt.Errorf("%w: invalid mark", ErrIllegalMove)

	ErrNoGameInProgress    = errors.New("no game in progress")
	ErrGameOver            = errors.New("game is over")
	ErrGameNotFinished     = errors.New("current game is not finished")
	ErrSeriesComplete      = errors.New("all games completed")
	ErrInvalidSeriesLength = errors.New("series length is out of range")
	ErrInconsistentBoard   = errors.New("board has more than one winning mark")

	ErrSessionBusy = errors.New("session has a request in flight")
	ErrNotFound    = errors.New("not found")

	ErrProvider = errors.New("provider error")
)

// ProviderError - failure reported by a move provider backend.
type ProviderError struct {
	Provider string
	Err      error
}

func (that *ProviderError) Error() string {
	return fmt.Sprintf("%s API error: %v", that.Provider, that.Err)
}

func (that *ProviderError) Unwrap() error {
	return that.Err
}

func (that *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// IsPrecondition - reports whether err is a state precondition violation the caller must not retry as is.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoGameInProgress) ||
		errors.Is(err, ErrGameOver) ||
		errors.Is(err, ErrGameNotFinished) ||
		errors.Is(err, ErrSeriesComplete)
}

// MoveError - a proposed move the board rejected. Move is kept verbatim for the caller.
type MoveError struct {
	Move string
	Err  error
}

func (that *MoveError) Error() string {
	return fmt.Sprintf("invalid move %q: %v", that.Move, that.Err)
}

func (that *MoveError) Unwrap() error {
	return that.Err
}
