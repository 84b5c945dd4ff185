package rest

import (
	"errors"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

type errorResponse struct {
	Error string `json:"error"`
}

// mapError - status code and client message for an error coming out of the series service.
func mapError(err error) (int, string) {
	var (
		moveErr     *apperror.MoveError
		providerErr *apperror.ProviderError
	)

	switch {
	case errors.As(err, &providerErr):
		return http.StatusBadGateway, providerErr.Error()
	case errors.As(err, &moveErr):
		return http.StatusBadRequest, "Invalid move: " + moveErr.Move
	case errors.Is(err, apperror.ErrIllegalMove):
		return http.StatusBadRequest, "Invalid move"
	case errors.Is(err, apperror.ErrSessionBusy):
		return http.StatusConflict, "Another request for this session is in progress"
	case errors.Is(err, apperror.ErrNoGameInProgress):
		return http.StatusBadRequest, "No game in progress"
	case errors.Is(err, apperror.ErrGameOver):
		return http.StatusBadRequest, "Game is over"
	case errors.Is(err, apperror.ErrGameNotFinished):
		return http.StatusBadRequest, "Current game is not finished"
	case errors.Is(err, apperror.ErrSeriesComplete):
		return http.StatusBadRequest, "All games completed"
	case errors.Is(err, apperror.ErrInvalidSeriesLength):
		return http.StatusBadRequest, "Number of games must be between 1 and 10"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}
