package presenter

import (
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	historyTimeLayout = "15:04:05"
	winnerDraw        = "draw"
)

// ClientState - what the browser sees of a series.
type ClientState struct {
	Board            map[string]string `json:"board"`
	CurrentTurn      string            `json:"current_turn"`
	CurrentPlayer    *string           `json:"current_player"`
	GameOver         bool              `json:"game_over"`
	Winner           *string           `json:"winner"`
	Players          []PlayerView      `json:"players"`
	CurrentGame      int               `json:"current_game"`
	TotalGames       int               `json:"total_games"`
	GameHistory      []HistoryView     `json:"game_history"`
	AllGamesComplete bool              `json:"all_games_complete"`
}

type PlayerView struct {
	ID        string       `json:"id"`
	Label     string       `json:"label"`
	Mark      string       `json:"mark"`
	Reasoning string       `json:"reasoning"`
	Stats     entity.Stats `json:"stats"`
	LastTime  float64      `json:"last_time"`
	TotalTime float64      `json:"total_time"`
}

type HistoryView struct {
	Game    int                `json:"game"`
	Time    string             `json:"time"`
	Winner  string             `json:"winner"`
	Timings map[string]float64 `json:"timings"`
}

// Project - read-only projection of series. Returns nil for a nil series or one without a game.
func Project(series *entity.Series) *ClientState {
	if series == nil || series.Game == nil {
		return nil
	}

	game := series.Game

	state := &ClientState{
		Board:            game.Board.Cells(),
		CurrentTurn:      string(game.Turn),
		GameOver:         game.IsFinished(),
		Players:          make([]PlayerView, 0, len(series.Competitors)),
		CurrentGame:      series.GameIndex,
		TotalGames:       series.TotalGames,
		GameHistory:      make([]HistoryView, 0, len(series.History)),
		AllGamesComplete: series.IsComplete(),
	}

	if current := game.CurrentProvider(); current != "" {
		state.CurrentPlayer = ptr(string(current))
	}

	switch game.Status {
	case entity.StatusWon:
		state.Winner = ptr(string(game.Winner))
	case entity.StatusDrawn:
		state.Winner = ptr(winnerDraw)
	}

	for _, competitor := range series.Competitors {
		state.Players = append(state.Players, PlayerView{
			ID:        string(competitor.ID),
			Label:     competitor.Label,
			Mark:      string(game.MarkOf(competitor.ID)),
			Reasoning: competitor.Reasoning,
			Stats:     competitor.Stats,
			LastTime:  competitor.Timing.LastSeconds,
			TotalTime: competitor.Timing.TotalSeconds,
		})
	}

	for _, entry := range series.History {
		timings := make(map[string]float64, len(entry.Timings))
		for id, seconds := range entry.Timings {
			timings[string(id)] = seconds
		}

		state.GameHistory = append(state.GameHistory, HistoryView{
			Game:    entry.Game,
			Time:    entry.FinishedAt.Format(historyTimeLayout),
			Winner:  entry.Winner,
			Timings: timings,
		})
	}

	return state
}

func ptr[T any](v T) *T {
	return &v
}
