package entity

import (
	"math"
	"time"
)

const (
	MinSeriesGames = 1
	MaxSeriesGames = 10

	DrawLabel = "Draw"
)

type Stats struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

func (that Stats) Played() int {
	return that.Wins + that.Losses + that.Draws
}

// Timing - provider latency in seconds for the current game.
type Timing struct {
	LastSeconds  float64 `json:"last_seconds"`
	TotalSeconds float64 `json:"total_seconds"`
}

// Record - adds one provider call to the totals, both rounded to hundredths.
func (that *Timing) Record(elapsed time.Duration) {
	seconds := elapsed.Seconds()
	that.LastSeconds = roundSeconds(seconds)
	that.TotalSeconds = roundSeconds(that.TotalSeconds + seconds)
}

func (that *Timing) Reset() {
	that.LastSeconds = 0
	that.TotalSeconds = 0
}

// Competitor - one of the two providers with its running numbers.
type Competitor struct {
	ID        ProviderID `json:"id"`
	Label     string     `json:"label"`
	Stats     Stats      `json:"stats"`
	Timing    Timing     `json:"timing"`
	Reasoning string     `json:"reasoning"`
}

type HistoryEntry struct {
	Game       int                    `json:"game"`
	FinishedAt time.Time              `json:"finished_at"`
	Winner     string                 `json:"winner"`
	Timings    map[ProviderID]float64 `json:"timings"`
}

// Series - a run of games between the same two competitors.
type Series struct {
	ID          string         `json:"id"`
	Game        *Game          `json:"game"`
	GameIndex   int            `json:"game_index"`
	TotalGames  int            `json:"total_games"`
	Competitors [2]Competitor  `json:"competitors"`
	History     []HistoryEntry `json:"history"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Competitor - returns the competitor with id, nil when unknown.
func (that *Series) Competitor(id ProviderID) *Competitor {
	for i := range that.Competitors {
		if that.Competitors[i].ID == id {
			return &that.Competitors[i]
		}
	}
	return nil
}

// Opponent - returns the other competitor, nil when id is unknown.
func (that *Series) Opponent(id ProviderID) *Competitor {
	if that.Competitor(id) == nil {
		return nil
	}
	for i := range that.Competitors {
		if that.Competitors[i].ID != id {
			return &that.Competitors[i]
		}
	}
	return nil
}

func (that *Series) IsComplete() bool {
	return that.Game != nil && that.Game.IsFinished() && that.GameIndex >= that.TotalGames
}

// HasNextGame - true when the active game is over and games remain.
func (that *Series) HasNextGame() bool {
	return that.Game != nil && that.Game.IsFinished() && that.GameIndex < that.TotalGames
}

func roundSeconds(v float64) float64 {
	return math.Round(v*100) / 100
}
