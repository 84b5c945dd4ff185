package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

func TestNewGame(t *testing.T) {
	// When: creating a game with gpt on X
	game := NewGame("gpt", "claude")

	// Then: X moves first on an empty board
	expected := &Game{
		X:      "gpt",
		O:      "claude",
		Turn:   MarkX,
		Status: StatusInProgress,
	}
	require.Equal(t, expected, game)
	assert.Equal(t, ProviderID("gpt"), game.CurrentProvider())
}

func TestGame_Bindings(t *testing.T) {
	game := NewGame("claude", "gpt")

	assert.Equal(t, ProviderID("claude"), game.ProviderFor(MarkX))
	assert.Equal(t, ProviderID("gpt"), game.ProviderFor(MarkO))
	assert.Equal(t, MarkO, game.MarkOf("gpt"))
	assert.Equal(t, MarkX, game.MarkOf("claude"))
	assert.Equal(t, EmptyCell, game.MarkOf("someone-else"))
}

func TestGame_ConfirmOngoingState(t *testing.T) {
	t.Run("Returns nil when game is in progress", func(t *testing.T) {
		game := &Game{Status: StatusInProgress}

		assert.NoError(t, game.ConfirmOngoingState())
	})

	t.Run("Returns ErrGameOver when game is won or drawn", func(t *testing.T) {
		for _, status := range []Status{StatusWon, StatusDrawn} {
			game := &Game{Status: status}

			assert.ErrorIs(t, game.ConfirmOngoingState(), apperror.ErrGameOver)
		}
	})

	t.Run("Returns error for unknown game status", func(t *testing.T) {
		game := &Game{Status: "unknown"}

		err := game.ConfirmOngoingState()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown game status")
	})
}

func TestGame_WinnerProvider(t *testing.T) {
	t.Run("Won game", func(t *testing.T) {
		game := &Game{X: "gpt", O: "claude", Status: StatusWon, Winner: MarkO}

		assert.Equal(t, ProviderID("claude"), game.WinnerProvider())
		assert.Empty(t, game.CurrentProvider())
	})

	t.Run("Drawn game", func(t *testing.T) {
		game := &Game{X: "gpt", O: "claude", Status: StatusDrawn}

		assert.Empty(t, game.WinnerProvider())
		assert.True(t, game.IsDraw())
	})
}

func TestTiming_Record(t *testing.T) {
	// Given: a fresh timing accumulator
	var timing Timing

	// When: two provider calls are recorded
	timing.Record(1234 * time.Millisecond)
	timing.Record(2010 * time.Millisecond)

	// Then: last holds the latest call and total the rounded sum
	assert.InDelta(t, 2.01, timing.LastSeconds, 1e-9)
	assert.InDelta(t, 3.24, timing.TotalSeconds, 1e-9)

	timing.Reset()
	assert.Zero(t, timing.LastSeconds)
	assert.Zero(t, timing.TotalSeconds)
}

func TestSeries_Lookups(t *testing.T) {
	series := &Series{
		Competitors: [2]Competitor{{ID: "gpt"}, {ID: "claude"}},
		Game:        &Game{Status: StatusWon},
		GameIndex:   1,
		TotalGames:  2,
	}

	require.NotNil(t, series.Competitor("gpt"))
	assert.Equal(t, ProviderID("claude"), series.Opponent("gpt").ID)
	assert.Nil(t, series.Competitor("nobody"))
	assert.Nil(t, series.Opponent("nobody"))

	assert.True(t, series.HasNextGame())
	assert.False(t, series.IsComplete())

	series.GameIndex = 2
	assert.False(t, series.HasNextGame())
	assert.True(t, series.IsComplete())
}
