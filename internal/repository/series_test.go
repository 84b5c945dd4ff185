package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/testing/suite"
)

func newSeries(id string) *entity.Series {
	game := entity.NewGame("gpt", "claude")
	game.Board[4] = entity.MarkX
	game.Turn = entity.MarkO

	return &entity.Series{
		ID:         id,
		Game:       game,
		GameIndex:  1,
		TotalGames: 3,
		Competitors: [2]entity.Competitor{
			{ID: "gpt", Label: "GPT 5.2 High", Timing: entity.Timing{LastSeconds: 1.25, TotalSeconds: 1.25}, Reasoning: "Center."},
			{ID: "claude", Label: "Claude Opus 4.5 Thinking"},
		},
		History: []entity.HistoryEntry{},
	}
}

func TestSeriesRepository_CreateOrUpdate(t *testing.T) {
	ctx, st := suite.New(t)

	seriesRepo := NewSeriesRepository(st.Storage, time.Hour)

	// Given: a series with one move played
	series := newSeries("123")

	// When: CreateOrUpdate is called
	err := seriesRepo.CreateOrUpdate(ctx, series)

	// Then: the series is stored with the session ttl
	require.NoError(t, err)

	ttl, err := st.Storage.TTL(ctx, "series:123").Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestSeriesRepository_GetByID(t *testing.T) {
	t.Run("GetByID_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		seriesRepo := NewSeriesRepository(st.Storage, time.Hour)

		// Given: a stored series
		series := newSeries("123")
		require.NoError(t, seriesRepo.CreateOrUpdate(ctx, series))

		// When: GetByID is called with its id
		retrieved, err := seriesRepo.GetByID(ctx, series.ID)

		// Then: the retrieved series matches the saved one
		require.NoError(t, err)
		assert.Equal(t, series.Game, retrieved.Game)
		assert.Equal(t, series.Competitors, retrieved.Competitors)
		assert.Equal(t, series.GameIndex, retrieved.GameIndex)
		assert.Equal(t, series.TotalGames, retrieved.TotalGames)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		seriesRepo := NewSeriesRepository(st.Storage, time.Hour)

		// When: GetByID is called with an unknown id
		retrieved, err := seriesRepo.GetByID(ctx, "9999999")

		// Then: ErrNotFound is returned
		require.ErrorIs(t, err, apperror.ErrNotFound)
		assert.Nil(t, retrieved)
	})
}

func TestSeriesRepository_DeleteByID(t *testing.T) {
	ctx, st := suite.New(t)

	seriesRepo := NewSeriesRepository(st.Storage, time.Hour)

	// Given: a stored series
	require.NoError(t, seriesRepo.CreateOrUpdate(ctx, newSeries("123")))

	// When: it is deleted
	err := seriesRepo.DeleteByID(ctx, "123")

	// Then: it can no longer be found
	require.NoError(t, err)

	_, err = seriesRepo.GetByID(ctx, "123")
	require.ErrorIs(t, err, apperror.ErrNotFound)
}
