package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const seriesKeyPrefix = "series:"

type SeriesRepository interface {
	CreateOrUpdate(ctx context.Context, series *entity.Series) error
	GetByID(ctx context.Context, id string) (*entity.Series, error)
	DeleteByID(ctx context.Context, id string) error
}

type dbSeries struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSeriesRepository - series live as JSON under series:<id> and expire ttl after the last write.
func NewSeriesRepository(client *redis.Client, ttl time.Duration) SeriesRepository {
	return &dbSeries{
		client: client,
		ttl:    ttl,
	}
}

func (that *dbSeries) CreateOrUpdate(ctx context.Context, series *entity.Series) error {
	seriesJSON, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("could not marshal series: %w", err)
	}

	err = that.client.Set(ctx, seriesKey(series.ID), seriesJSON, that.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set series: %w", err)
	}

	return nil
}

func (that *dbSeries) GetByID(ctx context.Context, id string) (*entity.Series, error) {
	response, err := that.client.Get(ctx, seriesKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("series %s: %w", id, apperror.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get series by id: %w", err)
	}

	var existingSeries entity.Series
	if err = json.Unmarshal(response, &existingSeries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal series: %w", err)
	}

	return &existingSeries, nil
}

func (that *dbSeries) DeleteByID(ctx context.Context, id string) error {
	err := that.client.Del(ctx, seriesKey(id)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete series by id: %w", err)
	}

	return nil
}

func seriesKey(id string) string {
	return seriesKeyPrefix + id
}
