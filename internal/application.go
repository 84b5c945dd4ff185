package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-arena/internal/provider"
	"github.com/rocketscienceinc/tictactoe-arena/internal/provider/anthropic"
	"github.com/rocketscienceinc/tictactoe-arena/internal/provider/bot"
	"github.com/rocketscienceinc/tictactoe-arena/internal/provider/openai"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
	"github.com/rocketscienceinc/tictactoe-arena/internal/telemetry"
	"github.com/rocketscienceinc/tictactoe-arena/internal/transport/redis"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/transport/rest"
	"github.com/rocketscienceinc/tictactoe-arena/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	if conf.Redis.Host == "" {
		return ErrAddrNotFound
	}

	if conf.Session.Secret == "" {
		log.Warn("session secret is not configured, sessions will not survive a restart")
		conf.Session.Secret = pkg.NewSecret()
	}

	shutdownTracing, err := telemetry.Setup(ctx, conf.Telemetry)
	if err != nil {
		return fmt.Errorf("could not set up tracing: %w", err)
	}

	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err = shutdownTracing(shutdownCtx); err != nil {
			log.Error("could not flush traces", "error", err)
		}
	}()

	redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	first, err := newEntrant(logger, conf, conf.Players.First)
	if err != nil {
		return err
	}

	second, err := newEntrant(logger, conf, conf.Players.Second)
	if err != nil {
		return err
	}

	seriesRepo := repository.NewSeriesRepository(redisStorage.Connection, conf.Session.TTL)
	locker := repository.NewSessionLocker(redisStorage.Connection, conf.Session.LockTTL)
	broker := redis.NewBroker(logger, redisStorage.Connection)
	orchestrator := usecase.NewOrchestrator(logger, telemetry.Tracer(), pkg.NewRand(), time.Now, first, second)
	seriesService := service.NewSeriesService(logger, seriesRepo, locker, broker, orchestrator)

	wsServer := websocket.New(logger, seriesService, broker)
	server := rest.NewServer(
		logger,
		conf,
		rest.NewPingHandler(),
		rest.NewSeriesHandler(logger, seriesService),
		wsServer.Register,
	)

	log.Info("Starting HTTP server", "port", conf.HTTPPort,
		"first", first.ID, "first_backend", conf.Players.First.Backend,
		"second", second.ID, "second_backend", conf.Players.Second.Backend,
	)

	if err = rest.Start(ctx, server, conf.HTTPPort); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	log.Info("Application context canceled, shutting down")

	return nil
}

// newEntrant - builds the configured backend for player, labelled for error messages.
func newEntrant(logger *slog.Logger, conf *config.Config, player config.Player) (usecase.Entrant, error) {
	var moveProvider provider.MoveProvider

	switch player.Backend {
	case config.BackendOpenAI:
		moveProvider = openai.New(logger, conf.OpenAI)
	case config.BackendAnthropic:
		moveProvider = anthropic.New(logger, conf.Anthropic)
	case config.BackendRandom:
		moveProvider = bot.New(nil)
	default:
		return usecase.Entrant{}, fmt.Errorf("%w: %q", config.ErrUnknownBackend, player.Backend)
	}

	return usecase.Entrant{
		ID:       entity.ProviderID(player.ID),
		Label:    player.Label,
		Provider: provider.Named(player.Label, moveProvider),
	}, nil
}
