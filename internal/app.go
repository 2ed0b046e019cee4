package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rakhargo/LotteryFoundry/internal/bank"
	"github.com/rakhargo/LotteryFoundry/internal/config"
	"github.com/rakhargo/LotteryFoundry/internal/kafka"
	"github.com/rakhargo/LotteryFoundry/internal/raffle"
	"github.com/rakhargo/LotteryFoundry/internal/rest"
	"github.com/rakhargo/LotteryFoundry/internal/services"
	"github.com/rakhargo/LotteryFoundry/internal/store"
	"github.com/rakhargo/LotteryFoundry/internal/vrf"
)

// App centralizes dependency wiring for the raffle service.
type App struct {
	cfg    config.Config
	logger *log.Logger

	redis       *redis.Client
	publisher   *kafka.EventPublisher
	rounds      *store.RoundStore
	coordinator *vrf.SimulatedCoordinator
	service     *services.RaffleService
	keeper      *services.Keeper

	httpServer *http.Server
}

// NewApp builds an App with all required dependencies.
func NewApp(cfg config.Config, logger *log.Logger) (*App, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	rounds, err := store.NewRoundStore(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open round store: %w", err)
	}

	coordinator := vrf.NewSimulatedCoordinator(cfg.VRFFulfillmentDelay, logger)
	ledgerBank := bank.NewRedisBank(redisClient, cfg.BalanceHashKey)

	r, err := raffle.New(raffle.Config{
		EntranceFee:          cfg.EntranceFee,
		Interval:             cfg.RoundInterval,
		KeyHash:              cfg.VRFKeyHash,
		SubscriptionID:       cfg.VRFSubscriptionID,
		CallbackGasLimit:     cfg.VRFCallbackGasLimit,
		RequestConfirmations: cfg.VRFRequestConfirmations,
	}, coordinator, ledgerBank)
	if err != nil {
		return nil, fmt.Errorf("construct raffle: %w", err)
	}

	publisher := kafka.NewEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopicEntries, cfg.KafkaTopicWinners)
	winners := store.NewWinnerStore(redisClient, cfg.WinnerListKey, cfg.WinnerListKeep)

	service := services.NewRaffleService(r, publisher, winners, rounds, logger)
	coordinator.RegisterConsumer(service.HandleFulfillment)

	keeper := services.NewKeeper(service, cfg.KeeperSpec, logger)

	app := &App{
		cfg:         cfg,
		logger:      logger,
		redis:       redisClient,
		publisher:   publisher,
		rounds:      rounds,
		coordinator: coordinator,
		service:     service,
		keeper:      keeper,
	}

	router, srv := rest.NewServer(cfg.HTTPAddr)
	app.httpServer = srv
	controller := rest.NewRaffleController(service, winners, rounds)
	controller.RegisterRaffleRoutes(router.Group("/api"))

	return app, nil
}

// Run starts background services and blocks until ctx cancellation or
// fatal error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.cleanup()

	if err := a.keeper.Start(); err != nil {
		return fmt.Errorf("start keeper: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.runHTTPServer(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (a *App) runHTTPServer(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		a.logger.Printf("HTTP server started at: %s", a.httpServer.Addr)
		serverErr <- a.httpServer.ListenAndServe()
	}()

	select {
	// App context shutdown:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		err := <-serverErr
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	// HTTP server error:
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (a *App) cleanup() {
	if a.keeper != nil {
		a.keeper.Stop()
	}
	if a.coordinator != nil {
		if err := a.coordinator.Close(); err != nil {
			a.logger.Printf("error closing coordinator: %v", err)
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Printf("error closing Kafka publisher: %v", err)
		}
	}
	if a.rounds != nil {
		if err := a.rounds.Close(); err != nil {
			a.logger.Printf("error closing round store: %v", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Printf("error closing Redis client: %v", err)
		}
	}
}
