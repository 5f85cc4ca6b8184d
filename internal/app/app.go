// Package app wires the sync pipeline from a loaded config. The binaries under
// cmd/ share it.
package app

import (
	"context"
	"fmt"

	"github.com/thep200/github-top100/cfg"
	"github.com/thep200/github-top100/internal/crawler"
	githubapi "github.com/thep200/github-top100/internal/github_api"
	"github.com/thep200/github-top100/internal/limiter"
	"github.com/thep200/github-top100/internal/model"
	"github.com/thep200/github-top100/internal/server"
	"github.com/thep200/github-top100/pkg/db"
	"github.com/thep200/github-top100/pkg/kafka"
	"github.com/thep200/github-top100/pkg/log"
	"github.com/thep200/github-top100/pkg/metrics"
)

type App struct {
	Config   *cfg.Config
	Logger   log.Logger
	Database *db.Database
	Store    *model.RankingStore
	Metrics  *metrics.Manager
	Runner   *crawler.Runner
	producer *kafka.Producer
}

// New opens the database, migrates the tables and builds the runner. A Kafka
// producer is attached only when brokers are configured.
func New(ctx context.Context, config *cfg.Config, logger log.Logger, opts ...metrics.Option) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	database, err := db.NewDatabase(config)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := model.NewRankingStore(config, logger, database)
	if err := store.Migrate(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	m := metrics.NewManager(opts...)
	rl := limiter.NewRateLimiter(config.GithubApi.RequestsPerSecond)
	caller := githubapi.NewCaller(logger, config, rl, m)

	a := &App{
		Config:   config,
		Logger:   logger,
		Database: database,
		Store:    store,
		Metrics:  m,
	}

	var publisher crawler.Publisher
	if config.KafkaEnabled() {
		producer, err := kafka.NewProducer(config, logger, config.Kafka.TopicPass)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		a.producer = producer
		publisher = crawler.NewKafkaPublisher(producer)
	}

	orchestrator := crawler.NewOrchestrator(logger, config, caller, store, publisher, m)
	a.Runner = crawler.NewRunner(logger, orchestrator, m)
	return a, nil
}

// Handler builds the HTTP API over the app's store and runner. Passes started
// through it are parented to ctx.
func (a *App) Handler(ctx context.Context) *server.Handler {
	h := server.NewHandler(a.Logger, a.Store, a.Runner, a.Database, a.Metrics.Handler())
	h.BaseContext = ctx
	return h
}

// Close releases the producer and the database connection.
func (a *App) Close() error {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.Logger.Warn(context.Background(), "Failed to close kafka producer: %v", err)
		}
	}
	return a.Database.Close()
}
