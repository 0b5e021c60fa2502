package commands

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blastkit/blast/internal/logger"
	"github.com/blastkit/blast/pkg/bus"
	"github.com/blastkit/blast/pkg/config"
	"github.com/blastkit/blast/pkg/files"
	"github.com/blastkit/blast/pkg/importing"
	"github.com/blastkit/blast/pkg/messaging"
	"github.com/blastkit/blast/pkg/messenger"
	"github.com/blastkit/blast/pkg/messenger/telegram"
	"github.com/blastkit/blast/pkg/messenger/whatsapp"
	"github.com/blastkit/blast/pkg/metrics"
	"github.com/blastkit/blast/pkg/outbox"
	"github.com/blastkit/blast/pkg/staging"
	"github.com/blastkit/blast/pkg/store"
	"github.com/blastkit/blast/pkg/worker"
)

// TelegramClientBuilder supplies the MTProto client binding for the Telegram
// adapter. Deployments that enable Telegram link an implementation in at
// build time; without one, enabling Telegram is a configuration error.
var TelegramClientBuilder func(cfg config.TelegramConfig) (telegram.Client, error)

// app holds everything the worker command wires together.
type app struct {
	cfg *config.Config

	db       *store.Store
	staging  *staging.RedisStore
	eventBus bus.EventBus
	files    files.Service

	metrics      *metrics.Metrics
	promRegistry *prometheus.Registry

	runner *worker.Runner
}

// buildApp is the composition root: it opens the stores, selects the bus and
// file backends, registers every event handler and assembles the job runner.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := store.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	stagingStore := staging.NewRedis(cfg.Redis)

	fileService, err := buildFileService(ctx, &cfg.Storage)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	eventBus := buildEventBus(&cfg.Broker)

	messengers, err := buildMessengers(&cfg.Messengers, fileService)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var m *metrics.Metrics
	var promRegistry *prometheus.Registry
	if cfg.Metrics.Enabled {
		promRegistry = prometheus.NewRegistry()
		m = metrics.NewMetrics(promRegistry)
	}

	events := buildEventRegistry(db, stagingStore, fileService, messengers, m)

	dispatcher, err := outbox.NewDispatcher(db, events, eventBus, outbox.DispatcherConfig{
		Strategy:  outbox.Strategy(cfg.Outbox.DispatchStrategy),
		BatchSize: cfg.Outbox.BatchSize,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	runner := worker.NewRunner(m)
	runner.Add(worker.DispatchOutboxJob(dispatcher, db, m, cfg.Worker.DispatchInterval))
	if dispatcher.Strategy() == outbox.StrategyBroker {
		runner.Add(worker.ConsumeBusJob(outbox.NewConsumer(db, events, eventBus)))
	}

	return &app{
		cfg:          cfg,
		db:           db,
		staging:      stagingStore,
		eventBus:     eventBus,
		files:        fileService,
		metrics:      m,
		promRegistry: promRegistry,
		runner:       runner,
	}, nil
}

// Close releases the app's connections.
func (a *app) Close() {
	if err := a.eventBus.Close(); err != nil {
		logger.Warn("event bus close error", "error", err)
	}
	if err := a.staging.Close(); err != nil {
		logger.Warn("staging store close error", "error", err)
	}
	if err := a.db.Close(); err != nil {
		logger.Warn("database close error", "error", err)
	}
}

func buildFileService(ctx context.Context, cfg *config.StorageConfig) (files.Service, error) {
	switch cfg.Backend {
	case "s3":
		svc, err := files.NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to build s3 file service: %w", err)
		}
		return svc, nil
	case "local":
		svc, err := files.NewLocal(cfg.Local)
		if err != nil {
			return nil, fmt.Errorf("failed to build local file service: %w", err)
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

func buildEventBus(cfg *config.BrokerConfig) bus.EventBus {
	if cfg.Driver == "rabbitmq" {
		return bus.NewRabbitMQ(cfg.RabbitMQ)
	}
	return bus.NewNoop()
}

// buildMessengers registers one adapter per enabled network.
func buildMessengers(cfg *config.MessengersConfig, fileService files.Service) (*messenger.Registry, error) {
	registry := messenger.NewRegistry()

	if cfg.Whatsapp.Enabled {
		evolution := whatsapp.NewEvolutionClient(cfg.Whatsapp.BaseURL, cfg.Whatsapp.APIKey)
		registry.Register(whatsapp.New(evolution, fileService))
	}

	if cfg.Telegram.Enabled {
		if TelegramClientBuilder == nil {
			return nil, fmt.Errorf("telegram is enabled but no MTProto client is linked into this build")
		}
		client, err := TelegramClientBuilder(cfg.Telegram)
		if err != nil {
			return nil, fmt.Errorf("failed to build telegram client: %w", err)
		}
		registry.Register(telegram.New(client, fileService))
	}

	return registry, nil
}

// buildEventRegistry binds every outbox event to its handler: the two import
// phases and message delivery.
func buildEventRegistry(db *store.Store, stagingStore staging.Store, fileService files.Service, messengers *messenger.Registry, m *metrics.Metrics) *outbox.Registry {
	imports := importing.NewRegistry()
	imports.Register(messaging.ImportType, messaging.NewImportHandler(db, stagingStore))

	events := outbox.NewRegistry()

	stage := importing.NewStageHandler(imports, stagingStore, fileService, m)
	outbox.Register(events, stage.Handle)

	process := importing.NewProcessHandler(imports, stagingStore, m)
	outbox.Register(events, process.Handle)

	send := messaging.NewSendHandler(messengers, m)
	outbox.Register(events, send.Handle)

	return events
}
