package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/bramble/config"
	"github.com/Ramsey-B/bramble/internal/repositories/contact"
	"github.com/Ramsey-B/bramble/pkg/autolink"
	"github.com/Ramsey-B/bramble/pkg/database"
	"github.com/Ramsey-B/bramble/pkg/events"
	"github.com/Ramsey-B/bramble/pkg/itemstore"
	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/links"
	"github.com/Ramsey-B/bramble/pkg/matching"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	appmiddleware "github.com/Ramsey-B/bramble/pkg/middleware"
	autolinkroutes "github.com/Ramsey-B/bramble/pkg/routes/autolink"
	contactroutes "github.com/Ramsey-B/bramble/pkg/routes/contacts"
	"github.com/Ramsey-B/bramble/pkg/routes/health"
	linkroutes "github.com/Ramsey-B/bramble/pkg/routes/links"
	matchroutes "github.com/Ramsey-B/bramble/pkg/routes/matches"
	"github.com/Ramsey-B/bramble/pkg/search"
	"github.com/Ramsey-B/bramble/pkg/startup"
	"github.com/Ramsey-B/bramble/pkg/tracing"
	"github.com/Ramsey-B/bramble/pkg/tracing/exporters"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	tracerShutdown, err := setupTracing(ctx, cfg)
	if err != nil {
		logger.WithError(err).Warn("Tracing setup failed; continuing without traces")
	}

	var db database.DB
	var store *itemstore.RedisStore

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&startup.FuncDependency{
		Name: "postgres",
		StartFunc: func(ctx context.Context) error {
			dsn := database.Config{
				Host:     cfg.DatabaseHost,
				Port:     cfg.DatabasePort,
				User:     cfg.DatabaseUserName,
				Password: cfg.DatabasePassword,
				Name:     cfg.DatabaseName,
				SSLMode:  cfg.DatabaseSSLMode,
			}.DSN()

			sqlxDB, err := sqlx.ConnectContext(ctx, "postgres", dsn)
			if err != nil {
				return err
			}
			sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

			driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
			if err != nil {
				return err
			}
			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
			})
			if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
				return err
			}

			db = database.NewDatabaseInstance(sqlxDB, logger)
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
	})
	boot.AddDependency(&startup.FuncDependency{
		Name: "redis",
		StartFunc: func(ctx context.Context) error {
			var err error
			store, err = itemstore.NewRedisStore(itemstore.RedisConfig{
				Host:      cfg.RedisHost,
				Port:      cfg.RedisPort,
				Password:  cfg.RedisPassword,
				DB:        cfg.RedisDB,
				OpTimeout: cfg.RedisOpTimeout,
			}, logger)
			return err
		},
		StopFunc: func(ctx context.Context) error {
			if store == nil {
				return nil
			}
			return store.Close()
		},
	})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	emitter := events.NewEmitter(producer, logger)

	contactRepo := contact.NewRepository(db, logger)
	matchCfg := matching.DefaultConfig()
	matchCfg.MaxCandidates = cfg.MatchMaxCandidates
	matchCfg.PerSignalFetchLimit = cfg.MatchPerSignalFetchLimit
	matchCfg.StrongSignalScore = cfg.MatchStrongSignalScore
	matchCfg.MultiSignalBonus = cfg.MatchMultiSignalBonus
	matcher := matching.NewService(logger, contactRepo, matchCfg)

	writer := links.NewWriter(logger, store, emitter)
	searchClient := search.NewClient(search.Config{
		BaseURL: cfg.SearchBaseURL,
		APIKey:  cfg.SearchAPIKey,
		Timeout: cfg.SearchTimeout,
	}, logger)
	orchestrator := autolink.NewOrchestrator(logger, matcher, searchClient, writer, autolink.Config{
		LinkThreshold:    cfg.AutoLinkThreshold,
		SenderMatchScore: cfg.AutoLinkSenderMatchScore,
		SearchLimit:      cfg.AutoLinkSearchLimit,
		MaxContentLength: cfg.AutoLinkMaxContentLength,
	})

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, messageHandler(logger, orchestrator))
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start Kafka consumer")
			os.Exit(1)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = appmiddleware.Error(logger)
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(appmiddleware.Context())
	e.Use(appmiddleware.Logger(logger))

	checker := health.NewChecker(db, store, cfg.Version)
	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	matchroutes.NewHandler(logger, matcher).Register(api.Group("/matches"))
	linkroutes.NewHandler(logger, writer).Register(api.Group("/links"))
	contactroutes.NewHandler(logger, contactRepo).Register(api.Group("/contacts"))
	autolinkroutes.NewHandler(logger, orchestrator).Register(api.Group("/autolink"))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:  time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
	}

	go func() {
		logger.Infof("Starting %s on port %d", cfg.AppName, cfg.Port)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()
	checker.SetReady(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.WithError(err).Error("Failed to stop Kafka consumer")
		}
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down HTTP server")
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Error("Failed to close Kafka producer")
	}
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to stop dependencies")
	}
	if tracerShutdown != nil {
		if err := tracerShutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to flush traces")
		}
	}
}

// messageHandler adapts orchestrator runs to Kafka message delivery
func messageHandler(logger ectologger.Logger, orchestrator *autolink.Orchestrator) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.IncomingMessage) error {
		if err := msg.ParseInboundMessage(); err != nil {
			metrics.MessagesConsumedTotal.WithLabelValues("invalid").Inc()
			return fmt.Errorf("failed to parse inbound message: %w", err)
		}

		tenantID := msg.GetTenantID()
		if tenantID == "" {
			metrics.MessagesConsumedTotal.WithLabelValues("missing_tenant").Inc()
			return fmt.Errorf("message at offset %d has no tenant header", msg.Offset)
		}

		result := orchestrator.Run(ctx, tenantID, *msg.InboundMessage, 0)
		metrics.MessagesConsumedTotal.WithLabelValues("processed").Inc()

		logger.WithContext(ctx).WithFields(map[string]any{
			"tenant_id":     tenantID,
			"thread_ref":    msg.InboundMessage.ThreadRef,
			"links_created": result.LinksCreated,
		}).Debug("Processed inbound message")
		return nil
	}
}

func newLogger(cfg *config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// setupTracing wires the tracer provider; the returned func flushes spans on
// shutdown.
func setupTracing(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.TracingEnabled {
		return nil, nil
	}

	var exporter sdktrace.SpanExporter
	var err error
	if cfg.TracingConsole {
		exporter, err = exporters.NewConsoleExporter()
	} else {
		otlpCfg := exporters.DefaultOTLPConfig()
		otlpCfg.Endpoint = cfg.TracingOTLPEndpoint
		exporter, err = exporters.NewOTLPExporter(ctx, otlpCfg)
	}
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.AppName),
			attribute.String("service.version", cfg.Version),
		)),
	)
	otel.SetTracerProvider(tp)
	tracing.SetTracer(otel.Tracer(cfg.AppName))

	return tp.Shutdown, nil
}
