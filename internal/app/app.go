// Package app is the composition root: it builds stores, the ledger, the
// three registries, the audit fan-out and the HTTP router from config.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "didledger/internal/auditlog/handler"
	"didledger/internal/auditlog/publisher"
	auditservice "didledger/internal/auditlog/service"
	"didledger/internal/auditlog/sink"
	auditstore "didledger/internal/auditlog/store"
	"didledger/internal/cache"
	credhandler "didledger/internal/credential/handler"
	credservice "didledger/internal/credential/service"
	credstore "didledger/internal/credential/store"
	didhandler "didledger/internal/did/handler"
	didservice "didledger/internal/did/service"
	didstore "didledger/internal/did/store"
	jwttoken "didledger/internal/jwt_token"
	"didledger/internal/ledger"
	"didledger/internal/platform/config"
	"didledger/internal/platform/kafka"
	"didledger/internal/platform/metrics"
	"didledger/internal/platform/postgres"
	"didledger/internal/platform/rabbitmq"
	"didledger/internal/platform/redis"
	httptransport "didledger/internal/transport/http"
	id "didledger/pkg/domain"
)

// App holds the wired registries and the resources they own.
type App struct {
	Config      config.Server
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Ledger      ledger.Ledger
	Audit       *auditservice.Service
	DIDs        *didservice.Service
	Credentials *credservice.Service
	Publisher   *publisher.Publisher
	Tokens      *jwttoken.JWTService

	registry *prometheus.Registry
	health   map[string]httptransport.HealthCheck
	closers  []func() error
}

type stores struct {
	did        didservice.Store
	credential credservice.Store
	audit      auditservice.Store
	ledger     ledger.Ledger
}

// New builds the application. On error every resource opened so far is
// released.
func New(ctx context.Context, cfg config.Server, logger *slog.Logger) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		registry: prometheus.NewRegistry(),
		health:   make(map[string]httptransport.HealthCheck),
		Tokens:   jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.New(a.registry)

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}
	a.Ledger = st.ledger

	publisherOpts := []publisher.Option{
		publisher.WithLogger(logger),
		publisher.WithMetrics(a.Metrics),
		publisher.WithAsyncBuffer(cfg.Audit.PublishBuffer),
	}
	sinks, err := a.openSinks(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range sinks {
		publisherOpts = append(publisherOpts, publisher.WithSink(s))
	}
	a.Publisher = publisher.NewPublisher(publisherOpts...)
	a.closers = append(a.closers, func() error {
		a.Publisher.Close()
		return nil
	})

	didSource, _ := id.ParseIdentity(cfg.Audit.DIDRegistrySource)
	credSource, _ := id.ParseIdentity(cfg.Audit.CredentialStatusRegistrySource)

	a.Audit, err = auditservice.New(st.audit, st.ledger, didSource, credSource,
		auditservice.WithPublisher(a.Publisher),
		auditservice.WithLogger(logger),
		auditservice.WithMetrics(a.Metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("build audit log: %w", err)
	}

	didOpts := []didservice.Option{didservice.WithLogger(logger), didservice.WithMetrics(a.Metrics)}
	credOpts := []credservice.Option{credservice.WithLogger(logger), credservice.WithMetrics(a.Metrics)}
	resolutionCache, err := a.openCache(ctx)
	if err != nil {
		return nil, err
	}
	if resolutionCache != nil {
		didOpts = append(didOpts, didservice.WithCache(resolutionCache))
		credOpts = append(credOpts, credservice.WithCache(resolutionCache))
	}

	a.DIDs, err = didservice.New(st.did, st.ledger, a.Audit, didSource, didOpts...)
	if err != nil {
		return nil, fmt.Errorf("build did registry: %w", err)
	}
	a.Credentials, err = credservice.New(st.credential, st.ledger, a.Audit, credSource, credOpts...)
	if err != nil {
		return nil, fmt.Errorf("build credential status registry: %w", err)
	}
	return a, nil
}

func (a *App) openStores(ctx context.Context) (*stores, error) {
	ledgerOpts := []ledger.Option{ledger.WithTimeout(a.Config.TxTimeout), ledger.WithMetrics(a.Metrics)}
	if a.Config.Postgres.DSN == "" {
		a.Logger.InfoContext(ctx, "using in-memory stores")
		return &stores{
			did:        didstore.NewInMemoryStore(),
			credential: credstore.NewInMemoryStore(),
			audit:      auditstore.NewInMemoryStore(),
			ledger:     ledger.NewMemory(ledgerOpts...),
		}, nil
	}

	db, err := postgres.Open(ctx, a.Config.Postgres)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	if err := postgres.Migrate(ctx, db); err != nil {
		return nil, err
	}
	a.health["postgres"] = db.PingContext
	a.Logger.InfoContext(ctx, "using postgres stores")
	return postgresStores(db, ledgerOpts), nil
}

func postgresStores(db *sql.DB, ledgerOpts []ledger.Option) *stores {
	return &stores{
		did:        didstore.NewPostgres(db),
		credential: credstore.NewPostgres(db),
		audit:      auditstore.NewPostgres(db),
		ledger:     ledger.NewPostgres(db, ledgerOpts...),
	}
}

func (a *App) openCache(ctx context.Context) (*cache.Redis, error) {
	client, err := redis.New(ctx, a.Config.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, nil
	}
	a.closers = append(a.closers, client.Close)
	a.health["redis"] = client.Health
	return cache.NewRedis(client.Client, a.Config.Redis.TTL,
		cache.WithLogger(a.Logger),
		cache.WithMetrics(a.Metrics),
	), nil
}

func (a *App) openSinks(ctx context.Context) ([]publisher.Sink, error) {
	var sinks []publisher.Sink

	if a.Config.Kafka.Enabled() {
		producer, err := kafka.NewProducer(a.Config.Kafka)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			producer.Close()
			return nil
		})
		if err := kafka.EnsureTopic(ctx, producer, a.Config.Kafka); err != nil {
			return nil, err
		}
		sinks = append(sinks, sink.NewKafka(producer, a.Config.Kafka.Topic))
		a.Logger.InfoContext(ctx, "audit kafka sink enabled", "topic", a.Config.Kafka.Topic)
	}

	if a.Config.RabbitMQ.Enabled() {
		conn, err := rabbitmq.Dial(a.Config.RabbitMQ)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		sinks = append(sinks, sink.NewRabbitMQ(conn.Channel, a.Config.RabbitMQ.Exchange, a.Config.RabbitMQ.RoutingKey))
		a.Logger.InfoContext(ctx, "audit rabbitmq sink enabled", "exchange", a.Config.RabbitMQ.Exchange)
	}
	return sinks, nil
}

// Router builds the HTTP handler for the wired registries.
func (a *App) Router() http.Handler {
	return httptransport.NewRouter(httptransport.Config{
		Modules: []httptransport.ModuleHandler{
			didhandler.New(a.DIDs, a.Logger),
			credhandler.New(a.Credentials, a.Logger),
		},
		ReadOnly:       []httptransport.ReadOnlyHandler{audithandler.New(a.Audit, a.Logger)},
		Validator:      a.Tokens,
		HealthChecks:   a.health,
		MetricsHandler: promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		Metrics:        a.Metrics,
		Logger:         a.Logger,
		RequestTimeout: a.Config.RequestTimeout,
	})
}

// Close releases resources in reverse order of acquisition. The publisher
// drains before sinks and connections close.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
