package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PortfolioDash/internal/domain/repository"
	domsvc "PortfolioDash/internal/domain/service"
	"PortfolioDash/internal/handler/web"
	internalrepo "PortfolioDash/internal/repository"
	"PortfolioDash/internal/service/ratelimit"
	"PortfolioDash/internal/services/auth"
	"PortfolioDash/internal/services/backend"
	"PortfolioDash/internal/usecase"
	"PortfolioDash/pkg/cache"
	pkgch "PortfolioDash/pkg/clickhouse"
	"PortfolioDash/pkg/config"
	xhttp "PortfolioDash/pkg/http"
	pkgkafka "PortfolioDash/pkg/kafka"
	"PortfolioDash/pkg/logger"
	"PortfolioDash/pkg/metrics"
	"PortfolioDash/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideCache builds the session cache named by session.store.
func ProvideCache(cfg *config.Config, l *logger.Logger) (cache.Service, error) {
	switch cfg.Session.Store {
	case "redis", "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Redis.Host),
			cache.WithRedisPort(cfg.Redis.Port),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPoolSize(cfg.Redis.PoolSize),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		l.Info("session store ready",
			logger.String("store", cfg.Session.Store),
			logger.String("redis", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)),
		)
		if cfg.Session.Store == "redis" {
			return rc, nil
		}
		return cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(cfg.Session.MemoryMaxSize),
			cache.WithLayeredMemoryTTL(cfg.Redis.L1TTL),
		), nil
	default:
		l.Info("session store ready", logger.String("store", "memory"))
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Session.MemoryMaxSize),
			cache.WithMemoryCleanup(cfg.Session.MemoryCleanup),
		), nil
	}
}

// ProvideSessionStore keeps sessions in the cache. The lock outlives the
// longest request so an analysis cannot lose it halfway.
func ProvideSessionStore(c cache.Service, cfg *config.Config) repository.SessionStore {
	return internalrepo.NewCacheSessionStore(c, cfg.Session.TTL, cfg.Server.WriteTimeout)
}

// ProvideBackendClient creates the client for the analytics backend.
func ProvideBackendClient(cfg *config.Config, l *logger.Logger, m repository.Metrics) *backend.Client {
	return backend.NewClient(cfg, l, m)
}

func ProvideAuthenticator(cfg *config.Config) (domsvc.Authenticator, error) {
	return auth.New(cfg)
}

func ProvideSessionTokens(cfg *config.Config) domsvc.SessionTokens {
	return auth.NewTokenIssuer(cfg.Session.Secret, cfg.Session.TTL)
}

func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideClickHouseClient creates a ClickHouse client and the events table.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.Producer.AutoCreate),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// clickHouseSink owns the client so closing the recorder releases the pool.
type clickHouseSink struct {
	*internalrepo.ClickHouseActivityStore
	client *pkgch.Client
}

func (s clickHouseSink) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s clickHouseSink) Close() error {
	return errors.Join(s.ClickHouseActivityStore.Close(), s.client.Close())
}

// ProvideActivityRecorder wires the sink named by activity.backend. With the
// kafka backend, aggregated error logs also go to activity.logs_topic.
func ProvideActivityRecorder(cfg *config.Config, l *logger.Logger, m repository.Metrics) (*usecase.ActivityRecorder, error) {
	var sink repository.ActivitySink
	switch cfg.Activity.Backend {
	case "kafka":
		producer, err := ProvideKafkaProducer(cfg)
		if err != nil {
			return nil, err
		}
		sink = internalrepo.NewKafkaActivityPublisher(producer, cfg.Activity.Topic)
		if cfg.Activity.LogsTopic != "" {
			l.AddCollector(&logger.CollectionConfig{
				TimeInterval:   30 * time.Second,
				CountThreshold: 100,
				Topic:          cfg.Activity.LogsTopic,
				Publisher:      producer,
			})
		}
		l.Info("activity sink ready",
			logger.String("backend", "kafka"),
			logger.Strings("brokers", cfg.Kafka.Brokers),
			logger.String("topic", cfg.Activity.Topic),
		)
	case "clickhouse":
		client, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, err
		}
		sink = clickHouseSink{
			ClickHouseActivityStore: internalrepo.NewClickHouseActivityStore(client.DB(), client.Database()),
			client:                  client,
		}
		l.Info("activity sink ready",
			logger.String("backend", "clickhouse"),
			logger.String("database", client.Database()),
		)
	}
	return usecase.NewActivityRecorder(sink, cfg.Activity.Backend, m, l), nil
}

// ProvideDashboard creates the dashboard use case.
func ProvideDashboard(
	cfg *config.Config,
	sessions repository.SessionStore,
	authn domsvc.Authenticator,
	client *backend.Client,
	activity *usecase.ActivityRecorder,
	limiter *ratelimit.Limiter,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.Dashboard {
	return usecase.NewDashboard(
		sessions,
		authn,
		client, client, client,
		activity,
		limiter,
		usecase.LoginRate{
			Capacity:     cfg.Auth.LoginRate.Capacity,
			RefillPerSec: cfg.Auth.LoginRate.RefillPerSec,
		},
		m,
		l,
	)
}

// ProvideWebHandler creates the dashboard routes.
func ProvideWebHandler(
	cfg *config.Config,
	dash *usecase.Dashboard,
	tokens domsvc.SessionTokens,
	l *logger.Logger,
) (xhttp.Handler, error) {
	return web.NewDashboardHandler(dash, tokens, web.Options{
		CookieName:   cfg.Session.CookieName,
		CookieTTL:    cfg.Session.TTL,
		SecureCookie: cfg.Session.SecureCookie,
		CredentialHint: cfg.Auth.Provider == "static" &&
			cfg.Auth.Username == "admin" && cfg.Auth.Password == "admin",
	}, l)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *logger.Logger) *xhttp.Server {
	return xhttp.NewServer(h, l,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithMetricsPath(cfg.Metrics.Path),
		xhttp.WithCORS(cfg.Server.CORSOrigins),
		xhttp.WithTrustedProxies(cfg.Server.TrustedProxies),
	)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	srv *xhttp.Server,
	activity *usecase.ActivityRecorder,
	c cache.Service,
) *server.App {
	return server.New(cfg, l, srv, activity, c)
}
