package di

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"SentiDash/internal/domain/repository"
	"SentiDash/internal/handler/api"
	internalrepo "SentiDash/internal/repository"
	"SentiDash/internal/service/marketdata"
	imetrics "SentiDash/internal/service/metrics"
	"SentiDash/internal/service/ratelimit"
	"SentiDash/internal/services/ledger"
	"SentiDash/internal/usecase"
	"SentiDash/pkg/cache"
	pkgch "SentiDash/pkg/clickhouse"
	"SentiDash/pkg/config"
	pkgkafka "SentiDash/pkg/kafka"
	applogger "SentiDash/pkg/logger"
	"SentiDash/pkg/metrics"
	"SentiDash/pkg/server"
	"SentiDash/pkg/util"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideDashboardMetrics creates per-endpoint dashboard metrics.
func ProvideDashboardMetrics(reg *prometheus.Registry) *imetrics.Dashboard {
	return imetrics.NewDashboard(reg)
}

// ProvideCSVSeries creates the CSV input repository.
func ProvideCSVSeries(cfg *config.Config, l *applogger.Logger) *internalrepo.CSVSeries {
	s := internalrepo.NewCSVSeries(cfg.Data.PricePath, cfg.Data.SentimentPath)
	s.SetLogger(l)
	return s
}

func ProvideSeriesSource(s *internalrepo.CSVSeries) repository.SeriesSource { return s }

func ProvideSeriesSink(s *internalrepo.CSVSeries) repository.SeriesSink { return s }

// ProvideCache creates a layered memory/Redis cache when Redis is enabled
// and a process-local memory cache otherwise.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	lc := cache.NewLayeredCache(rc, cache.WithLayeredMemoryTTL(cfg.Redis.MemoryTTL))
	l.Info("redis cache connected", applogger.String("addr", cfg.Redis.Addr))
	return lc, nil
}

// ProvideClickHouseClient creates a ClickHouse client when the ledger lives
// in ClickHouse. It returns nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Ledger.Backend != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(4, 2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideLedgerStore opens the configured ledger backend and checks its layout.
func ProvideLedgerStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.LedgerStore, error) {
	var store repository.LedgerStore
	switch cfg.Ledger.Backend {
	case "clickhouse":
		s := internalrepo.NewCHLedger(ch, cfg.Ledger.Table)
		s.SetLogger(l)
		store = s
	default:
		s := internalrepo.NewCSVLedger(cfg.Ledger.Path)
		s.SetLogger(l)
		store = s
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ledger store: %w", err)
	}
	return store, nil
}

// ProvideRecorder guards appends with a Redis lock when Redis is enabled.
func ProvideRecorder(cfg *config.Config, store repository.LedgerStore, c cache.Service) *ledger.Recorder {
	if cfg.Redis.Enabled {
		return ledger.NewRecorder(store, ledger.WithLocker(c, cfg.Ledger.LockTTL))
	}
	return ledger.NewRecorder(store)
}

// ProvideLoader creates the input loader.
func ProvideLoader(cfg *config.Config, src repository.SeriesSource, l *applogger.Logger) *usecase.Loader {
	return usecase.NewLoader(src, cfg.Features.VolatilityWindow, l)
}

// ProvideModelCache creates the fingerprint keyed model cache.
func ProvideModelCache(cfg *config.Config, c cache.Service, l *applogger.Logger) *usecase.ModelCache {
	return usecase.NewModelCache(c, usecase.TrainConfig{
		Features:       cfg.Model.Features,
		MinRows:        cfg.Model.MinRows,
		TestFraction:   cfg.Model.TestFraction,
		Regularization: cfg.Model.Regularization,
		MaxIterations:  cfg.Model.MaxIterations,
	}, cfg.Model.CacheTTL, l)
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.AutoCreateTopic),
		pkgkafka.WithMetrics(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the prediction event publisher, or nil without Kafka.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer) *internalrepo.KafkaPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideHub creates the websocket hub.
func ProvideHub(l *applogger.Logger) *api.Hub {
	return api.NewHub(l)
}

// ProvidePipeline wires the run pipeline and its notifiers.
func ProvidePipeline(
	loader *usecase.Loader,
	mc *usecase.ModelCache,
	rec *ledger.Recorder,
	store repository.LedgerStore,
	hub *api.Hub,
	pub *internalrepo.KafkaPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Pipeline {
	opts := []usecase.PipelineOption{
		usecase.WithMetrics(m),
		usecase.WithPipelineLogger(l),
		usecase.WithNotifiers(hub),
	}
	if pub != nil {
		opts = append(opts, usecase.WithNotifiers(pub))
	}
	return usecase.NewPipeline(loader, mc, rec, store, opts...)
}

// ProvideAcquirer creates the acquisition use case.
func ProvideAcquirer(cfg *config.Config, sink repository.SeriesSink, l *applogger.Logger) (*usecase.Acquirer, error) {
	start, ok := util.ParseDate(cfg.Acquisition.Start)
	if !ok {
		return nil, fmt.Errorf("acquisition start %q is not a date", cfg.Acquisition.Start)
	}
	opts := marketdata.Options{
		Timeout:  cfg.Acquisition.Timeout,
		Attempts: cfg.Acquisition.Attempts,
		RPS:      cfg.Acquisition.RPS,
		Burst:    cfg.Acquisition.Burst,
	}
	fgi := marketdata.NewFearGreedClient(cfg.Acquisition.FearGreedURL, opts, l)
	prices := marketdata.NewPriceClient(cfg.Acquisition.PriceURL, cfg.Acquisition.Symbol, opts, l)
	return usecase.NewAcquirer(fgi, prices, sink, start, cfg.Acquisition.FearGreedLimit, l), nil
}

// ProvideHandler creates the dashboard HTTP handler. Writes are limited to
// one per second per client with a small burst.
func ProvideHandler(l *applogger.Logger, p *usecase.Pipeline, hub *api.Hub, dm *imetrics.Dashboard) *api.DashboardEchoHandler {
	return api.NewDashboardEchoHandler(l, p, hub, dm, ratelimit.New(1, 5))
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	p *usecase.Pipeline,
	acq *usecase.Acquirer,
	hub *api.Hub,
	reg *prometheus.Registry,
	h *api.DashboardEchoHandler,
	store repository.LedgerStore,
	c cache.Service,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
) *server.App {
	app := server.New(cfg, l, p, acq, hub, reg)
	app.SetHTTPHandler(h)
	if cc, ok := c.(io.Closer); ok {
		app.AddCloser("cache", cc)
	}
	if ch != nil {
		app.AddCloser("clickhouse", ch)
	}
	app.AddCloser("ledger", store)
	if producer != nil {
		app.AddCloser("kafka producer", producer)
	}
	return app
}
