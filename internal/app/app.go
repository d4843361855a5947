// Package app composes the badge server from configuration: it picks the
// ledger and artifact backends, builds the issuance service, and mounts the
// HTTP router.
package app

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"badgeworks/internal/badge/artifact"
	"badgeworks/internal/badge/catalog"
	"badgeworks/internal/badge/handler"
	"badgeworks/internal/badge/ledger"
	"badgeworks/internal/badge/publisher"
	"badgeworks/internal/badge/render"
	"badgeworks/internal/badge/service"
	"badgeworks/internal/badge/validation"
	"badgeworks/internal/platform/config"
	"badgeworks/internal/platform/database"
	"badgeworks/internal/platform/health"
	"badgeworks/internal/platform/metrics"
	"badgeworks/internal/platform/secrets"
	"badgeworks/internal/platform/tracer"
	httptransport "badgeworks/internal/transport/http"
	id "badgeworks/pkg/domain"
	"badgeworks/pkg/platform/circuit"
	"badgeworks/pkg/platform/middleware/request"
)

// App is a fully wired badge server.
type App struct {
	Handler   http.Handler
	Service   *service.Service
	Ledger    ledger.Ledger
	Artifacts service.ArtifactStore
	Registry  *prometheus.Registry

	cfg        config.Config
	logger     *slog.Logger
	pool       *database.Pool
	dispatcher *publisher.Dispatcher
	drained    sync.WaitGroup
	closeOnce  sync.Once
}

// Option overrides a backend, mostly for tests and the CLI.
type Option func(*options)

type options struct {
	awsConfig *aws.Config
	template  image.Image
	catalog   *catalog.Catalog
	ledger    ledger.Ledger
	artifacts service.ArtifactStore
}

// WithAWSConfig skips loading the default AWS configuration.
func WithAWSConfig(cfg aws.Config) Option {
	return func(o *options) { o.awsConfig = &cfg }
}

// WithTemplate uses img instead of reading TEMPLATE_PATH.
func WithTemplate(img image.Image) Option {
	return func(o *options) { o.template = img }
}

// WithCatalog uses c instead of reading CATALOG_PATH.
func WithCatalog(c *catalog.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithLedger uses l instead of the configured ledger.
func WithLedger(l ledger.Ledger) Option {
	return func(o *options) { o.ledger = l }
}

// WithArtifactStore uses s instead of the configured artifact store.
func WithArtifactStore(s service.ArtifactStore) Option {
	return func(o *options) { o.artifacts = s }
}

// New builds the application. Call Close to release the database pool and
// drain background shares.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	a := &App{cfg: cfg, logger: logger, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cat := o.catalog
	if cat == nil {
		var err error
		if cat, err = catalog.Load(cfg.Badges.CatalogPath); err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}
	logger.Info("catalog loaded", "entries", cat.Len())

	template := o.template
	if template == nil {
		img, err := render.LoadTemplate(cfg.Badges.TemplatePath)
		if err != nil {
			// Rendering reports the missing template per request.
			logger.Warn("badge template unavailable", "path", cfg.Badges.TemplatePath, "error", err)
		}
		template = img
	}

	loadAWS := sync.OnceValues(func() (aws.Config, error) {
		if o.awsConfig != nil {
			return *o.awsConfig, nil
		}
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.Artifacts.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Artifacts.Region))
		}
		return awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	})

	var err error
	a.Ledger = o.ledger
	if a.Ledger == nil {
		if a.Ledger, err = a.openLedger(ctx, loadAWS); err != nil {
			return nil, err
		}
	}

	a.Artifacts = o.artifacts
	if a.Artifacts == nil {
		if a.Artifacts, err = a.openArtifacts(loadAWS); err != nil {
			a.closePool()
			return nil, err
		}
	}

	m := metrics.New(a.Registry)
	svcOpts := []service.Option{
		service.WithMetrics(m),
		service.WithTracer(tracer.NewOTel()),
		service.WithLogger(logger),
	}
	if cfg.LinkedIn.Enabled {
		linkedIn := publisher.NewLinkedIn(publisher.Config{
			APIURL:       cfg.LinkedIn.APIURL,
			BadgeBaseURL: cfg.LinkedIn.BadgeBaseURL,
			Retries:      cfg.LinkedIn.Retries,
		},
			publisher.WithBreaker(circuit.New("linkedin")),
			publisher.WithLogger(logger),
		)
		a.dispatcher = publisher.NewDispatcher(linkedIn, 64, publisher.WithDispatcherLogger(logger))
		a.drained.Add(1)
		go a.drainShareFailures(m)
		svcOpts = append(svcOpts, service.WithPublisher(linkedIn), service.WithDispatcher(a.dispatcher))
	}

	subjects := validation.SubjectRange{
		Min: id.SubjectID(cfg.Badges.SubjectIDMin),
		Max: id.SubjectID(cfg.Badges.SubjectIDMax),
	}
	a.Service = service.NewService(
		validation.New(cat, subjects),
		cat,
		render.New(template),
		a.Artifacts,
		a.Ledger,
		svcOpts...,
	)

	hc := health.New(cfg.Server.Environment)
	if a.pool != nil {
		hc.RegisterCheck("ledger", a.pool.Health)
	}

	a.Handler = httptransport.NewRouter(httptransport.RouterConfig{
		Badges:         handler.New(a.Service, logger),
		Health:         hc,
		Gatherer:       a.Registry,
		HTTPMetrics:    request.NewMetrics(a.Registry),
		RequestTimeout: cfg.Server.RequestTimeout,
	}, logger)

	return a, nil
}

func (a *App) openLedger(ctx context.Context, loadAWS func() (aws.Config, error)) (ledger.Ledger, error) {
	if !a.cfg.Database.Configured() {
		a.logger.Warn("no database configured, using in-memory ledger")
		return ledger.NewInMemory(), nil
	}

	dsn := a.cfg.Database.URL
	if dsn == "" {
		creds, err := a.credentialChain(loadAWS).Credentials(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve database credentials: %w", err)
		}
		dsn = creds.DSN(a.cfg.Database.Name)
	}

	dbCfg := database.DefaultConfig()
	dbCfg.URL = dsn
	dbCfg.Retry = database.RetryPolicy{
		MaxAttempts: a.cfg.Database.ConnectAttempts,
		Delay:       a.cfg.Database.ConnectDelay,
	}
	pool, err := database.New(ctx, dbCfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.pool = pool

	l := ledger.NewPostgres(pool)
	if err := l.EnsureSchema(ctx); err != nil {
		a.closePool()
		return nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	return l, nil
}

func (a *App) credentialChain(loadAWS func() (aws.Config, error)) *secrets.Chain {
	var sources []secrets.Source
	if a.cfg.Database.SecretID != "" || a.cfg.Database.FallbackSecretID != "" {
		awsCfg, err := loadAWS()
		if err != nil {
			a.logger.Warn("aws configuration unavailable, skipping secrets manager", "error", err)
		} else {
			sm := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
				if a.cfg.Database.Region != "" {
					o.Region = a.cfg.Database.Region
				}
			})
			for _, secretID := range []string{a.cfg.Database.SecretID, a.cfg.Database.FallbackSecretID} {
				if secretID != "" {
					sources = append(sources, secrets.NewSecretsManager(sm, secretID))
				}
			}
		}
	}
	sources = append(sources, secrets.Env{})
	return secrets.NewChain(a.logger, sources...)
}

func (a *App) openArtifacts(loadAWS func() (aws.Config, error)) (service.ArtifactStore, error) {
	if a.cfg.Artifacts.Bucket == "" {
		a.logger.Warn("no artifact bucket configured, using in-memory artifact store")
		return artifact.NewMemory(a.cfg.Artifacts.PublicHost), nil
	}
	awsCfg, err := loadAWS()
	if err != nil {
		return nil, fmt.Errorf("load aws configuration: %w", err)
	}
	var s3Opts []artifact.S3Option
	if a.cfg.Artifacts.PublicHost != "" {
		s3Opts = append(s3Opts, artifact.WithPublicHost(a.cfg.Artifacts.PublicHost))
	}
	return artifact.NewS3(s3.NewFromConfig(awsCfg), a.cfg.Artifacts.Bucket, s3Opts...), nil
}

// drainShareFailures consumes background share failures until the
// dispatcher closes its channel.
func (a *App) drainShareFailures(m *metrics.Metrics) {
	defer a.drained.Done()
	for f := range a.dispatcher.Errors() {
		m.ObserveShare(metrics.ShareFailed)
		a.logger.Warn("background badge share failed",
			"badge_id", f.BadgeID.String(),
			"error", f.Err,
		)
	}
}

// Close waits for in-flight shares and closes the database pool.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.dispatcher != nil {
			a.dispatcher.Close()
			a.drained.Wait()
		}
		err = a.closePool()
	})
	return err
}

func (a *App) closePool() error {
	if a.pool == nil {
		return nil
	}
	if err := a.pool.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
