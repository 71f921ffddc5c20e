package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rent-billing/internal/audit"
	occupancyadapter "rent-billing/internal/billing/adapters/occupancy"
	billingapp "rent-billing/internal/billing/application"
	billingrepo "rent-billing/internal/billing/infrastructure/postgres"
	billinginterfaces "rent-billing/internal/billing/interfaces"
	"rent-billing/internal/config"
	"rent-billing/internal/eventing"
	eventingrepo "rent-billing/internal/eventing/infrastructure/postgres"
	"rent-billing/internal/notifications"
	notificationsrepo "rent-billing/internal/notifications/infrastructure/postgres"
	"rent-billing/internal/observability/metrics"
	occupancyapp "rent-billing/internal/occupancy/application"
	"rent-billing/internal/occupancy/application/events"
	occupancyrepo "rent-billing/internal/occupancy/infrastructure/postgres"
	"rent-billing/internal/scheduler"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client

	audit        *audit.Repository
	inbox        *notificationsrepo.Store
	invoices     *billingapp.InvoiceService
	configs      *billingapp.ConfigService
	generator    *billingapp.Generator
	jobs         *billingapp.Jobs
	scheduler    *scheduler.Scheduler
	occupancy    *occupancyapp.Service
	dispatcher   *eventing.Dispatcher
	bus          *eventing.InMemoryBus
	processed    *eventingrepo.ProcessedStore
	unitsVacated *billinginterfaces.UnitVacatedConsumer
}

func openDB(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("DATABASE_URL or PG_DSN is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	db, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, db: db}
	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire() error {
	cfg, logger, db := a.cfg, a.logger, a.db
	loc := cfg.Location()
	metrics.Init(db, logger)

	a.audit = audit.NewRepository(db)
	a.inbox = notificationsrepo.NewStore(db)
	sink, err := buildSink(cfg.Notify, a.inbox)
	if err != nil {
		return err
	}

	flats := occupancyrepo.NewFlatRepository(db)
	units, err := occupancyadapter.NewUnitReader(flats)
	if err != nil {
		return err
	}
	invoiceRepo := billingrepo.NewInvoiceRepository(db, billingrepo.WithLocation(loc))
	configRepo := billingrepo.NewConfigRepository(db)

	opts := []billingapp.Option{
		billingapp.WithLocation(loc),
		billingapp.WithLogger(logger),
		billingapp.WithNotifier(sink),
		billingapp.WithWorkers(cfg.Workers),
		billingapp.WithDefaultElectricityRate(decimal.NewFromFloat(cfg.DefaultElectricityRate)),
	}
	if a.generator, err = billingapp.NewGenerator(invoiceRepo, configRepo, units, opts...); err != nil {
		return err
	}
	overdue, err := billingapp.NewOverdueMonitor(invoiceRepo, configRepo, opts...)
	if err != nil {
		return err
	}
	lateFees, err := billingapp.NewLateFeeCalculator(invoiceRepo, configRepo, opts...)
	if err != nil {
		return err
	}
	reclaimer, err := billingapp.NewReclaimer(invoiceRepo, units, opts...)
	if err != nil {
		return err
	}
	if a.jobs, err = billingapp.NewJobs(a.generator, overdue, lateFees, reclaimer, logger); err != nil {
		return err
	}
	if a.invoices, err = billingapp.NewInvoiceService(invoiceRepo, units, opts...); err != nil {
		return err
	}
	if a.configs, err = billingapp.NewConfigService(configRepo, opts...); err != nil {
		return err
	}

	a.bus = eventing.NewInMemoryBus()
	registry := eventing.NewRegistry()
	registry.Register(events.UnitVacated{})
	outbox := eventingrepo.NewOutboxStore(db)
	a.processed = eventingrepo.NewProcessedStore(db)
	a.dispatcher = eventing.NewDispatcher(a.bus, outbox, registry, eventingrepo.NewDLQStore(db), logger)
	publisher := eventing.NewPublisher(outbox, a.dispatcher)
	if a.occupancy, err = occupancyapp.NewService(db, flats, publisher, logger); err != nil {
		return err
	}
	if a.unitsVacated, err = billinginterfaces.NewUnitVacatedConsumer(reclaimer, logger); err != nil {
		return err
	}
	a.unitsVacated.Subscribe(a.bus, a.processed)

	locker, err := a.buildLocker()
	if err != nil {
		return err
	}
	a.scheduler = scheduler.New(
		scheduler.WithLocation(loc),
		scheduler.WithLogger(logger),
		scheduler.WithLocker(locker),
		scheduler.WithLockTTL(cfg.JobLockTTL),
	)
	specs := map[string]string{
		billingapp.JobGenerateMonthlyRents: cfg.Schedules.Generate,
		billingapp.JobUpdateOverdueRents:   cfg.Schedules.Overdue,
		billingapp.JobCalculateLateFees:    cfg.Schedules.LateFees,
		billingapp.JobCleanupOrphanedRents: cfg.Schedules.Cleanup,
	}
	for _, name := range a.jobs.Names() {
		spec := specs[name]
		if !cfg.SchedulerEnabled {
			spec = ""
		}
		fn, err := a.jobs.Func(name)
		if err != nil {
			return err
		}
		job := scheduler.Job{
			Name: name,
			Spec: spec,
			Run:  func(ctx context.Context) { fn(ctx) },
		}
		if err := a.scheduler.Register(job); err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}
	}
	return nil
}

func (a *app) buildLocker() (scheduler.Locker, error) {
	if a.cfg.RedisURL == "" {
		return scheduler.LocalLocker{}, nil
	}
	client, err := scheduler.NewRedisClient(a.cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.redis = client
	locker, err := scheduler.NewRedisLocker(client, "")
	if err != nil {
		return nil, err
	}
	return locker, nil
}

func buildSink(cfg config.NotifyConfig, inbox *notificationsrepo.Store) (notifications.Sink, error) {
	sink := notifications.NewMultiSink().Add(notifications.ChannelInApp, inbox)
	if cfg.WebhookURL == "" {
		return sink, nil
	}
	tpl, err := notifications.NewTemplate(cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("notify template: %w", err)
	}
	webhook, err := notifications.NewWebhookSink(cfg.WebhookURL,
		notifications.WithTimeout(cfg.Timeout),
		notifications.WithTemplate(tpl),
	)
	if err != nil {
		return nil, fmt.Errorf("notify webhook: %w", err)
	}
	return sink.Add(notifications.ChannelWebhook, webhook), nil
}

// runJob runs a job under the scheduler's overlap guard.
func (a *app) runJob(ctx context.Context, name string) (*billingapp.RunResult, error) {
	fn, err := a.jobs.Func(name)
	if err != nil {
		return nil, err
	}
	var result *billingapp.RunResult
	err = a.scheduler.Exclusive(ctx, name, func(ctx context.Context) {
		result = fn(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("db close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
