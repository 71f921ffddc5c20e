package integration_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	occupancyadapter "rent-billing/internal/billing/adapters/occupancy"
	billingapp "rent-billing/internal/billing/application"
	billing "rent-billing/internal/billing/domain"
	billingrepo "rent-billing/internal/billing/infrastructure/postgres"
	billinginterfaces "rent-billing/internal/billing/interfaces"
	"rent-billing/internal/eventing"
	eventingrepo "rent-billing/internal/eventing/infrastructure/postgres"
	"rent-billing/internal/migration"
	notificationsrepo "rent-billing/internal/notifications/infrastructure/postgres"
	occupancyapp "rent-billing/internal/occupancy/application"
	"rent-billing/internal/occupancy/application/events"
	occupancyrepo "rent-billing/internal/occupancy/infrastructure/postgres"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("billing_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// The migrator closes its handle, so it gets its own.
	migrateDB, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	m, err := migration.New(migrateDB, nil)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())
	return dsn
}

func seedOccupancy(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO houses (id, owner_id, name, water_bill, gas_bill) VALUES ('house-1', 'owner-1', 'Green Villa', 500, 300)`)
	require.NoError(t, err)
	_, err = db.Exec(`
INSERT INTO flats (id, house_id, owner_id, name, status, tenant_id, rent, current_reading, previous_reading, rate_per_unit) VALUES
	('unit-1', 'house-1', 'owner-1', 'A1', 'OCCUPIED', 'tenant-1', 10000, 120, 100, 8),
	('unit-2', 'house-1', 'owner-1', 'A2', 'OCCUPIED', 'tenant-2', 12000, 0, 0, 8),
	('unit-3', 'house-1', 'owner-1', 'A3', 'VACANT', NULL, 9000, 0, 0, 8)`)
	require.NoError(t, err)
}

func TestBillingLifecycleOnPostgres(t *testing.T) {
	dsn := startPostgres(t)
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	seedOccupancy(t, db)

	ctx := context.Background()
	dhaka, err := time.LoadLocation("Asia/Dhaka")
	require.NoError(t, err)
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, dhaka)
	clock := billingapp.ClockFunc(func() time.Time { return now })

	flats := occupancyrepo.NewFlatRepository(db)
	units, err := occupancyadapter.NewUnitReader(flats)
	require.NoError(t, err)
	invoiceRepo := billingrepo.NewInvoiceRepository(db, billingrepo.WithLocation(dhaka))
	configRepo := billingrepo.NewConfigRepository(db)
	inbox := notificationsrepo.NewStore(db)
	opts := []billingapp.Option{
		billingapp.WithClock(clock),
		billingapp.WithLocation(dhaka),
		billingapp.WithNotifier(inbox),
	}

	cfg := billing.DefaultConfig("owner-1")
	cfg.GracePeriodDays = 2
	require.NoError(t, configRepo.SaveConfig(ctx, cfg))

	generator, err := billingapp.NewGenerator(invoiceRepo, configRepo, units, opts...)
	require.NoError(t, err)
	period := billing.Period{Year: 2025, Month: time.January}
	dueDate := time.Date(2025, 1, 5, 0, 0, 0, 0, dhaka)

	summary, err := generator.GenerateForOwner(ctx, "owner-1", period, dueDate)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 0, summary.Failed)

	again, err := generator.GenerateForOwner(ctx, "owner-1", period, dueDate)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 2, again.Skipped)

	first, err := invoiceRepo.FindByUnitAndPeriod(ctx, "unit-1", period)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, int64(10000+160+300+500), first.TotalAmount)
	assert.Equal(t, billing.StatusPending, first.Status)
	assert.Equal(t, 5, first.DueDate.Day())

	received, err := inbox.ListForRecipient(ctx, "tenant-1", true, 10)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, first.ID, received[0].RelatedID)

	service, err := billingapp.NewInvoiceService(invoiceRepo, units, opts...)
	require.NoError(t, err)
	owner := billingapp.Actor{UserID: "owner-1", Role: billingapp.RoleOwner}
	paid, err := service.RecordPayment(ctx, owner, first.ID, billingapp.PaymentInput{Amount: 4000, Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPartial, paid.Status)
	assert.Equal(t, int64(2), paid.Version)

	overdue, err := billingapp.NewOverdueMonitor(invoiceRepo, configRepo, opts...)
	require.NoError(t, err)
	result := overdue.Run(ctx)
	require.False(t, result.Failed(), result.String())
	assert.Equal(t, 2, result.Updated)

	// Vacating unit-2 reclaims its unpaid invoice through the outbox.
	bus := eventing.NewInMemoryBus()
	registry := eventing.NewRegistry()
	registry.Register(events.UnitVacated{})
	outbox := eventingrepo.NewOutboxStore(db)
	dispatcher := eventing.NewDispatcher(bus, outbox, registry, eventingrepo.NewDLQStore(db), nil)
	reclaimer, err := billingapp.NewReclaimer(invoiceRepo, units, opts...)
	require.NoError(t, err)
	consumer, err := billinginterfaces.NewUnitVacatedConsumer(reclaimer, nil)
	require.NoError(t, err)
	consumer.Subscribe(bus, eventingrepo.NewProcessedStore(db))
	occupancy, err := occupancyapp.NewService(db, flats, eventing.NewPublisher(outbox, dispatcher), nil)
	require.NoError(t, err)

	vacated, err := occupancy.VacateUnit(ctx, "owner-1", "unit-2")
	require.NoError(t, err)
	assert.Equal(t, "tenant-2", vacated.TenantID)

	require.Eventually(t, func() bool {
		inv, err := invoiceRepo.FindByUnitAndPeriod(ctx, "unit-2", period)
		return err == nil && inv == nil
	}, 5*time.Second, 50*time.Millisecond)

	settled, err := service.RecordPayment(ctx, owner, first.ID, billingapp.PaymentInput{Amount: first.TotalAmount - 4000, Method: "bank_transfer"})
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, settled.Status)
	require.NotNil(t, settled.PaidDate)

	stats, err := service.MonthlyStats(ctx, "owner-1", period)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PaidCount)
	assert.Equal(t, 0, stats.PendingCount)
}
