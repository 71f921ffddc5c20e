package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	billing "rent-billing/internal/billing/domain"
	"rent-billing/internal/notifications"
)

// OverdueMonitor marks unpaid invoices past their grace period as OVERDUE.
type OverdueMonitor struct {
	invoices billing.InvoiceRepository
	configs  billing.ConfigStore
	opts     options
}

// NewOverdueMonitor constructs the monitor.
func NewOverdueMonitor(invoices billing.InvoiceRepository, configs billing.ConfigStore, opts ...Option) (*OverdueMonitor, error) {
	if invoices == nil {
		return nil, errors.New("overdue monitor: nil invoice repository")
	}
	if configs == nil {
		return nil, errors.New("overdue monitor: nil config store")
	}
	o := buildOptions(opts)
	o.logger = o.logger.With(zap.String("component", "overdue_monitor"))
	return &OverdueMonitor{invoices: invoices, configs: configs, opts: o}, nil
}

// Run sweeps PENDING and PARTIAL invoices whose due date has passed.
func (m *OverdueMonitor) Run(ctx context.Context) *RunResult {
	result := newRunResult(JobUpdateOverdueRents, m.opts.now())
	today := m.opts.today()
	candidates, err := m.invoices.FindByStatus(ctx,
		[]billing.InvoiceStatus{billing.StatusPending, billing.StatusPartial},
		billing.InvoiceFilter{DueBefore: today, OutstandingOnly: true},
	)
	if err != nil {
		m.opts.logger.Error("find overdue candidates failed", zap.Error(err))
		result.fail(fmt.Errorf("find candidates: %w", err))
		return result.finish(m.opts.now(), false)
	}

	configs := newConfigCache(m.configs)
	interrupted := forEach(ctx, m.opts.workers, candidates, func(ctx context.Context, inv *billing.Invoice) {
		m.process(ctx, inv, today, configs, result)
	}) != nil

	if n := result.Updated; n > 0 {
		m.opts.logger.Info("invoices marked overdue", zap.Int("count", n))
	}
	return result.finish(m.opts.now(), interrupted)
}

func (m *OverdueMonitor) process(ctx context.Context, inv *billing.Invoice, today time.Time, configs *runCache[*billing.Config], result *RunResult) {
	log := m.opts.logger.With(zap.String("invoice_id", inv.ID), zap.String("owner_id", inv.OwnerID))
	cfg, err := configs.get(ctx, inv.OwnerID)
	if err != nil {
		log.Error("load billing config failed", zap.Error(err))
		result.addError(ItemInvoice, inv.ID, err)
		return
	}
	if cfg == nil {
		log.Warn("no billing config for owner, invoice skipped")
		result.addSkipped(1)
		return
	}
	if !inv.MarkOverdue(today, cfg.GracePeriodDays, m.opts.clock.Now().UTC()) {
		result.addSkipped(1)
		return
	}
	if err := m.invoices.Update(ctx, inv); err != nil {
		log.Error("mark invoice overdue failed", zap.Error(err))
		result.addError(ItemInvoice, inv.ID, err)
		return
	}
	result.addUpdated(1)

	m.opts.notify(ctx, notifications.Notification{
		RecipientID: inv.TenantID,
		Kind:        notifications.KindPaymentOverdue,
		Priority:    notifications.PriorityUrgent,
		Title:       "Rent Overdue",
		Message:     fmt.Sprintf("Your rent for %s is overdue. Due amount: %d", inv.Period.DisplayName(), inv.DueAmount),
		RelatedID:   inv.ID,
		Channels:    []notifications.Channel{notifications.ChannelInApp, notifications.ChannelWebhook},
	})
}
