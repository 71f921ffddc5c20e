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

// LateFeeCalculator recomputes late fees on overdue invoices.
type LateFeeCalculator struct {
	invoices billing.InvoiceRepository
	configs  billing.ConfigStore
	opts     options
}

// NewLateFeeCalculator constructs the calculator.
func NewLateFeeCalculator(invoices billing.InvoiceRepository, configs billing.ConfigStore, opts ...Option) (*LateFeeCalculator, error) {
	if invoices == nil {
		return nil, errors.New("late fee calculator: nil invoice repository")
	}
	if configs == nil {
		return nil, errors.New("late fee calculator: nil config store")
	}
	o := buildOptions(opts)
	o.logger = o.logger.With(zap.String("component", "late_fee_calculator"))
	return &LateFeeCalculator{invoices: invoices, configs: configs, opts: o}, nil
}

// Quote returns the late fee an invoice would carry today under cfg.
func (c *LateFeeCalculator) Quote(inv *billing.Invoice, cfg billing.Config) billing.LateFeeQuote {
	return billing.CalculateLateFee(inv.TotalAmount, inv.DueDate, c.opts.today(), cfg)
}

// Run recomputes fees for every owner with late fees enabled.
func (c *LateFeeCalculator) Run(ctx context.Context) *RunResult {
	result := newRunResult(JobCalculateLateFees, c.opts.now())
	enabled := true
	configs, err := c.configs.ListConfigs(ctx, billing.ConfigFilter{LateFeeEnabled: &enabled})
	if err != nil {
		c.opts.logger.Error("list billing configs failed", zap.Error(err))
		result.fail(fmt.Errorf("list configs: %w", err))
		return result.finish(c.opts.now(), false)
	}

	today := c.opts.today()
	interrupted := forEach(ctx, c.opts.workers, configs, func(ctx context.Context, cfg billing.Config) {
		c.processOwner(ctx, cfg, today, result)
	}) != nil
	return result.finish(c.opts.now(), interrupted)
}

func (c *LateFeeCalculator) processOwner(ctx context.Context, cfg billing.Config, today time.Time, result *RunResult) {
	invoices, err := c.invoices.FindByStatus(ctx,
		[]billing.InvoiceStatus{billing.StatusOverdue},
		billing.InvoiceFilter{OwnerID: cfg.OwnerID, OutstandingOnly: true},
	)
	if err != nil {
		c.opts.logger.Error("find overdue invoices failed", zap.String("owner_id", cfg.OwnerID), zap.Error(err))
		result.addError(ItemOwner, cfg.OwnerID, err)
		return
	}
	for _, inv := range invoices {
		c.processInvoice(ctx, inv, cfg, today, result)
	}
}

func (c *LateFeeCalculator) processInvoice(ctx context.Context, inv *billing.Invoice, cfg billing.Config, today time.Time, result *RunResult) {
	quote := billing.CalculateLateFee(inv.TotalAmount, inv.DueDate, today, cfg)
	// Within grace the invoice keeps whatever fee it already carries.
	if quote.DaysOverdue == 0 {
		result.addSkipped(1)
		return
	}
	previous := inv.LateFee
	if !inv.ApplyLateFee(quote.Fee, c.opts.clock.Now().UTC()) {
		result.addSkipped(1)
		return
	}
	if err := c.invoices.Update(ctx, inv); err != nil {
		c.opts.logger.Error("apply late fee failed",
			zap.String("invoice_id", inv.ID),
			zap.String("owner_id", inv.OwnerID),
			zap.Error(err),
		)
		result.addError(ItemInvoice, inv.ID, err)
		return
	}
	result.addUpdated(1)
	c.opts.logger.Debug("late fee applied",
		zap.String("invoice_id", inv.ID),
		zap.Int64("late_fee", inv.LateFee),
		zap.Int("weeks_overdue", quote.WeeksOverdue),
	)

	if inv.LateFee > previous {
		c.opts.notify(ctx, notifications.Notification{
			RecipientID: inv.TenantID,
			Kind:        notifications.KindLateFeeApplied,
			Priority:    notifications.PriorityHigh,
			Title:       "Late Fee Applied",
			Message: fmt.Sprintf("A late fee of %d (%s%%) was applied to your rent for %s. New total: %d",
				inv.LateFee, quote.Percentage.String(), inv.Period.DisplayName(), inv.AdjustedTotal),
			RelatedID: inv.ID,
			Channels:  []notifications.Channel{notifications.ChannelInApp},
		})
	}
}
