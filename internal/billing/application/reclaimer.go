package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	billing "rent-billing/internal/billing/domain"
)

// Reclaimer deletes unpaid invoices whose unit is vacant or no longer exists.
type Reclaimer struct {
	invoices billing.InvoiceRepository
	units    billing.UnitOracle
	opts     options
}

// NewReclaimer constructs the reclaimer.
func NewReclaimer(invoices billing.InvoiceRepository, units billing.UnitOracle, opts ...Option) (*Reclaimer, error) {
	if invoices == nil {
		return nil, errors.New("vacancy reclaimer: nil invoice repository")
	}
	if units == nil {
		return nil, errors.New("vacancy reclaimer: nil unit oracle")
	}
	o := buildOptions(opts)
	o.logger = o.logger.With(zap.String("component", "vacancy_reclaimer"))
	return &Reclaimer{invoices: invoices, units: units, opts: o}, nil
}

func reclaimableFilter() billing.InvoiceFilter {
	return billing.InvoiceFilter{Statuses: billing.UnpaidStatuses, OutstandingOnly: true}
}

// ReclaimUnit deletes the unit's unpaid invoices that still carry a balance.
// PAID and zero-due invoices are kept.
func (r *Reclaimer) ReclaimUnit(ctx context.Context, unitID string) (int64, error) {
	if unitID == "" {
		return 0, billing.ErrEmptyUnitID
	}
	filter := reclaimableFilter()
	filter.UnitID = unitID
	deleted, err := r.invoices.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		r.opts.logger.Info("reclaimed invoices of vacated unit",
			zap.String("unit_id", unitID),
			zap.Int64("deleted", deleted),
		)
	}
	return deleted, nil
}

// Run reclaims invoices of every vacant unit, then deletes any remaining
// unpaid invoice whose unit is missing or has no tenant.
func (r *Reclaimer) Run(ctx context.Context) *RunResult {
	result := newRunResult(JobCleanupOrphanedRents, r.opts.now())

	vacant, err := r.units.ListVacantUnits(ctx)
	if err != nil {
		r.opts.logger.Error("list vacant units failed", zap.Error(err))
		result.addError(ItemUnit, "*", fmt.Errorf("list vacant units: %w", err))
	}
	if forEach(ctx, r.opts.workers, vacant, func(ctx context.Context, unit billing.Unit) {
		deleted, err := r.ReclaimUnit(ctx, unit.ID)
		if err != nil {
			r.opts.logger.Error("reclaim unit failed", zap.String("unit_id", unit.ID), zap.Error(err))
			result.addError(ItemUnit, unit.ID, err)
			return
		}
		result.addDeleted(int(deleted))
	}) != nil {
		return result.finish(r.opts.now(), true)
	}

	remaining, err := r.invoices.FindByStatus(ctx, billing.UnpaidStatuses, billing.InvoiceFilter{OutstandingOnly: true})
	if err != nil {
		r.opts.logger.Error("find unpaid invoices failed", zap.Error(err))
		result.fail(fmt.Errorf("find unpaid invoices: %w", err))
		return result.finish(r.opts.now(), false)
	}

	units := newUnitCache(r.units)
	interrupted := forEach(ctx, r.opts.workers, remaining, func(ctx context.Context, inv *billing.Invoice) {
		unit, err := units.get(ctx, inv.UnitID)
		if err != nil {
			r.opts.logger.Error("load unit failed",
				zap.String("invoice_id", inv.ID),
				zap.String("unit_id", inv.UnitID),
				zap.Error(err),
			)
			result.addError(ItemInvoice, inv.ID, err)
			return
		}
		if unit != nil && unit.HasTenant() {
			return
		}
		filter := reclaimableFilter()
		filter.IDs = []string{inv.ID}
		deleted, err := r.invoices.DeleteMany(ctx, filter)
		if err != nil {
			r.opts.logger.Error("delete orphaned invoice failed", zap.String("invoice_id", inv.ID), zap.Error(err))
			result.addError(ItemInvoice, inv.ID, err)
			return
		}
		result.addDeleted(int(deleted))
	}) != nil

	if result.Deleted > 0 {
		r.opts.logger.Info("rent cleanup completed", zap.Int("deleted", result.Deleted))
	}
	return result.finish(r.opts.now(), interrupted)
}
