package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	billing "rent-billing/internal/billing/domain"
	"rent-billing/internal/notifications"
)

// ErrMissingUnitData marks a unit that cannot be billed from its snapshot.
var ErrMissingUnitData = errors.New("rent generator: missing unit data")

// GenerationSummary is returned to callers of a manual generation.
type GenerationSummary struct {
	OwnerID string      `json:"owner_id"`
	Period  string      `json:"period"`
	Created int         `json:"created"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Message string      `json:"message"`
	Errors  []ItemError `json:"-"`
}

// Generator creates monthly rent invoices for occupied units.
type Generator struct {
	invoices billing.InvoiceRepository
	configs  billing.ConfigStore
	units    billing.UnitOracle
	opts     options
}

// NewGenerator constructs the rent generator.
func NewGenerator(invoices billing.InvoiceRepository, configs billing.ConfigStore, units billing.UnitOracle, opts ...Option) (*Generator, error) {
	if invoices == nil {
		return nil, errors.New("rent generator: nil invoice repository")
	}
	if configs == nil {
		return nil, errors.New("rent generator: nil config store")
	}
	if units == nil {
		return nil, errors.New("rent generator: nil unit oracle")
	}
	o := buildOptions(opts)
	o.logger = o.logger.With(zap.String("component", "rent_generator"))
	return &Generator{invoices: invoices, configs: configs, units: units, opts: o}, nil
}

// RunAutomated generates the current period for every owner with automatic
// generation enabled whose generation day has been reached.
func (g *Generator) RunAutomated(ctx context.Context) *RunResult {
	result := newRunResult(JobGenerateMonthlyRents, g.opts.now())
	enabled := true
	configs, err := g.configs.ListConfigs(ctx, billing.ConfigFilter{AutoGenerateEnabled: &enabled})
	if err != nil {
		g.opts.logger.Error("list billing configs failed", zap.Error(err))
		result.fail(fmt.Errorf("list configs: %w", err))
		return result.finish(g.opts.now(), false)
	}

	today := g.opts.today()
	period := billing.PeriodOf(today)
	due := make([]billing.Config, 0, len(configs))
	for _, cfg := range configs {
		if cfg.ShouldGenerate(today) {
			due = append(due, cfg)
		}
	}

	interrupted := forEach(ctx, g.opts.workers, due, func(ctx context.Context, cfg billing.Config) {
		created, skipped, err := g.generateOwner(ctx, cfg.OwnerID, period, cfg.DueDateFor(today), true, result)
		if err != nil {
			g.opts.logger.Error("owner rent generation failed", zap.String("owner_id", cfg.OwnerID), zap.Error(err))
			result.addError(ItemOwner, cfg.OwnerID, err)
			return
		}
		g.opts.logger.Info("owner rents generated",
			zap.String("owner_id", cfg.OwnerID),
			zap.String("period", period.Label()),
			zap.Int("created", created),
			zap.Int("skipped", skipped),
		)
	}) != nil

	return result.finish(g.opts.now(), interrupted)
}

// GenerateForOwner generates one period for a single owner with an explicit
// due date. Unit-level failures are counted, not returned.
func (g *Generator) GenerateForOwner(ctx context.Context, ownerID string, period billing.Period, dueDate time.Time) (GenerationSummary, error) {
	if ownerID == "" {
		return GenerationSummary{}, billing.ErrEmptyOwnerID
	}
	if period.IsZero() {
		return GenerationSummary{}, billing.ErrInvalidPeriod
	}
	if dueDate.IsZero() {
		return GenerationSummary{}, billing.ErrInvalidDueDate
	}
	result := newRunResult("generate-for-owner", g.opts.now())
	created, skipped, err := g.generateOwner(ctx, ownerID, period, billing.DateOf(dueDate, g.opts.location), false, result)
	if err != nil {
		return GenerationSummary{}, err
	}
	summary := GenerationSummary{
		OwnerID: ownerID,
		Period:  period.Label(),
		Created: created,
		Skipped: skipped,
		Failed:  len(result.Errors),
		Errors:  result.Errors,
	}
	summary.Message = fmt.Sprintf("Generated %d rent entries. Skipped %d existing entries.", created, skipped)
	if summary.Failed > 0 {
		summary.Message += fmt.Sprintf(" Failed %d entries.", summary.Failed)
	}
	return summary, nil
}

func (g *Generator) generateOwner(ctx context.Context, ownerID string, period billing.Period, dueDate time.Time, auto bool, result *RunResult) (int, int, error) {
	units, err := g.units.ListOccupiedUnits(ctx, ownerID)
	if err != nil {
		return 0, 0, fmt.Errorf("list occupied units: %w", err)
	}
	extra, err := g.units.OwnerCharges(ctx, ownerID)
	if err != nil {
		g.opts.logger.Warn("owner charges unavailable", zap.String("owner_id", ownerID), zap.Error(err))
		extra = billing.OwnerCharges{}
	}

	var created, skipped int
	for _, unit := range units {
		if ctx.Err() != nil {
			break
		}
		ok, err := g.generateUnit(ctx, ownerID, unit, extra, period, dueDate, auto)
		switch {
		case err != nil:
			g.opts.logger.Error("unit rent generation failed",
				zap.String("owner_id", ownerID),
				zap.String("unit_id", unit.ID),
				zap.Error(err),
			)
			result.addError(ItemUnit, unit.ID, err)
		case ok:
			created++
		default:
			skipped++
		}
	}
	result.addCreated(created)
	result.addSkipped(skipped)
	return created, skipped, nil
}

// generateUnit reports true when an invoice was created and false when one
// already existed.
func (g *Generator) generateUnit(ctx context.Context, ownerID string, unit billing.Unit, extra billing.OwnerCharges, period billing.Period, dueDate time.Time, auto bool) (bool, error) {
	if !unit.HasTenant() || unit.BaseRent < 0 {
		return false, ErrMissingUnitData
	}
	existing, err := g.invoices.FindByUnitAndPeriod(ctx, unit.ID, period)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	charges := billing.Charges{
		BaseRent:    unit.BaseRent,
		Electricity: billing.ElectricityCharge(unit.CurrentReading, unit.PreviousReading, unit.RatePerUnit, g.opts.defaultRate),
		Gas:         extra.Gas,
		Water:       extra.Water,
	}
	inv, err := billing.NewInvoice(billing.NewInvoiceParams{
		ID:              uuid.NewString(),
		UnitID:          unit.ID,
		TenantID:        unit.TenantID,
		OwnerID:         ownerID,
		Period:          period,
		Charges:         charges,
		DueDate:         dueDate,
		IsAutoGenerated: auto,
		Now:             g.opts.clock.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	if err := g.invoices.Create(ctx, inv); err != nil {
		if errors.Is(err, billing.ErrDuplicateInvoice) {
			return false, nil
		}
		return false, err
	}

	g.opts.notify(ctx, notifications.Notification{
		RecipientID: inv.TenantID,
		Kind:        notifications.KindRentGenerated,
		Priority:    notifications.PriorityHigh,
		Title:       "New Rent Generated",
		Message:     fmt.Sprintf("Your rent for %s has been generated. Amount: %d", period.DisplayName(), inv.TotalAmount),
		RelatedID:   inv.ID,
		Channels:    []notifications.Channel{notifications.ChannelInApp},
	})
	return true, nil
}
