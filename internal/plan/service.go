// AngelaMos | 2026
// service.go

package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/angelamos/nestfund/internal/clock"
	"github.com/angelamos/nestfund/internal/core"
	"github.com/angelamos/nestfund/internal/events"
	"github.com/angelamos/nestfund/internal/rates"
	"github.com/angelamos/nestfund/internal/valuation"
)

// Service is the plan store: one plan per holder, created and mutated
// only by its holder, frozen once payouts start.
type Service struct {
	db        core.TxRunner
	repo      Repository
	converter rates.Converter
	publisher events.Publisher
	guard     *core.IdentityGuard
	clock     clock.Clock
}

func NewService(
	db core.TxRunner,
	repo Repository,
	converter rates.Converter,
	publisher events.Publisher,
	guard *core.IdentityGuard,
	clk clock.Clock,
) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		converter: converter,
		publisher: publisher,
		guard:     guard,
		clock:     clk,
	}
}

// Create validates the parameters, prices the funding target, and
// stores the plan with a fresh payout schedule. An existing plan for
// the holder is overwritten as long as its payouts never started;
// deposits already made keep counting toward the new target.
func (s *Service) Create(
	ctx context.Context,
	holderID string,
	params valuation.Params,
) (*Plan, *Savings, error) {
	release, err := s.guard.Acquire(holderID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	targetSettlement, err := s.priceTarget(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	p := &Plan{
		HolderID:            holderID,
		LifeExpectancyYears: params.LifeExpectancyYears,
		MonthlySpending:     params.MonthlySpending,
		RetirementAge:       params.RetirementAge,
		CurrentAge:          params.CurrentAge,
		YieldRateBps:        params.YieldRateBps,
		InflationRateBps:    params.InflationRateBps,
		IsActive:            true,
	}

	var sv *Savings
	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.repo.WithTx(tx)

		deposited := decimal.Zero
		existing, getErr := repo.GetSavingsForUpdate(ctx, holderID)
		switch {
		case getErr == nil:
			if existing.PaymentsStarted {
				return fmt.Errorf(
					"create plan: %w",
					core.ErrPaymentsAlreadyStarted,
				)
			}
			deposited = existing.TotalDeposited
		case errors.Is(getErr, core.ErrNotFound):
			// first plan for this holder
		default:
			return getErr
		}

		if err := repo.UpsertPlan(ctx, p); err != nil {
			return err
		}

		sv = &Savings{
			HolderID:          holderID,
			TotalDeposited:    deposited,
			TargetAmount:      targetSettlement,
			PaymentsStarted:   false,
			PaymentsRemaining: params.TotalPayments(),
			TotalPaidOut:      decimal.Zero,
		}

		return repo.UpsertSavings(ctx, sv)
	})
	if err != nil {
		return nil, nil, err
	}

	s.publisher.Publish(ctx, events.New(
		events.TypePlanCreated,
		holderID,
		map[string]any{
			"target_amount":      targetSettlement,
			"payments_total":     params.TotalPayments(),
			"retirement_age":     params.RetirementAge,
			"life_expectancy_yr": params.LifeExpectancyYears,
		},
	))

	return p, sv, nil
}

// Update reprices the target with new parameters. Rejected once
// payouts have started; total deposits are preserved.
func (s *Service) Update(
	ctx context.Context,
	holderID string,
	params valuation.Params,
) (*Plan, *Savings, error) {
	release, err := s.guard.Acquire(holderID)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	targetSettlement, err := s.priceTarget(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	var (
		p  *Plan
		sv *Savings
	)
	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.GetPlanForUpdate(ctx, holderID)
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("update plan: %w", core.ErrNoActivePlan)
		}
		if err != nil {
			return err
		}
		if !existing.IsActive {
			return fmt.Errorf("update plan: %w", core.ErrNoActivePlan)
		}

		sv, err = repo.GetSavingsForUpdate(ctx, holderID)
		if err != nil {
			return err
		}
		if sv.PaymentsStarted {
			return fmt.Errorf(
				"update plan: %w",
				core.ErrPaymentsAlreadyStarted,
			)
		}

		p = &Plan{
			HolderID:            holderID,
			LifeExpectancyYears: params.LifeExpectancyYears,
			MonthlySpending:     params.MonthlySpending,
			RetirementAge:       params.RetirementAge,
			CurrentAge:          params.CurrentAge,
			YieldRateBps:        params.YieldRateBps,
			InflationRateBps:    params.InflationRateBps,
			IsActive:            true,
		}
		if err := repo.UpsertPlan(ctx, p); err != nil {
			return err
		}

		sv.TargetAmount = targetSettlement
		sv.PaymentsRemaining = params.TotalPayments()

		return repo.SaveSavings(ctx, sv)
	})
	if err != nil {
		return nil, nil, err
	}

	s.publisher.Publish(ctx, events.New(
		events.TypePlanUpdated,
		holderID,
		map[string]any{
			"target_amount":  targetSettlement,
			"payments_total": params.TotalPayments(),
		},
	))

	return p, sv, nil
}

// Deactivate is the holder's one-way exit before payouts begin; it
// blocks further mutation and funding and is required before reclaim.
func (s *Service) Deactivate(ctx context.Context, holderID string) error {
	release, err := s.guard.Acquire(holderID)
	if err != nil {
		return err
	}
	defer release()

	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.GetPlanForUpdate(ctx, holderID)
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("deactivate plan: %w", core.ErrNoActivePlan)
		}
		if err != nil {
			return err
		}
		if !existing.IsActive {
			return fmt.Errorf("deactivate plan: %w", core.ErrNoActivePlan)
		}

		sv, err := repo.GetSavingsForUpdate(ctx, holderID)
		if err != nil {
			return err
		}
		if sv.PaymentsStarted {
			return fmt.Errorf(
				"deactivate plan: %w",
				core.ErrPaymentsAlreadyStarted,
			)
		}

		return repo.DeactivatePlan(ctx, holderID)
	})
	if err != nil {
		return err
	}

	s.publisher.Publish(ctx, events.New(
		events.TypePlanDeactivated,
		holderID,
		nil,
	))

	return nil
}

// Get returns the holder's plan and its paired savings record.
func (s *Service) Get(
	ctx context.Context,
	holderID string,
) (*Plan, *Savings, error) {
	p, err := s.repo.GetPlan(ctx, holderID)
	if err != nil {
		return nil, nil, err
	}

	sv, err := s.repo.GetSavings(ctx, holderID)
	if err != nil {
		return nil, nil, err
	}

	return p, sv, nil
}

func (s *Service) Totals(ctx context.Context) (*EngineTotals, error) {
	return s.repo.Totals(ctx)
}

// priceTarget values the plan in the reference currency and converts
// the result into settlement units at the current rate.
func (s *Service) priceTarget(
	ctx context.Context,
	params valuation.Params,
) (decimal.Decimal, error) {
	targetReference, err := valuation.RequiredTarget(params)
	if err != nil {
		return decimal.Zero, err
	}

	targetSettlement, err := s.converter.ToSettlement(ctx, targetReference)
	if err != nil {
		return decimal.Zero, err
	}

	core.AddSpanEvent(ctx, "plan.target_priced")

	return targetSettlement, nil
}
