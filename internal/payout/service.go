// AngelaMos | 2026
// service.go

// Package payout advances the bounded disbursement sequence once a
// plan's funding target has been reached. Advancement is permissionless
// (any keeper may call Disburse) but value only ever moves to the
// plan's own holder.
package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/angelamos/nestfund/internal/clock"
	"github.com/angelamos/nestfund/internal/core"
	"github.com/angelamos/nestfund/internal/events"
	"github.com/angelamos/nestfund/internal/ledger"
	"github.com/angelamos/nestfund/internal/plan"
	"github.com/angelamos/nestfund/internal/transfer"
	"github.com/angelamos/nestfund/internal/valuation"
)

type Service struct {
	db        core.TxRunner
	repo      plan.Repository
	transfers transfer.ValueTransfer
	publisher events.Publisher
	guard     *core.IdentityGuard
	clock     clock.Clock
	interval  time.Duration
}

func NewService(
	db core.TxRunner,
	repo plan.Repository,
	transfers transfer.ValueTransfer,
	publisher events.Publisher,
	guard *core.IdentityGuard,
	clk clock.Clock,
	interval time.Duration,
) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		transfers: transfers,
		publisher: publisher,
		guard:     guard,
		clock:     clk,
		interval:  interval,
	}
}

func (s *Service) Interval() time.Duration {
	return s.interval
}

// Disburse pays the next period to holderID if the time gate has
// opened. Any caller may invoke it; the holder is the only possible
// beneficiary. All mutations and the transfer commit or roll back
// together.
func (s *Service) Disburse(
	ctx context.Context,
	holderID string,
) (decimal.Decimal, int, error) {
	release, err := s.guard.Acquire(holderID)
	if err != nil {
		return decimal.Zero, 0, err
	}
	defer release()

	now := s.clock.Now()

	var (
		amount    decimal.Decimal
		remaining int
	)
	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.repo.WithTx(tx)

		p, err := repo.GetPlanForUpdate(ctx, holderID)
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("disburse: %w", core.ErrNotArmed)
		}
		if err != nil {
			return err
		}

		sv, err := repo.GetSavingsForUpdate(ctx, holderID)
		if err != nil {
			return err
		}

		if !sv.PaymentsStarted {
			return fmt.Errorf("disburse: %w", core.ErrNotArmed)
		}
		if sv.PaymentsRemaining == 0 {
			return fmt.Errorf("disburse: %w", core.ErrNoPaymentsRemaining)
		}
		if sv.LastPaymentTime != nil &&
			now.Before(sv.LastPaymentTime.Add(s.interval)) {
			return fmt.Errorf("disburse: %w", core.ErrTooEarly)
		}

		amount, err = s.executePayment(ctx, repo, p, sv, now)
		if err != nil {
			return err
		}
		remaining = sv.PaymentsRemaining

		return nil
	})
	if err != nil {
		return decimal.Zero, 0, err
	}

	s.emitPaymentEvents(ctx, holderID, amount, remaining)

	return amount, remaining, nil
}

// ArmAndDisburseFirst flips the one-way paymentsStarted latch and pays
// period one inside the caller's transaction. The caller already holds
// the holder's identity guard; acquiring it again here would trip the
// reentrancy rejection.
func (s *Service) ArmAndDisburseFirst(
	ctx context.Context,
	tx *sqlx.Tx,
	p *plan.Plan,
	sv *plan.Savings,
	now time.Time,
) (*ledger.ArmResult, error) {
	if sv.PaymentsStarted {
		return nil, fmt.Errorf(
			"arm payouts: %w",
			core.ErrPaymentsAlreadyStarted,
		)
	}

	repo := s.repo.WithTx(tx)

	sv.PaymentsStarted = true
	sv.LastPaymentTime = &now

	amount, err := s.executePayment(ctx, repo, p, sv, now)
	if err != nil {
		return nil, err
	}

	return &ledger.ArmResult{
		Amount:    amount,
		Remaining: sv.PaymentsRemaining,
	}, nil
}

// executePayment computes the period amount, clamps it to settled
// funds, persists the decremented schedule, and moves the value. The
// transfer runs last so its failure unwinds everything else.
func (s *Service) executePayment(
	ctx context.Context,
	repo plan.Repository,
	p *plan.Plan,
	sv *plan.Savings,
	now time.Time,
) (decimal.Decimal, error) {
	amount, err := valuation.PeriodicPayment(
		sv.TargetAmount,
		p.ValuationParams(),
	)
	if err != nil {
		return decimal.Zero, err
	}

	if available := sv.RemainingFunds(); amount.GreaterThan(available) {
		amount = available
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf(
			"disburse: %w",
			core.ErrNoFundsAvailable,
		)
	}

	sv.TotalPaidOut = sv.TotalPaidOut.Add(amount)
	sv.PaymentsRemaining--
	sv.LastPaymentTime = &now

	if err := repo.SaveSavings(ctx, sv); err != nil {
		return decimal.Zero, err
	}

	if err := repo.IncrementPaymentsProcessed(ctx); err != nil {
		return decimal.Zero, err
	}

	if err := s.transfers.Send(ctx, sv.HolderID, amount); err != nil {
		return decimal.Zero, fmt.Errorf("payout transfer: %w", err)
	}

	core.AddSpanEvent(ctx, "payout.payment_sent")

	return amount, nil
}

func (s *Service) emitPaymentEvents(
	ctx context.Context,
	holderID string,
	amount decimal.Decimal,
	remaining int,
) {
	s.publisher.Publish(ctx, events.New(
		events.TypePaymentSent,
		holderID,
		map[string]any{
			"amount":             amount,
			"payments_remaining": remaining,
		},
	))

	if remaining == 0 {
		sv, err := s.repo.GetSavings(ctx, holderID)
		if err != nil {
			return
		}
		s.publisher.Publish(ctx, events.New(
			events.TypePaymentsComplete,
			holderID,
			map[string]any{"total_paid_out": sv.TotalPaidOut},
		))
	}
}

// DueHolders lists holders whose payout gate has opened, for the
// keeper loop.
func (s *Service) DueHolders(
	ctx context.Context,
	limit int,
) ([]string, error) {
	dueBefore := s.clock.Now().Add(-s.interval)
	return s.repo.ListDueHolders(ctx, dueBefore, limit)
}

var _ ledger.PayoutArmer = (*Service)(nil)
