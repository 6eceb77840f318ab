// AngelaMos | 2026
// service.go

// Package ledger records contributions against a plan's target and,
// when the target is first met, hands the savings record over to the
// payout scheduler inside the same transaction, so there is never a
// window where the target is met but payouts are not armed.
package ledger

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
	"github.com/angelamos/nestfund/internal/plan"
	"github.com/angelamos/nestfund/internal/transfer"
)

// ArmResult reports the first disbursement performed at arming time.
type ArmResult struct {
	Amount    decimal.Decimal
	Remaining int
}

// PayoutArmer performs the NotArmed → Armed transition plus the first
// disbursement inside the contribution's transaction. Implemented by
// the payout scheduler; wired in main.
type PayoutArmer interface {
	ArmAndDisburseFirst(
		ctx context.Context,
		tx *sqlx.Tx,
		p *plan.Plan,
		sv *plan.Savings,
		now time.Time,
	) (*ArmResult, error)
}

type Service struct {
	db        core.TxRunner
	repo      plan.Repository
	armer     PayoutArmer
	transfers transfer.ValueTransfer
	publisher events.Publisher
	guard     *core.IdentityGuard
	clock     clock.Clock
}

func NewService(
	db core.TxRunner,
	repo plan.Repository,
	transfers transfer.ValueTransfer,
	publisher events.Publisher,
	guard *core.IdentityGuard,
	clk clock.Clock,
) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		transfers: transfers,
		publisher: publisher,
		guard:     guard,
		clock:     clk,
	}
}

// SetArmer breaks the construction cycle with the payout scheduler.
// Must be called before the service accepts contributions.
func (s *Service) SetArmer(armer PayoutArmer) {
	s.armer = armer
}

// Contribute adds amount (settlement units) to the holder's savings.
// Crossing the target arms payouts and pays period one atomically with
// the deposit; overshoot is not refunded and stays available for
// payout.
func (s *Service) Contribute(
	ctx context.Context,
	holderID string,
	amount decimal.Decimal,
) (*plan.Savings, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("contribute: %w", core.ErrZeroAmount)
	}

	release, err := s.guard.Acquire(holderID)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.clock.Now()

	var (
		sv        *plan.Savings
		armResult *ArmResult
	)
	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.repo.WithTx(tx)

		p, err := repo.GetPlanForUpdate(ctx, holderID)
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("contribute: %w", core.ErrNoActivePlan)
		}
		if err != nil {
			return err
		}
		if !p.IsActive {
			return fmt.Errorf("contribute: %w", core.ErrNoActivePlan)
		}

		sv, err = repo.GetSavingsForUpdate(ctx, holderID)
		if err != nil {
			return err
		}
		if sv.PaymentsStarted {
			return fmt.Errorf(
				"contribute: %w",
				core.ErrPaymentsAlreadyStarted,
			)
		}

		sv.TotalDeposited = sv.TotalDeposited.Add(amount)

		if err := repo.SaveSavings(ctx, sv); err != nil {
			return err
		}

		if err := repo.AddFundsUnderManagement(ctx, amount); err != nil {
			return err
		}

		if sv.TargetReached() {
			armResult, err = s.armer.ArmAndDisburseFirst(ctx, tx, p, sv, now)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.New(
		events.TypeFundsContributed,
		holderID,
		map[string]any{
			"amount":          amount,
			"total_deposited": sv.TotalDeposited,
			"target_amount":   sv.TargetAmount,
		},
	))

	if armResult != nil {
		core.AddSpanEvent(ctx, "ledger.target_reached")

		s.publisher.Publish(ctx, events.New(
			events.TypeTargetReached,
			holderID,
			map[string]any{"target_amount": sv.TargetAmount},
		))
		s.publisher.Publish(ctx, events.New(
			events.TypePaymentSent,
			holderID,
			map[string]any{
				"amount":             armResult.Amount,
				"payments_remaining": armResult.Remaining,
			},
		))
	}

	return sv, nil
}

// Reclaim returns the full deposited balance to a holder whose plan is
// deactivated and never reached payout. One shot; partial withdrawals
// do not exist.
func (s *Service) Reclaim(
	ctx context.Context,
	holderID string,
) (decimal.Decimal, error) {
	release, err := s.guard.Acquire(holderID)
	if err != nil {
		return decimal.Zero, err
	}
	defer release()

	var reclaimed decimal.Decimal
	err = s.db.InTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.repo.WithTx(tx)

		p, err := repo.GetPlanForUpdate(ctx, holderID)
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("reclaim: %w", core.ErrNoActivePlan)
		}
		if err != nil {
			return err
		}
		if p.IsActive {
			return fmt.Errorf(
				"reclaim requires a deactivated plan: %w",
				core.ErrNoActivePlan,
			)
		}

		sv, err := repo.GetSavingsForUpdate(ctx, holderID)
		if err != nil {
			return err
		}
		if sv.PaymentsStarted {
			return fmt.Errorf("reclaim: %w", core.ErrPaymentsAlreadyStarted)
		}
		if sv.TotalDeposited.IsZero() {
			return fmt.Errorf("reclaim: %w", core.ErrNothingToReclaim)
		}

		reclaimed = sv.TotalDeposited
		sv.TotalDeposited = decimal.Zero

		if err := repo.SaveSavings(ctx, sv); err != nil {
			return err
		}

		if err := repo.AddFundsUnderManagement(ctx, reclaimed.Neg()); err != nil {
			return err
		}

		// The transfer is the irreversible point: a failure here rolls
		// back every mutation above.
		if err := s.transfers.Send(ctx, holderID, reclaimed); err != nil {
			return fmt.Errorf("reclaim transfer: %w", err)
		}

		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.publisher.Publish(ctx, events.New(
		events.TypeFundsReclaimed,
		holderID,
		map[string]any{"amount": reclaimed},
	))

	return reclaimed, nil
}

// Savings returns the holder's savings record for display.
func (s *Service) Savings(
	ctx context.Context,
	holderID string,
) (*plan.Savings, error) {
	return s.repo.GetSavings(ctx, holderID)
}
