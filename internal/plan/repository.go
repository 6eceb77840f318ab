// AngelaMos | 2026
// repository.go

package plan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/angelamos/nestfund/internal/core"
)

type Repository interface {
	// WithTx rebinds the repository to a transaction so a service can
	// run its whole mutation under one commit point.
	WithTx(tx *sqlx.Tx) Repository

	UpsertPlan(ctx context.Context, p *Plan) error
	GetPlan(ctx context.Context, holderID string) (*Plan, error)
	GetPlanForUpdate(ctx context.Context, holderID string) (*Plan, error)
	DeactivatePlan(ctx context.Context, holderID string) error

	UpsertSavings(ctx context.Context, s *Savings) error
	GetSavings(ctx context.Context, holderID string) (*Savings, error)
	GetSavingsForUpdate(ctx context.Context, holderID string) (*Savings, error)
	SaveSavings(ctx context.Context, s *Savings) error

	AddFundsUnderManagement(ctx context.Context, delta decimal.Decimal) error
	IncrementPaymentsProcessed(ctx context.Context) error
	Totals(ctx context.Context) (*EngineTotals, error)

	ListDueHolders(
		ctx context.Context,
		dueBefore time.Time,
		limit int,
	) ([]string, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sqlx.Tx) Repository {
	return &repository{db: tx}
}

func (r *repository) UpsertPlan(ctx context.Context, p *Plan) error {
	query := `
		INSERT INTO plans (
			holder_id, life_expectancy_years, monthly_spending,
			retirement_age, current_age, yield_rate_bps,
			inflation_rate_bps, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (holder_id) DO UPDATE SET
			life_expectancy_years = EXCLUDED.life_expectancy_years,
			monthly_spending = EXCLUDED.monthly_spending,
			retirement_age = EXCLUDED.retirement_age,
			current_age = EXCLUDED.current_age,
			yield_rate_bps = EXCLUDED.yield_rate_bps,
			inflation_rate_bps = EXCLUDED.inflation_rate_bps,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, p, query,
		p.HolderID,
		p.LifeExpectancyYears,
		p.MonthlySpending,
		p.RetirementAge,
		p.CurrentAge,
		p.YieldRateBps,
		p.InflationRateBps,
		p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("upsert plan: %w", err)
	}

	return nil
}

const planColumns = `
	holder_id, life_expectancy_years, monthly_spending, retirement_age,
	current_age, yield_rate_bps, inflation_rate_bps, is_active,
	created_at, updated_at`

func (r *repository) GetPlan(
	ctx context.Context,
	holderID string,
) (*Plan, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM plans WHERE holder_id = $1`,
		planColumns,
	)

	var p Plan
	err := r.db.GetContext(ctx, &p, query, holderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get plan: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	return &p, nil
}

func (r *repository) GetPlanForUpdate(
	ctx context.Context,
	holderID string,
) (*Plan, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM plans WHERE holder_id = $1 FOR UPDATE`,
		planColumns,
	)

	var p Plan
	err := r.db.GetContext(ctx, &p, query, holderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get plan for update: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan for update: %w", err)
	}

	return &p, nil
}

func (r *repository) DeactivatePlan(
	ctx context.Context,
	holderID string,
) error {
	query := `
		UPDATE plans
		SET is_active = FALSE, updated_at = NOW()
		WHERE holder_id = $1 AND is_active`

	result, err := r.db.ExecContext(ctx, query, holderID)
	if err != nil {
		return fmt.Errorf("deactivate plan: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate plan: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("deactivate plan: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) UpsertSavings(ctx context.Context, s *Savings) error {
	query := `
		INSERT INTO savings (
			holder_id, total_deposited, target_amount, payments_started,
			last_payment_time, payments_remaining, total_paid_out
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (holder_id) DO UPDATE SET
			total_deposited = EXCLUDED.total_deposited,
			target_amount = EXCLUDED.target_amount,
			payments_started = EXCLUDED.payments_started,
			last_payment_time = EXCLUDED.last_payment_time,
			payments_remaining = EXCLUDED.payments_remaining,
			total_paid_out = EXCLUDED.total_paid_out,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, s, query,
		s.HolderID,
		s.TotalDeposited,
		s.TargetAmount,
		s.PaymentsStarted,
		s.LastPaymentTime,
		s.PaymentsRemaining,
		s.TotalPaidOut,
	)
	if err != nil {
		return fmt.Errorf("upsert savings: %w", err)
	}

	return nil
}

const savingsColumns = `
	holder_id, total_deposited, target_amount, payments_started,
	last_payment_time, payments_remaining, total_paid_out,
	created_at, updated_at`

func (r *repository) GetSavings(
	ctx context.Context,
	holderID string,
) (*Savings, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM savings WHERE holder_id = $1`,
		savingsColumns,
	)

	var s Savings
	err := r.db.GetContext(ctx, &s, query, holderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get savings: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get savings: %w", err)
	}

	return &s, nil
}

func (r *repository) GetSavingsForUpdate(
	ctx context.Context,
	holderID string,
) (*Savings, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM savings WHERE holder_id = $1 FOR UPDATE`,
		savingsColumns,
	)

	var s Savings
	err := r.db.GetContext(ctx, &s, query, holderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get savings for update: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get savings for update: %w", err)
	}

	return &s, nil
}

func (r *repository) SaveSavings(ctx context.Context, s *Savings) error {
	query := `
		UPDATE savings
		SET total_deposited = $2,
		    target_amount = $3,
		    payments_started = $4,
		    last_payment_time = $5,
		    payments_remaining = $6,
		    total_paid_out = $7,
		    updated_at = NOW()
		WHERE holder_id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &s.UpdatedAt, query,
		s.HolderID,
		s.TotalDeposited,
		s.TargetAmount,
		s.PaymentsStarted,
		s.LastPaymentTime,
		s.PaymentsRemaining,
		s.TotalPaidOut,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("save savings: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("save savings: %w", err)
	}

	return nil
}

func (r *repository) AddFundsUnderManagement(
	ctx context.Context,
	delta decimal.Decimal,
) error {
	query := `
		UPDATE engine_totals
		SET total_funds_under_management = total_funds_under_management + $1
		WHERE id = 1`

	if _, err := r.db.ExecContext(ctx, query, delta); err != nil {
		return fmt.Errorf("add funds under management: %w", err)
	}

	return nil
}

func (r *repository) IncrementPaymentsProcessed(ctx context.Context) error {
	query := `
		UPDATE engine_totals
		SET total_payments_processed = total_payments_processed + 1
		WHERE id = 1`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("increment payments processed: %w", err)
	}

	return nil
}

func (r *repository) Totals(ctx context.Context) (*EngineTotals, error) {
	query := `
		SELECT total_funds_under_management, total_payments_processed
		FROM engine_totals
		WHERE id = 1`

	var totals EngineTotals
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("get engine totals: %w", err)
	}

	return &totals, nil
}

// ListDueHolders returns holders whose payout gate opens at or before
// dueBefore. Feeds the keeper loop; ordering favors the longest-waiting.
func (r *repository) ListDueHolders(
	ctx context.Context,
	dueBefore time.Time,
	limit int,
) ([]string, error) {
	query := `
		SELECT holder_id
		FROM savings
		WHERE payments_started
		  AND payments_remaining > 0
		  AND last_payment_time <= $1
		ORDER BY last_payment_time ASC
		LIMIT $2`

	var holders []string
	err := r.db.SelectContext(ctx, &holders, query, dueBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list due holders: %w", err)
	}

	return holders, nil
}
