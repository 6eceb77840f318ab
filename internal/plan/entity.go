// AngelaMos | 2026
// entity.go

package plan

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelamos/nestfund/internal/valuation"
)

// Plan holds one holder's retirement assumptions. Plans are never
// deleted, only deactivated.
type Plan struct {
	HolderID            string          `db:"holder_id"`
	LifeExpectancyYears int             `db:"life_expectancy_years"`
	MonthlySpending     decimal.Decimal `db:"monthly_spending"`
	RetirementAge       int             `db:"retirement_age"`
	CurrentAge          int             `db:"current_age"`
	YieldRateBps        int64           `db:"yield_rate_bps"`
	InflationRateBps    int64           `db:"inflation_rate_bps"`
	IsActive            bool            `db:"is_active"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

func (p *Plan) ValuationParams() valuation.Params {
	return valuation.Params{
		LifeExpectancyYears: p.LifeExpectancyYears,
		MonthlySpending:     p.MonthlySpending,
		RetirementAge:       p.RetirementAge,
		CurrentAge:          p.CurrentAge,
		YieldRateBps:        p.YieldRateBps,
		InflationRateBps:    p.InflationRateBps,
	}
}

// Savings tracks accumulation against the plan's target and the payout
// sequence once the target is reached. Paired 1:1 with Plan.
// TotalPaidOut never exceeds TotalDeposited.
type Savings struct {
	HolderID          string          `db:"holder_id"`
	TotalDeposited    decimal.Decimal `db:"total_deposited"`
	TargetAmount      decimal.Decimal `db:"target_amount"`
	PaymentsStarted   bool            `db:"payments_started"`
	LastPaymentTime   *time.Time      `db:"last_payment_time"`
	PaymentsRemaining int             `db:"payments_remaining"`
	TotalPaidOut      decimal.Decimal `db:"total_paid_out"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// RemainingFunds is the settled balance still available for payouts.
func (s *Savings) RemainingFunds() decimal.Decimal {
	return s.TotalDeposited.Sub(s.TotalPaidOut)
}

func (s *Savings) TargetReached() bool {
	return s.TotalDeposited.GreaterThanOrEqual(s.TargetAmount)
}

func (s *Savings) Completed() bool {
	return s.PaymentsStarted && s.PaymentsRemaining == 0
}

// EngineTotals is the single-row process-wide aggregate.
type EngineTotals struct {
	FundsUnderManagement decimal.Decimal `db:"total_funds_under_management"`
	PaymentsProcessed    int64           `db:"total_payments_processed"`
}
