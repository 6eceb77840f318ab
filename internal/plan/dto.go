// AngelaMos | 2026
// dto.go

package plan

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelamos/nestfund/internal/valuation"
)

type PlanRequest struct {
	LifeExpectancyYears int             `json:"life_expectancy_years" validate:"required,gte=1,lte=100"`
	MonthlySpending     decimal.Decimal `json:"monthly_spending"`
	RetirementAge       int             `json:"retirement_age"         validate:"required,gte=1,lte=120"`
	CurrentAge          int             `json:"current_age"            validate:"required,gte=1"`
	YieldRateBps        int64           `json:"yield_rate_bps"         validate:"gte=0,lte=10000"`
	InflationRateBps    int64           `json:"inflation_rate_bps"     validate:"gte=0,lte=10000"`
}

func (r PlanRequest) Params() valuation.Params {
	return valuation.Params{
		LifeExpectancyYears: r.LifeExpectancyYears,
		MonthlySpending:     r.MonthlySpending,
		RetirementAge:       r.RetirementAge,
		CurrentAge:          r.CurrentAge,
		YieldRateBps:        r.YieldRateBps,
		InflationRateBps:    r.InflationRateBps,
	}
}

type PlanResponse struct {
	HolderID            string          `json:"holder_id"`
	LifeExpectancyYears int             `json:"life_expectancy_years"`
	MonthlySpending     decimal.Decimal `json:"monthly_spending"`
	RetirementAge       int             `json:"retirement_age"`
	CurrentAge          int             `json:"current_age"`
	YieldRateBps        int64           `json:"yield_rate_bps"`
	InflationRateBps    int64           `json:"inflation_rate_bps"`
	IsActive            bool            `json:"is_active"`
	TargetAmount        decimal.Decimal `json:"target_amount"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type SavingsResponse struct {
	HolderID          string          `json:"holder_id"`
	TotalDeposited    decimal.Decimal `json:"total_deposited"`
	TargetAmount      decimal.Decimal `json:"target_amount"`
	PaymentsStarted   bool            `json:"payments_started"`
	LastPaymentTime   *time.Time      `json:"last_payment_time,omitempty"`
	PaymentsRemaining int             `json:"payments_remaining"`
	TotalPaidOut      decimal.Decimal `json:"total_paid_out"`
}

func ToPlanResponse(p *Plan, s *Savings) PlanResponse {
	return PlanResponse{
		HolderID:            p.HolderID,
		LifeExpectancyYears: p.LifeExpectancyYears,
		MonthlySpending:     p.MonthlySpending,
		RetirementAge:       p.RetirementAge,
		CurrentAge:          p.CurrentAge,
		YieldRateBps:        p.YieldRateBps,
		InflationRateBps:    p.InflationRateBps,
		IsActive:            p.IsActive,
		TargetAmount:        s.TargetAmount,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func ToSavingsResponse(s *Savings) SavingsResponse {
	return SavingsResponse{
		HolderID:          s.HolderID,
		TotalDeposited:    s.TotalDeposited,
		TargetAmount:      s.TargetAmount,
		PaymentsStarted:   s.PaymentsStarted,
		LastPaymentTime:   s.LastPaymentTime,
		PaymentsRemaining: s.PaymentsRemaining,
		TotalPaidOut:      s.TotalPaidOut,
	}
}
