// AngelaMos | 2026
// engine.go

// Package valuation holds the pure present-value and annuity math that
// turns a holder's retirement assumptions into a funding target and a
// periodic payment. No state, no I/O; all arithmetic is exact decimal.
package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelamos/nestfund/internal/core"
)

const (
	// Rates are expressed in basis points; 10_000 = 100%.
	bpsScale = 10000

	// Oldest age the engine accepts. Keeps power-series loops bounded.
	maxAge = 120

	maxLifeExpectancyYears = 100

	// Decimal places carried through intermediate power terms.
	powPrecision = 20

	// Decimal places of monetary results.
	AmountScale = 8

	MonthsPerYear = 12
)

type Params struct {
	LifeExpectancyYears int
	MonthlySpending     decimal.Decimal
	RetirementAge       int
	CurrentAge          int
	YieldRateBps        int64
	InflationRateBps    int64
}

func (p Params) Validate() error {
	switch {
	case p.LifeExpectancyYears < 1:
		return fmt.Errorf(
			"life expectancy must be positive: %w",
			core.ErrInvalidParameters,
		)
	case p.LifeExpectancyYears > maxLifeExpectancyYears:
		return fmt.Errorf(
			"life expectancy exceeds %d years: %w",
			maxLifeExpectancyYears,
			core.ErrInvalidParameters,
		)
	case !p.MonthlySpending.IsPositive():
		return fmt.Errorf(
			"monthly spending must be positive: %w",
			core.ErrInvalidParameters,
		)
	case p.CurrentAge < 1:
		return fmt.Errorf(
			"current age must be positive: %w",
			core.ErrInvalidParameters,
		)
	case p.RetirementAge <= p.CurrentAge:
		return fmt.Errorf(
			"retirement age must exceed current age: %w",
			core.ErrInvalidParameters,
		)
	case p.RetirementAge > maxAge:
		return fmt.Errorf(
			"retirement age exceeds %d: %w",
			maxAge,
			core.ErrInvalidParameters,
		)
	case p.YieldRateBps < 0 || p.YieldRateBps > bpsScale:
		return fmt.Errorf(
			"yield rate outside 0..%d bps: %w",
			bpsScale,
			core.ErrInvalidParameters,
		)
	case p.InflationRateBps < 0 || p.InflationRateBps > bpsScale:
		return fmt.Errorf(
			"inflation rate outside 0..%d bps: %w",
			bpsScale,
			core.ErrInvalidParameters,
		)
	}

	return nil
}

func (p Params) YearsUntilRetirement() int {
	return p.RetirementAge - p.CurrentAge
}

func (p Params) TotalPayments() int {
	return p.LifeExpectancyYears * MonthsPerYear
}

// RequiredTarget computes the capital, in the reference currency, that
// funds LifeExpectancyYears of inflation-adjusted spending starting at
// retirement. Each future year k spends 12×MonthlySpending×(1+i)^(y+k)
// nominally, discounted by (1+r)^(y+k); the two exponents collapse into
// powers of ratio = (1+i)/(1+r), summed in closed form.
func RequiredTarget(p Params) (decimal.Decimal, error) {
	if err := p.Validate(); err != nil {
		return decimal.Zero, err
	}

	annualSpending := p.MonthlySpending.Mul(
		decimal.NewFromInt(MonthsPerYear),
	)
	years := decimal.NewFromInt(int64(p.LifeExpectancyYears))

	// Equal rates make the ratio exactly one; the geometric series
	// degenerates to L equal terms.
	if p.InflationRateBps == p.YieldRateBps {
		return annualSpending.Mul(years).Round(AmountScale), nil
	}

	onePlusI := decimal.New(bpsScale+p.InflationRateBps, -4)
	onePlusR := decimal.New(bpsScale+p.YieldRateBps, -4)
	ratio := onePlusI.DivRound(onePlusR, powPrecision)

	ratioY := pow(ratio, p.YearsUntilRetirement())
	ratioL := pow(ratio, p.LifeExpectancyYears)

	one := decimal.NewFromInt(1)
	series := one.Sub(ratioL).DivRound(one.Sub(ratio), powPrecision)

	target := annualSpending.Mul(ratioY).Mul(series)

	return target.Round(AmountScale), nil
}

// PeriodicPayment inverts the target into a level monthly payment over
// L×12 months using the ordinary-annuity formula
// payment = target × m / (1 − (1+m)^−N) at monthly real rate m.
func PeriodicPayment(
	target decimal.Decimal,
	p Params,
) (decimal.Decimal, error) {
	if err := p.Validate(); err != nil {
		return decimal.Zero, err
	}
	if target.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf(
			"target must be positive: %w",
			core.ErrInvalidParameters,
		)
	}

	months := int64(p.TotalPayments())

	realRateBps := p.YieldRateBps - p.InflationRateBps
	if realRateBps <= 0 {
		return target.DivRound(
			decimal.NewFromInt(months),
			AmountScale,
		), nil
	}

	// Monthly real rate m = realRate / 12, as a decimal fraction.
	m := decimal.New(realRateBps, -4).DivRound(
		decimal.NewFromInt(MonthsPerYear),
		powPrecision,
	)

	one := decimal.NewFromInt(1)
	growth := pow(one.Add(m), int(months))

	// target × m / (1 − (1+m)^−N)  ==  target × m × g / (g − 1)
	numerator := target.Mul(m).Mul(growth)
	denominator := growth.Sub(one)

	return numerator.DivRound(denominator, AmountScale), nil
}

// pow raises base to a non-negative integer exponent by repeated
// multiplication, trimming each step to powPrecision places. Exponents
// are age-bounded so the loop never exceeds a few hundred iterations.
func pow(base decimal.Decimal, exp int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for range exp {
		result = result.Mul(base).Round(powPrecision)
	}
	return result
}
