// AngelaMos | 2026
// engine_test.go

package valuation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelamos/nestfund/internal/core"
)

func baseParams() Params {
	return Params{
		LifeExpectancyYears: 20,
		MonthlySpending:     decimal.NewFromInt(5000),
		RetirementAge:       65,
		CurrentAge:          30,
		YieldRateBps:        500,
		InflationRateBps:    200,
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{
			name:   "zero life expectancy",
			mutate: func(p *Params) { p.LifeExpectancyYears = 0 },
		},
		{
			name:   "life expectancy over cap",
			mutate: func(p *Params) { p.LifeExpectancyYears = 101 },
		},
		{
			name:   "zero spending",
			mutate: func(p *Params) { p.MonthlySpending = decimal.Zero },
		},
		{
			name: "negative spending",
			mutate: func(p *Params) {
				p.MonthlySpending = decimal.NewFromInt(-1)
			},
		},
		{
			name:   "zero current age",
			mutate: func(p *Params) { p.CurrentAge = 0 },
		},
		{
			name: "retirement not after current age",
			mutate: func(p *Params) {
				p.RetirementAge = 30
				p.CurrentAge = 30
			},
		},
		{
			name:   "retirement age over cap",
			mutate: func(p *Params) { p.RetirementAge = 121 },
		},
		{
			name:   "negative yield",
			mutate: func(p *Params) { p.YieldRateBps = -1 },
		},
		{
			name:   "yield over 100 percent",
			mutate: func(p *Params) { p.YieldRateBps = 10001 },
		},
		{
			name:   "negative inflation",
			mutate: func(p *Params) { p.InflationRateBps = -1 },
		},
		{
			name:   "inflation over 100 percent",
			mutate: func(p *Params) { p.InflationRateBps = 10001 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			tt.mutate(&p)

			err := p.Validate()
			if !errors.Is(err, core.ErrInvalidParameters) {
				t.Fatalf("Validate() = %v, want ErrInvalidParameters", err)
			}
		})
	}

	if err := baseParams().Validate(); err != nil {
		t.Fatalf("Validate() on valid params = %v", err)
	}
}

func TestRequiredTargetEqualRates(t *testing.T) {
	p := baseParams()
	p.YieldRateBps = 300
	p.InflationRateBps = 300

	got, err := RequiredTarget(p)
	if err != nil {
		t.Fatalf("RequiredTarget() error = %v", err)
	}

	// Equal rates collapse the series to L flat years of spending.
	want := decimal.NewFromInt(5000 * 12 * 20)
	if !got.Equal(want) {
		t.Fatalf("RequiredTarget() = %s, want %s", got, want)
	}
}

func TestRequiredTargetDiscounting(t *testing.T) {
	p := baseParams()

	got, err := RequiredTarget(p)
	if err != nil {
		t.Fatalf("RequiredTarget() error = %v", err)
	}

	if !got.IsPositive() {
		t.Fatalf("RequiredTarget() = %s, want positive", got)
	}

	// Yield above inflation discounts future spending below its
	// flat-rate total.
	flat := decimal.NewFromInt(5000 * 12 * 20)
	if got.GreaterThanOrEqual(flat) {
		t.Fatalf("RequiredTarget() = %s, want below %s", got, flat)
	}
}

func TestRequiredTargetMonotonicInInflation(t *testing.T) {
	low := baseParams()

	high := baseParams()
	high.InflationRateBps = 400

	lowTarget, err := RequiredTarget(low)
	if err != nil {
		t.Fatalf("RequiredTarget(low) error = %v", err)
	}

	highTarget, err := RequiredTarget(high)
	if err != nil {
		t.Fatalf("RequiredTarget(high) error = %v", err)
	}

	if !highTarget.GreaterThan(lowTarget) {
		t.Fatalf(
			"higher inflation should raise the target: %s <= %s",
			highTarget,
			lowTarget,
		)
	}
}

func TestRequiredTargetMonotonicInYield(t *testing.T) {
	low := baseParams()

	high := baseParams()
	high.YieldRateBps = 800

	lowTarget, err := RequiredTarget(low)
	if err != nil {
		t.Fatalf("RequiredTarget(low) error = %v", err)
	}

	highTarget, err := RequiredTarget(high)
	if err != nil {
		t.Fatalf("RequiredTarget(high) error = %v", err)
	}

	if !highTarget.LessThan(lowTarget) {
		t.Fatalf(
			"higher yield should lower the target: %s >= %s",
			highTarget,
			lowTarget,
		)
	}
}

func TestRequiredTargetMonotonicInSpending(t *testing.T) {
	low := baseParams()

	high := baseParams()
	high.MonthlySpending = decimal.NewFromInt(6000)

	lowTarget, err := RequiredTarget(low)
	if err != nil {
		t.Fatalf("RequiredTarget(low) error = %v", err)
	}

	highTarget, err := RequiredTarget(high)
	if err != nil {
		t.Fatalf("RequiredTarget(high) error = %v", err)
	}

	if !highTarget.GreaterThan(lowTarget) {
		t.Fatalf(
			"higher spending should raise the target: %s <= %s",
			highTarget,
			lowTarget,
		)
	}
}

func TestRequiredTargetMonotonicInLifeExpectancy(t *testing.T) {
	low := baseParams()

	high := baseParams()
	high.LifeExpectancyYears = 25

	lowTarget, err := RequiredTarget(low)
	if err != nil {
		t.Fatalf("RequiredTarget(low) error = %v", err)
	}

	highTarget, err := RequiredTarget(high)
	if err != nil {
		t.Fatalf("RequiredTarget(high) error = %v", err)
	}

	if !highTarget.GreaterThan(lowTarget) {
		t.Fatalf(
			"longer retirement should raise the target: %s <= %s",
			highTarget,
			lowTarget,
		)
	}
}

func TestRequiredTargetInvalidParams(t *testing.T) {
	p := baseParams()
	p.MonthlySpending = decimal.Zero

	if _, err := RequiredTarget(p); !errors.Is(err, core.ErrInvalidParameters) {
		t.Fatalf("RequiredTarget() = %v, want ErrInvalidParameters", err)
	}
}

func TestPeriodicPaymentZeroRealRate(t *testing.T) {
	p := baseParams()
	p.YieldRateBps = 300
	p.InflationRateBps = 300

	target := decimal.NewFromInt(240000)

	got, err := PeriodicPayment(target, p)
	if err != nil {
		t.Fatalf("PeriodicPayment() error = %v", err)
	}

	// No real growth: target spread evenly over 240 months.
	want := decimal.NewFromInt(1000)
	if !got.Equal(want) {
		t.Fatalf("PeriodicPayment() = %s, want %s", got, want)
	}
}

func TestPeriodicPaymentNegativeRealRate(t *testing.T) {
	p := baseParams()
	p.YieldRateBps = 100
	p.InflationRateBps = 300

	target := decimal.NewFromInt(240000)

	got, err := PeriodicPayment(target, p)
	if err != nil {
		t.Fatalf("PeriodicPayment() error = %v", err)
	}

	want := decimal.NewFromInt(1000)
	if !got.Equal(want) {
		t.Fatalf("PeriodicPayment() = %s, want %s", got, want)
	}
}

func TestPeriodicPaymentPositiveRealRate(t *testing.T) {
	p := baseParams()

	target := decimal.NewFromInt(240000)

	got, err := PeriodicPayment(target, p)
	if err != nil {
		t.Fatalf("PeriodicPayment() error = %v", err)
	}

	// Residual capital keeps earning, so each payment exceeds the flat
	// share and the series sums past the principal.
	flatShare := decimal.NewFromInt(1000)
	if !got.GreaterThan(flatShare) {
		t.Fatalf("PeriodicPayment() = %s, want above %s", got, flatShare)
	}

	months := decimal.NewFromInt(int64(p.TotalPayments()))
	if !got.Mul(months).GreaterThan(target) {
		t.Fatalf(
			"total disbursed %s should exceed principal %s",
			got.Mul(months),
			target,
		)
	}
}

func TestPeriodicPaymentRejectsNonPositiveTarget(t *testing.T) {
	p := baseParams()

	for _, target := range []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(-100),
	} {
		_, err := PeriodicPayment(target, p)
		if !errors.Is(err, core.ErrInvalidParameters) {
			t.Fatalf(
				"PeriodicPayment(%s) = %v, want ErrInvalidParameters",
				target,
				err,
			)
		}
	}
}

func TestPow(t *testing.T) {
	tests := []struct {
		base decimal.Decimal
		exp  int
		want decimal.Decimal
	}{
		{decimal.NewFromInt(2), 0, decimal.NewFromInt(1)},
		{decimal.NewFromInt(2), 10, decimal.NewFromInt(1024)},
		{decimal.NewFromFloat(1.5), 2, decimal.NewFromFloat(2.25)},
	}

	for _, tt := range tests {
		got := pow(tt.base, tt.exp)
		if !got.Equal(tt.want) {
			t.Errorf("pow(%s, %d) = %s, want %s", tt.base, tt.exp, got, tt.want)
		}
	}
}
