// AngelaMos | 2026
// service_test.go

package plan

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/angelamos/nestfund/internal/core"
	"github.com/angelamos/nestfund/internal/events"
	"github.com/angelamos/nestfund/internal/rates"
	"github.com/angelamos/nestfund/internal/valuation"
)

type fakeStore struct {
	plans     map[string]Plan
	savings   map[string]Savings
	fum       decimal.Decimal
	processed int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		plans:   make(map[string]Plan),
		savings: make(map[string]Savings),
	}
}

func (s *fakeStore) clone() *fakeStore {
	c := newFakeStore()
	for k, v := range s.plans {
		c.plans[k] = v
	}
	for k, v := range s.savings {
		c.savings[k] = v
	}
	c.fum = s.fum
	c.processed = s.processed
	return c
}

type fakeDB struct {
	store *fakeStore
}

func (d *fakeDB) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	snapshot := d.store.clone()
	if err := fn(nil); err != nil {
		*d.store = *snapshot
		return err
	}
	return nil
}

type fakeRepo struct {
	store *fakeStore
}

func (r *fakeRepo) WithTx(tx *sqlx.Tx) Repository { return r }

func (r *fakeRepo) UpsertPlan(ctx context.Context, p *Plan) error {
	r.store.plans[p.HolderID] = *p
	return nil
}

func (r *fakeRepo) GetPlan(ctx context.Context, holderID string) (*Plan, error) {
	p, ok := r.store.plans[holderID]
	if !ok {
		return nil, fmt.Errorf("get plan: %w", core.ErrNotFound)
	}
	return &p, nil
}

func (r *fakeRepo) GetPlanForUpdate(
	ctx context.Context,
	holderID string,
) (*Plan, error) {
	return r.GetPlan(ctx, holderID)
}

func (r *fakeRepo) DeactivatePlan(ctx context.Context, holderID string) error {
	p, ok := r.store.plans[holderID]
	if !ok || !p.IsActive {
		return fmt.Errorf("deactivate plan: %w", core.ErrNotFound)
	}
	p.IsActive = false
	r.store.plans[holderID] = p
	return nil
}

func (r *fakeRepo) UpsertSavings(ctx context.Context, sv *Savings) error {
	r.store.savings[sv.HolderID] = *sv
	return nil
}

func (r *fakeRepo) GetSavings(
	ctx context.Context,
	holderID string,
) (*Savings, error) {
	sv, ok := r.store.savings[holderID]
	if !ok {
		return nil, fmt.Errorf("get savings: %w", core.ErrNotFound)
	}
	return &sv, nil
}

func (r *fakeRepo) GetSavingsForUpdate(
	ctx context.Context,
	holderID string,
) (*Savings, error) {
	return r.GetSavings(ctx, holderID)
}

func (r *fakeRepo) SaveSavings(ctx context.Context, sv *Savings) error {
	if _, ok := r.store.savings[sv.HolderID]; !ok {
		return fmt.Errorf("save savings: %w", core.ErrNotFound)
	}
	r.store.savings[sv.HolderID] = *sv
	return nil
}

func (r *fakeRepo) AddFundsUnderManagement(
	ctx context.Context,
	delta decimal.Decimal,
) error {
	r.store.fum = r.store.fum.Add(delta)
	return nil
}

func (r *fakeRepo) IncrementPaymentsProcessed(ctx context.Context) error {
	r.store.processed++
	return nil
}

func (r *fakeRepo) Totals(ctx context.Context) (*EngineTotals, error) {
	return &EngineTotals{
		FundsUnderManagement: r.store.fum,
		PaymentsProcessed:    r.store.processed,
	}, nil
}

func (r *fakeRepo) ListDueHolders(
	ctx context.Context,
	dueBefore time.Time,
	limit int,
) ([]string, error) {
	return nil, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fakePublisher struct {
	published []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event events.Event) {
	p.published = append(p.published, event)
}

// failingConverter simulates the oracle being unreachable.
type failingConverter struct{}

func (failingConverter) ToSettlement(
	ctx context.Context,
	reference decimal.Decimal,
) (decimal.Decimal, error) {
	return decimal.Zero, fmt.Errorf("oracle lookup: %w", core.ErrRateUnavailable)
}

func (failingConverter) ToReference(
	ctx context.Context,
	settlement decimal.Decimal,
) (decimal.Decimal, error) {
	return decimal.Zero, fmt.Errorf("oracle lookup: %w", core.ErrRateUnavailable)
}

const testHolder = "holder-1"

func flatParams() valuation.Params {
	return valuation.Params{
		LifeExpectancyYears: 1,
		MonthlySpending:     decimal.NewFromInt(1000),
		RetirementAge:       65,
		CurrentAge:          30,
		YieldRateBps:        300,
		InflationRateBps:    300,
	}
}

type harness struct {
	svc       *Service
	store     *fakeStore
	publisher *fakePublisher
}

func newHarness(t *testing.T, converter rates.Converter) *harness {
	t.Helper()

	if converter == nil {
		var err error
		converter, err = rates.NewStaticConverter("2")
		if err != nil {
			t.Fatalf("NewStaticConverter() error = %v", err)
		}
	}

	store := newFakeStore()
	publisher := &fakePublisher{}

	svc := NewService(
		&fakeDB{store: store},
		&fakeRepo{store: store},
		converter,
		publisher,
		core.NewIdentityGuard(),
		&fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	)

	return &harness{svc: svc, store: store, publisher: publisher}
}

func TestCreatePricesTargetInSettlementUnits(t *testing.T) {
	h := newHarness(t, nil)

	p, sv, err := h.svc.Create(context.Background(), testHolder, flatParams())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !p.IsActive {
		t.Fatal("new plan should be active")
	}

	// Flat rates: one year of spending is 12000 reference units,
	// doubled by the static 2.0 settlement rate.
	if !sv.TargetAmount.Equal(decimal.NewFromInt(24000)) {
		t.Fatalf("TargetAmount = %s, want 24000", sv.TargetAmount)
	}
	if sv.PaymentsRemaining != 12 {
		t.Fatalf("PaymentsRemaining = %d, want 12", sv.PaymentsRemaining)
	}
	if sv.PaymentsStarted {
		t.Fatal("new schedule must not be armed")
	}

	if len(h.publisher.published) != 1 ||
		h.publisher.published[0].Type != events.TypePlanCreated {
		t.Fatalf("events = %+v, want one plan.created", h.publisher.published)
	}
}

func TestCreateRejectsInvalidParameters(t *testing.T) {
	h := newHarness(t, nil)

	params := flatParams()
	params.RetirementAge = params.CurrentAge

	_, _, err := h.svc.Create(context.Background(), testHolder, params)
	if !errors.Is(err, core.ErrInvalidParameters) {
		t.Fatalf("Create() = %v, want ErrInvalidParameters", err)
	}
	if len(h.store.plans) != 0 {
		t.Fatal("invalid plan was stored")
	}
}

func TestCreateFailsWhenRateUnavailable(t *testing.T) {
	h := newHarness(t, failingConverter{})

	_, _, err := h.svc.Create(context.Background(), testHolder, flatParams())
	if !errors.Is(err, core.ErrRateUnavailable) {
		t.Fatalf("Create() = %v, want ErrRateUnavailable", err)
	}
	if len(h.store.plans) != 0 {
		t.Fatal("plan stored despite pricing failure")
	}
}

func TestCreateOverwritePreservesDeposits(t *testing.T) {
	h := newHarness(t, nil)

	ctx := context.Background()

	if _, _, err := h.svc.Create(ctx, testHolder, flatParams()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sv := h.store.savings[testHolder]
	sv.TotalDeposited = decimal.NewFromInt(5000)
	h.store.savings[testHolder] = sv

	params := flatParams()
	params.LifeExpectancyYears = 2

	_, newSv, err := h.svc.Create(ctx, testHolder, params)
	if err != nil {
		t.Fatalf("overwrite Create() error = %v", err)
	}

	if !newSv.TotalDeposited.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf(
			"TotalDeposited = %s after overwrite, want 5000",
			newSv.TotalDeposited,
		)
	}
	// 2 years × 12000/yr reference, doubled into settlement units.
	if !newSv.TargetAmount.Equal(decimal.NewFromInt(48000)) {
		t.Fatalf("TargetAmount = %s, want 48000", newSv.TargetAmount)
	}
	if newSv.PaymentsRemaining != 24 {
		t.Fatalf("PaymentsRemaining = %d, want 24", newSv.PaymentsRemaining)
	}
}

func TestCreateRejectedAfterPayoutsStart(t *testing.T) {
	h := newHarness(t, nil)

	ctx := context.Background()

	if _, _, err := h.svc.Create(ctx, testHolder, flatParams()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sv := h.store.savings[testHolder]
	sv.PaymentsStarted = true
	h.store.savings[testHolder] = sv

	_, _, err := h.svc.Create(ctx, testHolder, flatParams())
	if !errors.Is(err, core.ErrPaymentsAlreadyStarted) {
		t.Fatalf("Create() = %v, want ErrPaymentsAlreadyStarted", err)
	}
}

func TestUpdateReprices(t *testing.T) {
	h := newHarness(t, nil)

	ctx := context.Background()

	if _, _, err := h.svc.Create(ctx, testHolder, flatParams()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sv := h.store.savings[testHolder]
	sv.TotalDeposited = decimal.NewFromInt(3000)
	h.store.savings[testHolder] = sv

	params := flatParams()
	params.MonthlySpending = decimal.NewFromInt(2000)

	_, updated, err := h.svc.Update(ctx, testHolder, params)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if !updated.TargetAmount.Equal(decimal.NewFromInt(48000)) {
		t.Fatalf("TargetAmount = %s, want 48000", updated.TargetAmount)
	}
	if !updated.TotalDeposited.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf(
			"TotalDeposited = %s after update, want 3000",
			updated.TotalDeposited,
		)
	}
}

func TestUpdateSameParamsKeepsTarget(t *testing.T) {
	h := newHarness(t, nil)

	ctx := context.Background()

	if _, _, err := h.svc.Create(ctx, testHolder, flatParams()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, first, err := h.svc.Update(ctx, testHolder, flatParams())
	if err != nil {
		t.Fatalf("first Update() error = %v", err)
	}

	_, second, err := h.svc.Update(ctx, testHolder, flatParams())
	if err != nil {
		t.Fatalf("second Update() error = %v", err)
	}

	// Repricing with unchanged parameters must land on the same target
	// and schedule every time.
	if !second.TargetAmount.Equal(first.TargetAmount) {
		t.Fatalf(
			"TargetAmount drifted across updates: %s then %s",
			first.TargetAmount,
			second.TargetAmount,
		)
	}
	if second.PaymentsRemaining != first.PaymentsRemaining {
		t.Fatalf(
			"PaymentsRemaining drifted across updates: %d then %d",
			first.PaymentsRemaining,
			second.PaymentsRemaining,
		)
	}
}

func TestUpdateRequiresActivePlan(t *testing.T) {
	h := newHarness(t, nil)

	_, _, err := h.svc.Update(context.Background(), testHolder, flatParams())
	if !errors.Is(err, core.ErrNoActivePlan) {
		t.Fatalf("Update() without plan = %v, want ErrNoActivePlan", err)
	}
}

func TestUpdateRejectedAfterPayoutsStart(t *testing.T) {
	h := newHarness(t, nil)

	ctx := context.Background()

	if _, _, err := h.svc.Create(ctx, testHolder, flatParams()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sv := h.store.savings[testHolder]
	sv.PaymentsStarted = true
	h.store.savings[testHolder] = sv

	_, _, err := h.svc.Update(ctx, testHolder, flatParams())
	if !errors.Is(err, core.ErrPaymentsAlreadyStarted) {
		t.Fatalf("Update() = %v, want ErrPaymentsAlreadyStarted", err)
	}
}

func TestDeactivate(t *testing.T) {
	h := newHarness(t, nil)

	ctx := context.Background()

	if _, _, err := h.svc.Create(ctx, testHolder, flatParams()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := h.svc.Deactivate(ctx, testHolder); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if h.store.plans[testHolder].IsActive {
		t.Fatal("plan still active after Deactivate()")
	}

	// One-way: a second deactivation finds no active plan.
	err := h.svc.Deactivate(ctx, testHolder)
	if !errors.Is(err, core.ErrNoActivePlan) {
		t.Fatalf("second Deactivate() = %v, want ErrNoActivePlan", err)
	}
}

func TestDeactivateRejectedAfterPayoutsStart(t *testing.T) {
	h := newHarness(t, nil)

	ctx := context.Background()

	if _, _, err := h.svc.Create(ctx, testHolder, flatParams()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sv := h.store.savings[testHolder]
	sv.PaymentsStarted = true
	h.store.savings[testHolder] = sv

	err := h.svc.Deactivate(ctx, testHolder)
	if !errors.Is(err, core.ErrPaymentsAlreadyStarted) {
		t.Fatalf("Deactivate() = %v, want ErrPaymentsAlreadyStarted", err)
	}
}
