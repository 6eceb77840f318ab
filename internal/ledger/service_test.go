// AngelaMos | 2026
// service_test.go

package ledger

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
	"github.com/angelamos/nestfund/internal/plan"
)

// fakeStore is the in-memory backing state shared by the fake
// repository and the fake transaction runner.
type fakeStore struct {
	plans     map[string]plan.Plan
	savings   map[string]plan.Savings
	fum       decimal.Decimal
	processed int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		plans:   make(map[string]plan.Plan),
		savings: make(map[string]plan.Savings),
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

// fakeDB snapshots the store before each transaction and restores it
// when the transaction function fails, mimicking rollback.
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

func (r *fakeRepo) WithTx(tx *sqlx.Tx) plan.Repository { return r }

func (r *fakeRepo) UpsertPlan(ctx context.Context, p *plan.Plan) error {
	r.store.plans[p.HolderID] = *p
	return nil
}

func (r *fakeRepo) GetPlan(
	ctx context.Context,
	holderID string,
) (*plan.Plan, error) {
	p, ok := r.store.plans[holderID]
	if !ok {
		return nil, fmt.Errorf("get plan: %w", core.ErrNotFound)
	}
	return &p, nil
}

func (r *fakeRepo) GetPlanForUpdate(
	ctx context.Context,
	holderID string,
) (*plan.Plan, error) {
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

func (r *fakeRepo) UpsertSavings(ctx context.Context, sv *plan.Savings) error {
	r.store.savings[sv.HolderID] = *sv
	return nil
}

func (r *fakeRepo) GetSavings(
	ctx context.Context,
	holderID string,
) (*plan.Savings, error) {
	sv, ok := r.store.savings[holderID]
	if !ok {
		return nil, fmt.Errorf("get savings: %w", core.ErrNotFound)
	}
	return &sv, nil
}

func (r *fakeRepo) GetSavingsForUpdate(
	ctx context.Context,
	holderID string,
) (*plan.Savings, error) {
	return r.GetSavings(ctx, holderID)
}

func (r *fakeRepo) SaveSavings(ctx context.Context, sv *plan.Savings) error {
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

func (r *fakeRepo) Totals(ctx context.Context) (*plan.EngineTotals, error) {
	return &plan.EngineTotals{
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

type sentTransfer struct {
	holderID string
	amount   decimal.Decimal
}

type fakeTransfer struct {
	sends []sentTransfer
	err   error
}

func (t *fakeTransfer) Send(
	ctx context.Context,
	holderID string,
	amount decimal.Decimal,
) error {
	if t.err != nil {
		return t.err
	}
	t.sends = append(t.sends, sentTransfer{holderID: holderID, amount: amount})
	return nil
}

type fakePublisher struct {
	published []events.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event events.Event) {
	p.published = append(p.published, event)
}

func (p *fakePublisher) types() []string {
	out := make([]string, 0, len(p.published))
	for _, e := range p.published {
		out = append(out, e.Type)
	}
	return out
}

// fakeArmer stands in for the payout scheduler. On success it flips
// the latch, records the first payment of 1000, and persists the
// savings row through the transaction-bound repository.
type fakeArmer struct {
	repo  plan.Repository
	calls int
	err   error
}

func (a *fakeArmer) ArmAndDisburseFirst(
	ctx context.Context,
	tx *sqlx.Tx,
	p *plan.Plan,
	sv *plan.Savings,
	now time.Time,
) (*ArmResult, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}

	first := decimal.NewFromInt(1000)
	sv.PaymentsStarted = true
	sv.PaymentsRemaining = 11
	sv.TotalPaidOut = sv.TotalPaidOut.Add(first)
	sv.LastPaymentTime = &now

	if err := a.repo.WithTx(tx).SaveSavings(ctx, sv); err != nil {
		return nil, err
	}
	return &ArmResult{Amount: first, Remaining: 11}, nil
}

const testHolder = "holder-1"

type harness struct {
	svc       *Service
	store     *fakeStore
	armer     *fakeArmer
	transfers *fakeTransfer
	publisher *fakePublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newFakeStore()
	repo := &fakeRepo{store: store}
	transfers := &fakeTransfer{}
	publisher := &fakePublisher{}
	armer := &fakeArmer{repo: repo}

	svc := NewService(
		&fakeDB{store: store},
		repo,
		transfers,
		publisher,
		core.NewIdentityGuard(),
		&fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	)
	svc.SetArmer(armer)

	return &harness{
		svc:       svc,
		store:     store,
		armer:     armer,
		transfers: transfers,
		publisher: publisher,
	}
}

// seedPlan installs an active plan whose savings row carries a 12000
// target and no deposits yet.
func (h *harness) seedPlan(t *testing.T, active bool) {
	t.Helper()

	h.store.plans[testHolder] = plan.Plan{
		HolderID:            testHolder,
		LifeExpectancyYears: 1,
		MonthlySpending:     decimal.NewFromInt(1000),
		RetirementAge:       65,
		CurrentAge:          30,
		YieldRateBps:        300,
		InflationRateBps:    300,
		IsActive:            active,
	}
	h.store.savings[testHolder] = plan.Savings{
		HolderID:     testHolder,
		TargetAmount: decimal.NewFromInt(12000),
	}
}

func TestContributeRejectsNonPositiveAmounts(t *testing.T) {
	h := newHarness(t)
	h.seedPlan(t, true)

	for _, amount := range []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromInt(-50),
	} {
		_, err := h.svc.Contribute(context.Background(), testHolder, amount)
		if !errors.Is(err, core.ErrZeroAmount) {
			t.Fatalf("Contribute(%s) = %v, want ErrZeroAmount", amount, err)
		}
	}
}

func TestContributeRequiresActivePlan(t *testing.T) {
	h := newHarness(t)

	amount := decimal.NewFromInt(100)

	_, err := h.svc.Contribute(context.Background(), "nobody", amount)
	if !errors.Is(err, core.ErrNoActivePlan) {
		t.Fatalf("Contribute() without plan = %v, want ErrNoActivePlan", err)
	}

	h.seedPlan(t, false)
	_, err = h.svc.Contribute(context.Background(), testHolder, amount)
	if !errors.Is(err, core.ErrNoActivePlan) {
		t.Fatalf("Contribute() inactive plan = %v, want ErrNoActivePlan", err)
	}
}

func TestContributeRejectedAfterPayoutsStart(t *testing.T) {
	h := newHarness(t)
	h.seedPlan(t, true)

	sv := h.store.savings[testHolder]
	sv.PaymentsStarted = true
	h.store.savings[testHolder] = sv

	_, err := h.svc.Contribute(
		context.Background(),
		testHolder,
		decimal.NewFromInt(100),
	)
	if !errors.Is(err, core.ErrPaymentsAlreadyStarted) {
		t.Fatalf("Contribute() = %v, want ErrPaymentsAlreadyStarted", err)
	}
}

func TestContributeBelowTargetAccumulates(t *testing.T) {
	h := newHarness(t)
	h.seedPlan(t, true)

	sv, err := h.svc.Contribute(
		context.Background(),
		testHolder,
		decimal.NewFromInt(5000),
	)
	if err != nil {
		t.Fatalf("Contribute() error = %v", err)
	}

	if !sv.TotalDeposited.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("TotalDeposited = %s, want 5000", sv.TotalDeposited)
	}
	if sv.PaymentsStarted {
		t.Fatal("payouts armed below target")
	}
	if h.armer.calls != 0 {
		t.Fatalf("armer called %d times, want 0", h.armer.calls)
	}
	if !h.store.fum.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("funds under management = %s, want 5000", h.store.fum)
	}

	types := h.publisher.types()
	if len(types) != 1 || types[0] != events.TypeFundsContributed {
		t.Fatalf("events = %v, want [funds.contributed]", types)
	}
}

func TestContributeCrossingTargetArms(t *testing.T) {
	h := newHarness(t)
	h.seedPlan(t, true)

	ctx := context.Background()

	if _, err := h.svc.Contribute(
		ctx, testHolder, decimal.NewFromInt(5000),
	); err != nil {
		t.Fatalf("first Contribute() error = %v", err)
	}

	sv, err := h.svc.Contribute(ctx, testHolder, decimal.NewFromInt(7000))
	if err != nil {
		t.Fatalf("crossing Contribute() error = %v", err)
	}

	if !sv.PaymentsStarted {
		t.Fatal("crossing the target should arm payouts")
	}
	if h.armer.calls != 1 {
		t.Fatalf("armer called %d times, want 1", h.armer.calls)
	}

	stored := h.store.savings[testHolder]
	if !stored.PaymentsStarted || stored.PaymentsRemaining != 11 {
		t.Fatalf(
			"persisted savings started=%v remaining=%d, want true/11",
			stored.PaymentsStarted,
			stored.PaymentsRemaining,
		)
	}

	var sawReached, sawSent bool
	for _, typ := range h.publisher.types() {
		switch typ {
		case events.TypeTargetReached:
			sawReached = true
		case events.TypePaymentSent:
			sawSent = true
		}
	}
	if !sawReached || !sawSent {
		t.Fatalf(
			"events reached=%v sent=%v, want both",
			sawReached,
			sawSent,
		)
	}
}

func TestContributeOvershootKept(t *testing.T) {
	h := newHarness(t)
	h.seedPlan(t, true)

	sv, err := h.svc.Contribute(
		context.Background(),
		testHolder,
		decimal.NewFromInt(15000),
	)
	if err != nil {
		t.Fatalf("Contribute() error = %v", err)
	}

	// The excess over the target is not refunded; it stays in the
	// balance and extends payout coverage.
	if !sv.TotalDeposited.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("TotalDeposited = %s, want 15000", sv.TotalDeposited)
	}
	if !sv.PaymentsStarted {
		t.Fatal("overshoot deposit should still arm payouts")
	}
	if !h.store.fum.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("funds under management = %s, want 15000", h.store.fum)
	}
}

func TestContributeArmingFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.seedPlan(t, true)
	h.armer.err = fmt.Errorf("first payout: %w", core.ErrTransferFailed)

	_, err := h.svc.Contribute(
		context.Background(),
		testHolder,
		decimal.NewFromInt(12000),
	)
	if !errors.Is(err, core.ErrTransferFailed) {
		t.Fatalf("Contribute() = %v, want ErrTransferFailed", err)
	}

	// The deposit unwinds together with the failed first payment.
	sv := h.store.savings[testHolder]
	if !sv.TotalDeposited.IsZero() {
		t.Fatalf("TotalDeposited = %s after rollback, want 0", sv.TotalDeposited)
	}
	if sv.PaymentsStarted {
		t.Fatal("latch survived rollback")
	}
	if !h.store.fum.IsZero() {
		t.Fatalf("funds under management = %s after rollback, want 0", h.store.fum)
	}
	if len(h.publisher.published) != 0 {
		t.Fatalf("events published on failure: %v", h.publisher.types())
	}
}

func TestReclaimRequiresDeactivatedPlan(t *testing.T) {
	h := newHarness(t)

	ctx := context.Background()

	_, err := h.svc.Reclaim(ctx, "nobody")
	if !errors.Is(err, core.ErrNoActivePlan) {
		t.Fatalf("Reclaim() without plan = %v, want ErrNoActivePlan", err)
	}

	h.seedPlan(t, true)
	_, err = h.svc.Reclaim(ctx, testHolder)
	if !errors.Is(err, core.ErrNoActivePlan) {
		t.Fatalf("Reclaim() active plan = %v, want ErrNoActivePlan", err)
	}
}

func TestReclaimRejectedAfterPayoutsStart(t *testing.T) {
	h := newHarness(t)
	h.seedPlan(t, false)

	sv := h.store.savings[testHolder]
	sv.TotalDeposited = decimal.NewFromInt(5000)
	sv.PaymentsStarted = true
	h.store.savings[testHolder] = sv

	_, err := h.svc.Reclaim(context.Background(), testHolder)
	if !errors.Is(err, core.ErrPaymentsAlreadyStarted) {
		t.Fatalf("Reclaim() = %v, want ErrPaymentsAlreadyStarted", err)
	}
}

func TestReclaimNothingDeposited(t *testing.T) {
	h := newHarness(t)
	h.seedPlan(t, false)

	_, err := h.svc.Reclaim(context.Background(), testHolder)
	if !errors.Is(err, core.ErrNothingToReclaim) {
		t.Fatalf("Reclaim() = %v, want ErrNothingToReclaim", err)
	}
}

func TestReclaimReturnsFullBalance(t *testing.T) {
	h := newHarness(t)
	h.seedPlan(t, false)

	sv := h.store.savings[testHolder]
	sv.TotalDeposited = decimal.NewFromInt(5000)
	h.store.savings[testHolder] = sv
	h.store.fum = decimal.NewFromInt(5000)

	reclaimed, err := h.svc.Reclaim(context.Background(), testHolder)
	if err != nil {
		t.Fatalf("Reclaim() error = %v", err)
	}
	if !reclaimed.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("Reclaim() = %s, want 5000", reclaimed)
	}

	stored := h.store.savings[testHolder]
	if !stored.TotalDeposited.IsZero() {
		t.Fatalf("TotalDeposited = %s after reclaim, want 0", stored.TotalDeposited)
	}
	if !h.store.fum.IsZero() {
		t.Fatalf("funds under management = %s, want 0", h.store.fum)
	}

	if len(h.transfers.sends) != 1 {
		t.Fatalf("transfers = %d, want 1", len(h.transfers.sends))
	}
	sent := h.transfers.sends[0]
	if sent.holderID != testHolder || !sent.amount.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("transfer = %+v, want 5000 to %s", sent, testHolder)
	}

	types := h.publisher.types()
	if len(types) != 1 || types[0] != events.TypeFundsReclaimed {
		t.Fatalf("events = %v, want [funds.reclaimed]", types)
	}

	// One shot: the balance is gone.
	_, err = h.svc.Reclaim(context.Background(), testHolder)
	if !errors.Is(err, core.ErrNothingToReclaim) {
		t.Fatalf("second Reclaim() = %v, want ErrNothingToReclaim", err)
	}
}

func TestReclaimTransferFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.seedPlan(t, false)

	sv := h.store.savings[testHolder]
	sv.TotalDeposited = decimal.NewFromInt(5000)
	h.store.savings[testHolder] = sv
	h.store.fum = decimal.NewFromInt(5000)

	h.transfers.err = fmt.Errorf("gateway down: %w", core.ErrTransferFailed)

	_, err := h.svc.Reclaim(context.Background(), testHolder)
	if !errors.Is(err, core.ErrTransferFailed) {
		t.Fatalf("Reclaim() = %v, want ErrTransferFailed", err)
	}

	stored := h.store.savings[testHolder]
	if !stored.TotalDeposited.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf(
			"TotalDeposited = %s after rollback, want 5000",
			stored.TotalDeposited,
		)
	}
	if !h.store.fum.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("funds under management = %s after rollback, want 5000", h.store.fum)
	}
}
