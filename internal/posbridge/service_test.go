package posbridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tavola-erp/tavola-erp/internal/ledger/journals"
	"github.com/tavola-erp/tavola-erp/internal/ledger/shared"
)

const testTenant int64 = 4

type mockPoster struct {
	inputs   []journals.CreateEntryInput
	approver int64
	err      error
}

func (m *mockPoster) CreateAndPost(_ context.Context, in journals.CreateEntryInput, approver int64) (journals.JournalEntry, error) {
	if m.err != nil {
		return journals.JournalEntry{}, m.err
	}
	totalDebit, totalCredit, err := journals.ValidateLines(in.Lines)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	m.inputs = append(m.inputs, in)
	m.approver = approver
	return journals.JournalEntry{
		ID:          int64(len(m.inputs)),
		TenantID:    in.TenantID,
		Number:      "2026-000001",
		EntryDate:   in.EntryDate,
		Description: in.Description,
		Reference:   in.Reference,
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		Status:      journals.StatusPosted,
		SourceKind:  in.SourceKind,
		SourceID:    in.SourceID,
	}, nil
}

type mockResolver struct {
	accounts map[string]int64
	err      error
}

func (m *mockResolver) Resolve(_ context.Context, _ int64, key string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	id, ok := m.accounts[key]
	if !ok {
		return 0, shared.ErrMappingNotFound
	}
	return id, nil
}

type mockInvalidator struct {
	calls int
	err   error
}

func (m *mockInvalidator) Invalidate(context.Context) error {
	m.calls++
	return m.err
}

type mockBridgeMetrics struct {
	posted []string
	skips  int
}

func (m *mockBridgeMetrics) EntryPosted(source string) { m.posted = append(m.posted, source) }
func (m *mockBridgeMetrics) PostingSkipped()           { m.skips++ }

type mockProfitRepo struct {
	sales []ItemSalesRow
	usage []IngredientUsageRow
	err   error
}

func (m *mockProfitRepo) ItemSales(context.Context, int64, time.Time, time.Time) ([]ItemSalesRow, error) {
	return m.sales, m.err
}

func (m *mockProfitRepo) IngredientUsage(context.Context, int64, time.Time, time.Time) ([]IngredientUsageRow, error) {
	return m.usage, m.err
}

func fullMappings() map[string]int64 {
	return map[string]int64{
		KeyCash:         1,
		KeyBank:         2,
		KeyReceivable:   3,
		KeySalesRevenue: 4,
		KeyTaxPayable:   5,
		KeyCOGS:         6,
		KeyInventory:    7,
	}
}

type bridgeFixture struct {
	service     *Service
	poster      *mockPoster
	resolver    *mockResolver
	invalidator *mockInvalidator
	metrics     *mockBridgeMetrics
	reporter    *mockProfitRepo
}

func newBridgeFixture(accounts map[string]int64) *bridgeFixture {
	f := &bridgeFixture{
		poster:      &mockPoster{},
		resolver:    &mockResolver{accounts: accounts},
		invalidator: &mockInvalidator{},
		metrics:     &mockBridgeMetrics{},
		reporter:    &mockProfitRepo{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = NewService(f.poster, f.resolver, f.reporter, f.invalidator, logger)
	f.service.WithMetrics(f.metrics)
	f.service.WithNow(func() time.Time {
		return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	})
	return f
}

func completedOrder() CompletedOrder {
	return CompletedOrder{
		OrderID:       uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Number:        "ORD-1042",
		CompletedAt:   time.Date(2026, 3, 28, 19, 30, 0, 0, time.UTC),
		PaymentMethod: PaymentCash,
		Subtotal:      d("100000"),
	}
}

func TestPostOrderSaleWritesBalancedEntry(t *testing.T) {
	f := newBridgeFixture(fullMappings())
	order := completedOrder()
	tax := CalculateTax(order.Subtotal, d("9"), decimal.Zero, decimal.Zero)
	cogs := OrderCOGS{Total: d("40000")}

	result, err := f.service.PostOrderSale(context.Background(), testTenant, 42, order, tax, cogs)
	require.NoError(t, err)
	require.Equal(t, PostStatusPosted, result.Status)
	require.NotNil(t, result.Entry)
	assert.True(t, result.Entry.TotalDebit.Equal(d("149000")))
	assert.True(t, result.Entry.TotalCredit.Equal(d("149000")))

	require.Len(t, f.poster.inputs, 1)
	in := f.poster.inputs[0]
	assert.Equal(t, testTenant, in.TenantID)
	assert.Equal(t, order.CompletedAt, in.EntryDate)
	assert.Equal(t, journals.SourcePOS, in.SourceKind)
	require.NotNil(t, in.SourceID)
	assert.Equal(t, order.OrderID, *in.SourceID)
	assert.EqualValues(t, 42, f.poster.approver)

	require.Len(t, in.Lines, 5)
	assert.EqualValues(t, 1, in.Lines[0].AccountID, "cash leg")
	assert.True(t, in.Lines[0].Debit.Equal(d("109000")))
	assert.EqualValues(t, 4, in.Lines[1].AccountID, "revenue leg")
	assert.True(t, in.Lines[1].Credit.Equal(d("100000")))
	assert.EqualValues(t, 5, in.Lines[2].AccountID, "tax leg")
	assert.True(t, in.Lines[2].Credit.Equal(d("9000")))
	assert.EqualValues(t, 6, in.Lines[3].AccountID, "cogs leg")
	assert.True(t, in.Lines[3].Debit.Equal(d("40000")))
	assert.EqualValues(t, 7, in.Lines[4].AccountID, "inventory leg")
	assert.True(t, in.Lines[4].Credit.Equal(d("40000")))

	assert.Equal(t, []string{"POS"}, f.metrics.posted)
	assert.Equal(t, 1, f.invalidator.calls)
}

func TestPostOrderSaleCardDebitsBank(t *testing.T) {
	f := newBridgeFixture(fullMappings())
	order := completedOrder()
	order.PaymentMethod = PaymentCard
	tax := CalculateTax(order.Subtotal, decimal.Zero, decimal.Zero, decimal.Zero)

	result, err := f.service.PostOrderSale(context.Background(), testTenant, 42, order, tax, OrderCOGS{})
	require.NoError(t, err)
	require.Equal(t, PostStatusPosted, result.Status)

	in := f.poster.inputs[0]
	require.Len(t, in.Lines, 2, "no tax and no cogs legs for a zero-rate, recipe-less sale")
	assert.EqualValues(t, 2, in.Lines[0].AccountID)
	assert.True(t, in.Lines[0].Debit.Equal(d("100000")))
	assert.True(t, in.Lines[1].Credit.Equal(d("100000")))
}

func TestPostOrderSaleSkipsWhenMappingsMissing(t *testing.T) {
	mappings := fullMappings()
	delete(mappings, KeyTaxPayable)
	delete(mappings, KeyInventory)
	f := newBridgeFixture(mappings)
	order := completedOrder()
	tax := CalculateTax(order.Subtotal, d("9"), decimal.Zero, decimal.Zero)

	result, err := f.service.PostOrderSale(context.Background(), testTenant, 42, order, tax, OrderCOGS{Total: d("40000")})
	require.NoError(t, err)
	assert.Equal(t, PostStatusSkipped, result.Status)
	assert.ElementsMatch(t, []string{KeyTaxPayable, KeyInventory}, result.MissingAccounts)
	assert.Equal(t, "account mappings missing", result.Reason)
	assert.Nil(t, result.Entry)

	assert.Empty(t, f.poster.inputs, "no partial entry may be written")
	assert.Equal(t, 1, f.metrics.skips)
	assert.Zero(t, f.invalidator.calls)
}

func TestPostOrderSaleOnlyRequiresActiveLegs(t *testing.T) {
	// A zero-tax, recipe-less sale must post even when tax/COGS mappings are
	// absent, because those legs carry no amount.
	f := newBridgeFixture(map[string]int64{KeyCash: 1, KeySalesRevenue: 4})
	order := completedOrder()
	tax := CalculateTax(order.Subtotal, decimal.Zero, decimal.Zero, decimal.Zero)

	result, err := f.service.PostOrderSale(context.Background(), testTenant, 42, order, tax, OrderCOGS{})
	require.NoError(t, err)
	assert.Equal(t, PostStatusPosted, result.Status)
}

func TestPostOrderSaleResolverFailure(t *testing.T) {
	f := newBridgeFixture(nil)
	f.resolver.err = errors.New("connection reset")
	order := completedOrder()
	tax := CalculateTax(order.Subtotal, d("9"), decimal.Zero, decimal.Zero)

	_, err := f.service.PostOrderSale(context.Background(), testTenant, 42, order, tax, OrderCOGS{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve account mapping")
	assert.Zero(t, f.metrics.skips)
}

func TestPostOrderSalePosterFailure(t *testing.T) {
	f := newBridgeFixture(fullMappings())
	f.poster.err = errors.New("tx aborted")
	order := completedOrder()
	tax := CalculateTax(order.Subtotal, d("9"), decimal.Zero, decimal.Zero)

	_, err := f.service.PostOrderSale(context.Background(), testTenant, 42, order, tax, OrderCOGS{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post order sale")
	assert.Zero(t, f.invalidator.calls)
}

func TestPostOrderRefundMirrorsSale(t *testing.T) {
	f := newBridgeFixture(fullMappings())
	order := completedOrder()

	result, err := f.service.PostOrderRefund(context.Background(), testTenant, 42, order, d("109000"), d("9000"), d("40000"), "cold food")
	require.NoError(t, err)
	require.Equal(t, PostStatusPosted, result.Status)

	require.Len(t, f.poster.inputs, 1)
	in := f.poster.inputs[0]
	assert.Equal(t, time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC), in.EntryDate, "refund posts on the refund date, not the sale date")
	require.NotNil(t, in.Reference)
	assert.Equal(t, "refund:ORD-1042", *in.Reference)
	assert.Contains(t, in.Description, "cold food")

	require.Len(t, in.Lines, 5)
	assert.EqualValues(t, 4, in.Lines[0].AccountID, "revenue clawback")
	assert.True(t, in.Lines[0].Debit.Equal(d("100000")))
	assert.EqualValues(t, 1, in.Lines[1].AccountID, "cash paid out")
	assert.True(t, in.Lines[1].Credit.Equal(d("109000")))
	assert.EqualValues(t, 5, in.Lines[2].AccountID)
	assert.True(t, in.Lines[2].Debit.Equal(d("9000")))
	assert.EqualValues(t, 7, in.Lines[3].AccountID, "inventory restored")
	assert.True(t, in.Lines[3].Debit.Equal(d("40000")))
	assert.EqualValues(t, 6, in.Lines[4].AccountID)
	assert.True(t, in.Lines[4].Credit.Equal(d("40000")))

	assert.True(t, result.Entry.TotalDebit.Equal(result.Entry.TotalCredit))
	assert.Equal(t, 1, f.invalidator.calls)
}

func TestPostOrderRefundValidatesAmounts(t *testing.T) {
	f := newBridgeFixture(fullMappings())
	order := completedOrder()

	_, err := f.service.PostOrderRefund(context.Background(), testTenant, 42, order, decimal.Zero, decimal.Zero, decimal.Zero, "x")
	assert.Error(t, err)

	_, err = f.service.PostOrderRefund(context.Background(), testTenant, 42, order, d("100"), d("200"), decimal.Zero, "x")
	assert.Error(t, err)
	assert.Empty(t, f.poster.inputs)
}

func TestPostOrderRefundSkipsWhenUnmapped(t *testing.T) {
	f := newBridgeFixture(map[string]int64{KeyCash: 1})
	order := completedOrder()

	result, err := f.service.PostOrderRefund(context.Background(), testTenant, 42, order, d("100"), decimal.Zero, decimal.Zero, "x")
	require.NoError(t, err)
	assert.Equal(t, PostStatusSkipped, result.Status)
	assert.Equal(t, []string{KeySalesRevenue}, result.MissingAccounts)
	assert.Equal(t, 1, f.metrics.skips)
}

func TestProfitabilityReportRanksByProfit(t *testing.T) {
	f := newBridgeFixture(fullMappings())
	f.reporter.sales = []ItemSalesRow{
		{MenuItemID: 1, Name: "Espresso", Quantity: d("120"), Revenue: d("360"), COGS: d("60")},
		{MenuItemID: 2, Name: "Lasagna", Quantity: d("40"), Revenue: d("720"), COGS: d("320")},
	}
	f.reporter.usage = []IngredientUsageRow{
		{MenuItemID: 2, IngredientID: 10, Name: "Beef", Quantity: d("8"), Cost: d("160")},
		{MenuItemID: 2, IngredientID: 11, Name: "Pasta", Quantity: d("10"), Cost: d("40")},
		{MenuItemID: 2, IngredientID: 12, Name: "Tomato", Quantity: d("12"), Cost: d("36")},
		{MenuItemID: 2, IngredientID: 13, Name: "Cheese", Quantity: d("4"), Cost: d("84")},
	}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	report, err := f.service.ProfitabilityReport(context.Background(), testTenant, start, end)
	require.NoError(t, err)

	assert.True(t, report.TotalRevenue.Equal(d("1080")))
	assert.True(t, report.TotalCOGS.Equal(d("380")))
	assert.True(t, report.TotalProfit.Equal(d("700")))

	require.Len(t, report.Items, 2)
	lasagna := report.Items[0]
	assert.EqualValues(t, 2, lasagna.MenuItemID, "highest profit first")
	assert.True(t, lasagna.Profit.Equal(d("400")))
	assert.Equal(t, "55.56", lasagna.Margin.StringFixed(2))

	require.Len(t, lasagna.TopIngredients, 3, "capped at the three costliest")
	assert.Equal(t, "Beef", lasagna.TopIngredients[0].Name)
	assert.Equal(t, "Cheese", lasagna.TopIngredients[1].Name)
	assert.Equal(t, "Pasta", lasagna.TopIngredients[2].Name)
	assert.True(t, lasagna.TopIngredients[0].UnitCost.Equal(d("20")))

	espresso := report.Items[1]
	assert.Equal(t, "83.33", espresso.Margin.StringFixed(2))
	assert.Empty(t, espresso.TopIngredients)
}

func TestProfitabilityReportRepositoryFailure(t *testing.T) {
	f := newBridgeFixture(fullMappings())
	f.reporter.err = errors.New("query timeout")

	_, err := f.service.ProfitabilityReport(context.Background(), testTenant, time.Now().AddDate(0, -1, 0), time.Now())
	assert.Error(t, err)
}
