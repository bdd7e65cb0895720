package posbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tavola-erp/tavola-erp/internal/ledger/journals"
	"github.com/tavola-erp/tavola-erp/internal/ledger/shared"
)

// JournalPoster is the slice of the journal service the bridge drives.
type JournalPoster interface {
	CreateAndPost(ctx context.Context, in journals.CreateEntryInput, approver int64) (journals.JournalEntry, error)
}

// StatementInvalidator bumps cached statements after a posting lands.
type StatementInvalidator interface {
	Invalidate(ctx context.Context) error
}

// PostingMetrics counts bridge outcomes. Nil-safe via WithMetrics.
type PostingMetrics interface {
	EntryPosted(source string)
	PostingSkipped()
}

// Service turns completed sales into balanced journal entries.
type Service struct {
	journal    JournalPoster
	resolver   AccountResolver
	reporter   ProfitabilityRepository
	statements StatementInvalidator
	logger     *slog.Logger
	metrics    PostingMetrics
	now        func() time.Time
}

func NewService(journal JournalPoster, resolver AccountResolver, reporter ProfitabilityRepository, statements StatementInvalidator, logger *slog.Logger) *Service {
	return &Service{
		journal:    journal,
		resolver:   resolver,
		reporter:   reporter,
		statements: statements,
		logger:     logger,
		now:        time.Now,
	}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	s.now = now
}

// WithMetrics attaches posting counters.
func (s *Service) WithMetrics(metrics PostingMetrics) {
	s.metrics = metrics
}

// PostOrderSale posts the revenue entry for a completed order. When any
// account required to carry a nonzero amount is unmapped, no entry is written
// and the result reports SKIPPED with the missing keys; a partial entry could
// never balance.
func (s *Service) PostOrderSale(ctx context.Context, tenantID, actorID int64, order CompletedOrder, tax TaxBreakdown, cogs OrderCOGS) (PostResult, error) {
	gross := tax.GrandTotal

	required := []string{paymentKey(order.PaymentMethod), KeySalesRevenue}
	if tax.TotalTax.IsPositive() {
		required = append(required, KeyTaxPayable)
	}
	if cogs.Total.IsPositive() {
		required = append(required, KeyCOGS, KeyInventory)
	}
	accounts, missing, err := s.resolveAll(ctx, tenantID, required)
	if err != nil {
		return PostResult{}, err
	}
	if len(missing) > 0 {
		s.logger.Warn("order posting skipped",
			slog.Int64("tenant_id", tenantID),
			slog.String("order", order.Number),
			slog.Any("missing_accounts", missing))
		s.recordSkip()
		return PostResult{
			Status:          PostStatusSkipped,
			MissingAccounts: missing,
			Reason:          "account mappings missing",
		}, nil
	}

	desc := func(text string) *string { return &text }
	lines := []journals.LineInput{
		{
			AccountID:   accounts[paymentKey(order.PaymentMethod)],
			Description: desc(fmt.Sprintf("sale %s (%s)", order.Number, order.PaymentMethod)),
			Debit:       gross,
		},
		{
			AccountID:   accounts[KeySalesRevenue],
			Description: desc(fmt.Sprintf("revenue %s", order.Number)),
			Credit:      gross.Sub(tax.TotalTax),
		},
	}
	if tax.TotalTax.IsPositive() {
		lines = append(lines, journals.LineInput{
			AccountID:   accounts[KeyTaxPayable],
			Description: desc(fmt.Sprintf("tax collected %s", order.Number)),
			Credit:      tax.TotalTax,
		})
	}
	if cogs.Total.IsPositive() {
		lines = append(lines,
			journals.LineInput{
				AccountID:   accounts[KeyCOGS],
				Description: desc(fmt.Sprintf("cost of sales %s", order.Number)),
				Debit:       cogs.Total,
			},
			journals.LineInput{
				AccountID:   accounts[KeyInventory],
				Description: desc(fmt.Sprintf("inventory relief %s", order.Number)),
				Credit:      cogs.Total,
			})
	}

	sourceID := order.OrderID
	entry, err := s.journal.CreateAndPost(ctx, journals.CreateEntryInput{
		TenantID:    tenantID,
		EntryDate:   order.CompletedAt,
		Description: fmt.Sprintf("POS sale %s", order.Number),
		Reference:   &order.Number,
		SourceKind:  journals.SourcePOS,
		SourceID:    &sourceID,
		CreatedBy:   actorID,
		Lines:       lines,
	}, actorID)
	if err != nil {
		return PostResult{}, fmt.Errorf("post order sale: %w", err)
	}
	s.recordPosted()
	s.invalidateStatements(ctx)
	return PostResult{Status: PostStatusPosted, Entry: &entry}, nil
}

// PostOrderRefund posts an independent refund entry mirroring a prior sale.
// It does not reverse the original entry: the refund may be partial and the
// original period may already be reported.
func (s *Service) PostOrderRefund(ctx context.Context, tenantID, actorID int64, order CompletedOrder, amount, taxAmount, cogsAmount decimal.Decimal, reason string) (PostResult, error) {
	if !amount.IsPositive() {
		return PostResult{}, errors.New("posbridge: refund amount must be positive")
	}
	if taxAmount.GreaterThan(amount) {
		return PostResult{}, errors.New("posbridge: refund tax exceeds refund amount")
	}

	required := []string{paymentKey(order.PaymentMethod), KeySalesRevenue}
	if taxAmount.IsPositive() {
		required = append(required, KeyTaxPayable)
	}
	if cogsAmount.IsPositive() {
		required = append(required, KeyCOGS, KeyInventory)
	}
	accounts, missing, err := s.resolveAll(ctx, tenantID, required)
	if err != nil {
		return PostResult{}, err
	}
	if len(missing) > 0 {
		s.logger.Warn("refund posting skipped",
			slog.Int64("tenant_id", tenantID),
			slog.String("order", order.Number),
			slog.Any("missing_accounts", missing))
		s.recordSkip()
		return PostResult{
			Status:          PostStatusSkipped,
			MissingAccounts: missing,
			Reason:          "account mappings missing",
		}, nil
	}

	desc := func(text string) *string { return &text }
	lines := []journals.LineInput{
		{
			AccountID:   accounts[KeySalesRevenue],
			Description: desc(fmt.Sprintf("refund %s: %s", order.Number, reason)),
			Debit:       amount.Sub(taxAmount),
		},
		{
			AccountID:   accounts[paymentKey(order.PaymentMethod)],
			Description: desc(fmt.Sprintf("refund paid out %s", order.Number)),
			Credit:      amount,
		},
	}
	if taxAmount.IsPositive() {
		lines = append(lines, journals.LineInput{
			AccountID:   accounts[KeyTaxPayable],
			Description: desc(fmt.Sprintf("tax refunded %s", order.Number)),
			Debit:       taxAmount,
		})
	}
	if cogsAmount.IsPositive() {
		lines = append(lines,
			journals.LineInput{
				AccountID:   accounts[KeyInventory],
				Description: desc(fmt.Sprintf("inventory restored %s", order.Number)),
				Debit:       cogsAmount,
			},
			journals.LineInput{
				AccountID:   accounts[KeyCOGS],
				Description: desc(fmt.Sprintf("cost of sales reversed %s", order.Number)),
				Credit:      cogsAmount,
			})
	}

	sourceID := order.OrderID
	reference := fmt.Sprintf("refund:%s", order.Number)
	entry, err := s.journal.CreateAndPost(ctx, journals.CreateEntryInput{
		TenantID:    tenantID,
		EntryDate:   s.now(),
		Description: fmt.Sprintf("POS refund %s: %s", order.Number, reason),
		Reference:   &reference,
		SourceKind:  journals.SourcePOS,
		SourceID:    &sourceID,
		CreatedBy:   actorID,
		Lines:       lines,
	}, actorID)
	if err != nil {
		return PostResult{}, fmt.Errorf("post order refund: %w", err)
	}
	s.recordPosted()
	s.invalidateStatements(ctx)
	return PostResult{Status: PostStatusPosted, Entry: &entry}, nil
}

func (s *Service) resolveAll(ctx context.Context, tenantID int64, keys []string) (map[string]int64, []string, error) {
	accounts := make(map[string]int64, len(keys))
	var missing []string
	for _, key := range keys {
		if _, ok := accounts[key]; ok {
			continue
		}
		id, err := s.resolver.Resolve(ctx, tenantID, key)
		if err != nil {
			if errors.Is(err, shared.ErrMappingNotFound) {
				missing = append(missing, key)
				continue
			}
			return nil, nil, fmt.Errorf("resolve account mapping %s: %w", key, err)
		}
		accounts[key] = id
	}
	return accounts, missing, nil
}

func (s *Service) recordPosted() {
	if s.metrics != nil {
		s.metrics.EntryPosted(string(journals.SourcePOS))
	}
}

func (s *Service) recordSkip() {
	if s.metrics != nil {
		s.metrics.PostingSkipped()
	}
}

func (s *Service) invalidateStatements(ctx context.Context) {
	if s.statements == nil {
		return
	}
	if err := s.statements.Invalidate(ctx); err != nil {
		s.logger.Warn("statement cache invalidation failed", slog.Any("error", err))
	}
}
