package journals

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tavola-erp/tavola-erp/internal/ledger/shared"
	internalshared "github.com/tavola-erp/tavola-erp/internal/shared"
)

// LineInput describes one leg of an entry being created or updated.
type LineInput struct {
	AccountID    int64
	Description  *string
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	CostCenterID *int64
	ProjectCode  *string
}

// CreateEntryInput groups fields required to create a draft entry.
type CreateEntryInput struct {
	TenantID    int64
	EntryDate   time.Time
	Description string
	Reference   *string
	SourceKind  SourceKind
	SourceID    *uuid.UUID
	CreatedBy   int64
	Lines       []LineInput
}

// ValidateLines enforces the double-entry invariants shared by create, update,
// and post: at least two lines, exactly one nonzero side per line, and equal
// totals within the balance epsilon. It returns the computed totals so callers
// persist exactly what was validated.
func ValidateLines(lines []LineInput) (totalDebit, totalCredit decimal.Decimal, err error) {
	if len(lines) < 2 {
		return decimal.Zero, decimal.Zero, shared.ErrTooFewLines
	}
	totalDebit = decimal.Zero
	totalCredit = decimal.Zero
	for idx, line := range lines {
		if line.AccountID == 0 {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: line %d missing account", shared.ErrInvalidLine, idx+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: line %d negative amount", shared.ErrInvalidLine, idx+1)
		}
		debitSet := line.Debit.IsPositive()
		creditSet := line.Credit.IsPositive()
		if debitSet == creditSet {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: line %d", shared.ErrInvalidLine, idx+1)
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if !internalshared.WithinEpsilon(totalDebit, totalCredit) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: debit %s vs credit %s",
			shared.ErrUnbalanced, totalDebit.StringFixed(2), totalCredit.StringFixed(2))
	}
	return totalDebit, totalCredit, nil
}

// Validate checks a create request before any write.
func (in CreateEntryInput) Validate() error {
	if in.TenantID == 0 {
		return errors.New("ledger: tenant required")
	}
	if in.EntryDate.IsZero() {
		return errors.New("ledger: entry date required")
	}
	if in.SourceKind == "" {
		return errors.New("ledger: source kind required")
	}
	_, _, err := ValidateLines(in.Lines)
	return err
}

// UpdateEntryInput carries draft-entry mutations. Nil fields are untouched; a
// non-nil Lines slice replaces the line set wholesale.
type UpdateEntryInput struct {
	TenantID    int64
	EntryID     int64
	EntryDate   *time.Time
	Description *string
	Reference   *string
	Lines       []LineInput
}

// ListFilter narrows entry listings.
type ListFilter struct {
	TenantID     int64
	DateFrom     *time.Time
	DateTo       *time.Time
	AccountID    *int64
	Status       *EntryStatus
	SourceKind   *SourceKind
	CostCenterID *int64
	Search       string
	Page         int
	PerPage      int
}
