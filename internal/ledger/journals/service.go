package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tavola-erp/tavola-erp/internal/ledger/accounts"
	"github.com/tavola-erp/tavola-erp/internal/ledger/shared"
	internalshared "github.com/tavola-erp/tavola-erp/internal/shared"
)

// AccountReader is the slice of the account registry the journal engine needs
// for validation and trial balance projection.
type AccountReader interface {
	Get(ctx context.Context, tenantID, id int64) (accounts.Account, error)
	List(ctx context.Context, tenantID int64, class *accounts.AccountClass) ([]accounts.Account, error)
	Activity(ctx context.Context, tenantID int64, asOf *time.Time) ([]accounts.ActivityRow, error)
}

// Service owns the journal entry lifecycle: DRAFT -> POSTED -> REVERSED.
type Service struct {
	repo     Repository
	accounts AccountReader
	now      func() time.Time
}

func NewService(repo Repository, accountReader AccountReader) *Service {
	return &Service{repo: repo, accounts: accountReader, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateEntry validates and persists a DRAFT entry. The entry number, header,
// and lines are written in one transaction so a failure leaves no trace and
// concurrent creations in the same tenant and fiscal year never share a
// number.
func (s *Service) CreateEntry(ctx context.Context, in CreateEntryInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	totalDebit, totalCredit, err := ValidateLines(in.Lines)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := s.checkAccounts(ctx, in.TenantID, in.Lines); err != nil {
		return JournalEntry{}, err
	}

	var entry JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		year := FiscalYear(in.EntryDate)
		seq, err := tx.NextEntryNumber(ctx, in.TenantID, year)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			TenantID:    in.TenantID,
			Number:      FormatNumber(year, seq),
			EntryDate:   in.EntryDate,
			Description: in.Description,
			Reference:   in.Reference,
			TotalDebit:  totalDebit,
			TotalCredit: totalCredit,
			Status:      StatusDraft,
			SourceKind:  in.SourceKind,
			SourceID:    in.SourceID,
			CreatedBy:   in.CreatedBy,
		})
		if err != nil {
			return err
		}
		lines, err := tx.InsertLines(ctx, inserted.ID, in.Lines)
		if err != nil {
			return err
		}
		inserted.Lines = lines
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// CreateAndPost persists an entry directly in POSTED status within a single
// transaction. Integration postings use it so no dangling draft survives a
// failure between creation and approval.
func (s *Service) CreateAndPost(ctx context.Context, in CreateEntryInput, approver int64) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	totalDebit, totalCredit, err := ValidateLines(in.Lines)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := s.checkAccounts(ctx, in.TenantID, in.Lines); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		year := FiscalYear(in.EntryDate)
		seq, err := tx.NextEntryNumber(ctx, in.TenantID, year)
		if err != nil {
			return err
		}
		at := s.now()
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			TenantID:    in.TenantID,
			Number:      FormatNumber(year, seq),
			EntryDate:   in.EntryDate,
			Description: in.Description,
			Reference:   in.Reference,
			TotalDebit:  totalDebit,
			TotalCredit: totalCredit,
			Status:      StatusPosted,
			SourceKind:  in.SourceKind,
			SourceID:    in.SourceID,
			CreatedBy:   in.CreatedBy,
			ApprovedBy:  &approver,
			ApprovedAt:  &at,
		})
		if err != nil {
			return err
		}
		lines, err := tx.InsertLines(ctx, inserted.ID, in.Lines)
		if err != nil {
			return err
		}
		inserted.Lines = lines
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// PostEntry transitions a DRAFT entry to POSTED. The balance invariant is
// re-validated inside the transaction in case lines changed since creation.
func (s *Service) PostEntry(ctx context.Context, tenantID, entryID, approver int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return shared.ErrNotDraft
		}
		if _, _, err := ValidateLines(toLineInputs(current.Lines)); err != nil {
			return err
		}
		at := s.now()
		if err := tx.MarkPosted(ctx, current.ID, approver, at); err != nil {
			return err
		}
		current.Status = StatusPosted
		current.ApprovedBy = &approver
		current.ApprovedAt = &at
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// ReverseEntry marks a POSTED entry REVERSED and posts a new offsetting entry
// whose lines are the original's with debit and credit swapped. Both writes
// share one transaction.
func (s *Service) ReverseEntry(ctx context.Context, tenantID, entryID, reverser int64, reason string) (JournalEntry, error) {
	if reason == "" {
		return JournalEntry{}, errors.New("ledger: reversal reason required")
	}
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryForUpdate(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		if original.Status != StatusPosted {
			return shared.ErrNotPosted
		}
		at := s.now()
		if err := tx.MarkReversed(ctx, original.ID, reverser, at, reason); err != nil {
			return err
		}

		swapped := ReverseLines(original.Lines)
		totalDebit, totalCredit, err := ValidateLines(swapped)
		if err != nil {
			return err
		}
		year := FiscalYear(at)
		seq, err := tx.NextEntryNumber(ctx, tenantID, year)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			TenantID:     tenantID,
			Number:       FormatNumber(year, seq),
			EntryDate:    at,
			Description:  fmt.Sprintf("reversal of %s: %s", original.Number, reason),
			Reference:    original.Reference,
			TotalDebit:   totalDebit,
			TotalCredit:  totalCredit,
			Status:       StatusPosted,
			SourceKind:   original.SourceKind,
			SourceID:     original.SourceID,
			CreatedBy:    reverser,
			ApprovedBy:   &reverser,
			ApprovedAt:   &at,
			ReversalOfID: &original.ID,
		})
		if err != nil {
			return err
		}
		lines, err := tx.InsertLines(ctx, inserted.ID, swapped)
		if err != nil {
			return err
		}
		inserted.Lines = lines
		reversal = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return reversal, nil
}

// checkAccounts verifies every line references an account visible to the
// tenant, so a bad account id fails with a domain error before the
// transaction opens.
func (s *Service) checkAccounts(ctx context.Context, tenantID int64, lines []LineInput) error {
	for idx, line := range lines {
		if _, err := s.accounts.Get(ctx, tenantID, line.AccountID); err != nil {
			return fmt.Errorf("line %d: %w", idx+1, err)
		}
	}
	return nil
}

// UpdateEntry mutates a DRAFT entry. A replaced line set is re-validated and
// totals recomputed before anything is written.
func (s *Service) UpdateEntry(ctx context.Context, in UpdateEntryInput) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, in.TenantID, in.EntryID)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return shared.ErrNotDraft
		}
		if in.EntryDate != nil {
			// The entry number embeds the fiscal year it was allocated in.
			// Moving the date to another year would leave a number from the
			// wrong sequence, so the entry must be deleted and recreated.
			if FiscalYear(*in.EntryDate) != FiscalYear(current.EntryDate) {
				return shared.ErrFiscalYearMismatch
			}
			current.EntryDate = *in.EntryDate
		}
		if in.Description != nil {
			current.Description = *in.Description
		}
		if in.Reference != nil {
			current.Reference = in.Reference
		}
		if in.Lines != nil {
			totalDebit, totalCredit, err := ValidateLines(in.Lines)
			if err != nil {
				return err
			}
			current.TotalDebit = totalDebit
			current.TotalCredit = totalCredit
			if err := tx.DeleteLines(ctx, current.ID); err != nil {
				return err
			}
			lines, err := tx.InsertLines(ctx, current.ID, in.Lines)
			if err != nil {
				return err
			}
			current.Lines = lines
		}
		if err := tx.UpdateDraft(ctx, current); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// DeleteEntry removes a DRAFT entry and its lines.
func (s *Service) DeleteEntry(ctx context.Context, tenantID, entryID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, tenantID, entryID)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return shared.ErrNotDraft
		}
		if err := tx.DeleteLines(ctx, current.ID); err != nil {
			return err
		}
		return tx.DeleteEntry(ctx, tenantID, current.ID)
	})
}

// GetEntry fetches one entry with its lines.
func (s *Service) GetEntry(ctx context.Context, tenantID, entryID int64) (JournalEntry, error) {
	return s.repo.Get(ctx, tenantID, entryID)
}

// ListEntries returns a filtered page sorted by (date desc, number desc).
func (s *Service) ListEntries(ctx context.Context, filter ListFilter) ([]JournalEntry, internalshared.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, internalshared.Pagination{}, err
	}
	return entries, internalshared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// TrialBalance projects every active account's balance into debit/credit
// columns as of a date.
func (s *Service) TrialBalance(ctx context.Context, tenantID int64, asOf *time.Time) (TrialBalance, error) {
	list, err := s.accounts.List(ctx, tenantID, nil)
	if err != nil {
		return TrialBalance{}, err
	}
	activity, err := s.accounts.Activity(ctx, tenantID, asOf)
	if err != nil {
		return TrialBalance{}, err
	}
	return BuildTrialBalance(list, activity), nil
}

// ReverseLines swaps debit and credit on every line, preserving order.
func ReverseLines(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountID:    line.AccountID,
			Description:  line.Description,
			Debit:        line.Credit,
			Credit:       line.Debit,
			CostCenterID: line.CostCenterID,
			ProjectCode:  line.ProjectCode,
		})
	}
	return out
}

func toLineInputs(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountID:    line.AccountID,
			Description:  line.Description,
			Debit:        line.Debit,
			Credit:       line.Credit,
			CostCenterID: line.CostCenterID,
			ProjectCode:  line.ProjectCode,
		})
	}
	return out
}
