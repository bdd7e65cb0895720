package shared

import "errors"

var (
	// ErrUnbalanced indicates total debit != total credit.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrInvalidLine indicates a line with both or neither side set.
	ErrInvalidLine = errors.New("ledger: line must carry exactly one of debit or credit")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrNotDraft indicates the entry already left DRAFT.
	ErrNotDraft = errors.New("ledger: entry is not in draft status")
	// ErrNotPosted indicates the entry is not POSTED.
	ErrNotPosted = errors.New("ledger: entry is not posted")
	// ErrFiscalYearMismatch indicates an entry-date edit that crosses fiscal
	// years, which would orphan the allocated entry number.
	ErrFiscalYearMismatch = errors.New("ledger: entry date cannot move across fiscal years")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrParentNotFound indicates the referenced parent account is missing.
	ErrParentNotFound = errors.New("ledger: parent account not found")
	// ErrDuplicateCode indicates the account code already exists in the tenant.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrAccountHasTransactions indicates journal lines reference the account.
	ErrAccountHasTransactions = errors.New("ledger: account has transactions")
	// ErrHierarchyCycle indicates a reparent would make an account its own ancestor.
	ErrHierarchyCycle = errors.New("ledger: account hierarchy cycle")
	// ErrSystemAccount indicates a structural edit on a seeded account.
	ErrSystemAccount = errors.New("ledger: system account is protected")
	// ErrMappingNotFound indicates a posting key has no account mapped.
	ErrMappingNotFound = errors.New("ledger: account mapping not found")
)
