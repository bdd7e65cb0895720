package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryStatus enumerates the journal entry lifecycle.
// DRAFT may be edited or deleted; POSTED is immutable and balance-affecting;
// REVERSED is terminal and excluded from every balance computation.
type EntryStatus string

const (
	StatusDraft    EntryStatus = "DRAFT"
	StatusPosted   EntryStatus = "POSTED"
	StatusReversed EntryStatus = "REVERSED"
)

// SourceKind tags where an entry originated for traceability.
type SourceKind string

const (
	SourceManual   SourceKind = "MANUAL"
	SourcePOS      SourceKind = "POS"
	SourcePurchase SourceKind = "PURCHASE"
)

// JournalEntry is one atomic accounting event.
type JournalEntry struct {
	ID             int64           `json:"id"`
	TenantID       int64           `json:"tenant_id"`
	Number         string          `json:"number"`
	EntryDate      time.Time       `json:"entry_date"`
	Description    string          `json:"description"`
	Reference      *string         `json:"reference,omitempty"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	Status         EntryStatus     `json:"status"`
	SourceKind     SourceKind      `json:"source_kind"`
	SourceID       *uuid.UUID      `json:"source_id,omitempty"`
	CreatedBy      int64           `json:"created_by"`
	ApprovedBy     *int64          `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time      `json:"approved_at,omitempty"`
	ReversedBy     *int64          `json:"reversed_by,omitempty"`
	ReversedAt     *time.Time      `json:"reversed_at,omitempty"`
	ReversalReason *string         `json:"reversal_reason,omitempty"`
	ReversalOfID   *int64          `json:"reversal_of_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Lines          []JournalLine   `json:"lines,omitempty"`
}

// JournalLine is one debit-or-credit leg of an entry. Line numbers are dense
// and 1-based within the entry.
type JournalLine struct {
	ID           int64           `json:"id"`
	EntryID      int64           `json:"entry_id"`
	LineNo       int             `json:"line_no"`
	AccountID    int64           `json:"account_id"`
	Description  *string         `json:"description,omitempty"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	CostCenterID *int64          `json:"cost_center_id,omitempty"`
	ProjectCode  *string         `json:"project_code,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// FiscalYear returns the entry-numbering namespace for a date.
func FiscalYear(date time.Time) int {
	return date.Year()
}

// FormatNumber renders the human-readable entry number for a fiscal year and
// sequence, e.g. "2026-000042".
func FormatNumber(fiscalYear, seq int) string {
	return fmt.Sprintf("%d-%06d", fiscalYear, seq)
}
