package posbridge

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tavola-erp/tavola-erp/internal/ledger/shared"
)

// Posting keys link the bridge's economic roles to concrete accounts in each
// tenant's chart. The mapping rows are seeded with the chart itself.
const (
	KeyCash         = "CASH"
	KeyBank         = "BANK"
	KeyReceivable   = "RECEIVABLE"
	KeySalesRevenue = "SALES_REVENUE"
	KeyTaxPayable   = "TAX_PAYABLE"
	KeyCOGS         = "COGS"
	KeyInventory    = "INVENTORY"
)

// paymentKey selects the debit-side account role for a payment method.
func paymentKey(method PaymentMethod) string {
	switch method {
	case PaymentCard, PaymentTransfer:
		return KeyBank
	case PaymentCredit:
		return KeyReceivable
	default:
		return KeyCash
	}
}

// AccountResolver resolves a posting key to a ledger account id.
type AccountResolver interface {
	Resolve(ctx context.Context, tenantID int64, key string) (int64, error)
}

type mappingRepository struct {
	db *pgxpool.Pool
}

// NewMappingRepository returns the account_mappings-backed resolver.
func NewMappingRepository(db *pgxpool.Pool) AccountResolver {
	return &mappingRepository{db: db}
}

func (r *mappingRepository) Resolve(ctx context.Context, tenantID int64, key string) (int64, error) {
	var accountID int64
	err := r.db.QueryRow(ctx, `SELECT account_id FROM account_mappings WHERE tenant_id=$1 AND key=$2`, tenantID, key).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrMappingNotFound
		}
		return 0, err
	}
	return accountID, nil
}
