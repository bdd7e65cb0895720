package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tavola-erp/tavola-erp/internal/ledger/shared"
)

// Service owns chart-of-accounts operations for one request's tenant scope.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateAccountInput groups fields for account creation.
type CreateAccountInput struct {
	TenantID      int64
	Code          string
	Name          string
	NameAlt       *string
	Description   *string
	Class         AccountClass
	NormalBalance NormalBalance
	ParentID      *int64
	IsSystem      bool
}

func (in CreateAccountInput) validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return errors.New("ledger: account code is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("ledger: account name is required")
	}
	switch in.Class {
	case ClassAsset, ClassLiability, ClassEquity, ClassRevenue, ClassExpense:
	default:
		return errors.New("ledger: unknown account class")
	}
	if in.NormalBalance != "" && in.NormalBalance != ConventionalNormalBalance(in.Class) {
		return errors.New("ledger: normal balance contradicts account class convention")
	}
	return nil
}

// Create inserts a new account with its level derived from the parent.
func (s *Service) Create(ctx context.Context, in CreateAccountInput) (Account, error) {
	if err := in.validate(); err != nil {
		return Account{}, err
	}
	account := Account{
		TenantID:      in.TenantID,
		Code:          strings.TrimSpace(in.Code),
		Name:          strings.TrimSpace(in.Name),
		NameAlt:       in.NameAlt,
		Description:   in.Description,
		Class:         in.Class,
		NormalBalance: ConventionalNormalBalance(in.Class),
		ParentID:      in.ParentID,
		Level:         1,
		IsSystem:      in.IsSystem,
	}
	if in.ParentID != nil {
		parent, err := s.repo.Get(ctx, in.TenantID, *in.ParentID)
		if err != nil {
			if errors.Is(err, shared.ErrAccountNotFound) {
				return Account{}, shared.ErrParentNotFound
			}
			return Account{}, err
		}
		account.Level = parent.Level + 1
	}
	return s.repo.Create(ctx, account)
}

// Get fetches a single account.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (Account, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// Hierarchy returns the balance-annotated account tree, optionally restricted
// to one class.
func (s *Service) Hierarchy(ctx context.Context, tenantID int64, class *AccountClass, asOf *time.Time) ([]*TreeNode, error) {
	list, err := s.repo.List(ctx, tenantID, class)
	if err != nil {
		return nil, err
	}
	activity, err := s.repo.Activity(ctx, tenantID, asOf)
	if err != nil {
		return nil, err
	}
	return BuildTree(list, activity), nil
}

// Balance computes the signed balance of one account as of a date. Only
// POSTED entries dated on or before asOf contribute.
func (s *Service) Balance(ctx context.Context, tenantID, id int64, asOf *time.Time) (decimal.Decimal, error) {
	account, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return decimal.Zero, err
	}
	row, err := s.repo.AccountActivity(ctx, tenantID, id, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return SignedBalance(account.NormalBalance, row.Debit, row.Credit), nil
}

// Search matches accounts by code, name, secondary-language name, or
// description, case- and diacritic-insensitively, capped at searchLimit rows.
func (s *Service) Search(ctx context.Context, tenantID int64, query string, class *AccountClass) ([]Account, error) {
	list, err := s.repo.List(ctx, tenantID, class)
	if err != nil {
		return nil, err
	}
	normalized := normalizeTerm(strings.TrimSpace(query))
	out := make([]Account, 0, searchLimit)
	for _, a := range list {
		if !matchesQuery(a, normalized) {
			continue
		}
		out = append(out, a)
		if len(out) == searchLimit {
			break
		}
	}
	return out, nil
}

// UpdateDetailsInput carries the mutable account fields. Code, class, and
// normal balance are immutable after creation.
type UpdateDetailsInput struct {
	TenantID    int64
	AccountID   int64
	Name        string
	NameAlt     *string
	Description *string
}

// UpdateDetails renames an account.
func (s *Service) UpdateDetails(ctx context.Context, in UpdateDetailsInput) (Account, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Account{}, errors.New("ledger: account name is required")
	}
	if _, err := s.repo.Get(ctx, in.TenantID, in.AccountID); err != nil {
		return Account{}, err
	}
	if err := s.repo.UpdateDetails(ctx, in.TenantID, in.AccountID, strings.TrimSpace(in.Name), in.NameAlt, in.Description); err != nil {
		return Account{}, err
	}
	return s.repo.Get(ctx, in.TenantID, in.AccountID)
}

// Reparent moves an account under a new parent, rejecting cycles and keeping
// depth levels consistent across the moved subtree.
func (s *Service) Reparent(ctx context.Context, tenantID, id int64, newParentID *int64) (Account, error) {
	account, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return Account{}, err
	}
	if account.IsSystem {
		return Account{}, shared.ErrSystemAccount
	}

	list, err := s.repo.List(ctx, tenantID, nil)
	if err != nil {
		return Account{}, err
	}
	byID := make(map[int64]Account, len(list))
	children := make(map[int64][]int64, len(list))
	for _, a := range list {
		byID[a.ID] = a
		if a.ParentID != nil {
			children[*a.ParentID] = append(children[*a.ParentID], a.ID)
		}
	}

	newLevel := 1
	if newParentID != nil {
		parent, ok := byID[*newParentID]
		if !ok {
			return Account{}, shared.ErrParentNotFound
		}
		if wouldCycle(byID, id, *newParentID) {
			return Account{}, shared.ErrHierarchyCycle
		}
		newLevel = parent.Level + 1
	}

	if err := s.repo.SetParent(ctx, tenantID, id, newParentID, newLevel); err != nil {
		return Account{}, err
	}

	// Shift every descendant by the same depth delta, walking the subtree
	// iteratively.
	delta := newLevel - account.Level
	if delta != 0 {
		stack := append([]int64(nil), children[id]...)
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if err := s.repo.SetLevel(ctx, tenantID, current, byID[current].Level+delta); err != nil {
				return Account{}, err
			}
			stack = append(stack, children[current]...)
		}
	}
	return s.repo.Get(ctx, tenantID, id)
}

// Deactivate soft-disables an account. Accounts referenced by journal lines
// are refused so historical postings always resolve.
func (s *Service) Deactivate(ctx context.Context, tenantID, id int64) error {
	account, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if account.IsSystem {
		return shared.ErrSystemAccount
	}
	used, err := s.repo.HasTransactions(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if used {
		return shared.ErrAccountHasTransactions
	}
	return s.repo.Deactivate(ctx, tenantID, id)
}
