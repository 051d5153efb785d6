package repo

import (
	"context"
	"fmt"

	"feedplanner/internal/domain"
	"feedplanner/internal/infra"
	"feedplanner/internal/sqlinline"
)

// CreditRepositoryPG implements domain.CreditLedger.
type CreditRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewCreditRepository creates a credit ledger over the given executor.
func NewCreditRepository(sql infra.SQLExecutor) *CreditRepositoryPG {
	return &CreditRepositoryPG{sql: sql}
}

// Balance returns the user's balance. A user without a balance row has zero.
func (r *CreditRepositoryPG) Balance(ctx context.Context, userID string) (int, error) {
	var balance int
	if err := r.sql.QueryRow(ctx, sqlinline.QCreditSelectBalance, userID).Scan(&balance); err != nil {
		if infra.IsNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("select credit balance: %w", err)
	}
	return balance, nil
}

// CheckBalance reports whether the balance covers amount.
func (r *CreditRepositoryPG) CheckBalance(ctx context.Context, userID string, amount int) (bool, error) {
	if amount <= 0 {
		return true, nil
	}
	balance, err := r.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= amount, nil
}

// Deduct debits amount and records one transaction. The update is
// conditional, so the balance never goes negative.
func (r *CreditRepositoryPG) Deduct(ctx context.Context, userID string, amount int, reason, referenceID string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("deduct %d credits: %w", amount, domain.ErrInvalidInput)
	}
	var after int
	err := r.sql.QueryRow(ctx, sqlinline.QCreditDeduct, userID, amount, reason, referenceID).Scan(&after)
	if err != nil {
		if infra.IsNoRows(err) {
			return 0, fmt.Errorf("deduct %d credits: %w", amount, domain.ErrInsufficientCredits)
		}
		return 0, fmt.Errorf("deduct credits: %w", err)
	}
	return after, nil
}

// Grant credits amount to the user, creating the balance row when needed.
func (r *CreditRepositoryPG) Grant(ctx context.Context, userID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("grant %d credits: %w", amount, domain.ErrInvalidInput)
	}
	var after int
	if err := r.sql.QueryRow(ctx, sqlinline.QCreditGrant, userID, amount, reason).Scan(&after); err != nil {
		return 0, fmt.Errorf("grant credits: %w", err)
	}
	return after, nil
}

var _ domain.CreditLedger = (*CreditRepositoryPG)(nil)
