// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

// Package postgres provides an economy.Provider backed by an accounts table.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/oklog/ulid/v2"

	"github.com/gridhold/gridhold/internal/economy"
)

// pool abstracts pgxpool.Pool for pgxmock-based tests.
type pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ledger implements economy.Provider on the accounts table. Withdrawals are
// balance-guarded in a single statement, so two concurrent withdrawals can
// never overdraw an account.
type Ledger struct {
	pool pool
}

// NewLedger creates a new Ledger.
func NewLedger(p pool) *Ledger {
	return &Ledger{pool: p}
}

// Has implements economy.Provider. A missing account has a zero balance.
func (l *Ledger) Has(ctx context.Context, p ulid.ULID, amount float64) (bool, error) {
	var covered bool
	err := l.pool.QueryRow(ctx, `
		SELECT COALESCE((SELECT balance >= $2 FROM accounts WHERE principal_id = $1), $2 <= 0)
	`, p.String(), amount).Scan(&covered)
	if err != nil {
		return false, oops.In("economy").With("operation", "check balance").With("principal", p.String()).Wrap(err)
	}
	return covered, nil
}

// Withdraw implements economy.Provider.
func (l *Ledger) Withdraw(ctx context.Context, p ulid.ULID, amount float64) error {
	if amount <= 0 {
		return nil
	}
	tag, err := l.pool.Exec(ctx, `
		UPDATE accounts SET balance = balance - $2
		WHERE principal_id = $1 AND balance >= $2
	`, p.String(), amount)
	if err != nil {
		return oops.In("economy").With("operation", "withdraw").With("principal", p.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return economy.ErrInsufficientFunds
	}
	return nil
}

// Deposit implements economy.Provider. The account is created on first
// deposit.
func (l *Ledger) Deposit(ctx context.Context, p ulid.ULID, amount float64) error {
	if amount <= 0 {
		return nil
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO accounts (principal_id, balance) VALUES ($1, $2)
		ON CONFLICT (principal_id) DO UPDATE SET balance = accounts.balance + $2
	`, p.String(), amount)
	if err != nil {
		return oops.In("economy").With("operation", "deposit").With("principal", p.String()).Wrap(err)
	}
	return nil
}

var _ economy.Provider = (*Ledger)(nil)
