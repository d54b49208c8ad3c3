// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

// Package economy defines the capability interface for balance operations.
// Integration with a real economy backend is optional: deployments without
// one run the no-op provider, under which every claim is free.
package economy

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
)

// ErrInsufficientFunds is returned by Withdraw when the principal's balance
// cannot cover the amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrNoAccount is returned when the principal has no account.
var ErrNoAccount = errors.New("no such account")

// Provider performs balance checks and transfers for principals.
type Provider interface {
	// Has reports whether the principal's balance covers amount.
	Has(ctx context.Context, p ulid.ULID, amount float64) (bool, error)

	// Withdraw removes amount from the principal's balance. Returns
	// ErrInsufficientFunds without mutating the balance when it cannot.
	Withdraw(ctx context.Context, p ulid.ULID, amount float64) error

	// Deposit adds amount to the principal's balance.
	Deposit(ctx context.Context, p ulid.ULID, amount float64) error
}

// Noop is the default Provider: every check passes and transfers do nothing.
type Noop struct{}

// Has implements Provider.
func (Noop) Has(context.Context, ulid.ULID, float64) (bool, error) { return true, nil }

// Withdraw implements Provider.
func (Noop) Withdraw(context.Context, ulid.ULID, float64) error { return nil }

// Deposit implements Provider.
func (Noop) Deposit(context.Context, ulid.ULID, float64) error { return nil }

var _ Provider = Noop{}
