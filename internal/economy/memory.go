// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

package economy

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Memory is an in-process Provider keyed by principal. Principals start at a
// zero balance. Safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	balances map[ulid.ULID]float64

	// FailWithdraw and FailDeposit, when set, force the corresponding
	// operation to fail. Used by tests to exercise compensation paths.
	FailWithdraw error
	FailDeposit  error
}

// NewMemory creates an empty Memory provider.
func NewMemory() *Memory {
	return &Memory{balances: make(map[ulid.ULID]float64)}
}

// SetBalance assigns a principal's balance.
func (m *Memory) SetBalance(p ulid.ULID, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[p] = amount
}

// Balance returns a principal's balance.
func (m *Memory) Balance(p ulid.ULID) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[p]
}

// Has implements Provider.
func (m *Memory) Has(_ context.Context, p ulid.ULID, amount float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[p] >= amount, nil
}

// Withdraw implements Provider.
func (m *Memory) Withdraw(_ context.Context, p ulid.ULID, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWithdraw != nil {
		return m.FailWithdraw
	}
	if m.balances[p] < amount {
		return ErrInsufficientFunds
	}
	m.balances[p] -= amount
	return nil
}

// Deposit implements Provider.
func (m *Memory) Deposit(_ context.Context, p ulid.ULID, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDeposit != nil {
		return m.FailDeposit
	}
	m.balances[p] += amount
	return nil
}

var _ Provider = (*Memory)(nil)
