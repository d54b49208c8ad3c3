// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

package claim

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Repository is the durable ownership store for claims and trust rows.
// Implementations must enforce a uniqueness constraint on
// (world, cell_x, cell_z) at the storage layer and surface a violation as
// ErrPositionTaken.
type Repository interface {
	// Insert persists a new claim and returns its store-assigned ID.
	Insert(ctx context.Context, c *Claim) (int64, error)

	// Update persists the mutable attributes of an existing claim.
	Update(ctx context.Context, c *Claim) error

	// Delete removes a claim and cascades its trust rows.
	Delete(ctx context.Context, id int64) error

	// LoadAll returns every persisted claim without trust lists hydrated.
	LoadAll(ctx context.Context) ([]*Claim, error)

	// NameExists reports whether owner already has a claim with the given
	// name. The comparison is case-insensitive.
	NameExists(ctx context.Context, owner ulid.ULID, name string) (bool, error)

	// NextSuffix returns the smallest positive integer n such that
	// "<prefix>_<n>" is not already used as a claim name by owner.
	NextSuffix(ctx context.Context, owner ulid.ULID, prefix string) (int, error)

	// AddTrust persists a trust row. Returns ErrTrustExists when the pair
	// already exists.
	AddTrust(ctx context.Context, claimID int64, p Principal) error

	// RemoveTrust deletes a trust row. Returns ErrNotFound when absent.
	RemoveTrust(ctx context.Context, claimID int64, principal ulid.ULID) error

	// ListTrust returns the trust list for a claim.
	ListTrust(ctx context.Context, claimID int64) ([]Principal, error)

	// ClearTrust deletes every trust row for a claim.
	ClearTrust(ctx context.Context, claimID int64) error
}
