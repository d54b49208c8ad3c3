// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

// Package claim contains the territory-claim domain model, the in-process
// claim cache, and the engine that orchestrates claim lifecycle workflows.
package claim

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// UnpersistedID is the ID a claim carries before the store has assigned one.
const UnpersistedID int64 = -1

// Principal identifies a player account: claim owners, trusted parties, buyers.
type Principal struct {
	ID   ulid.ULID
	Name string
}

// Position addresses one grid cell in a named world.
type Position struct {
	World string
	CellX int
	CellZ int
}

// Key returns the canonical cache key for the position.
func (p Position) Key() string {
	return fmt.Sprintf("%s:%d:%d", p.World, p.CellX, p.CellZ)
}

// String implements fmt.Stringer.
func (p Position) String() string {
	return p.Key()
}

// Claim is one owned grid cell with its settings, trust list, and sale state.
// A Claim held by the cache is treated as an immutable snapshot: the engine
// mutates a copy and republishes it only after the store write commits.
type Claim struct {
	ID    int64 // store-assigned; UnpersistedID until persisted
	World string
	CellX int
	CellZ int

	Name       string
	Owner      Principal
	Settings   Settings
	ForSale    bool
	SalePrice  float64
	SaleAnchor string // opaque position string recorded at listing time
	RegionName string // geofenced volume backing this claim; shared when merged
	CreatedAt  time.Time

	trusted map[ulid.ULID]string
}

// New creates an unpersisted claim at the given position with default
// (maximally restrictive) settings.
func New(pos Position, name string, owner Principal) *Claim {
	return &Claim{
		ID:      UnpersistedID,
		World:   pos.World,
		CellX:   pos.CellX,
		CellZ:   pos.CellZ,
		Name:    name,
		Owner:   owner,
		trusted: make(map[ulid.ULID]string),
	}
}

// Position returns the claim's grid cell.
func (c *Claim) Position() Position {
	return Position{World: c.World, CellX: c.CellX, CellZ: c.CellZ}
}

// Key returns the canonical cache key for the claim's position.
func (c *Claim) Key() string {
	return c.Position().Key()
}

// IsOwner reports whether the given principal owns the claim.
func (c *Claim) IsOwner(id ulid.ULID) bool {
	return c.Owner.ID == id
}

// IsTrusted reports whether the given principal is on the trust list.
func (c *Claim) IsTrusted(id ulid.ULID) bool {
	_, ok := c.trusted[id]
	return ok
}

// CanInteract reports whether the principal is the owner or trusted.
func (c *Claim) CanInteract(id ulid.ULID) bool {
	return c.IsOwner(id) || c.IsTrusted(id)
}

// Trusted returns a copy of the trust list. Mutating the returned map does
// not affect the claim.
func (c *Claim) Trusted() map[ulid.ULID]string {
	out := make(map[ulid.ULID]string, len(c.trusted))
	for id, name := range c.trusted {
		out[id] = name
	}
	return out
}

// TrustedCount returns the number of trusted principals.
func (c *Claim) TrustedCount() int {
	return len(c.trusted)
}

// SetTrusted replaces the trust list. Used when hydrating a claim from the
// store; all other trust mutation goes through the engine.
func (c *Claim) SetTrusted(trusted map[ulid.ULID]string) {
	c.trusted = make(map[ulid.ULID]string, len(trusted))
	for id, name := range trusted {
		c.trusted[id] = name
	}
}

func (c *Claim) addTrusted(p Principal) {
	if c.trusted == nil {
		c.trusted = make(map[ulid.ULID]string)
	}
	c.trusted[p.ID] = p.Name
}

func (c *Claim) removeTrusted(id ulid.ULID) {
	delete(c.trusted, id)
}

func (c *Claim) clearTrusted() {
	c.trusted = make(map[ulid.ULID]string)
}

// NameEquals reports whether the claim's name matches, ignoring case.
// Name uniqueness is case-insensitive throughout.
func (c *Claim) NameEquals(name string) bool {
	return strings.EqualFold(c.Name, name)
}

// Clone returns a deep copy of the claim, including the trust list.
func (c *Claim) Clone() *Claim {
	out := *c
	out.trusted = make(map[ulid.ULID]string, len(c.trusted))
	for id, name := range c.trusted {
		out.trusted[id] = name
	}
	return &out
}

// String implements fmt.Stringer.
func (c *Claim) String() string {
	return fmt.Sprintf("claim %d %q at %s owned by %s", c.ID, c.Name, c.Key(), c.Owner.Name)
}
