// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

package claim

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Cache is the authoritative in-process index over all claims, dual-keyed by
// position and by owner. It is the single source of truth for read queries;
// the engine writes through to it only after the corresponding store write
// commits, so readers never observe uncommitted state.
//
// Thread-safety: all methods are safe for concurrent use. Claims handed out
// are snapshots owned by the cache; callers must not mutate them (the engine
// clones before mutating).
type Cache struct {
	mu      sync.RWMutex
	byPos   map[string]*Claim
	byOwner map[ulid.ULID]map[int64]*Claim
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		byPos:   make(map[string]*Claim),
		byOwner: make(map[ulid.ULID]map[int64]*Claim),
	}
}

// Load bulk-replaces the cache contents from the store, hydrating each
// claim's trust list before it becomes visible. Used at startup and reload.
func (c *Cache) Load(ctx context.Context, repo Repository) error {
	claims, err := repo.LoadAll(ctx)
	if err != nil {
		return oops.In("claim").With("operation", "load cache").Wrap(err)
	}

	byPos := make(map[string]*Claim, len(claims))
	byOwner := make(map[ulid.ULID]map[int64]*Claim)
	for _, cl := range claims {
		trusted, err := repo.ListTrust(ctx, cl.ID)
		if err != nil {
			return oops.In("claim").With("operation", "hydrate trust").With("claim_id", cl.ID).Wrap(err)
		}
		byID := make(map[ulid.ULID]string, len(trusted))
		for _, p := range trusted {
			byID[p.ID] = p.Name
		}
		cl.SetTrusted(byID)

		byPos[cl.Key()] = cl
		owned := byOwner[cl.Owner.ID]
		if owned == nil {
			owned = make(map[int64]*Claim)
			byOwner[cl.Owner.ID] = owned
		}
		owned[cl.ID] = cl
	}

	c.mu.Lock()
	c.byPos = byPos
	c.byOwner = byOwner
	c.mu.Unlock()

	cachedClaims.Set(float64(len(claims)))
	slog.Info("claim cache loaded", "claims", len(claims))
	return nil
}

// Get returns the claim at the given cell, or nil when unclaimed.
func (c *Cache) Get(world string, cellX, cellZ int) *Claim {
	return c.GetAt(Position{World: world, CellX: cellX, CellZ: cellZ})
}

// GetAt returns the claim at the given position, or nil when unclaimed.
func (c *Cache) GetAt(pos Position) *Claim {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byPos[pos.Key()]
}

// IsClaimed reports whether the position is claimed.
func (c *Cache) IsClaimed(pos Position) bool {
	return c.GetAt(pos) != nil
}

// OwnedBy returns every claim owned by the principal. Order is not stable
// across calls; callers needing order must sort.
func (c *Cache) OwnedBy(owner ulid.ULID) []*Claim {
	c.mu.RLock()
	defer c.mu.RUnlock()

	owned := c.byOwner[owner]
	out := make([]*Claim, 0, len(owned))
	for _, cl := range owned {
		out = append(out, cl)
	}
	return out
}

// Count returns the number of claims owned by the principal.
func (c *Cache) Count(owner ulid.ULID) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byOwner[owner])
}

// ForSale returns every claim currently listed for sale.
func (c *Cache) ForSale() []*Claim {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*Claim
	for _, cl := range c.byPos {
		if cl.ForSale {
			out = append(out, cl)
		}
	}
	return out
}

// ByName returns the claim the owner has under the given name, matched
// case-insensitively, or nil.
func (c *Cache) ByName(owner ulid.ULID, name string) *Claim {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, cl := range c.byOwner[owner] {
		if cl.NameEquals(name) {
			return cl
		}
	}
	return nil
}

// ByRegion returns every claim in the world whose region name matches.
func (c *Cache) ByRegion(world, regionName string) []*Claim {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*Claim
	for _, cl := range c.byPos {
		if cl.World == world && cl.RegionName == regionName {
			out = append(out, cl)
		}
	}
	return out
}

// Put inserts or replaces a claim snapshot. Called only by the engine after a
// successful store write.
func (c *Cache) Put(cl *Claim) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cl.Key()
	prev, existed := c.byPos[key]
	if existed && prev.Owner.ID != cl.Owner.ID {
		c.unindexOwnerLocked(prev)
	}
	c.byPos[key] = cl
	if !existed {
		cachedClaims.Inc()
	}
	owned := c.byOwner[cl.Owner.ID]
	if owned == nil {
		owned = make(map[int64]*Claim)
		c.byOwner[cl.Owner.ID] = owned
	}
	owned[cl.ID] = cl
}

// Remove deletes a claim from both indexes. Called only by the engine after
// the store delete commits.
func (c *Cache) Remove(cl *Claim) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, existed := c.byPos[cl.Key()]; existed {
		cachedClaims.Dec()
	}
	delete(c.byPos, cl.Key())
	c.unindexOwnerLocked(cl)
}

// ReindexOwner atomically moves a claim between owner indexes and publishes
// the updated snapshot. Called only by the engine after a successful
// ownership transfer.
func (c *Cache) ReindexOwner(oldOwner ulid.ULID, cl *Claim) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if owned := c.byOwner[oldOwner]; owned != nil {
		delete(owned, cl.ID)
		if len(owned) == 0 {
			delete(c.byOwner, oldOwner)
		}
	}
	c.byPos[cl.Key()] = cl
	owned := c.byOwner[cl.Owner.ID]
	if owned == nil {
		owned = make(map[int64]*Claim)
		c.byOwner[cl.Owner.ID] = owned
	}
	owned[cl.ID] = cl
}

func (c *Cache) unindexOwnerLocked(cl *Claim) {
	owned := c.byOwner[cl.Owner.ID]
	if owned == nil {
		return
	}
	delete(owned, cl.ID)
	if len(owned) == 0 {
		delete(c.byOwner, cl.Owner.ID)
	}
}
