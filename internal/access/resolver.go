// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

package access

import (
	"context"

	"github.com/gridhold/gridhold/internal/claim"
)

// Resolver maps (principal, claim, action) to allow/deny. It has no side
// effects; all state lives in the claim snapshots and the admin checker.
//
// The four structural actions (build, destroy, use, switch) consult the
// administrative override; mob, fire, and explosion protection deliberately
// do not.
type Resolver struct {
	cache *claim.Cache
	admin AdminChecker
}

// NewResolver creates a Resolver. The cache is consulted only by the
// explosion filter, which maps positions to claims itself.
func NewResolver(cache *claim.Cache, admin AdminChecker) *Resolver {
	return &Resolver{cache: cache, admin: admin}
}

// CanBuild reports whether the principal may place blocks in the claim.
func (r *Resolver) CanBuild(ctx context.Context, p claim.Principal, c *claim.Claim) bool {
	return r.structural(ctx, p, c, c.Settings.Build)
}

// CanDestroy reports whether the principal may break blocks in the claim.
func (r *Resolver) CanDestroy(ctx context.Context, p claim.Principal, c *claim.Claim) bool {
	return r.structural(ctx, p, c, c.Settings.Destroy)
}

// CanUse reports whether the principal may open containers and interact with
// use-type blocks in the claim.
func (r *Resolver) CanUse(ctx context.Context, p claim.Principal, c *claim.Claim) bool {
	return r.structural(ctx, p, c, c.Settings.Use)
}

// CanSwitch reports whether the principal may operate switch-type blocks in
// the claim.
func (r *Resolver) CanSwitch(ctx context.Context, p claim.Principal, c *claim.Claim) bool {
	return r.structural(ctx, p, c, c.Settings.Switch)
}

// CanPvP reports whether player-versus-player combat is allowed in the
// claim. PvP is a claim-wide toggle: trust and ownership are ignored.
func (r *Resolver) CanPvP(c *claim.Claim) bool {
	return c.Settings.PvP
}

// CanHarmMob reports whether the principal may harm passive entities and
// vehicles in the claim. The admin override is not consulted here.
func (r *Resolver) CanHarmMob(p claim.Principal, c *claim.Claim) bool {
	return c.CanInteract(p.ID) || c.Settings.Mobs
}

// CanIgnite reports whether fire may be ignited in the claim. A nil igniter
// is natural fire and is governed by the fire flag alone; a principal who is
// owner or trusted is exempt.
func (r *Resolver) CanIgnite(p *claim.Principal, c *claim.Claim) bool {
	if p != nil && c.CanInteract(p.ID) {
		return true
	}
	return c.Settings.Fire
}

// CanBurn reports whether blocks may burn in the claim. Burning is
// positionless: no principal exemption applies.
func (r *Resolver) CanBurn(c *claim.Claim) bool {
	return c.Settings.Fire
}

// CanSpread reports whether fire may spread into the claim.
func (r *Resolver) CanSpread(c *claim.Claim) bool {
	return c.Settings.Fire
}

// FilterExplosion returns the subset of affected positions an explosion may
// modify. Protection is a per-position filter: a protected position drops
// out of the batch without vetoing the rest. A non-nil source who is owner
// or trusted of a position's claim is exempt for that position.
func (r *Resolver) FilterExplosion(source *claim.Principal, positions []claim.Position) []claim.Position {
	allowed := make([]claim.Position, 0, len(positions))
	for _, pos := range positions {
		c := r.cache.GetAt(pos)
		if c == nil {
			allowed = append(allowed, pos)
			continue
		}
		if source != nil && c.CanInteract(source.ID) {
			allowed = append(allowed, pos)
			continue
		}
		if c.Settings.Explosion {
			allowed = append(allowed, pos)
		}
	}
	return allowed
}

func (r *Resolver) structural(ctx context.Context, p claim.Principal, c *claim.Claim, flag bool) bool {
	if r.admin != nil && r.admin.IsAdmin(ctx, p.ID) {
		return true
	}
	if c.CanInteract(p.ID) {
		return true
	}
	return flag
}
