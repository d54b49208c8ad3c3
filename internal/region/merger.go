// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

// Package region keeps one contiguous geofenced volume per connected group of
// same-owner claims: merging volumes when a new claim touches its neighbors
// and rebuilding per-cell volumes when a claim leaves a merged group.
package region

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gridhold/gridhold/internal/claim"
	"github.com/gridhold/gridhold/internal/geofence"
)

// adjacentOffsets are the four grid-adjacent cells. Diagonal adjacency does
// not connect regions.
var adjacentOffsets = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// Merger maintains the claim-to-volume invariant. Geofence failures are
// logged and the operation continues best-effort: the store keeps the
// authoritative region names and the next merge or unmerge recomputes from
// current state.
type Merger struct {
	cache  *claim.Cache
	fence  geofence.Service
	repo   claim.Repository
	extent geofence.VerticalExtent
}

// NewMerger creates a Merger over the given collaborators.
func NewMerger(cache *claim.Cache, fence geofence.Service, repo claim.Repository, extent geofence.VerticalExtent) *Merger {
	return &Merger{cache: cache, fence: fence, repo: repo, extent: extent}
}

// AdjacentSameOwner returns the up-to-4 grid-adjacent claims sharing the
// claim's owner.
func (m *Merger) AdjacentSameOwner(c *claim.Claim) []*claim.Claim {
	var out []*claim.Claim
	for _, off := range adjacentOffsets {
		adj := m.cache.Get(c.World, c.CellX+off[0], c.CellZ+off[1])
		if adj != nil && adj.IsOwner(c.Owner.ID) {
			out = append(out, adj)
		}
	}
	return out
}

// MergeOnClaim merges the freshly claimed cell's volume with every
// same-owner adjacent region, transitively absorbing each touched region's
// member claims. The merged volume keeps the new claim's region name; every
// absorbed claim's region name is rewritten and persisted.
func (m *Merger) MergeOnClaim(ctx context.Context, newClaim *claim.Claim) {
	neighbors := m.AdjacentSameOwner(newClaim)
	if len(neighbors) == 0 {
		return
	}

	survivor := newClaim.RegionName

	// Collect the touched regions and, transitively, every claim that
	// already shares one of their names.
	touched := make(map[string]struct{})
	for _, n := range neighbors {
		if n.RegionName != "" && n.RegionName != survivor {
			touched[n.RegionName] = struct{}{}
		}
	}
	if len(touched) == 0 {
		return
	}

	var absorbed []*claim.Claim
	for name := range touched {
		absorbed = append(absorbed, m.cache.ByRegion(newClaim.World, name)...)
	}

	// Union of the new cell, every absorbed cell, and any larger shape the
	// touched volumes already cover. A missing volume is a recoverable
	// inconsistency: its claims' cell bounds stand in for it.
	bounds := geofence.CellBounds(newClaim.CellX, newClaim.CellZ, m.extent)
	for _, c := range absorbed {
		bounds = bounds.Union(geofence.CellBounds(c.CellX, c.CellZ, m.extent))
	}
	for name := range touched {
		vb, ok, err := m.fence.VolumeBounds(ctx, newClaim.World, name)
		if err != nil {
			slog.Error("region merge: volume bounds lookup failed",
				"world", newClaim.World, "region", name, "error", err)
			continue
		}
		if ok {
			bounds = bounds.Union(vb)
		}
	}

	// Replace the new claim's single-cell volume with the merged one, then
	// drop every absorbed volume.
	if err := m.fence.DeleteVolume(ctx, newClaim.World, survivor); err != nil {
		slog.Error("region merge: delete volume failed",
			"world", newClaim.World, "region", survivor, "error", err)
	}
	for name := range touched {
		if err := m.fence.DeleteVolume(ctx, newClaim.World, name); err != nil {
			slog.Error("region merge: delete absorbed volume failed",
				"world", newClaim.World, "region", name, "error", err)
		}
	}
	if err := m.fence.CreateVolume(ctx, newClaim.World, survivor, bounds, newClaim.Owner.ID); err != nil {
		slog.Error("region merge: create merged volume failed",
			"world", newClaim.World, "region", survivor, "error", err)
	}
	m.addTrustedMembers(ctx, newClaim.World, survivor, newClaim)
	for _, c := range absorbed {
		m.addTrustedMembers(ctx, c.World, survivor, c)
	}

	// Rewrite the absorbed claims' region names. The store stays
	// authoritative even when a geofence call above failed.
	for _, c := range absorbed {
		if c.RegionName == survivor {
			continue
		}
		updated := c.Clone()
		updated.RegionName = survivor
		if err := m.repo.Update(ctx, updated); err != nil {
			slog.Error("region merge: persist region name failed",
				"claim_id", c.ID, "region", survivor, "error", err)
			continue
		}
		m.cache.Put(updated)
	}
}

// UnmergeOnUnclaim splits the removed claim's region back into one
// single-cell volume per remaining member claim, each under a freshly
// generated name and carrying the owner plus the claim's trust list. The
// rebuild discards any finer shape from earlier partial merges; recreating
// every cell keeps the invariant without polygon arithmetic.
//
// The removed claim must still be indexed in the cache when this runs.
func (m *Merger) UnmergeOnUnclaim(ctx context.Context, removed *claim.Claim) {
	remaining := m.remainingRegionMembers(removed)
	if len(remaining) == 0 {
		if err := m.fence.DeleteVolume(ctx, removed.World, removed.RegionName); err != nil {
			slog.Error("region unmerge: delete volume failed",
				"world", removed.World, "region", removed.RegionName, "error", err)
		}
		return
	}

	for _, c := range remaining {
		name, err := m.GenerateRegionName(ctx, c.World, c.Owner.Name)
		if err != nil {
			slog.Error("region unmerge: generate region name failed",
				"world", c.World, "owner", c.Owner.Name, "error", err)
			continue
		}
		cell := geofence.CellBounds(c.CellX, c.CellZ, m.extent)
		if err := m.fence.CreateVolume(ctx, c.World, name, cell, c.Owner.ID); err != nil {
			slog.Error("region unmerge: create volume failed",
				"world", c.World, "region", name, "error", err)
		}
		m.addTrustedMembers(ctx, c.World, name, c)

		updated := c.Clone()
		updated.RegionName = name
		if err := m.repo.Update(ctx, updated); err != nil {
			slog.Error("region unmerge: persist region name failed",
				"claim_id", c.ID, "region", name, "error", err)
			continue
		}
		m.cache.Put(updated)
	}

	if err := m.fence.DeleteVolume(ctx, removed.World, removed.RegionName); err != nil {
		slog.Error("region unmerge: delete shared volume failed",
			"world", removed.World, "region", removed.RegionName, "error", err)
	}
}

// GenerateRegionName returns "{lowercased-owner}_{n}" for the smallest
// positive n whose name is free in the world's geofence namespace.
func (m *Merger) GenerateRegionName(ctx context.Context, world, ownerName string) (string, error) {
	base := strings.ToLower(ownerName)
	for n := 1; ; n++ {
		candidate := base + "_" + strconv.Itoa(n)
		free, err := m.fence.NameAvailable(ctx, world, candidate)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
}

// remainingRegionMembers returns every claim sharing the removed claim's
// region name except the removed claim itself.
func (m *Merger) remainingRegionMembers(removed *claim.Claim) []*claim.Claim {
	members := m.cache.ByRegion(removed.World, removed.RegionName)
	out := members[:0]
	for _, c := range members {
		if c.ID != removed.ID {
			out = append(out, c)
		}
	}
	return out
}

func (m *Merger) addTrustedMembers(ctx context.Context, world, name string, c *claim.Claim) {
	for id := range c.Trusted() {
		if err := m.fence.AddMember(ctx, world, name, id); err != nil {
			slog.Error("region: add volume member failed",
				"world", world, "region", name, "error", err)
		}
	}
}
