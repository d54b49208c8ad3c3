// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

package claim

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gridhold/gridhold/internal/economy"
	"github.com/gridhold/gridhold/internal/geofence"
	"github.com/gridhold/gridhold/internal/limits"
)

// RegionManager keeps geofenced volumes aligned with connected same-owner
// claim groups. This mirrors internal/region.Merger to avoid coupling claim
// to the region package.
type RegionManager interface {
	MergeOnClaim(ctx context.Context, c *Claim)
	UnmergeOnUnclaim(ctx context.Context, c *Claim)
	GenerateRegionName(ctx context.Context, world, ownerName string) (string, error)
}

// AdminChecker mirrors internal/access.AdminChecker for the administrative
// override on unclaim.
type AdminChecker interface {
	IsAdmin(ctx context.Context, p ulid.ULID) bool
}

// Rules holds the tunable policy the engine validates against.
type Rules struct {
	Price          float64
	Refund         float64
	MaxNameLength  int
	MinDistance    int // in cells; 0 disables the distance rule
	MinSalePrice   float64
	MaxSalePrice   float64
	DisabledWorlds map[string]struct{}
	Extent         geofence.VerticalExtent
}

// WorldDisabled reports whether claiming is disabled in the world.
func (r Rules) WorldDisabled(world string) bool {
	_, ok := r.DisabledWorlds[world]
	return ok
}

// EngineConfig holds dependencies for Engine.
type EngineConfig struct {
	Cache   *Cache
	Repo    Repository
	Fence   geofence.Service
	Regions RegionManager
	Economy economy.Provider
	Limits  limits.Service
	Admin   AdminChecker
	Rules   Rules
}

// Engine is the only component permitted to mutate a claim's persisted
// identity or ownership. Every workflow validates first, reserves external
// resources, persists, and only then commits to the cache; on any failure
// after a resource was reserved it compensates in strict reverse order.
//
// Workflows are safe to invoke from concurrent request contexts. The store's
// uniqueness constraint on (world, cell_x, cell_z) is the linearization point
// for racing claims at the same position.
type Engine struct {
	cache   *Cache
	repo    Repository
	fence   geofence.Service
	regions RegionManager
	economy economy.Provider
	limits  limits.Service
	admin   AdminChecker
	rules   Rules
}

// NewEngine creates an Engine with the given configuration. A nil Economy
// falls back to the free no-op provider.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Economy == nil {
		cfg.Economy = economy.Noop{}
	}
	return &Engine{
		cache:   cfg.Cache,
		repo:    cfg.Repo,
		fence:   cfg.Fence,
		regions: cfg.Regions,
		economy: cfg.Economy,
		limits:  cfg.Limits,
		admin:   cfg.Admin,
		rules:   cfg.Rules,
	}
}

// Cache exposes the engine's claim cache for read queries.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Rules exposes the engine's policy values.
func (e *Engine) Rules() Rules {
	return e.rules
}

// Claim claims the cell at pos for the principal. With an empty desiredName a
// name of the form "{principalName}_{n}" is synthesized using the smallest
// free suffix. The returned claim is non-nil only on success.
func (e *Engine) Claim(ctx context.Context, p Principal, pos Position, desiredName string) (*Claim, Status, error) {
	defer observe("claim", time.Now())

	if e.rules.WorldDisabled(pos.World) {
		return e.failClaim(StatusWorldDisabled, nil)
	}
	if e.cache.IsClaimed(pos) {
		return e.failClaim(StatusAlreadyClaimed, nil)
	}

	limit, err := e.limits.LimitFor(ctx, p.ID)
	if err != nil {
		return e.failClaim(StatusStoreError, oops.In("claim").With("collaborator", "limits").Wrap(err))
	}
	if limit != limits.Unlimited && e.cache.Count(p.ID) >= limit {
		return e.failClaim(StatusLimitReached, nil)
	}

	has, err := e.economy.Has(ctx, p.ID, e.rules.Price)
	if err != nil {
		return e.failClaim(StatusEconomyError, oops.In("claim").With("collaborator", "economy").Wrap(err))
	}
	if !has {
		return e.failClaim(StatusInsufficientFunds, nil)
	}

	if e.rules.MinDistance > 0 && e.tooCloseToForeignClaim(p.ID, pos) {
		return e.failClaim(StatusTooClose, nil)
	}

	name, st, err := e.resolveName(ctx, p, desiredName)
	if !st.OK() {
		return e.failClaim(st, err)
	}

	// Validation passed; start reserving external resources. Everything
	// from here on compensates in reverse order on failure.
	if err := e.economy.Withdraw(ctx, p.ID, e.rules.Price); err != nil {
		if errors.Is(err, economy.ErrInsufficientFunds) {
			return e.failClaim(StatusInsufficientFunds, nil)
		}
		return e.failClaim(StatusEconomyError, oops.In("claim").With("collaborator", "economy").Wrap(err))
	}

	regionName, err := e.regions.GenerateRegionName(ctx, pos.World, p.Name)
	if err != nil {
		e.refund(ctx, p.ID, e.rules.Price)
		return e.failClaim(StatusGeofenceError, oops.In("claim").With("collaborator", "geofence").Wrap(err))
	}
	bounds := geofence.CellBounds(pos.CellX, pos.CellZ, e.rules.Extent)
	if err := e.fence.CreateVolume(ctx, pos.World, regionName, bounds, p.ID); err != nil {
		e.refund(ctx, p.ID, e.rules.Price)
		return e.failClaim(StatusGeofenceError, oops.In("claim").With("collaborator", "geofence").Wrap(err))
	}

	c := New(pos, name, p)
	c.RegionName = regionName
	c.CreatedAt = time.Now()

	id, err := e.repo.Insert(ctx, c)
	if err != nil {
		e.deleteVolume(ctx, pos.World, regionName)
		e.refund(ctx, p.ID, e.rules.Price)
		if errors.Is(err, ErrPositionTaken) {
			// Lost the race at the store's uniqueness constraint.
			return e.failClaim(StatusAlreadyClaimed, nil)
		}
		return e.failClaim(StatusStoreError, oops.In("claim").With("collaborator", "store").Wrap(err))
	}
	c.ID = id

	e.cache.Put(c)
	e.regions.MergeOnClaim(ctx, c)
	st, stErr := e.done("claim", StatusSuccess, nil)
	return e.cache.GetAt(pos), st, stErr
}

// Unclaim releases the claim, depositing the configured refund to the
// principal. The principal must own the claim or hold the administrative
// override.
func (e *Engine) Unclaim(ctx context.Context, p Principal, c *Claim) (Status, error) {
	defer observe("unclaim", time.Now())

	if !c.IsOwner(p.ID) && !e.isAdmin(ctx, p.ID) {
		return e.done("unclaim", StatusNotOwner, nil)
	}

	// The refund is fire-and-forget like the sale deposit: a failed credit
	// never blocks releasing territory.
	if err := e.economy.Deposit(ctx, p.ID, e.rules.Refund); err != nil {
		slog.Warn("unclaim refund failed", "principal", p.ID.String(), "error", err)
	}

	return e.removeClaim(ctx, "unclaim", c)
}

// ForceUnclaim releases the claim without an ownership check and without a
// refund. Administrative use only.
func (e *Engine) ForceUnclaim(ctx context.Context, c *Claim) (Status, error) {
	defer observe("force-unclaim", time.Now())
	return e.removeClaim(ctx, "force-unclaim", c)
}

// Trust adds the target principal to the claim's trust list and as a member
// of its geofenced volume. Trusting the owner or an already-trusted
// principal fails without touching any state.
func (e *Engine) Trust(ctx context.Context, c *Claim, target Principal) (Status, error) {
	defer observe("trust", time.Now())

	if c.IsOwner(target.ID) || c.IsTrusted(target.ID) {
		return e.done("trust", StatusTrustRejected, nil)
	}

	// The cache is updated only after the store confirms.
	if err := e.repo.AddTrust(ctx, c.ID, target); err != nil {
		if errors.Is(err, ErrTrustExists) {
			return e.done("trust", StatusTrustRejected, nil)
		}
		return e.done("trust", StatusStoreError, oops.In("claim").With("collaborator", "store").Wrap(err))
	}

	updated := c.Clone()
	updated.addTrusted(target)
	e.cache.Put(updated)

	if err := e.fence.AddMember(ctx, c.World, c.RegionName, target.ID); err != nil {
		slog.Error("trust: add volume member failed",
			"world", c.World, "region", c.RegionName, "error", err)
	}
	return e.done("trust", StatusSuccess, nil)
}

// Untrust removes the target principal from the claim's trust list and from
// its geofenced volume. Untrusting a principal who is not trusted fails
// without touching any state.
func (e *Engine) Untrust(ctx context.Context, c *Claim, target ulid.ULID) (Status, error) {
	defer observe("untrust", time.Now())

	if !c.IsTrusted(target) {
		return e.done("untrust", StatusTrustRejected, nil)
	}

	if err := e.repo.RemoveTrust(ctx, c.ID, target); err != nil {
		if errors.Is(err, ErrNotFound) {
			return e.done("untrust", StatusTrustRejected, nil)
		}
		return e.done("untrust", StatusStoreError, oops.In("claim").With("collaborator", "store").Wrap(err))
	}

	updated := c.Clone()
	updated.removeTrusted(target)
	e.cache.Put(updated)

	if err := e.fence.RemoveMember(ctx, c.World, c.RegionName, target); err != nil {
		slog.Error("untrust: remove volume member failed",
			"world", c.World, "region", c.RegionName, "error", err)
	}
	return e.done("untrust", StatusSuccess, nil)
}

// Rename gives the claim a new name, unique among the owner's claims
// (case-insensitive).
func (e *Engine) Rename(ctx context.Context, c *Claim, newName string) (Status, error) {
	defer observe("rename", time.Now())

	if len(newName) > e.rules.MaxNameLength {
		return e.done("rename", StatusNameTooLong, nil)
	}
	if existing := e.cache.ByName(c.Owner.ID, newName); existing != nil && existing.ID != c.ID {
		return e.done("rename", StatusNameExists, nil)
	}

	updated := c.Clone()
	updated.Name = newName
	if err := e.repo.Update(ctx, updated); err != nil {
		return e.done("rename", StatusStoreError, oops.In("claim").With("collaborator", "store").Wrap(err))
	}
	e.cache.Put(updated)
	return e.done("rename", StatusSuccess, nil)
}

// SetSetting toggles one protection flag by key and persists the claim.
// Unknown keys are a no-op.
func (e *Engine) SetSetting(ctx context.Context, c *Claim, key string, value bool) (Status, error) {
	defer observe("set-setting", time.Now())

	if !ValidSettingKey(key) {
		return e.done("set-setting", StatusSuccess, nil)
	}

	updated := c.Clone()
	updated.Settings.Set(key, value)
	if err := e.repo.Update(ctx, updated); err != nil {
		return e.done("set-setting", StatusStoreError, oops.In("claim").With("collaborator", "store").Wrap(err))
	}
	e.cache.Put(updated)
	return e.done("set-setting", StatusSuccess, nil)
}

// Transfer reassigns the claim to a new owner. The trust list does not
// survive the transfer: trust is a relationship with the old owner.
func (e *Engine) Transfer(ctx context.Context, c *Claim, newOwner Principal) (Status, error) {
	defer observe("transfer", time.Now())
	return e.transfer(ctx, "transfer", c, newOwner, false)
}

// ListForSale puts the claim on the market at the given price, recording the
// anchor position shown to prospective buyers.
func (e *Engine) ListForSale(ctx context.Context, p Principal, c *Claim, price float64, anchor string) (Status, error) {
	defer observe("list-for-sale", time.Now())

	if !c.IsOwner(p.ID) {
		return e.done("list-for-sale", StatusNotOwner, nil)
	}
	if price < e.rules.MinSalePrice || price > e.rules.MaxSalePrice {
		return e.done("list-for-sale", StatusInvalidPrice, nil)
	}

	updated := c.Clone()
	updated.ForSale = true
	updated.SalePrice = price
	updated.SaleAnchor = anchor
	if err := e.repo.Update(ctx, updated); err != nil {
		return e.done("list-for-sale", StatusStoreError, oops.In("claim").With("collaborator", "store").Wrap(err))
	}
	e.cache.Put(updated)
	return e.done("list-for-sale", StatusSuccess, nil)
}

// DelistForSale takes the claim off the market.
func (e *Engine) DelistForSale(ctx context.Context, p Principal, c *Claim) (Status, error) {
	defer observe("delist-for-sale", time.Now())

	if !c.IsOwner(p.ID) {
		return e.done("delist-for-sale", StatusNotOwner, nil)
	}
	if !c.ForSale {
		return e.done("delist-for-sale", StatusNotForSale, nil)
	}

	updated := c.Clone()
	updated.ForSale = false
	updated.SalePrice = 0
	updated.SaleAnchor = ""
	if err := e.repo.Update(ctx, updated); err != nil {
		return e.done("delist-for-sale", StatusStoreError, oops.In("claim").With("collaborator", "store").Wrap(err))
	}
	e.cache.Put(updated)
	return e.done("delist-for-sale", StatusSuccess, nil)
}

// Buy purchases a listed claim. The buyer's balance and claim limit are
// re-validated at purchase time: both can have changed since listing. The
// deposit to the seller is fire-and-forget; a failed deposit is logged and
// the purchase still completes.
func (e *Engine) Buy(ctx context.Context, buyer Principal, c *Claim) (Status, error) {
	defer observe("buy", time.Now())

	if !c.ForSale {
		return e.done("buy", StatusNotForSale, nil)
	}

	price := c.SalePrice
	has, err := e.economy.Has(ctx, buyer.ID, price)
	if err != nil {
		return e.done("buy", StatusEconomyError, oops.In("claim").With("collaborator", "economy").Wrap(err))
	}
	if !has {
		return e.done("buy", StatusInsufficientFunds, nil)
	}

	limit, err := e.limits.LimitFor(ctx, buyer.ID)
	if err != nil {
		return e.done("buy", StatusStoreError, oops.In("claim").With("collaborator", "limits").Wrap(err))
	}
	if limit != limits.Unlimited && e.cache.Count(buyer.ID) >= limit {
		return e.done("buy", StatusLimitReached, nil)
	}

	if err := e.economy.Withdraw(ctx, buyer.ID, price); err != nil {
		if errors.Is(err, economy.ErrInsufficientFunds) {
			return e.done("buy", StatusInsufficientFunds, nil)
		}
		return e.done("buy", StatusEconomyError, oops.In("claim").With("collaborator", "economy").Wrap(err))
	}

	seller := c.Owner
	if err := e.economy.Deposit(ctx, seller.ID, price); err != nil {
		slog.Warn("buy: deposit to seller failed",
			"seller", seller.ID.String(), "claim_id", c.ID, "price", price, "error", err)
	}

	st, err := e.transfer(ctx, "buy", c, buyer, true)
	if !st.OK() {
		// The store rejected the transfer after the buyer paid: give the
		// money back before surfacing the failure.
		e.refund(ctx, buyer.ID, price)
	}
	return st, err
}

// removeClaim runs the shared unclaim tail: unmerge, store delete, cache
// remove. The claim must still be cached when the region unmerge runs.
func (e *Engine) removeClaim(ctx context.Context, op string, c *Claim) (Status, error) {
	e.regions.UnmergeOnUnclaim(ctx, c)

	if err := e.repo.Delete(ctx, c.ID); err != nil {
		return e.done(op, StatusStoreError, oops.In("claim").With("collaborator", "store").Wrap(err))
	}
	e.cache.Remove(c)
	return e.done(op, StatusSuccess, nil)
}

// transfer is the shared ownership-reassignment tail for Transfer and Buy.
// When clearSale is set the sale fields are wiped in the same store write.
func (e *Engine) transfer(ctx context.Context, op string, c *Claim, newOwner Principal, clearSale bool) (Status, error) {
	oldOwner := c.Owner

	updated := c.Clone()
	updated.Owner = newOwner
	updated.clearTrusted()
	if clearSale {
		updated.ForSale = false
		updated.SalePrice = 0
		updated.SaleAnchor = ""
	}

	if err := e.repo.Update(ctx, updated); err != nil {
		return e.done(op, StatusStoreError, oops.In("claim").With("collaborator", "store").Wrap(err))
	}
	if err := e.repo.ClearTrust(ctx, c.ID); err != nil {
		// Ownership is already reassigned; stale trust rows are a
		// recoverable inconsistency cleaned up on the next hydration.
		slog.Error("transfer: clear trust rows failed", "claim_id", c.ID, "error", err)
	}

	e.cache.ReindexOwner(oldOwner.ID, updated)

	if err := e.fence.SetOwner(ctx, c.World, c.RegionName, newOwner.ID); err != nil {
		slog.Error("transfer: reassign volume owner failed",
			"world", c.World, "region", c.RegionName, "error", err)
	}
	return e.done(op, StatusSuccess, nil)
}

// resolveName validates a requested claim name or synthesizes one.
func (e *Engine) resolveName(ctx context.Context, p Principal, desired string) (string, Status, error) {
	if desired == "" {
		n, err := e.repo.NextSuffix(ctx, p.ID, p.Name)
		if err != nil {
			return "", StatusStoreError, oops.In("claim").With("collaborator", "store").Wrap(err)
		}
		return p.Name + "_" + strconv.Itoa(n), StatusSuccess, nil
	}

	if len(desired) > e.rules.MaxNameLength {
		return "", StatusNameTooLong, nil
	}
	exists, err := e.repo.NameExists(ctx, p.ID, desired)
	if err != nil {
		return "", StatusStoreError, oops.In("claim").With("collaborator", "store").Wrap(err)
	}
	if exists {
		return "", StatusNameExists, nil
	}
	return desired, StatusSuccess, nil
}

// tooCloseToForeignClaim reports whether any cell within the configured
// Chebyshev distance is claimed by a different owner.
func (e *Engine) tooCloseToForeignClaim(owner ulid.ULID, pos Position) bool {
	d := e.rules.MinDistance
	for dx := -d; dx <= d; dx++ {
		for dz := -d; dz <= d; dz++ {
			if dx == 0 && dz == 0 {
				continue
			}
			nearby := e.cache.Get(pos.World, pos.CellX+dx, pos.CellZ+dz)
			if nearby != nil && !nearby.IsOwner(owner) {
				return true
			}
		}
	}
	return false
}

func (e *Engine) isAdmin(ctx context.Context, p ulid.ULID) bool {
	return e.admin != nil && e.admin.IsAdmin(ctx, p)
}

func (e *Engine) refund(ctx context.Context, p ulid.ULID, amount float64) {
	if err := e.economy.Deposit(ctx, p, amount); err != nil {
		slog.Error("compensating refund failed", "principal", p.String(), "amount", amount, "error", err)
	}
}

func (e *Engine) deleteVolume(ctx context.Context, world, name string) {
	if err := e.fence.DeleteVolume(ctx, world, name); err != nil {
		slog.Error("compensating volume delete failed", "world", world, "region", name, "error", err)
	}
}

// failClaim records a failed claim workflow with no claim to return.
func (e *Engine) failClaim(st Status, err error) (*Claim, Status, error) {
	st, err = e.done("claim", st, err)
	return nil, st, err
}

// done records the operation outcome and passes the status/error through.
func (e *Engine) done(op string, st Status, err error) (Status, error) {
	recordOutcome(op, st)
	if err != nil && st.CollaboratorFailure() {
		slog.Error("claim workflow collaborator failure", "op", op, "status", st.String(), "error", err)
	}
	return st, err
}
