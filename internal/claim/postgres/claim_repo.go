// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

// Package postgres implements claim.Repository using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gridhold/gridhold/internal/claim"
)

// pool abstracts pgxpool.Pool for pgxmock-based tests.
type pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ClaimRepository implements claim.Repository on the claims and
// trusted_players tables.
type ClaimRepository struct {
	pool pool
}

// NewClaimRepository creates a new ClaimRepository.
func NewClaimRepository(p pool) *ClaimRepository {
	return &ClaimRepository{pool: p}
}

const claimColumns = `id, world, cell_x, cell_z, name, owner_id, owner_name,
	allow_build, allow_destroy, allow_use, allow_switch, allow_pvp,
	allow_mobs, allow_fire, allow_explosion,
	for_sale, sale_price, sale_anchor, region_name, created_at`

// Insert persists a new claim and returns its assigned id. The unique index
// on (world, cell_x, cell_z) is the linearization point for racing claims;
// losing that race surfaces as claim.ErrPositionTaken.
func (r *ClaimRepository) Insert(ctx context.Context, c *claim.Claim) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO claims (world, cell_x, cell_z, name, owner_id, owner_name,
			allow_build, allow_destroy, allow_use, allow_switch, allow_pvp,
			allow_mobs, allow_fire, allow_explosion,
			for_sale, sale_price, sale_anchor, region_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`, c.World, c.CellX, c.CellZ, c.Name, c.Owner.ID.String(), c.Owner.Name,
		c.Settings.Build, c.Settings.Destroy, c.Settings.Use, c.Settings.Switch, c.Settings.PvP,
		c.Settings.Mobs, c.Settings.Fire, c.Settings.Explosion,
		c.ForSale, c.SalePrice, c.SaleAnchor, c.RegionName, c.CreatedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, oops.Code("POSITION_TAKEN").With("position", c.Key()).Wrap(claim.ErrPositionTaken)
		}
		return 0, oops.With("operation", "insert claim").With("position", c.Key()).Wrap(err)
	}
	return id, nil
}

// Update overwrites the claim row identified by c.ID.
func (r *ClaimRepository) Update(ctx context.Context, c *claim.Claim) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE claims SET name = $2, owner_id = $3, owner_name = $4,
			allow_build = $5, allow_destroy = $6, allow_use = $7, allow_switch = $8,
			allow_pvp = $9, allow_mobs = $10, allow_fire = $11, allow_explosion = $12,
			for_sale = $13, sale_price = $14, sale_anchor = $15, region_name = $16
		WHERE id = $1
	`, c.ID, c.Name, c.Owner.ID.String(), c.Owner.Name,
		c.Settings.Build, c.Settings.Destroy, c.Settings.Use, c.Settings.Switch,
		c.Settings.PvP, c.Settings.Mobs, c.Settings.Fire, c.Settings.Explosion,
		c.ForSale, c.SalePrice, c.SaleAnchor, c.RegionName)
	if err != nil {
		return oops.With("operation", "update claim").With("id", c.ID).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("CLAIM_NOT_FOUND").With("id", c.ID).Wrap(claim.ErrNotFound)
	}
	return nil
}

// Delete removes the claim row; trust rows cascade.
func (r *ClaimRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM claims WHERE id = $1`, id)
	if err != nil {
		return oops.With("operation", "delete claim").With("id", id).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("CLAIM_NOT_FOUND").With("id", id).Wrap(claim.ErrNotFound)
	}
	return nil
}

// LoadAll returns every claim row. Used to hydrate the cache at startup.
func (r *ClaimRepository) LoadAll(ctx context.Context) ([]*claim.Claim, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+claimColumns+` FROM claims ORDER BY id`)
	if err != nil {
		return nil, oops.With("operation", "load claims").Wrap(err)
	}
	defer rows.Close()

	return scanClaims(rows)
}

// NameExists reports whether the owner already has a claim under the name,
// matched case-insensitively.
func (r *ClaimRepository) NameExists(ctx context.Context, owner ulid.ULID, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM claims WHERE owner_id = $1 AND LOWER(name) = LOWER($2))
	`, owner.String(), name).Scan(&exists)
	if err != nil {
		return false, oops.With("operation", "check claim name").With("owner", owner.String()).Wrap(err)
	}
	return exists, nil
}

// NextSuffix returns the smallest n >= 1 for which "{base}_{n}" is not yet
// used by any of the owner's claims.
func (r *ClaimRepository) NextSuffix(ctx context.Context, owner ulid.ULID, base string) (int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT LOWER(name) FROM claims WHERE owner_id = $1 AND LOWER(name) LIKE LOWER($2) || '\_%'
	`, owner.String(), base)
	if err != nil {
		return 0, oops.With("operation", "next claim suffix").With("owner", owner.String()).Wrap(err)
	}
	defer rows.Close()

	prefix := strings.ToLower(base) + "_"
	taken := make(map[int]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return 0, oops.With("operation", "scan claim name").Wrap(err)
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(name, prefix)); err == nil && n > 0 {
			taken[n] = true
		}
	}
	if err := rows.Err(); err != nil {
		return 0, oops.With("operation", "iterate claim names").Wrap(err)
	}

	for n := 1; ; n++ {
		if !taken[n] {
			return n, nil
		}
	}
}

// AddTrust inserts one trust row for the claim.
func (r *ClaimRepository) AddTrust(ctx context.Context, claimID int64, p claim.Principal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO trusted_players (claim_id, principal_id, principal_name)
		VALUES ($1, $2, $3)
	`, claimID, p.ID.String(), p.Name)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("TRUST_EXISTS").With("claim_id", claimID).Wrap(claim.ErrTrustExists)
		}
		return oops.With("operation", "add trust").With("claim_id", claimID).Wrap(err)
	}
	return nil
}

// RemoveTrust deletes one trust row for the claim.
func (r *ClaimRepository) RemoveTrust(ctx context.Context, claimID int64, principal ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM trusted_players WHERE claim_id = $1 AND principal_id = $2
	`, claimID, principal.String())
	if err != nil {
		return oops.With("operation", "remove trust").With("claim_id", claimID).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("TRUST_NOT_FOUND").With("claim_id", claimID).Wrap(claim.ErrNotFound)
	}
	return nil
}

// ListTrust returns the claim's trusted principals.
func (r *ClaimRepository) ListTrust(ctx context.Context, claimID int64) ([]claim.Principal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT principal_id, principal_name FROM trusted_players WHERE claim_id = $1 ORDER BY principal_id
	`, claimID)
	if err != nil {
		return nil, oops.With("operation", "list trust").With("claim_id", claimID).Wrap(err)
	}
	defer rows.Close()

	var out []claim.Principal
	for rows.Next() {
		var idStr, name string
		if err := rows.Scan(&idStr, &name); err != nil {
			return nil, oops.With("operation", "scan trust row").Wrap(err)
		}
		id, err := ulid.Parse(idStr)
		if err != nil {
			return nil, oops.With("operation", "parse trusted principal id").With("id", idStr).Wrap(err)
		}
		out = append(out, claim.Principal{ID: id, Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate trust rows").Wrap(err)
	}
	return out, nil
}

// ClearTrust deletes every trust row for the claim.
func (r *ClaimRepository) ClearTrust(ctx context.Context, claimID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM trusted_players WHERE claim_id = $1`, claimID)
	if err != nil {
		return oops.With("operation", "clear trust").With("claim_id", claimID).Wrap(err)
	}
	return nil
}

// claimScanFields holds intermediate scan values for claim parsing.
type claimScanFields struct {
	ownerIDStr string
	ownerName  string
}

func scanClaims(rows pgx.Rows) ([]*claim.Claim, error) {
	claims := make([]*claim.Claim, 0)
	for rows.Next() {
		var c claim.Claim
		var f claimScanFields

		if err := rows.Scan(
			&c.ID, &c.World, &c.CellX, &c.CellZ, &c.Name, &f.ownerIDStr, &f.ownerName,
			&c.Settings.Build, &c.Settings.Destroy, &c.Settings.Use, &c.Settings.Switch,
			&c.Settings.PvP, &c.Settings.Mobs, &c.Settings.Fire, &c.Settings.Explosion,
			&c.ForSale, &c.SalePrice, &c.SaleAnchor, &c.RegionName, &c.CreatedAt,
		); err != nil {
			return nil, oops.With("operation", "scan claim").Wrap(err)
		}

		ownerID, err := ulid.Parse(f.ownerIDStr)
		if err != nil {
			return nil, oops.With("operation", "parse claim owner id").With("id", f.ownerIDStr).Wrap(err)
		}
		c.Owner = claim.Principal{ID: ownerID, Name: f.ownerName}

		claims = append(claims, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate claims").Wrap(err)
	}

	return claims, nil
}

// Compile-time interface check.
var _ claim.Repository = (*ClaimRepository)(nil)
