// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

// Package postgres provides a durable geofence.Service backed by PostgreSQL.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gridhold/gridhold/internal/geofence"
)

// pool abstracts pgxpool.Pool for pgxmock-based tests.
type pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// VolumeStore implements geofence.Service on the volumes table.
type VolumeStore struct {
	pool pool
}

// NewVolumeStore creates a new VolumeStore.
func NewVolumeStore(p pool) *VolumeStore {
	return &VolumeStore{pool: p}
}

// CreateVolume implements geofence.Service. An existing volume under the same
// name is replaced; volume names are managed by the region module, which only
// reuses a name when rebuilding the same region.
func (s *VolumeStore) CreateVolume(ctx context.Context, world, name string, b geofence.Bounds, owner ulid.ULID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO volumes (world, name, min_x, min_y, min_z, max_x, max_y, max_z, owner_id, members, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '{}', $10)
		ON CONFLICT (world, name) DO UPDATE SET
			min_x = $3, min_y = $4, min_z = $5, max_x = $6, max_y = $7, max_z = $8,
			owner_id = $9, members = '{}', priority = $10
	`, world, name, b.MinX, b.MinY, b.MinZ, b.MaxX, b.MaxY, b.MaxZ, owner.String(), geofence.DefaultPriority)
	if err != nil {
		return oops.In("geofence").With("operation", "create volume").With("world", world).With("name", name).Wrap(err)
	}
	return nil
}

// DeleteVolume implements geofence.Service. Deleting a missing volume is a
// no-op.
func (s *VolumeStore) DeleteVolume(ctx context.Context, world, name string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM volumes WHERE world = $1 AND name = $2`, world, name)
	if err != nil {
		return oops.In("geofence").With("operation", "delete volume").With("world", world).With("name", name).Wrap(err)
	}
	return nil
}

// AddMember implements geofence.Service.
func (s *VolumeStore) AddMember(ctx context.Context, world, name string, p ulid.ULID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE volumes SET members = array_append(members, $3)
		WHERE world = $1 AND name = $2 AND NOT ($3 = ANY(members))
	`, world, name, p.String())
	if err != nil {
		return oops.In("geofence").With("operation", "add member").With("world", world).With("name", name).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return s.checkExists(ctx, world, name)
	}
	return nil
}

// RemoveMember implements geofence.Service.
func (s *VolumeStore) RemoveMember(ctx context.Context, world, name string, p ulid.ULID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE volumes SET members = array_remove(members, $3)
		WHERE world = $1 AND name = $2
	`, world, name, p.String())
	if err != nil {
		return oops.In("geofence").With("operation", "remove member").With("world", world).With("name", name).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return geofence.ErrVolumeNotFound
	}
	return nil
}

// SetOwner implements geofence.Service. Members are cleared alongside the
// owner change.
func (s *VolumeStore) SetOwner(ctx context.Context, world, name string, p ulid.ULID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE volumes SET owner_id = $3, members = '{}'
		WHERE world = $1 AND name = $2
	`, world, name, p.String())
	if err != nil {
		return oops.In("geofence").With("operation", "set owner").With("world", world).With("name", name).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return geofence.ErrVolumeNotFound
	}
	return nil
}

// VolumeBounds implements geofence.Service.
func (s *VolumeStore) VolumeBounds(ctx context.Context, world, name string) (geofence.Bounds, bool, error) {
	var b geofence.Bounds
	err := s.pool.QueryRow(ctx, `
		SELECT min_x, min_y, min_z, max_x, max_y, max_z
		FROM volumes WHERE world = $1 AND name = $2
	`, world, name).Scan(&b.MinX, &b.MinY, &b.MinZ, &b.MaxX, &b.MaxY, &b.MaxZ)
	if err == pgx.ErrNoRows {
		return geofence.Bounds{}, false, nil
	}
	if err != nil {
		return geofence.Bounds{}, false, oops.In("geofence").With("operation", "volume bounds").With("world", world).With("name", name).Wrap(err)
	}
	return b, true, nil
}

// NameAvailable implements geofence.Service.
func (s *VolumeStore) NameAvailable(ctx context.Context, world, candidate string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM volumes WHERE world = $1 AND name = $2)
	`, world, candidate).Scan(&exists)
	if err != nil {
		return false, oops.In("geofence").With("operation", "name available").With("world", world).With("name", candidate).Wrap(err)
	}
	return !exists, nil
}

func (s *VolumeStore) checkExists(ctx context.Context, world, name string) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM volumes WHERE world = $1 AND name = $2)
	`, world, name).Scan(&exists)
	if err != nil {
		return oops.In("geofence").With("operation", "check volume").With("world", world).With("name", name).Wrap(err)
	}
	if !exists {
		return geofence.ErrVolumeNotFound
	}
	return nil // member was already present
}

var _ geofence.Service = (*VolumeStore)(nil)
