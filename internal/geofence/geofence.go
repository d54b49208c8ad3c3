// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

// Package geofence defines the contract for the region-protection service
// that backs claims with named rectangular protected volumes.
package geofence

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
)

// ErrVolumeNotFound is returned when a named volume does not exist.
var ErrVolumeNotFound = errors.New("volume not found")

// DefaultPriority is assigned to every claim-backed volume.
const DefaultPriority = 10

// Bounds is an axis-aligned block-space box, inclusive on both ends.
type Bounds struct {
	MinX, MinY, MinZ int
	MaxX, MaxY, MaxZ int
}

// Union returns the smallest bounds containing both boxes.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinX: min(b.MinX, o.MinX),
		MinY: min(b.MinY, o.MinY),
		MinZ: min(b.MinZ, o.MinZ),
		MaxX: max(b.MaxX, o.MaxX),
		MaxY: max(b.MaxY, o.MaxY),
		MaxZ: max(b.MaxZ, o.MaxZ),
	}
}

// CellSize is the edge length of one grid cell in blocks.
const CellSize = 16

// VerticalExtent is the world column height a volume spans.
type VerticalExtent struct {
	MinY int
	MaxY int
}

// CellBounds returns the full-column bounds for one grid cell.
func CellBounds(cellX, cellZ int, v VerticalExtent) Bounds {
	minX := cellX * CellSize
	minZ := cellZ * CellSize
	return Bounds{
		MinX: minX, MinY: v.MinY, MinZ: minZ,
		MaxX: minX + CellSize - 1, MaxY: v.MaxY, MaxZ: minZ + CellSize - 1,
	}
}

// Service creates and maintains named protected volumes, keyed by world and
// name. Implementations are independently-failing collaborators: callers must
// treat every error as terminal for the running workflow and compensate.
type Service interface {
	// CreateVolume creates a volume owned by the principal. The name must be
	// available in the world's namespace.
	CreateVolume(ctx context.Context, world, name string, b Bounds, owner ulid.ULID) error

	// DeleteVolume removes a volume. Deleting a missing volume is not an
	// error; the namespace self-heals.
	DeleteVolume(ctx context.Context, world, name string) error

	// AddMember grants a principal member access to a volume.
	AddMember(ctx context.Context, world, name string, p ulid.ULID) error

	// RemoveMember revokes a principal's member access.
	RemoveMember(ctx context.Context, world, name string, p ulid.ULID) error

	// SetOwner reassigns the volume's owner and clears its member list.
	SetOwner(ctx context.Context, world, name string, p ulid.ULID) error

	// VolumeBounds returns the bounds of a volume, reporting ok=false when
	// it does not exist.
	VolumeBounds(ctx context.Context, world, name string) (b Bounds, ok bool, err error)

	// NameAvailable reports whether the candidate name is unused in the
	// world's namespace.
	NameAvailable(ctx context.Context, world, candidate string) (bool, error)
}
