// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

// Package memory provides an in-process geofence.Service backed by maps.
// It serves single-node deployments without a durable region backend and the
// engine's unit tests.
package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/gridhold/gridhold/internal/geofence"
)

type volume struct {
	bounds  geofence.Bounds
	owner   ulid.ULID
	members map[ulid.ULID]struct{}
}

// Store is an in-memory geofence.Service. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	volumes map[string]map[string]*volume // world → name → volume
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{volumes: make(map[string]map[string]*volume)}
}

// CreateVolume implements geofence.Service.
func (s *Store) CreateVolume(_ context.Context, world, name string, b geofence.Bounds, owner ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.volumes[world]
	if ns == nil {
		ns = make(map[string]*volume)
		s.volumes[world] = ns
	}
	ns[name] = &volume{bounds: b, owner: owner, members: make(map[ulid.ULID]struct{})}
	return nil
}

// DeleteVolume implements geofence.Service. Deleting a missing volume is a
// no-op.
func (s *Store) DeleteVolume(_ context.Context, world, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ns := s.volumes[world]; ns != nil {
		delete(ns, name)
	}
	return nil
}

// AddMember implements geofence.Service.
func (s *Store) AddMember(_ context.Context, world, name string, p ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.lookupLocked(world, name)
	if v == nil {
		return geofence.ErrVolumeNotFound
	}
	v.members[p] = struct{}{}
	return nil
}

// RemoveMember implements geofence.Service.
func (s *Store) RemoveMember(_ context.Context, world, name string, p ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.lookupLocked(world, name)
	if v == nil {
		return geofence.ErrVolumeNotFound
	}
	delete(v.members, p)
	return nil
}

// SetOwner implements geofence.Service. Members are cleared alongside the
// owner change.
func (s *Store) SetOwner(_ context.Context, world, name string, p ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.lookupLocked(world, name)
	if v == nil {
		return geofence.ErrVolumeNotFound
	}
	v.owner = p
	v.members = make(map[ulid.ULID]struct{})
	return nil
}

// VolumeBounds implements geofence.Service.
func (s *Store) VolumeBounds(_ context.Context, world, name string) (geofence.Bounds, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.lookupLocked(world, name)
	if v == nil {
		return geofence.Bounds{}, false, nil
	}
	return v.bounds, true, nil
}

// NameAvailable implements geofence.Service.
func (s *Store) NameAvailable(_ context.Context, world, candidate string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupLocked(world, candidate) == nil, nil
}

// Owner returns the volume's owner, for tests and diagnostics.
func (s *Store) Owner(world, name string) (ulid.ULID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.lookupLocked(world, name)
	if v == nil {
		return ulid.ULID{}, false
	}
	return v.owner, true
}

// Members returns a copy of the volume's member set, for tests and
// diagnostics.
func (s *Store) Members(world, name string) map[ulid.ULID]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.lookupLocked(world, name)
	if v == nil {
		return nil
	}
	out := make(map[ulid.ULID]struct{}, len(v.members))
	for id := range v.members {
		out[id] = struct{}{}
	}
	return out
}

// VolumeCount returns the number of volumes in a world's namespace.
func (s *Store) VolumeCount(world string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.volumes[world])
}

func (s *Store) lookupLocked(world, name string) *volume {
	ns := s.volumes[world]
	if ns == nil {
		return nil
	}
	return ns[name]
}

var _ geofence.Service = (*Store)(nil)
