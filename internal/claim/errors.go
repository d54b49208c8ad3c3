// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

package claim

import "errors"

// ErrNotFound is returned when a requested claim or trust row does not exist.
var ErrNotFound = errors.New("not found")

// ErrPositionTaken is returned by the store when an insert collides with the
// unique (world, cell_x, cell_z) constraint. This is the linearization point
// for concurrent claim attempts at the same position.
var ErrPositionTaken = errors.New("position already claimed")

// ErrTrustExists is returned when a trust row already exists for the pair.
var ErrTrustExists = errors.New("principal already trusted")
