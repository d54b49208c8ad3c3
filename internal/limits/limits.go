// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

// Package limits resolves the maximum number of claims a principal may hold.
package limits

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Unlimited is the sentinel limit for principals with no claim cap. It must
// never be compared numerically against a claim count; callers check for it
// explicitly before comparing.
const Unlimited = -1

// Service resolves a principal's claim limit.
type Service interface {
	LimitFor(ctx context.Context, p ulid.ULID) (int, error)
}

// GroupResolver maps a principal to the permission groups it belongs to.
// Implementations typically front an external permission backend.
type GroupResolver interface {
	GroupsOf(ctx context.Context, p ulid.ULID) ([]string, error)
}

// GroupResolverFunc adapts a function to the GroupResolver interface.
type GroupResolverFunc func(ctx context.Context, p ulid.ULID) ([]string, error)

// GroupsOf implements GroupResolver.
func (f GroupResolverFunc) GroupsOf(ctx context.Context, p ulid.ULID) ([]string, error) {
	return f(ctx, p)
}

// Static resolves limits from configuration: a default limit, per-group
// overrides, and an optional group resolver. Without a resolver every
// principal receives the default limit.
type Static struct {
	def      int
	groups   map[string]int
	resolver GroupResolver
}

// NewStatic creates a Static limit service. A nil groups map means no
// per-group overrides; a nil resolver means the default applies to everyone.
func NewStatic(def int, groups map[string]int, resolver GroupResolver) *Static {
	return &Static{def: def, groups: groups, resolver: resolver}
}

// LimitFor implements Service. When the principal belongs to several groups
// with overrides, the highest limit wins; Unlimited beats everything.
func (s *Static) LimitFor(ctx context.Context, p ulid.ULID) (int, error) {
	if s.resolver == nil || len(s.groups) == 0 {
		return s.def, nil
	}
	groups, err := s.resolver.GroupsOf(ctx, p)
	if err != nil {
		return 0, err
	}

	limit := s.def
	for _, g := range groups {
		gl, ok := s.groups[g]
		if !ok {
			continue
		}
		if gl == Unlimited {
			return Unlimited, nil
		}
		if limit != Unlimited && gl > limit {
			limit = gl
		}
	}
	return limit, nil
}

var _ Service = (*Static)(nil)
