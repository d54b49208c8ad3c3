// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

// Package access decides whether a principal may perform a protected action
// inside a claim. The event layer calls one resolver method per action.
package access

import (
	"context"
	"sync"

	"github.com/gobwas/glob"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// AdminPermission is the permission consulted for the administrative
// override on structural actions.
const AdminPermission = "claims:admin"

// AdminChecker reports whether a principal holds the administrative override.
type AdminChecker interface {
	IsAdmin(ctx context.Context, p ulid.ULID) bool
}

// compiledPermission holds a permission pattern and its compiled glob.
type compiledPermission struct {
	pattern string
	glob    glob.Glob
}

// StaticAdmin implements AdminChecker with per-principal permission
// patterns, glob-matched with ':' as the segment separator, so a grant of
// "claims:*" covers "claims:admin".
//
// Thread-safety: grants are mutable and protected by mu.
type StaticAdmin struct {
	mu     sync.RWMutex
	grants map[ulid.ULID][]compiledPermission
}

// NewStaticAdmin creates an empty StaticAdmin; nobody holds the override
// until granted.
func NewStaticAdmin() *StaticAdmin {
	return &StaticAdmin{grants: make(map[ulid.ULID][]compiledPermission)}
}

// Grant adds permission patterns for a principal. Returns an error if any
// pattern fails to compile.
func (a *StaticAdmin) Grant(p ulid.ULID, patterns ...string) error {
	compiled := make([]compiledPermission, 0, len(patterns))
	for _, pat := range patterns {
		g, err := glob.Compile(pat, ':')
		if err != nil {
			return oops.In("access").
				Code("INVALID_PERMISSION_PATTERN").
				With("pattern", pat).
				Wrap(err)
		}
		compiled = append(compiled, compiledPermission{pattern: pat, glob: g})
	}

	a.mu.Lock()
	a.grants[p] = append(a.grants[p], compiled...)
	a.mu.Unlock()
	return nil
}

// Revoke removes every grant for a principal.
func (a *StaticAdmin) Revoke(p ulid.ULID) {
	a.mu.Lock()
	delete(a.grants, p)
	a.mu.Unlock()
}

// IsAdmin implements AdminChecker.
func (a *StaticAdmin) IsAdmin(_ context.Context, p ulid.ULID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, perm := range a.grants[p] {
		if perm.glob.Match(AdminPermission) {
			return true
		}
	}
	return false
}

var _ AdminChecker = (*StaticAdmin)(nil)
