// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridHold Contributors

// Package claimtest provides in-memory test doubles for the claim package.
package claimtest

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/gridhold/gridhold/internal/claim"
)

// Repo is an in-memory claim.Repository for unit tests. It enforces the same
// uniqueness rules the Postgres schema does: one claim per (world, cell) and
// one trust row per (claim, principal).
type Repo struct {
	mu     sync.Mutex
	nextID int64
	claims map[int64]*claim.Claim
	trust  map[int64]map[ulid.ULID]string

	// Error hooks; when set the corresponding call fails with the error.
	InsertErr     error
	UpdateErr     error
	DeleteErr     error
	AddTrustErr   error
	ClearTrustErr error
}

// NewRepo creates an empty in-memory repository.
func NewRepo() *Repo {
	return &Repo{
		nextID: 1,
		claims: make(map[int64]*claim.Claim),
		trust:  make(map[int64]map[ulid.ULID]string),
	}
}

// Insert stores a copy of the claim and returns its assigned id.
func (r *Repo) Insert(_ context.Context, c *claim.Claim) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.InsertErr != nil {
		return 0, r.InsertErr
	}
	for _, existing := range r.claims {
		if existing.World == c.World && existing.CellX == c.CellX && existing.CellZ == c.CellZ {
			return 0, claim.ErrPositionTaken
		}
	}
	id := r.nextID
	r.nextID++
	stored := c.Clone()
	stored.ID = id
	r.claims[id] = stored
	return id, nil
}

func (r *Repo) Update(_ context.Context, c *claim.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	if _, ok := r.claims[c.ID]; !ok {
		return claim.ErrNotFound
	}
	r.claims[c.ID] = c.Clone()
	return nil
}

func (r *Repo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	if _, ok := r.claims[id]; !ok {
		return claim.ErrNotFound
	}
	delete(r.claims, id)
	delete(r.trust, id)
	return nil
}

func (r *Repo) LoadAll(_ context.Context) ([]*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*claim.Claim, 0, len(r.claims))
	for _, c := range r.claims {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (r *Repo) NameExists(_ context.Context, owner ulid.ULID, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.claims {
		if c.Owner.ID == owner && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

// NextSuffix returns the smallest n >= 1 for which "{base}_{n}" is free
// among the owner's claims.
func (r *Repo) NextSuffix(_ context.Context, owner ulid.ULID, base string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	taken := make(map[string]bool)
	for _, c := range r.claims {
		if c.Owner.ID == owner {
			taken[strings.ToLower(c.Name)] = true
		}
	}
	lower := strings.ToLower(base)
	for n := 1; ; n++ {
		if !taken[lower+"_"+strconv.Itoa(n)] {
			return n, nil
		}
	}
}

func (r *Repo) AddTrust(_ context.Context, claimID int64, p claim.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.AddTrustErr != nil {
		return r.AddTrustErr
	}
	rows := r.trust[claimID]
	if rows == nil {
		rows = make(map[ulid.ULID]string)
		r.trust[claimID] = rows
	}
	if _, ok := rows[p.ID]; ok {
		return claim.ErrTrustExists
	}
	rows[p.ID] = p.Name
	return nil
}

func (r *Repo) RemoveTrust(_ context.Context, claimID int64, principal ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.trust[claimID]
	if _, ok := rows[principal]; !ok {
		return claim.ErrNotFound
	}
	delete(rows, principal)
	return nil
}

func (r *Repo) ListTrust(_ context.Context, claimID int64) ([]claim.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.trust[claimID]
	out := make([]claim.Principal, 0, len(rows))
	for id, name := range rows {
		out = append(out, claim.Principal{ID: id, Name: name})
	}
	return out, nil
}

func (r *Repo) ClearTrust(_ context.Context, claimID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ClearTrustErr != nil {
		return r.ClearTrustErr
	}
	delete(r.trust, claimID)
	return nil
}

// Get returns the stored claim by id, or nil. Test helper.
func (r *Repo) Get(id int64) *claim.Claim {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.claims[id]
	if !ok {
		return nil
	}
	return c.Clone()
}

// TrustRows returns the stored trust principal ids for a claim. Test helper.
func (r *Repo) TrustRows(claimID int64) []ulid.ULID {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ulid.ULID, 0, len(r.trust[claimID]))
	for id := range r.trust[claimID] {
		out = append(out, id)
	}
	return out
}

// Len returns the number of stored claims. Test helper.
func (r *Repo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.claims)
}
